package maze

import (
	"fmt"

	"mazerace/internal/domain"
)

const unreached = -1

// Analysis holds the distance-to-goal field and the optimal path
// length computed once per maze. Immutable after Analyze returns.
type Analysis struct {
	OptimalLength int

	field [][]int
}

// Analyze runs a breadth-first search rooted at the goal over the open
// edges of the grid. A start cell that cannot reach the goal is fatal;
// any other unreached cell keeps the sentinel distance and triggers an
// error only if something ever references it.
func Analyze(g *Grid) (*Analysis, error) {
	field := make([][]int, g.Dim)
	for r := range field {
		field[r] = make([]int, g.Dim)
		for c := range field[r] {
			field[r][c] = unreached
		}
	}

	field[g.Goal.Row][g.Goal.Col] = 0
	queue := []domain.Position{g.Goal}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, a := range domain.Actions() {
			next, moved := g.Move(cur, a)
			if !moved || field[next.Row][next.Col] != unreached {
				continue
			}
			field[next.Row][next.Col] = field[cur.Row][cur.Col] + 1
			queue = append(queue, next)
		}
	}

	if field[g.Start.Row][g.Start.Col] == unreached {
		return nil, fmt.Errorf("start (%d,%d) cannot reach goal: %w", g.Start.Row, g.Start.Col, ErrDisconnectedMaze)
	}

	return &Analysis{
		OptimalLength: field[g.Start.Row][g.Start.Col],
		field:         field,
	}, nil
}

// Distance returns the shortest-path hop count from pos to the goal.
func (a *Analysis) Distance(pos domain.Position) (int, error) {
	if pos.Row < 0 || pos.Row >= len(a.field) || pos.Col < 0 || pos.Col >= len(a.field) {
		return 0, fmt.Errorf("position (%d,%d) out of bounds: %w", pos.Row, pos.Col, ErrUnreachableCell)
	}
	d := a.field[pos.Row][pos.Col]
	if d == unreached {
		return 0, fmt.Errorf("position (%d,%d): %w", pos.Row, pos.Col, ErrUnreachableCell)
	}
	return d, nil
}
