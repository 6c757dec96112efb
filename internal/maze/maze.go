/*
Package maze generates square grid mazes and analyzes their path
structure.

A maze is carved with randomized depth-first search, which guarantees
that every cell is reachable from every other. An optional post-pass
removes extra walls between already-connected cells to introduce
cycles. Analysis runs a breadth-first search from the goal to produce
the optimal path length and a per-cell distance-to-goal field.
*/
package maze

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"mazerace/internal/domain"
)

const MinDimension = 5

var (
	// ErrDisconnectedMaze signals a generation bug: a cell ended up
	// unreachable from the goal.
	ErrDisconnectedMaze = errors.New("maze is not fully connected")

	// ErrUnreachableCell signals a lookup of a cell the distance field
	// never reached.
	ErrUnreachableCell = errors.New("cell is unreachable in distance field")
)

// Grid is a square maze of wall-masked cells. It is immutable after
// generation; agents share one Grid without synchronization.
type Grid struct {
	Dim   int
	Start domain.Position
	Goal  domain.Position

	cells [][]domain.Wall
}

// Generate carves a maze of the given odd dimension using the supplied
// random source. loopProbability is the independent chance of removing
// each still-closed interior wall after carving, adding cycles without
// affecting connectivity. Output is deterministic for a fixed rng.
func Generate(dim int, loopProbability float64, rng *rand.Rand) (*Grid, error) {
	if dim < MinDimension || dim%2 == 0 {
		return nil, fmt.Errorf("grid dimension must be odd and >= %d, got %d", MinDimension, dim)
	}
	if loopProbability < 0 || loopProbability >= 1 {
		return nil, fmt.Errorf("loop probability must be in [0,1), got %g", loopProbability)
	}
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}

	cells := make([][]domain.Wall, dim)
	for r := range cells {
		cells[r] = make([]domain.Wall, dim)
		for c := range cells[r] {
			cells[r][c] = domain.WallUp | domain.WallDown | domain.WallLeft | domain.WallRight
		}
	}
	g := &Grid{
		Dim:   dim,
		Start: domain.Position{Row: 0, Col: 0},
		Goal:  domain.Position{Row: dim - 1, Col: dim - 1},
		cells: cells,
	}
	g.carve(rng)
	g.addLoops(loopProbability, rng)
	return g, nil
}

// Assemble returns a fully sealed grid with the given start and goal,
// for building exact layouts wall by wall via Open. Generated mazes
// should come from Generate instead.
func Assemble(dim int, start, goal domain.Position) (*Grid, error) {
	if dim < MinDimension || dim%2 == 0 {
		return nil, fmt.Errorf("grid dimension must be odd and >= %d, got %d", MinDimension, dim)
	}
	cells := make([][]domain.Wall, dim)
	for r := range cells {
		cells[r] = make([]domain.Wall, dim)
		for c := range cells[r] {
			cells[r][c] = domain.WallUp | domain.WallDown | domain.WallLeft | domain.WallRight
		}
	}
	g := &Grid{Dim: dim, Start: start, Goal: goal, cells: cells}
	if !g.InBounds(start) || !g.InBounds(goal) {
		return nil, fmt.Errorf("start or goal outside %dx%d grid", dim, dim)
	}
	return g, nil
}

// Open removes the wall between pos and its neighbor in the direction
// of a. Only meaningful on assembled grids.
func (g *Grid) Open(pos domain.Position, a domain.Action) error {
	if _, ok := g.shift(pos, a); !ok {
		return fmt.Errorf("cannot open boundary wall at (%d,%d) %s", pos.Row, pos.Col, a)
	}
	g.openWall(pos, a)
	return nil
}

// carve runs iterative randomized depth-first search from the start
// cell, knocking down the shared wall on every first visit.
func (g *Grid) carve(rng *rand.Rand) {
	visited := make([][]bool, g.Dim)
	for r := range visited {
		visited[r] = make([]bool, g.Dim)
	}

	stack := []domain.Position{g.Start}
	visited[g.Start.Row][g.Start.Col] = true

	for len(stack) > 0 {
		cur := stack[len(stack)-1]

		var candidates []domain.Action
		for _, a := range domain.Actions() {
			next, ok := g.shift(cur, a)
			if ok && !visited[next.Row][next.Col] {
				candidates = append(candidates, a)
			}
		}
		if len(candidates) == 0 {
			stack = stack[:len(stack)-1]
			continue
		}

		a := candidates[rng.Intn(len(candidates))]
		next, _ := g.shift(cur, a)
		g.openWall(cur, a)
		visited[next.Row][next.Col] = true
		stack = append(stack, next)
	}
}

// addLoops removes additional interior walls with independent
// probability p. Connectivity is already guaranteed, so removals are
// purely additive.
func (g *Grid) addLoops(p float64, rng *rand.Rand) {
	if p <= 0 {
		return
	}
	for r := 0; r < g.Dim; r++ {
		for c := 0; c < g.Dim; c++ {
			pos := domain.Position{Row: r, Col: c}
			for _, a := range [2]domain.Action{domain.ActionDown, domain.ActionRight} {
				if _, ok := g.shift(pos, a); !ok {
					continue
				}
				if g.cells[r][c]&domain.WallFor(a) == 0 {
					continue
				}
				if rng.Float64() < p {
					g.openWall(pos, a)
				}
			}
		}
	}
}

func (g *Grid) openWall(pos domain.Position, a domain.Action) {
	next, _ := g.shift(pos, a)
	g.cells[pos.Row][pos.Col] &^= domain.WallFor(a)
	g.cells[next.Row][next.Col] &^= domain.WallFor(opposite(a))
}

func opposite(a domain.Action) domain.Action {
	switch a {
	case domain.ActionUp:
		return domain.ActionDown
	case domain.ActionDown:
		return domain.ActionUp
	case domain.ActionLeft:
		return domain.ActionRight
	default:
		return domain.ActionLeft
	}
}

// shift returns the neighboring position in the direction of a, and
// whether it lies inside the grid.
func (g *Grid) shift(pos domain.Position, a domain.Action) (domain.Position, bool) {
	dr, dc := a.Delta()
	next := domain.Position{Row: pos.Row + dr, Col: pos.Col + dc}
	return next, g.InBounds(next)
}

// InBounds reports whether the position lies inside the grid.
func (g *Grid) InBounds(pos domain.Position) bool {
	return pos.Row >= 0 && pos.Row < g.Dim && pos.Col >= 0 && pos.Col < g.Dim
}

// Walls returns the wall mask of a cell.
func (g *Grid) Walls(pos domain.Position) domain.Wall {
	return g.cells[pos.Row][pos.Col]
}

// Blocked reports whether moving from pos in the direction of a is
// prevented by a wall or the grid boundary.
func (g *Grid) Blocked(pos domain.Position, a domain.Action) bool {
	if _, ok := g.shift(pos, a); !ok {
		return true
	}
	return g.cells[pos.Row][pos.Col]&domain.WallFor(a) != 0
}

// Move applies the action if legal. Blocked moves return the original
// position and moved=false.
func (g *Grid) Move(pos domain.Position, a domain.Action) (next domain.Position, moved bool) {
	if g.Blocked(pos, a) {
		return pos, false
	}
	next, _ = g.shift(pos, a)
	return next, true
}

// LegalActions returns the actions not blocked from pos, in the fixed
// tie-break order.
func (g *Grid) LegalActions(pos domain.Position) []domain.Action {
	result := make([]domain.Action, 0, domain.NumActions)
	for _, a := range domain.Actions() {
		if !g.Blocked(pos, a) {
			result = append(result, a)
		}
	}
	return result
}

// String renders the maze as ASCII art. S and G mark start and goal.
func (g *Grid) String() string {
	var b strings.Builder
	b.WriteString("+" + strings.Repeat("---+", g.Dim) + "\n")
	for r := 0; r < g.Dim; r++ {
		cellRow := "|"
		wallRow := "+"
		for c := 0; c < g.Dim; c++ {
			pos := domain.Position{Row: r, Col: c}
			switch pos {
			case g.Start:
				cellRow += " S "
			case g.Goal:
				cellRow += " G "
			default:
				cellRow += "   "
			}
			if g.cells[r][c]&domain.WallRight != 0 {
				cellRow += "|"
			} else {
				cellRow += " "
			}
			if g.cells[r][c]&domain.WallDown != 0 {
				wallRow += "---+"
			} else {
				wallRow += "   +"
			}
		}
		b.WriteString(cellRow + "\n")
		b.WriteString(wallRow + "\n")
	}
	return b.String()
}
