package agent

import "mazerace/internal/domain"

// QTable maps (state, action) pairs to value estimates. Entries grow
// lazily; unseen pairs read as 0. Each table is owned by exactly one
// agent and never shared.
type QTable struct {
	values map[domain.Position][]float64
}

func NewQTable() *QTable {
	return &QTable{values: make(map[domain.Position][]float64)}
}

func (q *QTable) row(state domain.Position) []float64 {
	row, ok := q.values[state]
	if !ok {
		row = make([]float64, domain.NumActions)
		q.values[state] = row
	}
	return row
}

// Get returns the current estimate for (state, action); 0 if unseen.
func (q *QTable) Get(state domain.Position, a domain.Action) float64 {
	row, ok := q.values[state]
	if !ok {
		return 0
	}
	return row[a]
}

// Set stores an estimate for (state, action).
func (q *QTable) Set(state domain.Position, a domain.Action, value float64) {
	q.row(state)[a] = value
}

// Max returns the highest estimate over all actions at state.
func (q *QTable) Max(state domain.Position) float64 {
	row, ok := q.values[state]
	if !ok {
		return 0
	}
	best := row[0]
	for _, v := range row[1:] {
		if v > best {
			best = v
		}
	}
	return best
}

// Len reports how many states have at least one stored estimate.
func (q *QTable) Len() int {
	return len(q.values)
}
