// Package agent implements the tabular Q-learning agent: value table,
// exploration schedule, move selection, and the reward shaping used
// during both training and racing.
package agent

import (
	"errors"
	"fmt"
	"math/rand"

	"mazerace/internal/domain"
	"mazerace/internal/maze"
)

// ErrNoLegalAction signals a fully enclosed cell. The generator's
// connectivity contract makes this impossible; hitting it means a bug.
var ErrNoLegalAction = errors.New("no legal action from state")

// Rewards holds the reward constants applied per step. Penalties are
// negative values.
type Rewards struct {
	GoalBonus      float64
	StepPenalty    float64
	RevisitPenalty float64
	WallPenalty    float64
	ShapingScale   float64
}

// Config is the fixed per-agent configuration. Identical across
// agents in the default setup so the race compares learning only.
type Config struct {
	Name           string
	Color          string
	Alpha          float64
	Gamma          float64
	InitialEpsilon float64
	FloorEpsilon   float64
	EpisodeStepCap int
	TrailSize      int
	Rewards        Rewards
}

// Agent owns a Q-table and its episode state. It shares the grid and
// distance field read-only with every other agent but never observes
// them.
type Agent struct {
	cfg   Config
	grid  *maze.Grid
	field *maze.Analysis
	rng   *rand.Rand

	table   *QTable
	pos     domain.Position
	epsilon float64

	episodeSteps   int
	visits         map[domain.Position]int
	explored       map[domain.Position]struct{}
	trail          []domain.Position
	positiveReward float64
	goalsReached   int
}

// New creates an agent positioned at the grid's start cell. The random
// source drives epsilon-greedy choices only and must not be shared.
func New(cfg Config, grid *maze.Grid, field *maze.Analysis, rng *rand.Rand) *Agent {
	a := &Agent{
		cfg:      cfg,
		grid:     grid,
		field:    field,
		rng:      rng,
		table:    NewQTable(),
		epsilon:  cfg.InitialEpsilon,
		explored: make(map[domain.Position]struct{}),
	}
	a.Respawn()
	return a
}

func (a *Agent) Name() string              { return a.cfg.Name }
func (a *Agent) Position() domain.Position { return a.pos }
func (a *Agent) Exploration() float64      { return a.epsilon }
func (a *Agent) Table() *QTable            { return a.table }
func (a *Agent) GoalsReached() int         { return a.goalsReached }

// AtGoal reports whether the agent currently stands on the goal cell.
func (a *Agent) AtGoal() bool { return a.pos == a.grid.Goal }

// SelectAction picks the next action from state. With explore set, a
// uniformly random legal action is taken with probability epsilon;
// otherwise (and always in race mode) the highest-valued legal action
// wins, ties broken by the fixed action order.
func (a *Agent) SelectAction(state domain.Position, explore bool) (domain.Action, error) {
	legal := a.grid.LegalActions(state)
	if len(legal) == 0 {
		return 0, fmt.Errorf("state (%d,%d): %w", state.Row, state.Col, ErrNoLegalAction)
	}
	if explore && a.rng.Float64() < a.epsilon {
		return legal[a.rng.Intn(len(legal))], nil
	}
	best := legal[0]
	bestValue := a.table.Get(state, best)
	for _, act := range legal[1:] {
		if v := a.table.Get(state, act); v > bestValue {
			best, bestValue = act, v
		}
	}
	return best, nil
}

// Step applies the action from state. A wall-blocked move leaves the
// agent in place, still consumes a step, and incurs the wall penalty.
// done reports goal arrival or episode cap exhaustion.
func (a *Agent) Step(state domain.Position, action domain.Action) (next domain.Position, reward float64, done bool, err error) {
	next, moved := a.grid.Move(state, action)
	a.episodeSteps++

	if next == a.grid.Goal {
		reward = a.cfg.Rewards.GoalBonus
		a.goalsReached++
	} else {
		dPrev, derr := a.field.Distance(state)
		if derr != nil {
			return state, 0, false, derr
		}
		dNext, derr := a.field.Distance(next)
		if derr != nil {
			return state, 0, false, derr
		}
		reward = a.cfg.Rewards.StepPenalty + a.cfg.Rewards.ShapingScale*float64(dPrev-dNext)
		if prior := a.visits[next]; prior > 0 {
			reward += a.cfg.Rewards.RevisitPenalty * float64(prior)
		}
		if !moved {
			reward += a.cfg.Rewards.WallPenalty
		}
	}

	a.pos = next
	a.visits[next]++
	a.explored[next] = struct{}{}
	a.pushTrail(next)
	if reward > 0 {
		a.positiveReward += reward
	}

	done = next == a.grid.Goal || a.episodeSteps >= a.cfg.EpisodeStepCap
	return next, reward, done, nil
}

// Update applies the Q-learning rule
// Q(s,a) += alpha * (r + gamma*max_a' Q(s',a') - Q(s,a)).
// The goal row is never written (agents respawn on arrival), so the
// literal form needs no terminal special case.
func (a *Agent) Update(state domain.Position, action domain.Action, reward float64, next domain.Position) {
	current := a.table.Get(state, action)
	target := reward + a.cfg.Gamma*a.table.Max(next)
	a.table.Set(state, action, current+a.cfg.Alpha*(target-current))
}

// DecayExploration pins epsilon to the schedule value for elapsed of
// total planned training steps. The schedule is non-increasing; a
// value above the current epsilon is refused so decay stays monotonic.
func (a *Agent) DecayExploration(elapsed, total int) {
	eps := ExplorationRate(a.cfg.InitialEpsilon, a.cfg.FloorEpsilon, elapsed, total)
	if eps > a.epsilon {
		return
	}
	a.epsilon = eps
}

// Freeze switches the agent to pure exploitation for racing.
func (a *Agent) Freeze() {
	a.epsilon = 0
}

// Respawn puts the agent back on the start cell with a fresh
// per-episode visit map. The Q-table and per-run counters survive.
func (a *Agent) Respawn() {
	a.pos = a.grid.Start
	a.episodeSteps = 0
	a.visits = make(map[domain.Position]int)
	a.visits[a.pos] = 1
	a.explored[a.pos] = struct{}{}
	a.trail = a.trail[:0]
	a.pushTrail(a.pos)
}

func (a *Agent) pushTrail(pos domain.Position) {
	size := a.cfg.TrailSize
	if size <= 0 {
		return
	}
	a.trail = append(a.trail, pos)
	if len(a.trail) > size {
		a.trail = a.trail[len(a.trail)-size:]
	}
}

// Snapshot returns the read-only view consumed by the presentation
// layer.
func (a *Agent) Snapshot() domain.AgentSnapshot {
	trail := make([]domain.Position, len(a.trail))
	copy(trail, a.trail)
	return domain.AgentSnapshot{
		Name:           a.cfg.Name,
		Color:          a.cfg.Color,
		Position:       a.pos,
		Trail:          trail,
		Exploration:    a.epsilon,
		PositiveReward: a.positiveReward,
		GoalsReached:   a.goalsReached,
		CellsExplored:  len(a.explored),
		EpisodeSteps:   a.episodeSteps,
	}
}
