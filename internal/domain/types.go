package domain

import "time"

// Action is one of the four cardinal moves an agent can attempt.
type Action int

const (
	ActionUp Action = iota
	ActionDown
	ActionLeft
	ActionRight

	NumActions = 4
)

var actionNames = [NumActions]string{"up", "down", "left", "right"}

func (a Action) String() string {
	if a < 0 || int(a) >= NumActions {
		return "invalid"
	}
	return actionNames[a]
}

// Delta returns the row/column offset of the action.
func (a Action) Delta() (dRow, dCol int) {
	switch a {
	case ActionUp:
		return -1, 0
	case ActionDown:
		return 1, 0
	case ActionLeft:
		return 0, -1
	default:
		return 0, 1
	}
}

// Actions lists all actions in their fixed tie-break order.
func Actions() [NumActions]Action {
	return [NumActions]Action{ActionUp, ActionDown, ActionLeft, ActionRight}
}

// Wall is a bit mask of the closed sides of a cell.
type Wall uint8

const (
	WallUp Wall = 1 << iota
	WallDown
	WallLeft
	WallRight
)

// WallFor maps an action to the wall that would block it.
func WallFor(a Action) Wall {
	switch a {
	case ActionUp:
		return WallUp
	case ActionDown:
		return WallDown
	case ActionLeft:
		return WallLeft
	default:
		return WallRight
	}
}

// Position identifies a cell and doubles as the Q-table state key.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Phase is the lifecycle stage of a simulation run.
type Phase string

const (
	PhaseTraining Phase = "training"
	PhaseRacing   Phase = "racing"
	PhaseFinished Phase = "finished"
)

// AgentSnapshot is the read-only per-agent view consumed by the
// presentation layer once per frame.
type AgentSnapshot struct {
	Name           string     `json:"name"`
	Color          string     `json:"color"`
	Position       Position   `json:"position"`
	Trail          []Position `json:"trail,omitempty"`
	Exploration    float64    `json:"exploration"`
	PositiveReward float64    `json:"positive_reward"`
	GoalsReached   int        `json:"goals_reached"`
	CellsExplored  int        `json:"cells_explored"`
	EpisodeSteps   int        `json:"episode_steps"`
}

// RaceResult records one agent's outcome in a race.
type RaceResult struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id"`
	Agent      string    `json:"agent"`
	Rank       int       `json:"rank"`
	Steps      int       `json:"steps"`
	Finished   bool      `json:"finished"`
	Efficiency float64   `json:"efficiency"`
	CreatedAt  time.Time `json:"created_at"`
}

// TrainingStat is the final per-agent training record persisted per run.
type TrainingStat struct {
	RunID          string    `json:"run_id"`
	Agent          string    `json:"agent"`
	GoalsReached   int       `json:"goals_reached"`
	PositiveReward float64   `json:"positive_reward"`
	CellsExplored  int       `json:"cells_explored"`
	FinalEpsilon   float64   `json:"final_epsilon"`
	CreatedAt      time.Time `json:"created_at"`
}

// Run identifies one maze episode: a generated maze plus the training
// and racing performed on it.
type Run struct {
	ID            string    `json:"id"`
	Seed          int64     `json:"seed"`
	GridDimension int       `json:"grid_dimension"`
	OptimalLength int       `json:"optimal_length"`
	TrainingSteps int       `json:"training_steps"`
	CreatedAt     time.Time `json:"created_at"`
}

// StateSnapshot is the whole-simulation view served over the API.
type StateSnapshot struct {
	RunID         string          `json:"run_id"`
	Phase         Phase           `json:"phase"`
	StepsTaken    int             `json:"steps_taken"`
	StepBudget    int             `json:"step_budget"`
	OptimalLength int             `json:"optimal_length"`
	GridDimension int             `json:"grid_dimension"`
	RaceSpeedMS   int             `json:"race_speed_ms"`
	Agents        []AgentSnapshot `json:"agents"`
	Race          []RaceResult    `json:"race,omitempty"`
	LastError     string          `json:"last_error,omitempty"`
}
