package sim

import (
	"fmt"
	"sort"

	"mazerace/internal/agent"
	"mazerace/internal/domain"
)

// Lap is one agent's recorded race attempt, including the full action
// sequence so reproducibility can be checked bit for bit.
type Lap struct {
	Agent    string
	Steps    int
	Finished bool
	Actions  []domain.Action
}

// RunRace replays every agent's frozen policy from the start cell for
// at most maxSteps. Exploration is forced to zero and greedy ties
// break by fixed action order, so two runs over the same tables yield
// identical action sequences.
func RunRace(agents []*agent.Agent, maxSteps int) ([]Lap, error) {
	laps := make([]Lap, 0, len(agents))
	for _, ag := range agents {
		ag.Freeze()
		ag.Respawn()

		lap := Lap{Agent: ag.Name()}
		pos := ag.Position()
		for step := 1; step <= maxSteps; step++ {
			action, err := ag.SelectAction(pos, false)
			if err != nil {
				return nil, fmt.Errorf("race agent %s: %w", ag.Name(), err)
			}
			next, _, _, err := ag.Step(pos, action)
			if err != nil {
				return nil, fmt.Errorf("race agent %s: %w", ag.Name(), err)
			}
			lap.Actions = append(lap.Actions, action)
			pos = next
			if ag.AtGoal() {
				lap.Steps = step
				lap.Finished = true
				break
			}
		}
		if !lap.Finished {
			lap.Steps = maxSteps
		}
		laps = append(laps, lap)
	}
	return laps, nil
}

// Rank orders laps into race results: finishers ascending by step
// count, non-finishers last with zero efficiency. Efficiency is
// optimal/steps as a percentage; 100 only for an optimal run.
func Rank(laps []Lap, optimalLength int) []domain.RaceResult {
	results := make([]domain.RaceResult, 0, len(laps))
	for _, lap := range laps {
		r := domain.RaceResult{
			Agent:    lap.Agent,
			Steps:    lap.Steps,
			Finished: lap.Finished,
		}
		if lap.Finished && lap.Steps > 0 {
			r.Efficiency = float64(optimalLength) / float64(lap.Steps) * 100
		}
		results = append(results, r)
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Finished != results[j].Finished {
			return results[i].Finished
		}
		if !results[i].Finished {
			return false
		}
		return results[i].Steps < results[j].Steps
	})
	for i := range results {
		results[i].Rank = i + 1
	}
	return results
}
