// Package sim drives the simulation: the training loop that advances
// every agent through the shared maze, the race controller that
// replays frozen policies, and the service that owns both behind a
// read-only snapshot surface.
package sim

import (
	"fmt"

	"mazerace/internal/agent"
)

// Trainer advances a set of agents through the same maze, one
// environment step per agent per tick. Agents never observe each
// other; iteration order is fixed but has no effect on outcomes.
type Trainer struct {
	agents []*agent.Agent
	budget int

	steps int
}

func NewTrainer(agents []*agent.Agent, budget int) *Trainer {
	return &Trainer{agents: agents, budget: budget}
}

// Tick advances every agent by exactly one step and update, respawns
// agents whose episode ended, then decays exploration once. Calling
// Tick after the budget is exhausted is a no-op.
func (t *Trainer) Tick() error {
	if t.Done() {
		return nil
	}
	for _, ag := range t.agents {
		state := ag.Position()
		action, err := ag.SelectAction(state, true)
		if err != nil {
			return fmt.Errorf("agent %s: %w", ag.Name(), err)
		}
		next, reward, done, err := ag.Step(state, action)
		if err != nil {
			return fmt.Errorf("agent %s: %w", ag.Name(), err)
		}
		ag.Update(state, action, reward, next)
		if done {
			// Goal or truncation: either way the agent restarts the
			// episode with its table intact.
			ag.Respawn()
		}
	}
	t.steps++
	for _, ag := range t.agents {
		ag.DecayExploration(t.steps, t.budget)
	}
	return nil
}

// StepsTaken reports completed training steps.
func (t *Trainer) StepsTaken() int { return t.steps }

// Done reports whether the training budget is exhausted.
func (t *Trainer) Done() bool { return t.steps >= t.budget }
