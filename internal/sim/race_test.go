package sim

import (
	"math/rand"
	"testing"

	"mazerace/internal/agent"
	"mazerace/internal/domain"
	"mazerace/internal/maze"
)

func testAgentConfig(name string) agent.Config {
	return agent.Config{
		Name:           name,
		Color:          "red",
		Alpha:          0.10,
		Gamma:          0.97,
		InitialEpsilon: 0.90,
		FloorEpsilon:   0.01,
		EpisodeStepCap: 500,
		TrailSize:      24,
		Rewards: agent.Rewards{
			GoalBonus:      200,
			StepPenalty:    -1,
			RevisitPenalty: -8,
			WallPenalty:    -20,
			ShapingScale:   5,
		},
	}
}

// corridorWorld builds the 5x5 single-corridor layout: start (0,0),
// goal (0,4), row 0 open left to right, the rest sealed.
func corridorWorld(t *testing.T) (*maze.Grid, *maze.Analysis) {
	t.Helper()
	g, err := maze.Assemble(5, domain.Position{Row: 0, Col: 0}, domain.Position{Row: 0, Col: 4})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	for c := 0; c < 4; c++ {
		if err := g.Open(domain.Position{Row: 0, Col: c}, domain.ActionRight); err != nil {
			t.Fatalf("open (0,%d): %v", c, err)
		}
	}
	an, err := maze.Analyze(g)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	return g, an
}

func seededCorridorAgent(t *testing.T, name string, g *maze.Grid, an *maze.Analysis, seed int64) *agent.Agent {
	t.Helper()
	ag := agent.New(testAgentConfig(name), g, an, rand.New(rand.NewSource(seed)))
	for c := 0; c < 4; c++ {
		ag.Table().Set(domain.Position{Row: 0, Col: c}, domain.ActionRight, 1)
	}
	return ag
}

func TestRunRaceOptimalCorridor(t *testing.T) {
	g, an := corridorWorld(t)
	ag := seededCorridorAgent(t, "solo", g, an, 1)

	laps, err := RunRace([]*agent.Agent{ag}, 800)
	if err != nil {
		t.Fatalf("race: %v", err)
	}
	if len(laps) != 1 {
		t.Fatalf("laps = %d, want 1", len(laps))
	}
	lap := laps[0]
	if !lap.Finished || lap.Steps != 4 {
		t.Fatalf("lap = %+v, want finished in 4 steps", lap)
	}

	results := Rank(laps, an.OptimalLength)
	if results[0].Efficiency != 100 {
		t.Fatalf("efficiency = %g, want 100", results[0].Efficiency)
	}
}

func TestRunRaceDeterministic(t *testing.T) {
	g, an := corridorWorld(t)
	ag := seededCorridorAgent(t, "replay", g, an, 99)

	first, err := RunRace([]*agent.Agent{ag}, 800)
	if err != nil {
		t.Fatalf("first race: %v", err)
	}
	second, err := RunRace([]*agent.Agent{ag}, 800)
	if err != nil {
		t.Fatalf("second race: %v", err)
	}
	a, b := first[0], second[0]
	if a.Steps != b.Steps || a.Finished != b.Finished || len(a.Actions) != len(b.Actions) {
		t.Fatalf("replay diverged: %+v vs %+v", a, b)
	}
	for i := range a.Actions {
		if a.Actions[i] != b.Actions[i] {
			t.Fatalf("action %d diverged: %s vs %s", i, a.Actions[i], b.Actions[i])
		}
	}
}

func TestRunRaceDNF(t *testing.T) {
	g, an := corridorWorld(t)
	// Untrained table: the greedy tie-break at (0,1) picks left, so
	// the agent oscillates between the first two cells forever.
	ag := agent.New(testAgentConfig("lost"), g, an, rand.New(rand.NewSource(1)))

	laps, err := RunRace([]*agent.Agent{ag}, 50)
	if err != nil {
		t.Fatalf("race: %v", err)
	}
	lap := laps[0]
	if lap.Finished {
		t.Fatalf("untrained agent finished: %+v", lap)
	}
	if lap.Steps != 50 {
		t.Fatalf("DNF steps = %d, want maxSteps 50", lap.Steps)
	}
}

func TestRankOrdering(t *testing.T) {
	laps := []Lap{
		{Agent: "slow", Steps: 30, Finished: true},
		{Agent: "lost", Steps: 800, Finished: false},
		{Agent: "fast", Steps: 20, Finished: true},
		{Agent: "best", Steps: 10, Finished: true},
	}
	results := Rank(laps, 10)

	wantOrder := []string{"best", "fast", "slow", "lost"}
	for i, name := range wantOrder {
		if results[i].Agent != name {
			t.Fatalf("rank %d = %s, want %s", i+1, results[i].Agent, name)
		}
		if results[i].Rank != i+1 {
			t.Fatalf("rank field = %d, want %d", results[i].Rank, i+1)
		}
	}

	if results[0].Efficiency != 100 {
		t.Fatalf("optimal efficiency = %g, want 100", results[0].Efficiency)
	}
	for _, r := range results[:3] {
		if r.Efficiency <= 0 || r.Efficiency > 100 {
			t.Fatalf("agent %s efficiency %g out of range", r.Agent, r.Efficiency)
		}
		if r.Steps > 10 && r.Efficiency == 100 {
			t.Fatalf("agent %s got 100%% on a non-optimal run", r.Agent)
		}
	}
	if results[3].Efficiency != 0 {
		t.Fatalf("DNF efficiency = %g, want 0", results[3].Efficiency)
	}
}
