package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"mazerace/internal/domain"
)

func TestRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	run := domain.Run{
		ID:            uuid.NewString(),
		Seed:          42,
		GridDimension: 21,
		OptimalLength: 40,
		TrainingSteps: 20000,
		CreatedAt:     time.Now().UTC(),
	}
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("create run: %v", err)
	}

	runs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs=%d want=1", len(runs))
	}
	got := runs[0]
	if got.ID != run.ID || got.Seed != 42 || got.GridDimension != 21 || got.OptimalLength != 40 || got.TrainingSteps != 20000 {
		t.Fatalf("run round trip mismatch: %+v", got)
	}
}

func TestTrainingStatsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	runID := createTestRun(t, store)
	stats := []domain.TrainingStat{
		{RunID: runID, Agent: "cobalt", GoalsReached: 31, PositiveReward: 6400.5, CellsExplored: 441, FinalEpsilon: 0.01, CreatedAt: time.Now().UTC()},
		{RunID: runID, Agent: "scarlet", GoalsReached: 28, PositiveReward: 6120, CellsExplored: 420, FinalEpsilon: 0.01, CreatedAt: time.Now().UTC()},
	}
	if err := store.SaveTrainingStats(ctx, stats); err != nil {
		t.Fatalf("save training stats: %v", err)
	}

	got, err := store.ListTrainingStats(ctx, runID)
	if err != nil {
		t.Fatalf("list training stats: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("stats=%d want=2", len(got))
	}
	// Listing orders by agent name.
	if got[0].Agent != "cobalt" || got[1].Agent != "scarlet" {
		t.Fatalf("unexpected order: %s, %s", got[0].Agent, got[1].Agent)
	}
	if got[0].GoalsReached != 31 || got[0].PositiveReward != 6400.5 {
		t.Fatalf("stat round trip mismatch: %+v", got[0])
	}
}

func TestRaceResultsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	runID := createTestRun(t, store)
	results := []domain.RaceResult{
		{ID: uuid.NewString(), RunID: runID, Agent: "scarlet", Rank: 1, Steps: 40, Finished: true, Efficiency: 100, CreatedAt: time.Now().UTC()},
		{ID: uuid.NewString(), RunID: runID, Agent: "amber", Rank: 2, Steps: 52, Finished: true, Efficiency: 76.9, CreatedAt: time.Now().UTC()},
		{ID: uuid.NewString(), RunID: runID, Agent: "viridian", Rank: 3, Steps: 800, Finished: false, Efficiency: 0, CreatedAt: time.Now().UTC()},
	}
	if err := store.SaveRaceResults(ctx, results); err != nil {
		t.Fatalf("save race results: %v", err)
	}

	got, err := store.ListRaceResults(ctx, runID)
	if err != nil {
		t.Fatalf("list race results: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("results=%d want=3", len(got))
	}
	if got[0].Rank != 1 || got[1].Rank != 2 || got[2].Rank != 3 {
		t.Fatalf("results not ordered by rank: %+v", got)
	}
	if !got[0].Finished || got[2].Finished {
		t.Fatalf("finished flags lost in round trip: %+v", got)
	}
	if got[0].Efficiency != 100 {
		t.Fatalf("efficiency=%g want=100", got[0].Efficiency)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	old := domain.Run{ID: uuid.NewString(), Seed: 1, GridDimension: 11, OptimalLength: 20, TrainingSteps: 1000, CreatedAt: time.Now().UTC().Add(-time.Hour)}
	recent := domain.Run{ID: uuid.NewString(), Seed: 2, GridDimension: 11, OptimalLength: 22, TrainingSteps: 1000, CreatedAt: time.Now().UTC()}
	if err := store.CreateRun(ctx, old); err != nil {
		t.Fatalf("create old run: %v", err)
	}
	if err := store.CreateRun(ctx, recent); err != nil {
		t.Fatalf("create recent run: %v", err)
	}

	runs, err := store.ListRuns(ctx, 1)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != recent.ID {
		t.Fatalf("expected newest run first, got %+v", runs)
	}
}

func createTestRun(t *testing.T, store *Store) string {
	t.Helper()
	runID := uuid.NewString()
	if err := store.CreateRun(context.Background(), domain.Run{
		ID:            runID,
		Seed:          7,
		GridDimension: 21,
		OptimalLength: 40,
		TrainingSteps: 20000,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		t.Fatalf("create run: %v", err)
	}
	return runID
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		store.Close()
		t.Fatalf("migrate store: %v", err)
	}
	return store
}
