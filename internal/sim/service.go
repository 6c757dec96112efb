package sim

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"mazerace/internal/agent"
	"mazerace/internal/domain"
	"mazerace/internal/maze"
)

// Store persists run history. Learned tables are never stored.
type Store interface {
	CreateRun(ctx context.Context, run domain.Run) error
	SaveTrainingStats(ctx context.Context, stats []domain.TrainingStat) error
	SaveRaceResults(ctx context.Context, results []domain.RaceResult) error
}

// Params configures a simulation. Semantic constants arrive already
// validated from the config layer; withDefaults only fills runtime
// pacing knobs that have no correctness impact.
type Params struct {
	Seed               int64
	GridDimension      int
	LoopProbability    float64
	TrainingStepBudget int
	MaxRaceSteps       int
	Agents             []agent.Config

	StepsPerTick int
	TickInterval time.Duration
	RaceSpeedMS  int
}

func (p Params) withDefaults() Params {
	if p.StepsPerTick <= 0 {
		p.StepsPerTick = 120
	}
	if p.TickInterval <= 0 {
		p.TickInterval = 16 * time.Millisecond
	}
	if p.RaceSpeedMS <= 0 {
		p.RaceSpeedMS = 120
	}
	if p.Seed == 0 {
		p.Seed = time.Now().UnixNano()
	}
	return p
}

// Service owns the maze, the agents, and the training/racing
// lifecycle. All mutation happens under one mutex, so commands from
// the API land between ticks and a step is never torn.
type Service struct {
	params Params
	store  Store
	logger *log.Logger
	wg     sync.WaitGroup

	mu          sync.Mutex
	run         domain.Run
	grid        *maze.Grid
	analysis    *maze.Analysis
	agents      []*agent.Agent
	trainer     *Trainer
	phase       domain.Phase
	race        []domain.RaceResult
	raceSpeedMS int
	lastErr     string
}

func New(params Params, store Store, logger *log.Logger) (*Service, error) {
	params = params.withDefaults()
	if len(params.Agents) == 0 {
		return nil, fmt.Errorf("at least one agent is required")
	}
	if logger == nil {
		logger = log.Default()
	}
	s := &Service{
		params:      params,
		store:       store,
		logger:      logger,
		raceSpeedMS: params.RaceSpeedMS,
	}
	if err := s.reset(context.Background(), params.Seed); err != nil {
		return nil, err
	}
	return s, nil
}

// reset regenerates the maze and rebuilds every agent from scratch.
// Caller holds the mutex except during construction.
func (s *Service) reset(ctx context.Context, seed int64) error {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	grid, err := maze.Generate(s.params.GridDimension, s.params.LoopProbability, rand.New(rand.NewSource(seed)))
	if err != nil {
		return fmt.Errorf("generate maze: %w", err)
	}
	analysis, err := maze.Analyze(grid)
	if err != nil {
		return fmt.Errorf("analyze maze: %w", err)
	}

	agents := make([]*agent.Agent, 0, len(s.params.Agents))
	for i, cfg := range s.params.Agents {
		// Distinct derived seed per agent keeps action choices
		// independent yet reproducible from the run seed.
		rng := rand.New(rand.NewSource(seed + int64(i) + 1))
		agents = append(agents, agent.New(cfg, grid, analysis, rng))
	}

	run := domain.Run{
		ID:            uuid.NewString(),
		Seed:          seed,
		GridDimension: grid.Dim,
		OptimalLength: analysis.OptimalLength,
		TrainingSteps: s.params.TrainingStepBudget,
		CreatedAt:     time.Now().UTC(),
	}
	if s.store != nil {
		if err := s.store.CreateRun(ctx, run); err != nil {
			s.logger.Printf("create run record run=%s: %v", run.ID, err)
		}
	}

	s.run = run
	s.grid = grid
	s.analysis = analysis
	s.agents = agents
	s.trainer = NewTrainer(agents, s.params.TrainingStepBudget)
	s.phase = domain.PhaseTraining
	s.race = nil
	s.lastErr = ""
	s.logger.Printf("run started run=%s seed=%d dim=%d optimal=%d agents=%d",
		run.ID, seed, grid.Dim, analysis.OptimalLength, len(agents))
	return nil
}

// Start launches the tick loop. It returns immediately; Wait blocks
// until the loop observes context cancellation.
func (s *Service) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.params.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.advance(ctx)
			}
		}
	}()
}

func (s *Service) Wait() { s.wg.Wait() }

func (s *Service) advance(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseTraining {
		return
	}
	for i := 0; i < s.params.StepsPerTick && !s.trainer.Done(); i++ {
		if err := s.trainer.Tick(); err != nil {
			// Invariant violation: abort the run, surface, never retry.
			s.lastErr = err.Error()
			s.phase = domain.PhaseFinished
			s.logger.Printf("training aborted run=%s: %v", s.run.ID, err)
			return
		}
	}
	if s.trainer.Done() {
		s.finishTraining(ctx)
	}
}

// finishTraining persists final training stats, races the frozen
// policies, and persists the outcome. Caller holds the mutex.
func (s *Service) finishTraining(ctx context.Context) {
	now := time.Now().UTC()
	stats := make([]domain.TrainingStat, 0, len(s.agents))
	for _, ag := range s.agents {
		snap := ag.Snapshot()
		stats = append(stats, domain.TrainingStat{
			RunID:          s.run.ID,
			Agent:          snap.Name,
			GoalsReached:   snap.GoalsReached,
			PositiveReward: snap.PositiveReward,
			CellsExplored:  snap.CellsExplored,
			FinalEpsilon:   snap.Exploration,
			CreatedAt:      now,
		})
	}
	if s.store != nil {
		if err := s.store.SaveTrainingStats(ctx, stats); err != nil {
			s.logger.Printf("save training stats run=%s: %v", s.run.ID, err)
		}
	}
	s.logger.Printf("training finished run=%s steps=%d", s.run.ID, s.trainer.StepsTaken())

	s.phase = domain.PhaseRacing
	if err := s.runRaceLocked(ctx); err != nil {
		s.lastErr = err.Error()
		s.logger.Printf("race aborted run=%s: %v", s.run.ID, err)
	}
	s.phase = domain.PhaseFinished
}

func (s *Service) runRaceLocked(ctx context.Context) error {
	laps, err := RunRace(s.agents, s.params.MaxRaceSteps)
	if err != nil {
		return err
	}
	results := Rank(laps, s.analysis.OptimalLength)
	now := time.Now().UTC()
	for i := range results {
		results[i].ID = uuid.NewString()
		results[i].RunID = s.run.ID
		results[i].CreatedAt = now
	}
	s.race = results
	if s.store != nil {
		if err := s.store.SaveRaceResults(ctx, results); err != nil {
			s.logger.Printf("save race results run=%s: %v", s.run.ID, err)
		}
	}
	for _, r := range results {
		s.logger.Printf("race result run=%s rank=%d agent=%s steps=%d finished=%t efficiency=%.1f%%",
			s.run.ID, r.Rank, r.Agent, r.Steps, r.Finished, r.Efficiency)
	}
	return nil
}

// NewMaze discards all per-run state, regenerates the maze, and
// restarts training. Zero seed draws a fresh one.
func (s *Service) NewMaze(ctx context.Context, seed int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reset(ctx, seed)
}

// RestartRace replays the race on the current maze with the learned
// tables intact. Refused while training is still running.
func (s *Service) RestartRace(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == domain.PhaseTraining {
		return fmt.Errorf("training still in progress (%d/%d steps)", s.trainer.StepsTaken(), s.params.TrainingStepBudget)
	}
	s.phase = domain.PhaseRacing
	err := s.runRaceLocked(ctx)
	s.phase = domain.PhaseFinished
	if err != nil {
		s.lastErr = err.Error()
		return err
	}
	return nil
}

// SetRaceSpeed adjusts the playback cadence reported to the
// presentation layer. Step semantics are untouched.
func (s *Service) SetRaceSpeed(ms int) error {
	if ms <= 0 {
		return fmt.Errorf("race speed must be positive, got %d", ms)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raceSpeedMS = ms
	return nil
}

// Snapshot returns a consistent read-only view of the whole
// simulation for one rendering frame.
func (s *Service) Snapshot() domain.StateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	agents := make([]domain.AgentSnapshot, 0, len(s.agents))
	for _, ag := range s.agents {
		agents = append(agents, ag.Snapshot())
	}
	race := make([]domain.RaceResult, len(s.race))
	copy(race, s.race)
	return domain.StateSnapshot{
		RunID:         s.run.ID,
		Phase:         s.phase,
		StepsTaken:    s.trainer.StepsTaken(),
		StepBudget:    s.params.TrainingStepBudget,
		OptimalLength: s.analysis.OptimalLength,
		GridDimension: s.grid.Dim,
		RaceSpeedMS:   s.raceSpeedMS,
		Agents:        agents,
		Race:          race,
		LastError:     s.lastErr,
	}
}

// MazeString renders the current maze for the presentation layer.
func (s *Service) MazeString() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grid.String()
}
