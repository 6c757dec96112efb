package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"mazerace/internal/domain"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	seed INTEGER NOT NULL,
	grid_dimension INTEGER NOT NULL,
	optimal_length INTEGER NOT NULL,
	training_steps INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS training_stats (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	agent TEXT NOT NULL,
	goals_reached INTEGER NOT NULL,
	positive_reward REAL NOT NULL,
	cells_explored INTEGER NOT NULL,
	final_epsilon REAL NOT NULL,
	created_at INTEGER NOT NULL,
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_training_stats_run ON training_stats(run_id, created_at);

CREATE TABLE IF NOT EXISTS race_results (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	agent TEXT NOT NULL,
	rank INTEGER NOT NULL,
	steps INTEGER NOT NULL,
	finished INTEGER NOT NULL,
	efficiency REAL NOT NULL,
	created_at INTEGER NOT NULL,
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_race_results_run ON race_results(run_id, rank);
`

// Store keeps run history: one row per generated maze plus the final
// training stats and race results recorded against it.
type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set sqlite pragma %q: %w", stmt, err)
		}
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func (s *Store) CreateRun(ctx context.Context, run domain.Run) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs(id, seed, grid_dimension, optimal_length, training_steps, created_at)
		VALUES(?, ?, ?, ?, ?, ?)`,
		run.ID, run.Seed, run.GridDimension, run.OptimalLength, run.TrainingSteps, run.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

func (s *Store) ListRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, seed, grid_dimension, optimal_length, training_steps, created_at
		FROM runs ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Run, 0, limit)
	for rows.Next() {
		var r domain.Run
		var created int64
		if err := rows.Scan(&r.ID, &r.Seed, &r.GridDimension, &r.OptimalLength, &r.TrainingSteps, &created); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.CreatedAt = unixToTime(created)
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return result, nil
}

func (s *Store) SaveTrainingStats(ctx context.Context, stats []domain.TrainingStat) error {
	if len(stats) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx training stats: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, st := range stats {
		if st.CreatedAt.IsZero() {
			st.CreatedAt = time.Now().UTC()
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO training_stats(run_id, agent, goals_reached, positive_reward, cells_explored, final_epsilon, created_at)
			VALUES(?, ?, ?, ?, ?, ?, ?)`,
			st.RunID, st.Agent, st.GoalsReached, st.PositiveReward, st.CellsExplored, st.FinalEpsilon, st.CreatedAt.Unix(),
		); err != nil {
			return fmt.Errorf("insert training stat: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit training stats: %w", err)
	}
	return nil
}

func (s *Store) ListTrainingStats(ctx context.Context, runID string) ([]domain.TrainingStat, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT run_id, agent, goals_reached, positive_reward, cells_explored, final_epsilon, created_at
		FROM training_stats WHERE run_id = ? ORDER BY agent ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list training stats: %w", err)
	}
	defer rows.Close()

	var result []domain.TrainingStat
	for rows.Next() {
		var st domain.TrainingStat
		var created int64
		if err := rows.Scan(&st.RunID, &st.Agent, &st.GoalsReached, &st.PositiveReward, &st.CellsExplored, &st.FinalEpsilon, &created); err != nil {
			return nil, fmt.Errorf("scan training stat: %w", err)
		}
		st.CreatedAt = unixToTime(created)
		result = append(result, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate training stats: %w", err)
	}
	return result, nil
}

func (s *Store) SaveRaceResults(ctx context.Context, results []domain.RaceResult) error {
	if len(results) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx race results: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, r := range results {
		if r.CreatedAt.IsZero() {
			r.CreatedAt = time.Now().UTC()
		}
		finished := 0
		if r.Finished {
			finished = 1
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO race_results(id, run_id, agent, rank, steps, finished, efficiency, created_at)
			VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.RunID, r.Agent, r.Rank, r.Steps, finished, r.Efficiency, r.CreatedAt.Unix(),
		); err != nil {
			return fmt.Errorf("insert race result: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit race results: %w", err)
	}
	return nil
}

func (s *Store) ListRaceResults(ctx context.Context, runID string) ([]domain.RaceResult, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, run_id, agent, rank, steps, finished, efficiency, created_at
		FROM race_results WHERE run_id = ? ORDER BY rank ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list race results: %w", err)
	}
	defer rows.Close()

	var result []domain.RaceResult
	for rows.Next() {
		var r domain.RaceResult
		var finished int
		var created int64
		if err := rows.Scan(&r.ID, &r.RunID, &r.Agent, &r.Rank, &r.Steps, &finished, &r.Efficiency, &created); err != nil {
			return nil, fmt.Errorf("scan race result: %w", err)
		}
		r.Finished = finished != 0
		r.CreatedAt = unixToTime(created)
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate race results: %w", err)
	}
	return result, nil
}

func unixToTime(v int64) time.Time {
	return time.Unix(v, 0).UTC()
}
