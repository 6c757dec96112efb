package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"mazerace/internal/agent"
	"mazerace/internal/config"
	"mazerace/internal/sim"
	sqlitestore "mazerace/internal/store/sqlite"
)

type app struct {
	service *sim.Service
	store   *sqlitestore.Store
}

func main() {
	configPath := flag.String("config", "", "path to mazerace.toml (default: ./mazerace.toml)")
	addrFlag := flag.String("addr", "", "http listen address override")
	dbPathFlag := flag.String("db", "", "sqlite database path override")
	seedFlag := flag.Int64("seed", 0, "maze seed override (0 draws a fresh seed)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *addrFlag != "" {
		cfg.Server.Addr = *addrFlag
	}
	if *dbPathFlag != "" {
		cfg.Server.DBPath = *dbPathFlag
	}
	if *seedFlag != 0 {
		cfg.Simulation.Seed = *seedFlag
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger := log.New(os.Stdout, "mazerace ", log.LstdFlags|log.Lmsgprefix)

	if dir := filepath.Dir(cfg.Server.DBPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Fatalf("create db directory %s: %v", dir, err)
		}
	}
	store, err := sqlitestore.Open(cfg.Server.DBPath)
	if err != nil {
		logger.Fatalf("open store: %v", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.Migrate(ctx); err != nil {
		logger.Fatalf("migrate store: %v", err)
	}

	service, err := sim.New(simParams(cfg), store, logger)
	if err != nil {
		logger.Fatalf("start simulation: %v", err)
	}
	service.Start(ctx)

	a := &app{service: service, store: store}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/state", a.handleState)
	mux.HandleFunc("/api/maze", a.handleMaze)
	mux.HandleFunc("/api/race", a.handleRace)
	mux.HandleFunc("/api/runs", a.handleRuns)
	mux.HandleFunc("/api/commands/new-maze", a.handleNewMaze)
	mux.HandleFunc("/api/commands/restart-race", a.handleRestartRace)
	mux.HandleFunc("/api/commands/race-speed", a.handleRaceSpeed)

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: mux,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Printf("listening addr=%s db=%s", cfg.Server.Addr, cfg.Server.DBPath)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("http server: %v", err)
	}
	service.Wait()
}

func simParams(cfg config.Config) sim.Params {
	agents := make([]agent.Config, 0, len(cfg.Agents))
	for _, a := range cfg.Agents {
		agents = append(agents, agent.Config{
			Name:           a.Name,
			Color:          a.Color,
			Alpha:          cfg.Learning.Alpha,
			Gamma:          cfg.Learning.Gamma,
			InitialEpsilon: cfg.Learning.InitialEpsilon,
			FloorEpsilon:   cfg.Learning.FloorEpsilon,
			EpisodeStepCap: cfg.Simulation.EpisodeStepCap,
			TrailSize:      cfg.Simulation.TrailSize,
			Rewards: agent.Rewards{
				GoalBonus:      cfg.Rewards.GoalBonus,
				StepPenalty:    cfg.Rewards.StepPenalty,
				RevisitPenalty: cfg.Rewards.RevisitPenalty,
				WallPenalty:    cfg.Rewards.WallPenalty,
				ShapingScale:   cfg.Rewards.ShapingScale,
			},
		})
	}
	return sim.Params{
		Seed:               cfg.Simulation.Seed,
		GridDimension:      cfg.Simulation.GridDimension,
		LoopProbability:    cfg.Simulation.LoopProbability,
		TrainingStepBudget: cfg.Simulation.TrainingStepBudget,
		MaxRaceSteps:       cfg.Simulation.MaxRaceSteps,
		Agents:             agents,
		StepsPerTick:       cfg.Simulation.StepsPerTick,
		TickInterval:       time.Duration(cfg.Simulation.TickIntervalMS) * time.Millisecond,
		RaceSpeedMS:        cfg.Simulation.RaceSpeedMS,
	}
}

func (a *app) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *app) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, a.service.Snapshot())
}

func (a *app) handleMaze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"maze": a.service.MazeString()})
}

func (a *app) handleRace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	snap := a.service.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id": snap.RunID,
		"phase":  snap.Phase,
		"race":   snap.Race,
	})
}

func (a *app) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	runs, err := a.store.ListRuns(r.Context(), queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (a *app) handleNewMaze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Seed int64 `json:"seed"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid json body: %w", err))
			return
		}
	}
	if err := a.service.NewMaze(r.Context(), req.Seed); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "new maze started"})
}

func (a *app) handleRestartRace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := a.service.RestartRace(r.Context()); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "race restarted"})
}

func (a *app) handleRaceSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		SpeedMS int `json:"speed_ms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid json body: %w", err))
		return
	}
	if err := a.service.SetRaceSpeed(req.SpeedMS); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "race speed updated"})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	var v int
	if _, err := fmt.Sscanf(raw, "%d", &v); err != nil || v <= 0 {
		return fallback
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
