package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config carries every externally overridable constant of the
// simulation. Values are validated strictly: invalid settings are
// rejected before any simulation begins, never clamped.
type Config struct {
	Simulation Simulation    `toml:"simulation"`
	Learning   Learning      `toml:"learning"`
	Rewards    Rewards       `toml:"rewards"`
	Server     Server        `toml:"server"`
	Agents     []AgentConfig `toml:"agents"`

	Path string `toml:"-"`
}

type Simulation struct {
	GridDimension      int     `toml:"grid_dimension"`
	LoopProbability    float64 `toml:"loop_probability"`
	TrainingStepBudget int     `toml:"training_step_budget"`
	EpisodeStepCap     int     `toml:"episode_step_cap"`
	MaxRaceSteps       int     `toml:"max_race_steps"`
	Seed               int64   `toml:"seed"`
	StepsPerTick       int     `toml:"steps_per_tick"`
	TickIntervalMS     int     `toml:"tick_interval_ms"`
	RaceSpeedMS        int     `toml:"race_speed_ms"`
	TrailSize          int     `toml:"trail_size"`
}

type Learning struct {
	Alpha          float64 `toml:"alpha"`
	Gamma          float64 `toml:"gamma"`
	InitialEpsilon float64 `toml:"initial_epsilon"`
	FloorEpsilon   float64 `toml:"floor_epsilon"`
}

type Rewards struct {
	GoalBonus      float64 `toml:"goal_bonus"`
	StepPenalty    float64 `toml:"step_penalty"`
	RevisitPenalty float64 `toml:"revisit_penalty"`
	WallPenalty    float64 `toml:"wall_penalty"`
	ShapingScale   float64 `toml:"shaping_scale"`
}

type Server struct {
	Addr   string `toml:"addr"`
	DBPath string `toml:"db_path"`
}

type AgentConfig struct {
	Name  string `toml:"name"`
	Color string `toml:"color"`
}

// Default returns the reference configuration.
func Default() Config {
	return Config{
		Simulation: Simulation{
			GridDimension:      21,
			LoopProbability:    0.06,
			TrainingStepBudget: 20000,
			EpisodeStepCap:     500,
			MaxRaceSteps:       800,
			StepsPerTick:       120,
			TickIntervalMS:     16,
			RaceSpeedMS:        120,
			TrailSize:          24,
		},
		Learning: Learning{
			Alpha:          0.10,
			Gamma:          0.97,
			InitialEpsilon: 0.90,
			FloorEpsilon:   0.01,
		},
		Rewards: Rewards{
			GoalBonus:      200,
			StepPenalty:    -1,
			RevisitPenalty: -8,
			WallPenalty:    -20,
			ShapingScale:   5,
		},
		Server: Server{
			Addr:   ":8095",
			DBPath: "data/mazerace.db",
		},
		Agents: []AgentConfig{
			{Name: "scarlet", Color: "red"},
			{Name: "cobalt", Color: "blue"},
			{Name: "viridian", Color: "green"},
			{Name: "amber", Color: "yellow"},
		},
	}
}

// Load reads the TOML file at path over the defaults. An empty path
// falls back to mazerace.toml in the working directory and tolerates
// its absence; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()
	resolved := path
	if resolved == "" {
		resolved = "mazerace.toml"
		if _, err := os.Stat(resolved); os.IsNotExist(err) {
			return cfg, nil
		}
	}
	resolved = filepath.Clean(resolved)

	bytes, err := os.ReadFile(resolved)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %s: %w", resolved, err)
	}
	if _, err := toml.Decode(string(bytes), &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config file: %w", err)
	}
	cfg.Path = resolved
	return cfg, nil
}

// Validate rejects invalid constants. Errors here are fatal at setup.
func (c Config) Validate() error {
	s := c.Simulation
	if s.GridDimension < 5 || s.GridDimension%2 == 0 {
		return fmt.Errorf("grid_dimension must be odd and >= 5, got %d", s.GridDimension)
	}
	if s.LoopProbability < 0 || s.LoopProbability >= 1 {
		return fmt.Errorf("loop_probability must be in [0,1), got %g", s.LoopProbability)
	}
	if s.TrainingStepBudget <= 0 {
		return fmt.Errorf("training_step_budget must be positive, got %d", s.TrainingStepBudget)
	}
	if s.EpisodeStepCap <= 0 {
		return fmt.Errorf("episode_step_cap must be positive, got %d", s.EpisodeStepCap)
	}
	if s.MaxRaceSteps <= 0 {
		return fmt.Errorf("max_race_steps must be positive, got %d", s.MaxRaceSteps)
	}

	l := c.Learning
	if l.Alpha <= 0 || l.Alpha > 1 {
		return fmt.Errorf("alpha must be in (0,1], got %g", l.Alpha)
	}
	if l.Gamma < 0 || l.Gamma >= 1 {
		return fmt.Errorf("gamma must be in [0,1), got %g", l.Gamma)
	}
	if l.InitialEpsilon < 0 || l.InitialEpsilon > 1 {
		return fmt.Errorf("initial_epsilon must be in [0,1], got %g", l.InitialEpsilon)
	}
	if l.FloorEpsilon < 0 || l.FloorEpsilon > l.InitialEpsilon {
		return fmt.Errorf("floor_epsilon must be in [0, initial_epsilon], got %g", l.FloorEpsilon)
	}

	if len(c.Agents) == 0 {
		return fmt.Errorf("at least one agent must be configured")
	}
	seen := make(map[string]struct{}, len(c.Agents))
	for _, a := range c.Agents {
		if a.Name == "" {
			return fmt.Errorf("agent name must not be empty")
		}
		if _, dup := seen[a.Name]; dup {
			return fmt.Errorf("duplicate agent name %q", a.Name)
		}
		seen[a.Name] = struct{}{}
	}
	return nil
}
