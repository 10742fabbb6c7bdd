// Package config loads the settings shared by the CLI, the daemon and the
// viewer: defaults first, then an optional JSON file, then environment
// overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"sandquake/internal/composite"
	"sandquake/internal/detect"
	"sandquake/internal/pipeline"
	"sandquake/internal/simerr"
	"sandquake/internal/velocity"
	"sandquake/internal/wave"
)

// Config is the full settings tree.
type Config struct {
	Detection  detect.Config `json:"detection"`
	Velocity   Velocity      `json:"velocity"`
	Simulation Simulation    `json:"simulation"`
	Output     Output        `json:"output"`
	Composite  Composite     `json:"composite"`
	Server     Server        `json:"server"`
	Log        Log           `json:"log"`
}

// Velocity bounds in km/s and smoothing in cells.
type Velocity struct {
	VMin   float64 `json:"vmin"`
	VMax   float64 `json:"vmax"`
	SigmaX float64 `json:"sigma_x"`
	SigmaY float64 `json:"sigma_y"`
	// Flat is "minimum" or "reject".
	Flat string `json:"flat"`
}

// Simulation holds the solver settings. Spacing is in metres, time in
// milliseconds and frequency in kHz.
type Simulation struct {
	DX         float64 `json:"dx"`
	DY         float64 `json:"dy"`
	T0         float64 `json:"t0"`
	TN         float64 `json:"tn"`
	F0         float64 `json:"f0"`
	Boundary   int     `json:"boundary"`
	Courant    float64 `json:"courant"`
	TimeStep   float64 `json:"time_step"`
	Frames     int     `json:"frames"`
	Workers    int     `json:"workers"`
	MaxHistory int64   `json:"max_history_mb"`
}

// Output controls what the CLI writes.
type Output struct {
	Dir string `json:"dir"`
	// Speedup plays traces this many times faster than simulated time.
	Speedup float64 `json:"speedup"`
	Markers bool    `json:"markers"`
}

// Composite mirrors composite.Options.
type Composite struct {
	Alpha     float64 `json:"alpha"`
	Limit     float64 `json:"limit"`
	Masked    bool    `json:"masked"`
	Threshold float64 `json:"threshold"`
}

// Server configures the daemon.
type Server struct {
	Port      string `json:"port"`
	DBPath    string `json:"db_path"`
	JWTSecret string `json:"jwt_secret"`
	// MaxUploadMB bounds multipart uploads.
	MaxUploadMB int64 `json:"max_upload_mb"`
	// MaxRuns bounds concurrently executing runs.
	MaxRuns int `json:"max_runs"`
}

// Log configures logging.
type Log struct {
	Level string `json:"level"`
	Dir   string `json:"dir"`
}

// Default returns the table tuning.
func Default() *Config {
	w := wave.DefaultConfig()
	v := velocity.DefaultParams()
	c := composite.DefaultOptions()
	return &Config{
		Detection: detect.DefaultConfig(),
		Velocity: Velocity{
			VMin: v.VMin, VMax: v.VMax,
			SigmaX: v.SigmaX, SigmaY: v.SigmaY,
			Flat: v.Flat.String(),
		},
		Simulation: Simulation{
			DX: w.DX, DY: w.DY,
			T0: w.T0, TN: w.TN,
			F0:         w.F0,
			Boundary:   w.Boundary,
			Courant:    w.Courant,
			Frames:     pipeline.DefaultFrames,
			MaxHistory: wave.DefaultMaxHistoryBytes >> 20,
		},
		Output: Output{Dir: "out", Speedup: 20, Markers: true},
		Composite: Composite{
			Alpha: c.Alpha, Limit: c.Limit,
			Masked: c.Masked, Threshold: c.Threshold,
		},
		Server: Server{
			Port:        ":8080",
			DBPath:      "./data/sandquake.db",
			MaxUploadMB: 32,
			MaxRuns:     2,
		},
		Log: Log{Level: "info"},
	}
}

// Load builds the configuration from defaults, the JSON file at path (when
// path is not empty) and SANDQUAKE_* environment variables, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("SANDQUAKE_PORT", &c.Server.Port)
	str("SANDQUAKE_DB_PATH", &c.Server.DBPath)
	str("SANDQUAKE_JWT_SECRET", &c.Server.JWTSecret)
	str("SANDQUAKE_LOG_DIR", &c.Log.Dir)
	str("SANDQUAKE_LOG_LEVEL", &c.Log.Level)
	if v, ok := lookup("SANDQUAKE_WORKERS"); ok && v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return simerr.Config("SANDQUAKE_WORKERS", "not an integer: %q", v)
		}
		c.Simulation.Workers = n
	}
	if c.Server.Port != "" && !strings.Contains(c.Server.Port, ":") {
		c.Server.Port = ":" + c.Server.Port
	}
	return nil
}

// Validate checks every group.
func (c *Config) Validate() error {
	if err := c.Detection.Validate(); err != nil {
		return err
	}
	if _, err := c.VelocityParams(); err != nil {
		return err
	}
	s := c.Simulation
	switch {
	case !(s.DX > 0) || !(s.DY > 0):
		return simerr.Config("simulation.dx", "grid spacing must be positive, got %v/%v", s.DX, s.DY)
	case !(s.TN > s.T0):
		return simerr.Config("simulation.tn", "end time %v must exceed start time %v", s.TN, s.T0)
	case !(s.F0 > 0):
		return simerr.Config("simulation.f0", "must be positive, got %v", s.F0)
	case s.Boundary < 1:
		return simerr.Config("simulation.boundary", "must be at least 1 cell, got %d", s.Boundary)
	case !(s.Courant > 0) || s.Courant > 1:
		return simerr.Config("simulation.courant", "must lie in (0, 1], got %v", s.Courant)
	case s.TimeStep < 0:
		return simerr.Config("simulation.time_step", "must not be negative, got %v", s.TimeStep)
	case s.Frames < 1:
		return simerr.Config("simulation.frames", "must be at least 1, got %d", s.Frames)
	case s.MaxHistory < 0:
		return simerr.Config("simulation.max_history_mb", "must not be negative, got %d", s.MaxHistory)
	}
	if _, err := composite.New(c.CompositeOptions()); err != nil {
		return err
	}
	if c.Output.Speedup < 0 {
		return simerr.Config("output.speedup", "must not be negative, got %v", c.Output.Speedup)
	}
	if c.Server.MaxUploadMB < 1 {
		return simerr.Config("server.max_upload_mb", "must be at least 1, got %d", c.Server.MaxUploadMB)
	}
	if c.Server.MaxRuns < 1 {
		return simerr.Config("server.max_runs", "must be at least 1, got %d", c.Server.MaxRuns)
	}
	return nil
}

// VelocityParams converts the velocity group.
func (c *Config) VelocityParams() (velocity.Params, error) {
	flat, err := velocity.ParseFlatPolicy(c.Velocity.Flat)
	if err != nil {
		return velocity.Params{}, err
	}
	p := velocity.Params{
		VMin: c.Velocity.VMin, VMax: c.Velocity.VMax,
		SigmaX: c.Velocity.SigmaX, SigmaY: c.Velocity.SigmaY,
		Flat: flat,
	}
	return p, p.Validate()
}

// WaveConfig converts the simulation group. Sources are left to detection.
func (c *Config) WaveConfig() wave.Config {
	s := c.Simulation
	return wave.Config{
		DX: s.DX, DY: s.DY,
		T0: s.T0, TN: s.TN,
		F0:              s.F0,
		Boundary:        s.Boundary,
		Courant:         s.Courant,
		TimeStep:        s.TimeStep,
		MaxHistoryBytes: s.MaxHistory << 20,
	}
}

// CompositeOptions converts the composite group.
func (c *Config) CompositeOptions() composite.Options {
	return composite.Options{
		Alpha: c.Composite.Alpha, Limit: c.Composite.Limit,
		Masked: c.Composite.Masked, Threshold: c.Composite.Threshold,
	}
}

// Pipeline converts the settings the pipeline needs.
func (c *Config) Pipeline() (pipeline.Config, error) {
	vp, err := c.VelocityParams()
	if err != nil {
		return pipeline.Config{}, err
	}
	return pipeline.Config{
		Detect:   c.Detection,
		Velocity: vp,
		Wave:     c.WaveConfig(),
		Frames:   c.Simulation.Frames,
		Workers:  c.Simulation.Workers,
	}, nil
}
