package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"sandquake/internal/simerr"
	"sandquake/internal/velocity"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Detection.ShapeThreshold != 60 || cfg.Detection.MinArea != 30 {
		t.Fatalf("detection defaults %+v", cfg.Detection)
	}
	w := cfg.WaveConfig()
	if w.DX != 10 || w.TN != 700 || w.F0 != 0.025 || w.Boundary != 40 || w.Courant != 0.6 {
		t.Fatalf("wave defaults %+v", w)
	}
	if w.MaxHistoryBytes != 1<<30 {
		t.Fatalf("history cap %d", w.MaxHistoryBytes)
	}
	p, err := cfg.Pipeline()
	if err != nil {
		t.Fatal(err)
	}
	if p.Frames != 50 || p.Velocity.Flat != velocity.FlatMinimum || p.Velocity.VMax != 5 {
		t.Fatalf("pipeline config %+v", p)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sandquake.json")
	body := `{"simulation":{"tn":300,"frames":20},"velocity":{"flat":"reject"},"server":{"port":":9000"}}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SANDQUAKE_PORT", "7070")
	t.Setenv("SANDQUAKE_WORKERS", "3")
	t.Setenv("SANDQUAKE_JWT_SECRET", "s3cret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Simulation.TN != 300 || cfg.Simulation.Frames != 20 {
		t.Fatalf("file values lost: %+v", cfg.Simulation)
	}
	if cfg.Simulation.DX != 10 {
		t.Fatal("unset fields must keep their defaults")
	}
	if cfg.Server.Port != ":7070" || cfg.Simulation.Workers != 3 || cfg.Server.JWTSecret != "s3cret" {
		t.Fatalf("env overrides: %+v %+v", cfg.Server, cfg.Simulation)
	}
	vp, _ := cfg.VelocityParams()
	if vp.Flat != velocity.FlatReject {
		t.Fatal("flat policy not applied")
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("missing file must fail")
	}
	bad := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(bad, []byte("{"), 0o644)
	if _, err := Load(bad); err == nil {
		t.Fatal("malformed file must fail")
	}
	t.Setenv("SANDQUAKE_WORKERS", "many")
	if _, err := Load(""); !errors.Is(err, simerr.ErrConfiguration) {
		t.Fatalf("bad env: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"spacing", func(c *Config) { c.Simulation.DX = 0 }},
		{"time window", func(c *Config) { c.Simulation.TN = c.Simulation.T0 }},
		{"frequency", func(c *Config) { c.Simulation.F0 = -1 }},
		{"boundary", func(c *Config) { c.Simulation.Boundary = 0 }},
		{"courant", func(c *Config) { c.Simulation.Courant = 1.5 }},
		{"frames", func(c *Config) { c.Simulation.Frames = 0 }},
		{"vmax", func(c *Config) { c.Velocity.VMax = c.Velocity.VMin }},
		{"flat policy", func(c *Config) { c.Velocity.Flat = "tilt" }},
		{"alpha", func(c *Config) { c.Composite.Alpha = 2 }},
		{"detection", func(c *Config) { c.Detection.MinVertices = 30 }},
		{"max runs", func(c *Config) { c.Server.MaxRuns = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			var ce *simerr.ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("got %v, want *ConfigError", err)
			}
		})
	}
}
