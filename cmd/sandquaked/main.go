// Command sandquaked serves simulation runs over HTTP and keeps them in
// SQLite.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"sandquake/internal/api"
	"sandquake/internal/composite"
	"sandquake/internal/config"
	"sandquake/internal/logging"
	"sandquake/internal/pipeline"
	"sandquake/internal/store"
)

var (
	configFlag = flag.String("config", "", "JSON configuration file")
	portFlag   = flag.String("port", "", "listen address, overrides the configuration")
	debugFlag  = flag.Bool("debug", false, "run gin in debug mode")
)

const shutdownTimeout = 30 * time.Second

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "sandquaked:", err)
		os.Exit(1)
	}
}

// runSettings is the part of the configuration recorded with every run.
type runSettings struct {
	Detection  any `json:"detection"`
	Velocity   any `json:"velocity"`
	Simulation any `json:"simulation"`
}

func run() error {
	cfg, err := config.Load(*configFlag)
	if err != nil {
		return err
	}
	if *portFlag != "" {
		cfg.Server.Port = *portFlag
	}
	cleanup, err := logging.Init(logging.Options{Level: cfg.Log.Level, Dir: cfg.Log.Dir, File: "sandquaked.log"})
	if err != nil {
		return err
	}
	defer cleanup()
	logger := slog.Default()

	if dir := filepath.Dir(cfg.Server.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create database dir: %w", err)
		}
	}
	st, err := store.Open(cfg.Server.DBPath, logger)
	if err != nil {
		return err
	}
	defer st.Close()
	if n, err := st.FailInterrupted(context.Background()); err != nil {
		return err
	} else if n > 0 {
		logger.Warn("Marked interrupted runs as failed", "count", n)
	}

	pcfg, err := cfg.Pipeline()
	if err != nil {
		return err
	}
	pipe, err := pipeline.New(pcfg, logger)
	if err != nil {
		return err
	}
	settings, err := json.Marshal(runSettings{cfg.Detection, cfg.Velocity, cfg.Simulation})
	if err != nil {
		return err
	}
	runner := api.NewRunner(st, pipe, settings, cfg.Server.MaxRuns, cfg.Output.Speedup, logger)
	comp, err := composite.New(cfg.CompositeOptions())
	if err != nil {
		return err
	}

	if !*debugFlag {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.SetupRouter(cfg, api.NewRunHandler(st, runner, comp), logger)
	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if cfg.Server.JWTSecret == "" {
		logger.Warn("JWT secret not set, API is open")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Error("HTTP shutdown", "error", err)
	}
	if err := runner.Shutdown(sctx); err != nil {
		logger.Error("Runs still active at shutdown", "error", err)
	}
	return nil
}
