package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/garage/internal/gatesim"
	"github.com/okian/garage/pkg/logger"
)

// Default configuration constants.
const (
	defaultVehicles      = 200
	defaultExitRatio     = 0.5
	defaultDupRatio      = 0.1
	defaultMaxStay       = 6 * time.Hour
	defaultWorkers       = 2 // multiplier for runtime.NumCPU()
	defaultTimeout       = 10 * time.Second
	defaultSettleTimeout = time.Minute
	defaultRunTimeout    = 10 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:9080", "Base URL of the service")
		vehicles  = flag.Int("vehicles", defaultVehicles, "Number of vehicles sent through the entry gate")
		exitRatio = flag.Float64("exit-ratio", defaultExitRatio, "Share of vehicles that leave again (0..1)")
		dupRatio  = flag.Float64("dup-ratio", defaultDupRatio, "Share of events re-sent with the same id (0..1)")
		maxStay   = flag.Duration("max-stay", defaultMaxStay, "Longest simulated stay")
		workers   = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settle    = flag.Duration("settle", defaultSettleTimeout, "How long to wait for queued events")
		verbose   = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	level := "info"
	if *verbose {
		level = "debug"
	}
	if err := logger.Init(logger.WithLevel(level), logger.WithWriter(os.Stderr)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	cfg := &gatesim.Config{
		BaseURL:        *baseURL,
		Vehicles:       *vehicles,
		ExitRatio:      *exitRatio,
		DuplicateRatio: *dupRatio,
		MaxStay:        *maxStay,
		Workers:        *workers,
		Timeout:        *timeout,
		SettleTimeout:  *settle,
		Verbose:        *verbose,
	}
	if _, err := gatesim.Run(ctx, cfg, os.Stdout); err != nil {
		logger.Get().Error(ctx, "gate simulation failed", logger.Error(err))
		os.Exit(1)
	}
}
