package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/okian/garage/internal/adapters/http/api"
	"github.com/okian/garage/internal/adapters/http/swagger"
	app "github.com/okian/garage/internal/app"
	"github.com/okian/garage/internal/config"
	"github.com/okian/garage/internal/telemetry"
	"github.com/okian/garage/pkg/logger"
	"github.com/okian/garage/pkg/metrics"
	"go.opentelemetry.io/otel/trace"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Default Go collectors live on the default registry; ours is custom.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// logger isn't configured yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			os.Stderr.WriteString("failed to sync logger: " + err.Error() + "\n")
		}
	}()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	tp, err := telemetry.New(ctx,
		telemetry.WithEnabled(cfg.TracingEnabled),
		telemetry.WithEndpoint(cfg.OTLPEndpoint),
		telemetry.WithServiceName(cfg.ServiceName),
		telemetry.WithServiceVersion(version),
	)
	if err != nil {
		log.Error(ctx, "failed to initialize tracing", logger.Error(err))
		os.Exit(1)
	}

	svc, err := newService(cfg, log, tp.Tracer())
	if err != nil {
		log.Error(ctx, "invalid configuration", logger.Error(err))
		os.Exit(1)
	}
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		os.Exit(1)
	}

	watchConfig(ctx, svc, log)

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(ctx, svc, tp.Tracer(), log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		log.Error(ctx, "HTTP server failed", logger.Error(err))
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "service shutdown failed", logger.Error(err))
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "tracer shutdown failed", logger.Error(err))
	}

	log.Info(shutdownCtx, "server stopped")
}

// newService builds the service from a loaded config.
func newService(cfg *config.Config, log logger.Logger, tracer trace.Tracer) (*app.Service, error) {
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}
	blocks, err := cfg.Blocks()
	if err != nil {
		return nil, err
	}
	return app.New(
		app.WithLogger(log),
		app.WithTracer(tracer),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.GateQueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithHistoryLimit(cfg.HistoryLimit),
		app.WithLayout(blocks),
		app.WithPolicy(policy),
	), nil
}

// newRouter mounts the business API and the API docs on one router.
func newRouter(ctx context.Context, svc *app.Service, tracer trace.Tracer, log logger.Logger) chi.Router {
	r := api.NewServer(svc, svc, api.WithTracer(tracer), api.WithLogger(log)).Router(ctx)
	swagger.Register(ctx, r)
	return r
}

// watchConfig applies policy changes from the config file while the process runs.
func watchConfig(ctx context.Context, svc *app.Service, log logger.Logger) {
	err := config.Watch(ctx, func(cfg *config.Config, err error) {
		if err != nil {
			metrics.RecordConfigReload("invalid")
			log.Warn(ctx, "config reload rejected", logger.Error(err))
			return
		}
		if err := svc.ApplyConfig(ctx, cfg); err != nil {
			log.Warn(ctx, "config reload rejected", logger.Error(err))
		}
	})
	switch {
	case errors.Is(err, config.ErrNoConfigFile):
		log.Debug(ctx, "no config file; hot reload disabled")
	case err != nil:
		log.Warn(ctx, "config watch unavailable", logger.Error(err))
	}
}

// startSystemMetricsUpdater updates system metrics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater refreshes service gauges until ctx is done.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(ctx, svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics refreshes queue, inventory and session gauges.
func updateServiceMetrics(ctx context.Context, svc *app.Service) {
	stats := svc.GetStats()
	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if workers, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerActiveCount(workers)
	}

	as, err := svc.AssignmentStats(ctx)
	if err != nil {
		return
	}
	for status, n := range as.ByStatus {
		metrics.UpdateSpotsByStatus(string(status), n)
	}
	if cs, err := svc.CheckoutStats(ctx); err == nil {
		metrics.UpdateActiveSessions(cs.ActiveSessions)
		metrics.UpdateCompletedSessions(cs.CompletedSessions)
	}
}
