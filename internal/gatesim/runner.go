package gatesim

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/garage/pkg/logger"
)

const settlePollInterval = 100 * time.Millisecond

// Run drives vehicles through the entry and exit gates of a running service,
// waits for the workers to catch up and checks the final state. The report is
// written to out.
func Run(ctx context.Context, config *Config, out io.Writer) (*Stats, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	log := logger.Get().Named("gatesim")
	stats := &Stats{StartTime: time.Now()}
	client := newHTTPClient(config.BaseURL, config.Timeout)

	log.Info(ctx, "starting gate simulation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("vehicles", config.Vehicles),
		logger.Int("workers", config.Workers),
		logger.Float64("exitRatio", config.ExitRatio),
		logger.Float64("duplicateRatio", config.DuplicateRatio))

	if err := checkServiceHealth(ctx, client); err != nil {
		return nil, err
	}
	if err := client.getJSON(ctx, "/stats", &stats.Before); err != nil {
		return nil, fmt.Errorf("read stats: %w", err)
	}
	processed := stats.Before.Service.ProcessedEvents
	if config.Verbose {
		log.Info(ctx, "initial garage state", logger.Any("stats", stats.Before))
	}

	// Entries
	now := time.Now()
	vehicles := generateVehicles(config.Vehicles, now)
	entryEvents := entries(vehicles)
	stats.Entries = submitEvents(ctx, client, config.Workers, entryEvents)
	stats.Entries.add(submitEvents(ctx, client, config.Workers, sample(entryEvents, config.DuplicateRatio)))
	processed += int64(stats.Entries.Accepted)
	log.Info(ctx, "entry events submitted", logger.Any("counts", stats.Entries))
	if err := waitSettled(ctx, client, processed, config.SettleTimeout); err != nil {
		return stats, err
	}

	// Exits
	exitEvents := generateExits(vehicles, config.ExitRatio, config.MaxStay, now)
	stats.Exits = submitEvents(ctx, client, config.Workers, exitEvents)
	stats.Exits.add(submitEvents(ctx, client, config.Workers, sample(exitEvents, config.DuplicateRatio)))
	processed += int64(stats.Exits.Accepted)
	log.Info(ctx, "exit events submitted", logger.Any("counts", stats.Exits))
	if err := waitSettled(ctx, client, processed, config.SettleTimeout); err != nil {
		return stats, err
	}

	if err := client.getJSON(ctx, "/stats", &stats.After); err != nil {
		return stats, fmt.Errorf("read stats: %w", err)
	}
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	stats.Mismatch = verify(stats)

	if out != nil {
		_, _ = io.WriteString(out, Render(stats)+"\n")
	}
	if len(stats.Mismatch) > 0 {
		return stats, fmt.Errorf("%w: %v", ErrInconsistent, stats.Mismatch)
	}
	log.Info(ctx, "gate simulation completed", logger.Duration("duration", stats.Duration))
	return stats, nil
}

func (c *Counts) add(o Counts) {
	c.Submitted += o.Submitted
	c.Accepted += o.Accepted
	c.Duplicate += o.Duplicate
	c.Rejected += o.Rejected
	c.Failed += o.Failed
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	resp, err := client.Get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnhealthy, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// waitSettled polls /stats until the workers have handled target events and
// the gate queue is empty.
func waitSettled(ctx context.Context, client *HTTPClient, target int64, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(settlePollInterval)
	defer ticker.Stop()
	for {
		var s Snapshot
		if err := client.getJSON(ctx, "/stats", &s); err == nil &&
			s.Service.ProcessedEvents >= target && s.Service.QueueLength == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: want %d processed", ErrNotSettled, target)
		case <-ticker.C:
		}
	}
}
