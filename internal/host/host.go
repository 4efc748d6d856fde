// Package host wires the metrics source, distributor and sampler from a
// loaded configuration. Both the headless agent and the desktop app start
// from here.
package host

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Guliveer/vitalis/sysinfo/internal/collector"
	"github.com/Guliveer/vitalis/sysinfo/internal/config"
	"github.com/Guliveer/vitalis/sysinfo/internal/distributor"
	"github.com/Guliveer/vitalis/sysinfo/internal/scheduler"
)

// Host is the assembled pipeline. The sampler is not started.
type Host struct {
	Distributor *distributor.Distributor
	Sampler     *scheduler.Scheduler
}

// New initializes the host metrics source and builds the pipeline around it.
// A source that cannot be initialized is returned as an error wrapping
// collector.ErrUnavailable.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Host, error) {
	src, err := collector.NewHostSource(ctx, SourceOptions(cfg), logger)
	if err != nil {
		return nil, fmt.Errorf("initializing metrics source: %w", err)
	}
	return Assemble(src, cfg, logger), nil
}

// Assemble builds the pipeline around an existing source.
func Assemble(src collector.Source, cfg *config.Config, logger *zap.Logger) *Host {
	dist := distributor.New(src, PullLimiter(cfg.Pull), logger)
	sampler := scheduler.New(src, dist, SamplerOptions(cfg.Collection), logger)
	return &Host{Distributor: dist, Sampler: sampler}
}

// SourceOptions maps collection settings onto collector options.
func SourceOptions(cfg *config.Config) collector.Options {
	return collector.Options{
		CPUWindow:    cfg.Collection.CPUWindow.Duration,
		Processes:    cfg.Collection.Processes,
		TopProcesses: cfg.Collection.TopProcesses,
	}
}

// SamplerOptions maps collection settings onto sampler options.
func SamplerOptions(cfg config.CollectionConfig) scheduler.Options {
	return scheduler.Options{
		Interval:      cfg.Interval.Duration,
		Cadence:       scheduler.Cadence(cfg.Cadence),
		SampleTimeout: cfg.SampleTimeout.Duration,
	}
}

// PullLimiter returns the limiter pacing on-demand queries. A zero rate
// means unlimited.
func PullLimiter(cfg config.PullConfig) *rate.Limiter {
	if cfg.Rate <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.Rate), burst)
}
