package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrUnavailable reports that the host metrics facility could not be
// initialized. Callers treat it as a fatal startup condition.
var ErrUnavailable = errors.New("host metrics unavailable")

// Options configures which collectors a HostSource runs.
type Options struct {
	CPUWindow    time.Duration
	Processes    bool
	TopProcesses int
}

// HostSource is a Source backed by one or more collector registries. The
// registries run in order; collectors within one registry run concurrently.
type HostSource struct {
	stages []*Registry
	now    func() time.Time
}

// NewHostSource registers the gopsutil collectors and performs a warm-up
// sample. It returns an error wrapping ErrUnavailable if the warm-up fails.
//
// Process enumeration runs as a second stage, after the CPU window has
// closed, so its own cost is not counted in the overall CPU usage.
func NewHostSource(ctx context.Context, opts Options, logger *zap.Logger) (*HostSource, error) {
	measure := NewRegistry(logger)
	measure.Register(NewIdentityCollector())
	measure.RegisterRequired(NewCPUCollector(opts.CPUWindow))
	measure.RegisterRequired(NewMemoryCollector())

	stages := []*Registry{measure}
	if opts.Processes {
		enumerate := NewRegistry(logger)
		enumerate.RegisterRequired(NewProcessCollector(opts.TopProcesses))
		stages = append(stages, enumerate)
	}

	src := NewRegistrySource(stages...)
	if _, err := src.Sample(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return src, nil
}

// NewRegistrySource wraps already populated registries, run in the given order.
func NewRegistrySource(stages ...*Registry) *HostSource {
	return &HostSource{
		stages: stages,
		now:    time.Now,
	}
}

// Sample performs a full refresh of every registered collector. No value is
// carried over from a previous call. A required failure in one stage stops
// the sample before the next stage runs.
func (s *HostSource) Sample(ctx context.Context) (RawReading, error) {
	results := make(map[string]interface{})
	for _, stage := range s.stages {
		partial, err := stage.CollectAll(ctx)
		if err != nil {
			return RawReading{}, fmt.Errorf("sampling host: %w", err)
		}
		for name, data := range partial {
			results[name] = data
		}
	}
	return assembleReading(results, s.now().UTC()), nil
}

// assembleReading maps collector results into a single RawReading.
func assembleReading(results map[string]interface{}, taken time.Time) RawReading {
	reading := RawReading{Taken: taken}

	if data, ok := results["identity"]; ok {
		if id, ok := data.(IdentityResult); ok {
			reading.SystemName = id.SystemName
			reading.KernelVersion = id.KernelVersion
			reading.OSVersion = id.OSVersion
			reading.HostName = id.HostName
		}
	}

	if data, ok := results["cpu"]; ok {
		if pct, ok := data.(float64); ok {
			reading.CPUPercent = pct
		}
	}

	if data, ok := results["memory"]; ok {
		if used, ok := data.(uint64); ok {
			reading.MemoryUsed = used
		}
	}

	if data, ok := results["processes"]; ok {
		if procs, ok := data.([]RawProcess); ok {
			reading.ProcessesCollected = true
			reading.Processes = procs
		}
	}

	return reading
}
