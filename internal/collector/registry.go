// Package collector provides a registry for managing metric collectors.
// Collectors are registered at startup; every sample runs all of them
// concurrently and assembles one RawReading from their results.
package collector

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Registry manages all registered collectors and orchestrates concurrent collection.
type Registry struct {
	collectors []Collector
	required   map[string]bool
	logger     *zap.Logger
}

// NewRegistry creates a new collector registry with the given logger.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		collectors: make([]Collector, 0),
		required:   make(map[string]bool),
		logger:     logger,
	}
}

// Register adds a collector if it's available on the current platform.
// Unavailable collectors are logged and skipped.
func (r *Registry) Register(c Collector) {
	if c.IsAvailable() {
		r.collectors = append(r.collectors, c)
		r.logger.Info("Registered collector", zap.String("name", c.Name()))
	} else {
		r.logger.Warn("Collector not available, skipping", zap.String("name", c.Name()))
	}
}

// RegisterRequired adds a collector whose failure invalidates the whole sample.
func (r *Registry) RegisterRequired(c Collector) {
	r.Register(c)
	if c.IsAvailable() {
		r.required[c.Name()] = true
	}
}

// CollectAll runs all registered collectors concurrently and returns a map
// of collector name -> result data. Failures of optional collectors are
// logged; failures of required collectors are combined into the returned error.
func (r *Registry) CollectAll(ctx context.Context) (map[string]interface{}, error) {
	results := make(map[string]interface{})
	var errs error
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, c := range r.collectors {
		wg.Add(1)
		go func(col Collector) {
			defer wg.Done()
			data, err := col.Collect(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if r.required[col.Name()] {
					errs = multierr.Append(errs, fmt.Errorf("%s: %w", col.Name(), err))
					return
				}
				r.logger.Warn("Collection failed",
					zap.String("collector", col.Name()),
					zap.Error(err))
				return
			}
			results[col.Name()] = data
		}(c)
	}

	wg.Wait()
	return results, errs
}

// Collectors returns a copy of all registered collectors.
func (r *Registry) Collectors() []Collector {
	result := make([]Collector, len(r.collectors))
	copy(result, r.collectors)
	return result
}
