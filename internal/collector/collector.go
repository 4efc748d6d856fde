// Package collector defines the Collector interface and the gopsutil-backed
// collectors that together form a host metrics source.
package collector

import (
	"context"
	"time"
)

// Collector is the interface that all metric collectors must implement.
// Each collector gathers a specific part of a raw reading.
type Collector interface {
	// Name returns the unique identifier for this collector.
	Name() string

	// Collect gathers the metric data and returns it.
	// The context allows for cancellation and timeout control.
	Collect(ctx context.Context) (interface{}, error)

	// IsAvailable checks if this collector can run on the current platform.
	// Collectors that return false will not be registered.
	IsAvailable() bool
}

// Source produces fresh raw readings on demand.
type Source interface {
	Sample(ctx context.Context) (RawReading, error)
}

// RawReading is one unshaped sample of the host. Identity strings are empty
// when the OS query could not resolve them.
type RawReading struct {
	Taken time.Time

	SystemName    string
	KernelVersion string
	OSVersion     string
	HostName      string

	MemoryUsed uint64
	CPUPercent float64

	// ProcessesCollected is false when process enumeration is disabled.
	// When true, Processes holds the result of exactly one enumeration.
	ProcessesCollected bool
	Processes          []RawProcess
}

// RawProcess is a single process table entry as read from the OS.
type RawProcess struct {
	PID    int32
	Name   string
	NameOK bool
	CPU    float64
	RSS    uint64
}
