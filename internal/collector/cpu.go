// CPU usage collector. Reports overall utilization as a percentage.
// Uses gopsutil for cross-platform CPU metrics.
package collector

import (
	"context"
	"errors"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
)

// DefaultCPUWindow is the measurement window used when none is configured.
const DefaultCPUWindow = 250 * time.Millisecond

type timesFunc func(ctx context.Context, percpu bool) ([]cpu.TimesStat, error)

// CPUCollector collects overall CPU usage. Every call takes two readings of
// the CPU counters one window apart and reports the busy share between them,
// so concurrent callers never share a baseline.
type CPUCollector struct {
	window time.Duration
	times  timesFunc
}

// NewCPUCollector creates a new CPU collector. A non-positive window falls
// back to DefaultCPUWindow.
func NewCPUCollector(window time.Duration) *CPUCollector {
	if window <= 0 {
		window = DefaultCPUWindow
	}
	return &CPUCollector{
		window: window,
		times:  cpu.TimesWithContext,
	}
}

// Name returns the collector identifier.
func (c *CPUCollector) Name() string { return "cpu" }

// Collect measures overall CPU usage over the collector's window.
func (c *CPUCollector) Collect(ctx context.Context) (interface{}, error) {
	before, err := c.total(ctx)
	if err != nil {
		return nil, err
	}

	timer := time.NewTimer(c.window)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	after, err := c.total(ctx)
	if err != nil {
		return nil, err
	}
	return busyPercent(before, after), nil
}

func (c *CPUCollector) total(ctx context.Context) (cpu.TimesStat, error) {
	stats, err := c.times(ctx, false)
	if err != nil {
		return cpu.TimesStat{}, err
	}
	if len(stats) == 0 {
		return cpu.TimesStat{}, errors.New("no cpu times reported")
	}
	return stats[0], nil
}

// busyPercent returns the share of non-idle time between two readings.
// Guest time is already included in user time and is not counted twice.
func busyPercent(before, after cpu.TimesStat) float64 {
	busyBefore, allBefore := splitTimes(before)
	busyAfter, allAfter := splitTimes(after)
	if allAfter <= allBefore {
		return 0
	}
	if busyAfter <= busyBefore {
		return 0
	}
	return (busyAfter - busyBefore) / (allAfter - allBefore) * 100
}

func splitTimes(t cpu.TimesStat) (busy, all float64) {
	all = t.User + t.System + t.Idle + t.Nice + t.Iowait + t.Irq + t.Softirq + t.Steal
	return all - t.Idle - t.Iowait, all
}

// IsAvailable reports true on every platform gopsutil supports.
func (c *CPUCollector) IsAvailable() bool { return true }
