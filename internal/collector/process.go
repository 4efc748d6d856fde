// Process table collector. Enumerates every visible process once per sample.
// Uses gopsutil for cross-platform process listing.
package collector

import (
	"context"
	"sort"

	"github.com/shirou/gopsutil/v3/process"
)

// ProcessCollector collects one process table per call.
type ProcessCollector struct {
	topN int
}

// NewProcessCollector creates a new process collector. When topN is positive,
// only the topN processes by CPU usage are kept, sorted by CPU descending.
// Otherwise every process is returned, sorted by PID.
func NewProcessCollector(topN int) *ProcessCollector {
	return &ProcessCollector{topN: topN}
}

// Name returns the collector identifier.
func (c *ProcessCollector) Name() string { return "processes" }

// Collect enumerates processes. Per-process read errors keep the entry with
// whatever could be read; a process whose name is unreadable is flagged
// rather than dropped. Cancellation aborts the whole table so a partial list
// is never returned.
func (c *ProcessCollector) Collect(ctx context.Context) (interface{}, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]RawProcess, 0, len(procs))
	for _, p := range procs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name, nameErr := p.NameWithContext(ctx)
		cpuPct, _ := p.CPUPercentWithContext(ctx)

		var rss uint64
		if mi, err := p.MemoryInfoWithContext(ctx); err == nil && mi != nil {
			rss = mi.RSS
		}

		infos = append(infos, RawProcess{
			PID:    p.Pid,
			Name:   name,
			NameOK: nameErr == nil,
			CPU:    cpuPct,
			RSS:    rss,
		})
	}

	return rankProcesses(infos, c.topN), nil
}

// IsAvailable returns true; process listing works on all supported platforms.
func (c *ProcessCollector) IsAvailable() bool { return true }

// rankProcesses orders the table by PID, or keeps the topN by CPU.
func rankProcesses(infos []RawProcess, topN int) []RawProcess {
	if topN <= 0 {
		sort.Slice(infos, func(i, j int) bool {
			return infos[i].PID < infos[j].PID
		})
		return infos
	}

	sort.SliceStable(infos, func(i, j int) bool {
		if infos[i].CPU != infos[j].CPU {
			return infos[i].CPU > infos[j].CPU
		}
		return infos[i].PID < infos[j].PID
	})
	if len(infos) > topN {
		infos = infos[:topN]
	}
	return infos
}
