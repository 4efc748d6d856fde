// Package snapshot shapes raw host readings into the stable records handed
// to presentation hosts.
package snapshot

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/Guliveer/vitalis/sysinfo/internal/collector"
	"github.com/Guliveer/vitalis/sysinfo/internal/models"
)

// FallbackProcessName replaces process names the OS would not give us.
const FallbackProcessName = "<unknown>"

// Build maps a raw reading to a SystemSnapshot. It never fails: unresolved
// identity fields become nil, CPU usage is clamped to [0, 100], and
// unreadable process names get a placeholder.
func Build(r collector.RawReading) models.SystemSnapshot {
	snap := models.SystemSnapshot{
		SystemName:    optional(r.SystemName),
		KernelVersion: optional(r.KernelVersion),
		OSVersion:     optional(r.OSVersion),
		HostName:      optional(r.HostName),
		MemoryUsage:   r.MemoryUsed,
		CPUUsage:      clampPercent(r.CPUPercent),
	}

	if r.ProcessesCollected {
		snap.Processes = make([]models.ProcessSnapshot, 0, len(r.Processes))
		for _, p := range r.Processes {
			snap.Processes = append(snap.Processes, buildProcess(p))
		}
	}

	return snap
}

func buildProcess(p collector.RawProcess) models.ProcessSnapshot {
	cpu := p.CPU
	if math.IsNaN(cpu) || math.IsInf(cpu, 0) || cpu < 0 {
		cpu = 0
	}
	return models.ProcessSnapshot{
		PID:    pid(p.PID),
		Name:   processName(p),
		CPU:    cpu,
		Memory: p.RSS,
	}
}

func processName(p collector.RawProcess) string {
	if !p.NameOK {
		return FallbackProcessName
	}
	name := p.Name
	if !utf8.ValidString(name) {
		name = strings.ToValidUTF8(name, string(utf8.RuneError))
	}
	if strings.TrimSpace(name) == "" {
		return FallbackProcessName
	}
	return name
}

func pid(v int32) uint32 {
	if v < 0 {
		return 0
	}
	return uint32(v)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func clampPercent(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
