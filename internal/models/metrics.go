// Package models defines the snapshot records handed to presentation hosts.
// These structures are serialized to JSON with the field names the UI expects.
package models

// SystemSnapshot is an immutable point-in-time record of host metrics.
// Identity fields are nil when the OS could not resolve them and serialize as null.
type SystemSnapshot struct {
	SystemName    *string           `json:"system_name"`
	KernelVersion *string           `json:"kernel_version"`
	OSVersion     *string           `json:"os_version"`
	HostName      *string           `json:"host_name"`
	MemoryUsage   uint64            `json:"memory_usage"`
	CPUUsage      float64           `json:"cpu_usage"`
	Processes     []ProcessSnapshot `json:"processes"`
}

// ProcessSnapshot represents a single process's resource usage at sample time.
type ProcessSnapshot struct {
	PID    uint32  `json:"pid"`
	Name   string  `json:"name"`
	CPU    float64 `json:"cpu"`
	Memory uint64  `json:"memory"`
}

// Clone returns a deep copy so a consumer can retain the snapshot without
// sharing the process slice with other consumers.
func (s SystemSnapshot) Clone() SystemSnapshot {
	out := s
	out.SystemName = cloneString(s.SystemName)
	out.KernelVersion = cloneString(s.KernelVersion)
	out.OSVersion = cloneString(s.OSVersion)
	out.HostName = cloneString(s.HostName)
	if s.Processes != nil {
		out.Processes = make([]ProcessSnapshot, len(s.Processes))
		copy(out.Processes, s.Processes)
	}
	return out
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// EventUpdateSystemInfo is the push event name carrying a SystemSnapshot payload.
const EventUpdateSystemInfo = "update_system_info"
