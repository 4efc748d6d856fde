// Host identity collector. Resolves the system name, kernel and OS versions and hostname.
// Uses gopsutil host info, preferring the os-release NAME on Linux so the
// system name reads like "Ubuntu" rather than the lowercase platform id.
package collector

import (
	"context"
	"os"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
)

const osReleasePath = "/etc/os-release"

// IdentityResult holds the resolved identity strings. Empty means unresolved.
type IdentityResult struct {
	SystemName    string
	KernelVersion string
	OSVersion     string
	HostName      string
}

// IdentityCollector collects host identity. It never fails: fields the OS
// cannot resolve are left empty.
type IdentityCollector struct {
	osRelease string
	info      func(ctx context.Context) (*host.InfoStat, error)
}

// NewIdentityCollector creates a new identity collector.
func NewIdentityCollector() *IdentityCollector {
	return &IdentityCollector{
		osRelease: osReleasePath,
		info:      host.InfoWithContext,
	}
}

// Name returns the collector identifier.
func (c *IdentityCollector) Name() string { return "identity" }

// Collect resolves the identity fields. Partial host info is used as-is.
func (c *IdentityCollector) Collect(ctx context.Context) (interface{}, error) {
	var result IdentityResult

	// gopsutil may return a partially filled struct alongside an error.
	info, _ := c.info(ctx)
	if info != nil {
		result.SystemName = strings.TrimSpace(info.Platform)
		result.KernelVersion = strings.TrimSpace(info.KernelVersion)
		result.OSVersion = strings.TrimSpace(info.PlatformVersion)
		result.HostName = strings.TrimSpace(info.Hostname)
	}

	if runtime.GOOS == "linux" {
		if name := c.linuxSystemName(); name != "" {
			result.SystemName = name
		}
	}

	if result.HostName == "" {
		if h, err := os.Hostname(); err == nil {
			result.HostName = strings.TrimSpace(h)
		}
	}

	return result, nil
}

// IsAvailable returns true. Identity is best-effort everywhere.
func (c *IdentityCollector) IsAvailable() bool { return true }

// linuxSystemName reads the distribution NAME from os-release.
func (c *IdentityCollector) linuxSystemName() string {
	data, err := os.ReadFile(c.osRelease)
	if err != nil {
		return ""
	}
	fields := parseKeyValueFile(string(data))
	return strings.Trim(fields["NAME"], "\"'")
}

// parseKeyValueFile parses a file with KEY=VALUE lines (like /etc/os-release).
func parseKeyValueFile(content string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			fields[parts[0]] = parts[1]
		}
	}
	return fields
}
