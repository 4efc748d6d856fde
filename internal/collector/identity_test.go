package collector

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/shirou/gopsutil/v3/host"
)

func TestParseKeyValueFile(t *testing.T) {
	content := "# comment\nNAME=\"Ubuntu\"\nVERSION_ID=\"22.04\"\n\nBROKEN\nID=ubuntu\n"
	fields := parseKeyValueFile(content)

	tests := map[string]string{
		"NAME":       "\"Ubuntu\"",
		"VERSION_ID": "\"22.04\"",
		"ID":         "ubuntu",
	}
	for k, want := range tests {
		if got := fields[k]; got != want {
			t.Errorf("fields[%q] = %q, want %q", k, got, want)
		}
	}
	if _, ok := fields["BROKEN"]; ok {
		t.Error("line without '=' should be ignored")
	}
}

func TestIdentityCollector_PartialInfo(t *testing.T) {
	c := NewIdentityCollector()
	c.osRelease = filepath.Join(t.TempDir(), "missing")
	c.info = func(ctx context.Context) (*host.InfoStat, error) {
		return &host.InfoStat{KernelVersion: " 6.1.0 ", Hostname: "box"}, errors.New("partial")
	}

	data, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect error = %v, want nil", err)
	}
	got := data.(IdentityResult)
	if got.KernelVersion != "6.1.0" {
		t.Errorf("KernelVersion = %q, want 6.1.0", got.KernelVersion)
	}
	if got.OSVersion != "" {
		t.Errorf("OSVersion = %q, want empty", got.OSVersion)
	}
	if got.HostName != "box" {
		t.Errorf("HostName = %q, want box", got.HostName)
	}
}

func TestIdentityCollector_OSReleaseName(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("os-release is only consulted on linux")
	}
	path := filepath.Join(t.TempDir(), "os-release")
	if err := os.WriteFile(path, []byte("NAME=\"Debian GNU/Linux\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewIdentityCollector()
	c.osRelease = path
	c.info = func(ctx context.Context) (*host.InfoStat, error) {
		return &host.InfoStat{Platform: "debian"}, nil
	}

	data, _ := c.Collect(context.Background())
	if got := data.(IdentityResult).SystemName; got != "Debian GNU/Linux" {
		t.Errorf("SystemName = %q, want Debian GNU/Linux", got)
	}
}
