package host

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
	"golang.org/x/time/rate"

	"github.com/Guliveer/vitalis/sysinfo/internal/collector"
	"github.com/Guliveer/vitalis/sysinfo/internal/config"
	"github.com/Guliveer/vitalis/sysinfo/internal/scheduler"
)

type fixedSource struct{}

func (fixedSource) Sample(ctx context.Context) (collector.RawReading, error) {
	return collector.RawReading{
		Taken:              time.Now(),
		MemoryUsed:         1024,
		CPUPercent:         12.5,
		ProcessesCollected: true,
	}, nil
}

func TestPullLimiter(t *testing.T) {
	if got := PullLimiter(config.PullConfig{}).Limit(); got != rate.Inf {
		t.Errorf("zero rate: Limit() = %v, want Inf", got)
	}
	l := PullLimiter(config.PullConfig{Rate: 2, Burst: 0})
	if l.Limit() != 2 || l.Burst() != 1 {
		t.Errorf("Limit/Burst = %v/%d, want 2/1", l.Limit(), l.Burst())
	}
}

func TestSamplerOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Collection.Cadence = "aligned"
	cfg.Collection.Interval = config.Duration{Duration: 250 * time.Millisecond}

	opts := SamplerOptions(cfg.Collection)
	if opts.Cadence != scheduler.CadenceAligned {
		t.Errorf("Cadence = %q", opts.Cadence)
	}
	if opts.Interval != 250*time.Millisecond {
		t.Errorf("Interval = %s", opts.Interval)
	}
	if opts.SampleTimeout != 10*time.Second {
		t.Errorf("SampleTimeout = %s", opts.SampleTimeout)
	}
}

func TestAssemble_SamplerFeedsDistributor(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Collection.Interval = config.Duration{Duration: 10 * time.Millisecond}

	h := Assemble(fixedSource{}, cfg, zaptest.NewLogger(t))
	sub := h.Distributor.Subscribe("test")
	defer sub.Unsubscribe()

	if err := h.Sampler.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer h.Sampler.Stop()

	select {
	case snap := <-sub.C:
		if snap.CPUUsage != 12.5 || snap.MemoryUsage != 1024 {
			t.Errorf("snapshot = %+v", snap)
		}
		if snap.Processes == nil {
			t.Error("Processes is nil, want empty slice")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered")
	}

	snap, err := h.Distributor.Query(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.CPUUsage != 12.5 {
		t.Errorf("Query CPUUsage = %v", snap.CPUUsage)
	}
}
