package desktop

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Guliveer/vitalis/sysinfo/internal/collector"
	"github.com/Guliveer/vitalis/sysinfo/internal/distributor"
	"github.com/Guliveer/vitalis/sysinfo/internal/models"
	"github.com/Guliveer/vitalis/sysinfo/internal/scheduler"
)

type staticSource struct{}

func (staticSource) Sample(ctx context.Context) (collector.RawReading, error) {
	return collector.RawReading{HostName: "desk", MemoryUsed: 99}, nil
}

type emitted struct {
	name string
	data []interface{}
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []emitted
}

func (f *fakeEmitter) emit(ctx context.Context, name string, data ...interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, emitted{name: name, data: data})
}

func (f *fakeEmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func newTestApp() (*App, *distributor.Distributor, *fakeEmitter) {
	src := staticSource{}
	dist := distributor.New(src, nil, zap.NewNop())
	sampler := scheduler.New(src, dist, scheduler.Options{Interval: 10 * time.Millisecond}, zap.NewNop())
	app := NewApp(dist, sampler, zap.NewNop())
	fe := &fakeEmitter{}
	app.emit = fe.emit
	return app, dist, fe
}

func TestApp_EmitsUpdates(t *testing.T) {
	app, dist, fe := newTestApp()
	app.Startup(context.Background())

	deadline := time.Now().Add(3 * time.Second)
	for fe.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	app.Shutdown(context.Background())

	if fe.count() < 2 {
		t.Fatalf("emitted %d events, want at least 2", fe.count())
	}
	ev := fe.events[0]
	if ev.name != "update_system_info" {
		t.Errorf("event name = %q, want update_system_info", ev.name)
	}
	snap, ok := ev.data[0].(models.SystemSnapshot)
	if !ok || snap.MemoryUsage != 99 {
		t.Errorf("payload = %#v, want snapshot with memory 99", ev.data)
	}

	if got := len(dist.Subscribers()); got != 0 {
		t.Errorf("subscribers after shutdown = %d, want 0", got)
	}
	if !app.GetStatus().Stale {
		t.Error("status should be stale after shutdown")
	}
}

func TestApp_GetSystemInfo(t *testing.T) {
	app, _, _ := newTestApp()
	app.Startup(context.Background())
	defer app.Shutdown(context.Background())

	snap, err := app.GetSystemInfo()
	if err != nil {
		t.Fatal(err)
	}
	if snap.HostName == nil || *snap.HostName != "desk" {
		t.Errorf("HostName = %v, want desk", snap.HostName)
	}
}

func TestApp_GetSystemInfoBeforeStartup(t *testing.T) {
	app, _, _ := newTestApp()

	snap, err := app.GetSystemInfo()
	if err != nil {
		t.Fatal(err)
	}
	if snap.MemoryUsage != 99 {
		t.Errorf("MemoryUsage = %d, want 99", snap.MemoryUsage)
	}
}

func TestApp_GetSystemInfoDuringStartup(t *testing.T) {
	app, _, _ := newTestApp()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			if _, err := app.GetSystemInfo(); err != nil {
				t.Error(err)
				return
			}
		}
	}()
	app.Startup(context.Background())
	wg.Wait()
	app.Shutdown(context.Background())
}
