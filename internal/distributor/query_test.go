package distributor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"golang.org/x/time/rate"

	"github.com/Guliveer/vitalis/sysinfo/internal/collector"
	"github.com/Guliveer/vitalis/sysinfo/internal/models"
	"github.com/Guliveer/vitalis/sysinfo/internal/snapshot"
)

// countingSource stamps every field of a reading with the same sequence
// number so a mixed snapshot is detectable.
type countingSource struct {
	n atomic.Int64
}

func (s *countingSource) Sample(ctx context.Context) (collector.RawReading, error) {
	n := s.n.Add(1)
	time.Sleep(time.Millisecond)
	return collector.RawReading{
		HostName:           fmt.Sprint(n),
		MemoryUsed:         uint64(n),
		CPUPercent:         float64(n % 100),
		ProcessesCollected: true,
		Processes:          []collector.RawProcess{{PID: int32(n), Name: fmt.Sprint(n), NameOK: true}},
	}, nil
}

func consistent(s models.SystemSnapshot) bool {
	if s.HostName == nil || len(s.Processes) != 1 {
		return false
	}
	n := s.MemoryUsage
	return *s.HostName == fmt.Sprint(n) &&
		s.CPUUsage == float64(n%100) &&
		uint64(s.Processes[0].PID) == n &&
		s.Processes[0].Name == fmt.Sprint(n)
}

type failingSource struct{ err error }

func (s failingSource) Sample(ctx context.Context) (collector.RawReading, error) {
	return collector.RawReading{}, s.err
}

func TestQuery_SamplesOnDemand(t *testing.T) {
	src := &countingSource{}
	d := New(src, nil, zaptest.NewLogger(t))

	first, err := d.Query(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	second, err := d.Query(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if first.MemoryUsage != 1 || second.MemoryUsage != 2 {
		t.Errorf("queries sampled %d then %d, want 1 then 2", first.MemoryUsage, second.MemoryUsage)
	}
	if got := src.n.Load(); got != 2 {
		t.Errorf("source sampled %d times, want 2", got)
	}
}

func TestQuery_ConcurrentWithPublishIsSelfConsistent(t *testing.T) {
	src := &countingSource{}
	d := New(src, nil, zap.NewNop())
	sub := d.Subscribe("push")
	defer sub.Unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stand-in for the sampler: sample, build, publish in a loop.
	go func() {
		for ctx.Err() == nil {
			raw, _ := src.Sample(ctx)
			_ = d.Publish(snapshot.Build(raw))
		}
	}()

	var wg sync.WaitGroup
	errs := make(chan error, 80)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				s, err := d.Query(context.Background())
				if err != nil {
					errs <- err
					return
				}
				if !consistent(s) {
					errs <- fmt.Errorf("mixed snapshot: %+v", s)
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	if s := <-sub.C; !consistent(s) {
		t.Errorf("pushed snapshot mixed: %+v", s)
	}
}

func TestQuery_SourceError(t *testing.T) {
	boom := errors.New("boom")
	d := New(failingSource{err: boom}, nil, zaptest.NewLogger(t))

	if _, err := d.Query(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Query error = %v, want wrapping %v", err, boom)
	}
}

func TestQuery_RespectsLimiter(t *testing.T) {
	src := &countingSource{}
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	d := New(src, limiter, zaptest.NewLogger(t))

	if _, err := d.Query(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := d.Query(ctx); err == nil {
		t.Error("second Query should fail while the limiter has no tokens")
	}
	if got := src.n.Load(); got != 1 {
		t.Errorf("source sampled %d times, want 1", got)
	}
}
