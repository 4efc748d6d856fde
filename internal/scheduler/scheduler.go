// Package scheduler implements the periodic sampler. On every tick it takes a
// fresh reading from the metrics source, builds a snapshot and hands it to
// the publisher. The loop is single-flight: a tick starts only after the
// previous one has been delivered.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Guliveer/vitalis/sysinfo/internal/collector"
	"github.com/Guliveer/vitalis/sysinfo/internal/distributor"
	"github.com/Guliveer/vitalis/sysinfo/internal/models"
	"github.com/Guliveer/vitalis/sysinfo/internal/snapshot"
)

// Cadence selects how the interval between ticks is measured.
type Cadence string

const (
	// CadenceRelative sleeps Interval after each tick's work completes,
	// so the real period is Interval plus sampling latency.
	CadenceRelative Cadence = "relative"
	// CadenceAligned ticks on a fixed wall-clock schedule. A tick that
	// overruns coalesces the missed ones.
	CadenceAligned Cadence = "aligned"
)

// staleFactor is how many intervals may pass without a tick before the
// sampler is reported stale.
const staleFactor = 3

// ErrAlreadyRunning is returned by Start when the sampler is already running.
var ErrAlreadyRunning = errors.New("sampler already running")

// Publisher receives every snapshot the sampler produces.
type Publisher interface {
	Publish(snap models.SystemSnapshot) error
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(snap models.SystemSnapshot) error

// Publish calls f(snap).
func (f PublisherFunc) Publish(snap models.SystemSnapshot) error { return f(snap) }

// Options configures the sampler loop.
type Options struct {
	Interval      time.Duration
	Cadence       Cadence
	SampleTimeout time.Duration
}

// Status is a point-in-time view of the sampler loop, used by hosts to
// detect a dead or stalled loop.
type Status struct {
	Running     bool          `json:"running"`
	Interval    time.Duration `json:"interval"`
	Ticks       uint64        `json:"ticks"`
	Skipped     uint64        `json:"skipped"`
	Undelivered uint64        `json:"undelivered"`
	StartedAt   time.Time     `json:"started_at"`
	LastTick    time.Time     `json:"last_tick"`
	LastError   string        `json:"last_error,omitempty"`
}

// Scheduler drives periodic snapshot production.
type Scheduler struct {
	source    collector.Source
	publisher Publisher
	opts      Options
	logger    *zap.Logger

	mu     sync.Mutex
	status Status
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a sampler. Zero options fall back to a 1s relative cadence
// with a 10s per-tick timeout.
func New(source collector.Source, publisher Publisher, opts Options, logger *zap.Logger) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.Cadence == "" {
		opts.Cadence = CadenceRelative
	}
	if opts.SampleTimeout <= 0 {
		opts.SampleTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		source:    source,
		publisher: publisher,
		opts:      opts,
		logger:    logger.Named("sampler"),
		status:    Status{Interval: opts.Interval},
	}
}

// Start runs the loop on its own goroutine and returns immediately.
// Stop cancels it and waits for the goroutine to exit.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.done != nil {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		s.Run(ctx)
	}()
	return nil
}

// Stop cancels a loop started with Start and blocks until it has exited.
// It is a no-op if the loop is not running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Run executes the loop on the calling goroutine until ctx is cancelled.
// The first tick runs immediately.
func (s *Scheduler) Run(ctx context.Context) {
	s.mu.Lock()
	s.status.Running = true
	s.status.StartedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("Sampler started",
		zap.Duration("interval", s.opts.Interval),
		zap.String("cadence", string(s.opts.Cadence)))

	if s.opts.Cadence == CadenceAligned {
		s.runAligned(ctx)
	} else {
		s.runRelative(ctx)
	}

	s.mu.Lock()
	s.status.Running = false
	s.mu.Unlock()
	s.logger.Info("Sampler stopped")
}

func (s *Scheduler) runRelative(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if ctx.Err() != nil {
			return
		}
		s.tick(ctx)
		timer.Reset(s.opts.Interval)
	}
}

func (s *Scheduler) runAligned(ctx context.Context) {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			return
		}
		s.tick(ctx)
	}
}

// tick samples, builds and publishes one snapshot. Nothing that happens in
// here may end the loop.
func (s *Scheduler) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Sampler tick panicked, skipping",
				zap.Any("panic", r),
				zap.Stack("stack"))
			s.recordSkip(fmt.Errorf("panic: %v", r))
		}
	}()

	sampleCtx, cancel := context.WithTimeout(ctx, s.opts.SampleTimeout)
	defer cancel()

	raw, err := s.source.Sample(sampleCtx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("Sample failed, skipping tick", zap.Error(err))
		s.recordSkip(err)
		return
	}

	snap := snapshot.Build(raw)
	err = s.publisher.Publish(snap)
	s.recordTick(err)

	switch {
	case err == nil:
		s.logger.Debug("Snapshot published", zap.Float64("cpu_usage", snap.CPUUsage))
	case errors.Is(err, distributor.ErrNoSubscribers):
		s.logger.Debug("No subscribers for snapshot")
	default:
		s.logger.Warn("Snapshot delivery failed", zap.Error(err))
	}
}

func (s *Scheduler) recordTick(deliveryErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Ticks++
	s.status.LastTick = time.Now()
	if deliveryErr != nil {
		s.status.Undelivered++
	}
}

func (s *Scheduler) recordSkip(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Skipped++
	s.status.LastError = err.Error()
}

// Status returns a copy of the loop's counters.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Stale reports whether the loop has stopped producing snapshots: it is not
// running, or no tick completed within a few intervals plus one sample timeout.
func (s *Scheduler) Stale(now time.Time) bool {
	st := s.Status()
	if !st.Running {
		return true
	}
	last := st.LastTick
	if last.IsZero() {
		last = st.StartedAt
	}
	return now.Sub(last) > staleFactor*st.Interval+s.opts.SampleTimeout
}
