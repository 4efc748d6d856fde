// Package desktop binds the sampler and distributor to a wails window.
// Push snapshots are emitted as the update_system_info event; the frontend
// can also pull a fresh snapshot through the bound GetSystemInfo method.
package desktop

import (
	"context"
	"sync"
	"time"

	"github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"

	"github.com/Guliveer/vitalis/sysinfo/internal/distributor"
	"github.com/Guliveer/vitalis/sysinfo/internal/models"
	"github.com/Guliveer/vitalis/sysinfo/internal/scheduler"
)

type emitFunc func(ctx context.Context, eventName string, optionalData ...interface{})

// Status is returned to the frontend so it can tell a live feed from a stale one.
type Status struct {
	Sampler scheduler.Status `json:"sampler"`
	Stale   bool             `json:"stale"`
}

// App is the wails-bound application object.
type App struct {
	mu  sync.Mutex
	ctx context.Context

	dist    *distributor.Distributor
	sampler *scheduler.Scheduler
	logger  *zap.Logger
	emit    emitFunc

	sub  *distributor.Subscription
	done chan struct{}
}

// NewApp creates the desktop application.
func NewApp(dist *distributor.Distributor, sampler *scheduler.Scheduler, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		dist:    dist,
		sampler: sampler,
		logger:  logger.Named("desktop"),
		emit:    runtime.EventsEmit,
	}
}

// Startup is called by wails once the window runtime is ready. Events can
// only be emitted from here on, so the subscription and sampler start here.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	a.ctx = ctx
	a.mu.Unlock()

	a.sub = a.dist.Subscribe("desktop")
	a.done = make(chan struct{})
	go a.forward(ctx, a.sub, a.done)

	if err := a.sampler.Start(ctx); err != nil {
		a.logger.Error("Failed to start sampler", zap.Error(err))
	}
}

// Shutdown is called by wails on application termination.
func (a *App) Shutdown(ctx context.Context) {
	a.sampler.Stop()
	if a.sub != nil {
		a.sub.Unsubscribe()
		<-a.done
	}
	a.logger.Info("Desktop host stopped")
}

// forward emits every snapshot of the subscription until it is closed.
func (a *App) forward(ctx context.Context, sub *distributor.Subscription, done chan struct{}) {
	defer close(done)
	for snap := range sub.C {
		a.emit(ctx, models.EventUpdateSystemInfo, snap)
	}
}

// GetSystemInfo samples the host once and returns the snapshot. Before
// Startup it samples under a background context.
func (a *App) GetSystemInfo() (models.SystemSnapshot, error) {
	return a.dist.Query(a.runtimeContext())
}

// runtimeContext returns the wails runtime context, or context.Background when
// Startup has not run yet.
func (a *App) runtimeContext() context.Context {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ctx == nil {
		return context.Background()
	}
	return a.ctx
}

// GetStatus reports the sampler state and whether the feed is stale.
func (a *App) GetStatus() Status {
	return Status{
		Sampler: a.sampler.Status(),
		Stale:   a.sampler.Stale(time.Now()),
	}
}
