// Package distributor delivers snapshots to consumers. Push subscribers get
// the latest snapshot of every sampler tick without backlog; pull callers
// get a freshly sampled snapshot on demand.
package distributor

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Guliveer/vitalis/sysinfo/internal/collector"
	"github.com/Guliveer/vitalis/sysinfo/internal/models"
)

// ErrNoSubscribers is returned by Publish when nobody was registered at
// broadcast time. It is a delivery outcome, not a failure of the sampler.
var ErrNoSubscribers = errors.New("no subscribers registered")

// Distributor owns the subscriber registry and the pull query path.
type Distributor struct {
	source  collector.Source
	limiter *rate.Limiter
	logger  *zap.Logger

	mu   sync.RWMutex
	subs map[uuid.UUID]*Subscription

	published     atomic.Uint64
	lastPublished atomic.Int64 // unix nanos, 0 until the first publish
}

// New creates a Distributor. The limiter paces pull queries; nil means unlimited.
func New(source collector.Source, limiter *rate.Limiter, logger *zap.Logger) *Distributor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Distributor{
		source:  source,
		limiter: limiter,
		logger:  logger.Named("distributor"),
		subs:    make(map[uuid.UUID]*Subscription),
	}
}

// Subscription is one registered push consumer. C always holds at most the
// most recent undelivered snapshot; it is closed by Unsubscribe.
type Subscription struct {
	ID   uuid.UUID
	Name string
	C    <-chan models.SystemSnapshot

	ch      chan models.SystemSnapshot
	d       *Distributor
	dropped atomic.Uint64
	once    sync.Once
}

// Subscribe registers a new push consumer under the given display name.
func (d *Distributor) Subscribe(name string) *Subscription {
	ch := make(chan models.SystemSnapshot, 1)
	sub := &Subscription{
		ID:   uuid.New(),
		Name: name,
		C:    ch,
		ch:   ch,
		d:    d,
	}

	d.mu.Lock()
	d.subs[sub.ID] = sub
	count := len(d.subs)
	d.mu.Unlock()

	d.logger.Debug("Subscriber registered",
		zap.String("id", sub.ID.String()),
		zap.String("name", name),
		zap.Int("subscribers", count))
	return sub
}

// Unsubscribe removes the subscription and closes its channel. It is safe
// to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		d := s.d
		d.mu.Lock()
		delete(d.subs, s.ID)
		count := len(d.subs)
		// Publish sends under the read lock, so closing here cannot race a send.
		close(s.ch)
		d.mu.Unlock()

		d.logger.Debug("Subscriber removed",
			zap.String("id", s.ID.String()),
			zap.String("name", s.Name),
			zap.Int("subscribers", count))
	})
}

// Dropped returns how many snapshots were replaced before this subscriber read them.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

// offer delivers snap without blocking, replacing an unread older value.
func (s *Subscription) offer(snap models.SystemSnapshot) {
	select {
	case s.ch <- snap:
		return
	default:
	}

	select {
	case <-s.ch:
		s.dropped.Add(1)
	default:
	}

	select {
	case s.ch <- snap:
	default:
		// The consumer raced us for the slot; it already has something newer than the stale value.
		s.dropped.Add(1)
	}
}

// Publish broadcasts snap to every current subscriber. Each subscriber gets
// its own copy. It never blocks on a slow consumer.
func (d *Distributor) Publish(snap models.SystemSnapshot) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	d.published.Add(1)
	d.lastPublished.Store(time.Now().UnixNano())

	if len(d.subs) == 0 {
		return ErrNoSubscribers
	}
	for _, sub := range d.subs {
		sub.offer(snap.Clone())
	}
	return nil
}

// SubscriberInfo describes a registered subscriber.
type SubscriberInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Dropped uint64 `json:"dropped"`
}

// Subscribers lists the currently registered subscribers.
func (d *Distributor) Subscribers() []SubscriberInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]SubscriberInfo, 0, len(d.subs))
	for _, s := range d.subs {
		out = append(out, SubscriberInfo{
			ID:      s.ID.String(),
			Name:    s.Name,
			Dropped: s.Dropped(),
		})
	}
	return out
}

// Published returns the number of broadcasts and the time of the last one.
// The time is zero before the first broadcast.
func (d *Distributor) Published() (uint64, time.Time) {
	n := d.published.Load()
	ns := d.lastPublished.Load()
	if ns == 0 {
		return n, time.Time{}
	}
	return n, time.Unix(0, ns)
}
