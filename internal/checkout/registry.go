package checkout

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fjod/go_travel/pkg/logger"
)

// Registry holds one sequencer per visitor session and expires idle ones.
type Registry struct {
	idleTTL time.Duration
	now     func() time.Time
	log     *logger.Logger

	mu    sync.Mutex
	items map[string]*Sequencer

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewRegistry(idleTTL time.Duration, log *logger.Logger) *Registry {
	return &Registry{
		idleTTL: idleTTL,
		now:     time.Now,
		log:     log,
		items:   make(map[string]*Sequencer),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Put stores s for sessionID. An unfinished sequencer already held for the
// session is abandoned.
func (r *Registry) Put(ctx context.Context, sessionID string, s *Sequencer) {
	r.mu.Lock()
	prev := r.items[sessionID]
	r.items[sessionID] = s
	r.mu.Unlock()

	if prev != nil && prev != s && !prev.Finished() {
		if err := prev.Abandon(ctx); err != nil {
			r.log.Ctx(ctx).WithError(err).WithField("checkout_id", prev.ID()).Warn("abandon replaced checkout")
		}
	}
}

func (r *Registry) Get(sessionID string) (*Sequencer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[sessionID]
	return s, ok
}

// Remove drops the session's sequencer, abandoning it unless finished.
func (r *Registry) Remove(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	s, ok := r.items[sessionID]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	if s.Busy() {
		r.mu.Unlock()
		return ErrBusy
	}
	delete(r.items, sessionID)
	r.mu.Unlock()

	if s.Finished() {
		return nil
	}
	return s.Abandon(ctx)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Sweep removes sequencers idle for longer than the TTL and returns how many
// were dropped. Busy sequencers are never expired.
func (r *Registry) Sweep(ctx context.Context) int {
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	var expired []*Sequencer
	for sid, s := range r.items {
		lastActive, busy := s.idleSince()
		if busy || lastActive.After(cutoff) {
			continue
		}
		expired = append(expired, s)
		delete(r.items, sid)
	}
	r.mu.Unlock()

	for _, s := range expired {
		if s.Finished() {
			continue
		}
		if err := s.Abandon(ctx); err != nil {
			r.log.Ctx(ctx).WithError(err).WithField("checkout_id", s.ID()).Warn("abandon idle checkout")
		}
	}
	return len(expired)
}

// Start runs Sweep every interval until Close.
func (r *Registry) Start(ctx context.Context, interval time.Duration) {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(r.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if n := r.Sweep(ctx); n > 0 {
					r.log.Ctx(ctx).WithField("expired", n).Info("expired idle checkouts")
				}
			case <-r.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Close stops the sweep loop started by Start and waits for it to exit.
func (r *Registry) Close() {
	r.stopOnce.Do(func() { close(r.stop) })
	if r.started.Load() {
		<-r.done
	}
}
