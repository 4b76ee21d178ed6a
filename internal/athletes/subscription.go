package athletes

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Williamgithubit/bsm-backend/internal/docstore"
	"github.com/Williamgithubit/bsm-backend/internal/models"
)

// ListSnapshotFunc receives the reconciled athlete list on every change.
type ListSnapshotFunc func([]models.Athlete)

// Subscription owns the live directory list for one filter set. The store
// snapshot handler is the single mutation entry point for the held list;
// nothing else may touch it. Writers go through the store and see the
// result arrive as the next snapshot.
type Subscription struct {
	mu      sync.RWMutex
	current []models.Athlete
	stopped bool
	cancel  func()
}

// Current returns the last reconciled list.
func (s *Subscription) Current() []models.Athlete {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Unsubscribe stops all further callbacks. Safe to call any number of
// times, from any point after Subscribe returned.
func (s *Subscription) Unsubscribe() {
	s.mu.Lock()
	s.stopped = true
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// apply reconciles one snapshot and forwards it, unless the subscription
// was already cancelled.
func (s *Subscription) apply(list []models.Athlete, fn ListSnapshotFunc) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.current = list
	s.mu.Unlock()

	fn(list)
}

// Subscribe opens a live query matching the composed filter query. Every
// store snapshot is reconciled in full: the list is rebuilt from the
// snapshot and the client-only search predicate is re-applied before the
// callback fires. When the filtered live query needs a missing index the
// subscription degrades to watching the whole collection and applying every
// predicate client-side.
func (r *Repository) Subscribe(ctx context.Context, f Filters, fn ListSnapshotFunc) (*Subscription, error) {
	sub := &Subscription{}

	cancel, err := r.store.Subscribe(ctx, composeQuery(f), func(snap docstore.Snapshot) {
		list := applySearch(docsToAthletes(snap.Docs), f)
		sub.apply(list, fn)
	})
	if err == nil {
		sub.mu.Lock()
		sub.cancel = cancel
		stopped := sub.stopped
		sub.mu.Unlock()
		if stopped {
			cancel()
		}
		return sub, nil
	}
	if !errors.Is(err, docstore.ErrIndexRequired) {
		return nil, fmt.Errorf("failed to subscribe to athletes: %w", err)
	}

	log.Warn().Str("collection", Collection).
		Msg("store rejected filtered live query for missing index, subscribing unfiltered")

	cancel, err = r.store.Subscribe(ctx, unfilteredQuery(), func(snap docstore.Snapshot) {
		list := applySearch(filterAthletes(docsToAthletes(snap.Docs), f), f)
		sub.apply(list, fn)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open fallback subscription: %w", err)
	}

	sub.mu.Lock()
	sub.cancel = cancel
	stopped := sub.stopped
	sub.mu.Unlock()
	if stopped {
		cancel()
	}
	return sub, nil
}
