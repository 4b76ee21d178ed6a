package docstore

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Notifier fans out collection-change signals. The Postgres and Mongo
// adapters cannot push query snapshots on their own, so they publish a
// change signal after every mutation and live queries re-run on each signal.
type Notifier interface {
	// Notify signals that something in the collection changed.
	Notify(collection string)

	// Watch returns a channel that receives a signal per change to the
	// collection. Signals are coalesced; receivers re-read current state
	// rather than replaying events. stop releases the watch.
	Watch(collection string) (ch <-chan struct{}, stop func())
}

// LocalNotifier is an in-process Notifier for single-binary deployments.
type LocalNotifier struct {
	mu       sync.Mutex
	watchers map[string]map[int]chan struct{}
	nextID   int
}

// NewLocalNotifier creates an empty in-process notifier.
func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{watchers: make(map[string]map[int]chan struct{})}
}

func (n *LocalNotifier) Notify(collection string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.watchers[collection] {
		select {
		case ch <- struct{}{}:
		default:
			// Watcher already has a pending signal; coalesce.
		}
	}
}

func (n *LocalNotifier) Watch(collection string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	n.mu.Lock()
	if n.watchers[collection] == nil {
		n.watchers[collection] = make(map[int]chan struct{})
	}
	id := n.nextID
	n.nextID++
	n.watchers[collection][id] = ch
	n.mu.Unlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.watchers[collection], id)
			n.mu.Unlock()
		})
	}
	return ch, stop
}

// subscribeViaFeed implements Store.Subscribe for adapters that only expose
// point-in-time queries: run once for the initial snapshot, then re-run per
// change signal. Query failures after a signal are logged and the previous
// snapshot stands.
func subscribeViaFeed(
	ctx context.Context,
	run func(context.Context, Query) ([]Document, error),
	notifier Notifier,
	q Query,
	fn SnapshotFunc,
) (func(), error) {
	initial, err := run(ctx, q)
	if err != nil {
		return nil, err
	}

	signals, stopWatch := notifier.Watch(q.Collection)
	done := make(chan struct{})

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			stopWatch()
			close(done)
		})
	}

	fn(Snapshot{Docs: initial})

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				cancel()
				return
			case <-signals:
				docs, err := run(ctx, q)
				if err != nil {
					log.Warn().Err(err).Str("collection", q.Collection).
						Msg("live query refresh failed, keeping previous snapshot")
					continue
				}
				select {
				case <-done:
					return
				default:
					fn(Snapshot{Docs: docs})
				}
			}
		}
	}()

	return cancel, nil
}
