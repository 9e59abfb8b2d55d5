package client

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/buildstream-notify/internal/domain"
)

// ManagerState is the lifecycle phase of a channel manager.
type ManagerState string

const (
	StateIdle       ManagerState = "idle"
	StateConnecting ManagerState = "connecting"
	StateSubscribed ManagerState = "subscribed"
	StateRetrying   ManagerState = "retrying"
	StateClosed     ManagerState = "closed"
)

// Subscriber opens a live change subscription for the current recipient. The
// returned channel closes when the subscription drops; the manager treats
// that as a signal to reconnect.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan domain.Change, error)
}

// Fetcher loads the recipient's current notification batch. Run on every
// (re)connect so the cache catches up on anything missed while offline.
type Fetcher interface {
	Fetch(ctx context.Context) ([]domain.Notification, error)
}

// Manager keeps one live subscription alive for a client session. It
// subscribes, fetches the full batch, folds pushed changes into the feed, and
// sounds an alert for each genuinely new notification. Any failure moves it to the
// retrying state; it reconnects after a fixed delay, forever, until its
// context is cancelled. There is no backoff growth and no retry cap: a
// notification channel that silently gives up is worse than one that pings a
// dead server every few seconds.
type Manager struct {
	subscriber Subscriber
	fetcher    Fetcher
	feed       *Feed
	alerts     *AlertEngine
	retryDelay time.Duration

	mu    sync.Mutex
	state ManagerState
}

func NewManager(subscriber Subscriber, fetcher Fetcher, feed *Feed, alerts *AlertEngine, retryDelay time.Duration) *Manager {
	if retryDelay <= 0 {
		retryDelay = 5 * time.Second
	}
	return &Manager{
		subscriber: subscriber,
		fetcher:    fetcher,
		feed:       feed,
		alerts:     alerts,
		retryDelay: retryDelay,
		state:      StateIdle,
	}
}

// State reports the current lifecycle phase.
func (m *Manager) State() ManagerState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) setState(s ManagerState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// Run drives the connect/consume/retry loop until ctx is cancelled. It
// blocks; callers run it in its own goroutine.
func (m *Manager) Run(ctx context.Context) {
	defer m.setState(StateClosed)

	for {
		if ctx.Err() != nil {
			return
		}
		m.setState(StateConnecting)

		if err := m.connectAndConsume(ctx); err != nil {
			slog.Debug("notification channel dropped", "err", err)
		}
		if ctx.Err() != nil {
			return
		}

		m.setState(StateRetrying)
		select {
		case <-ctx.Done():
			return
		case <-time.After(m.retryDelay):
		}
	}
}

// connectAndConsume performs one full session: subscribe, batch fetch, then
// consume pushed changes until the subscription drops or ctx ends. The
// subscription opens before the fetch so a record inserted while the fetch is
// in flight sits in the channel buffer instead of falling between the two; it
// gets drained right after Replace, and an overlap with the fetched batch is
// deduplicated by id. The session context tears the subscription down when
// this returns, whatever the reason.
func (m *Manager) connectAndConsume(ctx context.Context) error {
	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	changes, err := m.subscriber.Subscribe(sessionCtx)
	if err != nil {
		return err
	}

	batch, err := m.fetcher.Fetch(sessionCtx)
	if err != nil {
		return err
	}

	m.feed.Replace(batch)
	m.setState(StateSubscribed)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c, ok := <-changes:
			if !ok {
				return nil
			}
			m.handle(ctx, c)
		}
	}
}

// handle folds a pushed change into the feed and sounds the alert when, and
// only when, the change introduced a notification the cache had not seen.
func (m *Manager) handle(ctx context.Context, c domain.Change) {
	fresh := m.feed.Apply(c)
	if fresh && m.alerts != nil {
		m.alerts.Alert(ctx, c.Notification)
	}
}
