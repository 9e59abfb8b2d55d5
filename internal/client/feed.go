package client

import (
	"sync"

	"github.com/buildstream-notify/internal/domain"
)

// Feed is the client-side notification cache. It mirrors the server rows the
// user is allowed to see and keeps the unread badge count consistent with its
// own contents at all times.
//
// Every entry point runs changes through the same visibility predicate the
// server applies, so a hidden row pushed over a stale stream can never
// surface locally.
type Feed struct {
	mu     sync.Mutex
	byID   map[string]domain.Notification
	order  []string
	unread int
}

func NewFeed() *Feed {
	return &Feed{byID: make(map[string]domain.Notification)}
}

// Replace resets the cache from a full fetch. The order of batch is
// preserved (the server returns newest first).
func (f *Feed) Replace(batch []domain.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.byID = make(map[string]domain.Notification, len(batch))
	f.order = f.order[:0]
	f.unread = 0
	for _, n := range domain.FilterVisible(batch) {
		if _, ok := f.byID[n.NotificationID]; ok {
			continue
		}
		f.byID[n.NotificationID] = n
		f.order = append(f.order, n.NotificationID)
		if !n.IsRead {
			f.unread++
		}
	}
}

// Apply folds one live change into the cache. It reports whether the change
// was a fresh insert, which is the only case that should trigger an audible
// alert; replayed inserts after a reconnect return false so the user never
// hears the same notification twice.
func (f *Feed) Apply(c domain.Change) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch c.Kind {
	case domain.ChangeInsert:
		return f.applyInsert(c.Notification)
	case domain.ChangeUpdate:
		f.applyUpdate(c.Notification)
	case domain.ChangeDelete:
		f.applyDelete(c.Notification.NotificationID)
	}
	return false
}

func (f *Feed) applyInsert(n domain.Notification) bool {
	if !domain.Visible(n) {
		return false
	}
	if _, ok := f.byID[n.NotificationID]; ok {
		return false
	}
	f.byID[n.NotificationID] = n
	f.order = append([]string{n.NotificationID}, f.order...)
	if !n.IsRead {
		f.unread++
	}
	return true
}

func (f *Feed) applyUpdate(n domain.Notification) {
	prev, ok := f.byID[n.NotificationID]
	if !ok {
		return
	}
	if !prev.IsRead && n.IsRead && f.unread > 0 {
		f.unread--
	}
	f.byID[n.NotificationID] = n
}

func (f *Feed) applyDelete(notificationID string) {
	if _, ok := f.byID[notificationID]; !ok {
		return
	}
	delete(f.byID, notificationID)
	for i, id := range f.order {
		if id == notificationID {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	f.recountUnread()
}

// MarkRead applies a local read transition, for optimistic UI updates ahead
// of the server confirmation. Already-read and unknown ids are no-ops.
func (f *Feed) MarkRead(notificationID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n, ok := f.byID[notificationID]
	if !ok || n.IsRead {
		return
	}
	n.IsRead = true
	f.byID[notificationID] = n
	if f.unread > 0 {
		f.unread--
	}
}

// MarkAllRead flips every cached row to read and zeroes the badge.
func (f *Feed) MarkAllRead() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for id, n := range f.byID {
		if !n.IsRead {
			n.IsRead = true
			f.byID[id] = n
		}
	}
	f.unread = 0
}

// Delete removes one row locally.
func (f *Feed) Delete(notificationID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applyDelete(notificationID)
}

// Clear empties the cache.
func (f *Feed) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID = make(map[string]domain.Notification)
	f.order = f.order[:0]
	f.unread = 0
}

// List returns the cached notifications, newest first.
func (f *Feed) List() []domain.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]domain.Notification, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.byID[id])
	}
	return out
}

// UnreadCount returns the badge value. It is always equal to the number of
// unread rows currently in the cache.
func (f *Feed) UnreadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unread
}

// recountUnread rebuilds the counter from the rows. Called after removals,
// where decrement bookkeeping is easier to get wrong than a recount.
func (f *Feed) recountUnread() {
	count := 0
	for _, n := range f.byID {
		if !n.IsRead {
			count++
		}
	}
	f.unread = count
}
