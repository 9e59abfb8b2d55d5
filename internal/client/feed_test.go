package client

import (
	"testing"

	"github.com/buildstream-notify/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func notif(id, category string, read bool) domain.Notification {
	return domain.Notification{
		NotificationID: id,
		RecipientID:    "a1",
		Category:       category,
		Title:          "t",
		Message:        "m",
		Priority:       domain.PriorityNormal,
		IsRead:         read,
	}
}

func insert(n domain.Notification) domain.Change {
	return domain.Change{Kind: domain.ChangeInsert, Notification: n}
}

func TestFeed_Replace_SetsUnreadFromBatch(t *testing.T) {
	f := NewFeed()
	f.Replace([]domain.Notification{
		notif("n1", domain.CategoryMessage, false),
		notif("n2", domain.CategoryOrder, true),
		notif("n3", domain.CategoryPayment, false), // filtered out
	})

	assert.Len(t, f.List(), 2)
	assert.Equal(t, 1, f.UnreadCount())
}

func TestFeed_Apply_FreshInsert_IncrementsUnread(t *testing.T) {
	f := NewFeed()
	fresh := f.Apply(insert(notif("n1", domain.CategoryMessage, false)))

	assert.True(t, fresh)
	assert.Equal(t, 1, f.UnreadCount())
}

func TestFeed_Apply_ReplayedInsert_Deduplicated(t *testing.T) {
	f := NewFeed()
	n := notif("n1", domain.CategoryMessage, false)

	require.True(t, f.Apply(insert(n)))
	// The same record arrives again after a reconnect replay.
	assert.False(t, f.Apply(insert(n)))

	assert.Len(t, f.List(), 1)
	assert.Equal(t, 1, f.UnreadCount())
}

func TestFeed_Apply_HiddenInsert_Ignored(t *testing.T) {
	f := NewFeed()
	adminOriginated := notif("n2", domain.CategoryMessage, false)
	adminOriginated.Metadata = map[string]string{domain.MetaSource: domain.SourceAdminDashboard}

	assert.False(t, f.Apply(insert(notif("n1", domain.CategoryPayment, false))))
	assert.False(t, f.Apply(insert(adminOriginated)))
	assert.Empty(t, f.List())
	assert.Zero(t, f.UnreadCount())
}

func TestFeed_Apply_InsertOrder_NewestFirst(t *testing.T) {
	f := NewFeed()
	f.Apply(insert(notif("n1", domain.CategoryMessage, false)))
	f.Apply(insert(notif("n2", domain.CategoryMessage, false)))

	list := f.List()
	require.Len(t, list, 2)
	assert.Equal(t, "n2", list[0].NotificationID)
	assert.Equal(t, "n1", list[1].NotificationID)
}

func TestFeed_Apply_UpdateToRead_DecrementsUnread(t *testing.T) {
	f := NewFeed()
	n := notif("n1", domain.CategoryMessage, false)
	f.Apply(insert(n))

	n.IsRead = true
	f.Apply(domain.Change{Kind: domain.ChangeUpdate, Notification: n})

	assert.Zero(t, f.UnreadCount())

	// A second identical update must not underflow.
	f.Apply(domain.Change{Kind: domain.ChangeUpdate, Notification: n})
	assert.Zero(t, f.UnreadCount())
}

func TestFeed_Apply_DeleteRecomputesUnread(t *testing.T) {
	f := NewFeed()
	f.Apply(insert(notif("n1", domain.CategoryMessage, false)))
	f.Apply(insert(notif("n2", domain.CategoryMessage, false)))

	f.Apply(domain.Change{Kind: domain.ChangeDelete, Notification: notif("n1", domain.CategoryMessage, false)})

	assert.Len(t, f.List(), 1)
	assert.Equal(t, 1, f.UnreadCount())
}

func TestFeed_MarkRead_FloorsAtZero(t *testing.T) {
	f := NewFeed()
	f.Apply(insert(notif("n1", domain.CategoryMessage, false)))

	f.MarkRead("n1")
	assert.Zero(t, f.UnreadCount())

	f.MarkRead("n1") // already read
	f.MarkRead("missing")
	assert.Zero(t, f.UnreadCount())
}

func TestFeed_MarkAllRead_ZeroesBadge(t *testing.T) {
	f := NewFeed()
	f.Apply(insert(notif("n1", domain.CategoryMessage, false)))
	f.Apply(insert(notif("n2", domain.CategoryMessage, false)))

	f.MarkAllRead()

	assert.Zero(t, f.UnreadCount())
	for _, n := range f.List() {
		assert.True(t, n.IsRead)
	}
}

func TestFeed_Clear_EmptiesEverything(t *testing.T) {
	f := NewFeed()
	f.Apply(insert(notif("n1", domain.CategoryMessage, false)))

	f.Clear()

	assert.Empty(t, f.List())
	assert.Zero(t, f.UnreadCount())
}

// The badge always equals the number of unread rows in the cache, whatever
// mix of operations got us here.
func TestFeed_UnreadInvariant(t *testing.T) {
	f := NewFeed()
	f.Apply(insert(notif("n1", domain.CategoryMessage, false)))
	f.Apply(insert(notif("n2", domain.CategoryMessage, false)))
	f.Apply(insert(notif("n3", domain.CategoryMessage, true)))
	f.MarkRead("n1")
	f.Apply(domain.Change{Kind: domain.ChangeDelete, Notification: notif("n2", domain.CategoryMessage, false)})

	expected := 0
	for _, n := range f.List() {
		if !n.IsRead {
			expected++
		}
	}
	assert.Equal(t, expected, f.UnreadCount())
}
