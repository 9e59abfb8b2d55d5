package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/buildstream-notify/internal/domain"
)

// Service exposes the read-state operations on a recipient's feed. Every
// operation is scoped to the authenticated recipient; touching another user's
// notification fails with domain.ErrForbidden.
type Service interface {
	List(ctx context.Context, recipientID string, limit int32) ([]domain.Notification, error)
	UnreadCount(ctx context.Context, recipientID string) (int, error)
	MarkRead(ctx context.Context, recipientID, notificationID string) (*domain.Notification, error)
	MarkAllRead(ctx context.Context, recipientID string) (int, error)
	Delete(ctx context.Context, recipientID, notificationID string) error
	ClearAll(ctx context.Context, recipientID string) (int, error)
}

type store interface {
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	ListRecent(ctx context.Context, recipientID string, limit int32) ([]domain.Notification, error)
	ListUnread(ctx context.Context, recipientID string) ([]domain.Notification, error)
	ListAll(ctx context.Context, recipientID string) ([]domain.Notification, error)
	MarkAsRead(ctx context.Context, dedupKey string, readAt time.Time) (bool, error)
	Delete(ctx context.Context, dedupKey string) error
}

type changePublisher interface {
	Publish(recipientID string, c domain.Change)
}

type service struct {
	repo         store
	hub          changePublisher
	defaultLimit int32
}

func NewService(repo store, hub changePublisher, defaultLimit int32) Service {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	return &service{repo: repo, hub: hub, defaultLimit: defaultLimit}
}

// List returns the recipient's most recent notifications, newest first,
// after the visibility filter. The filter runs on the fetched rows with the
// same predicate the live push uses, so a notification can never appear in
// one path and not the other.
func (s *service) List(ctx context.Context, recipientID string, limit int32) ([]domain.Notification, error) {
	if limit <= 0 || limit > s.defaultLimit {
		limit = s.defaultLimit
	}
	notifications, err := s.repo.ListRecent(ctx, recipientID, limit)
	if err != nil {
		return nil, err
	}
	return domain.FilterVisible(notifications), nil
}

// UnreadCount derives the badge count from the visible unread rows. It is
// computed on demand and never stored, so it cannot drift from the rows it
// summarizes.
func (s *service) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	unread, err := s.repo.ListUnread(ctx, recipientID)
	if err != nil {
		return 0, err
	}
	return len(domain.FilterVisible(unread)), nil
}

// MarkRead flips one notification to read. Marking an already-read row is a
// no-op that still returns the row, so clients can retry freely.
func (s *service) MarkRead(ctx context.Context, recipientID, notificationID string) (*domain.Notification, error) {
	n, err := s.repo.Get(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.RecipientID != recipientID {
		return nil, fmt.Errorf("notification %s: %w", notificationID, domain.ErrForbidden)
	}
	now := time.Now().UTC()
	changed, err := s.repo.MarkAsRead(ctx, n.DedupKey, now)
	if err != nil {
		return nil, err
	}
	if changed {
		n.IsRead = true
		n.ReadAt = &now
		s.hub.Publish(recipientID, domain.Change{Kind: domain.ChangeUpdate, Notification: *n})
	}
	return n, nil
}

// MarkAllRead transitions every visible unread notification and reports how
// many rows changed. Running it twice in a row is safe; the second run finds
// nothing to transition.
func (s *service) MarkAllRead(ctx context.Context, recipientID string) (int, error) {
	unread, err := s.repo.ListUnread(ctx, recipientID)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	marked := 0
	for _, n := range domain.FilterVisible(unread) {
		changed, err := s.repo.MarkAsRead(ctx, n.DedupKey, now)
		if err != nil {
			return marked, err
		}
		if !changed {
			continue
		}
		marked++
		n.IsRead = true
		n.ReadAt = &now
		s.hub.Publish(recipientID, domain.Change{Kind: domain.ChangeUpdate, Notification: n})
	}
	return marked, nil
}

// Delete removes one notification permanently.
func (s *service) Delete(ctx context.Context, recipientID, notificationID string) error {
	n, err := s.repo.Get(ctx, notificationID)
	if err != nil {
		return err
	}
	if n.RecipientID != recipientID {
		return fmt.Errorf("notification %s: %w", notificationID, domain.ErrForbidden)
	}
	if err := s.repo.Delete(ctx, n.DedupKey); err != nil {
		return err
	}
	s.hub.Publish(recipientID, domain.Change{Kind: domain.ChangeDelete, Notification: *n})
	return nil
}

// ClearAll deletes every notification the recipient has, visible or not, and
// reports how many rows were removed.
func (s *service) ClearAll(ctx context.Context, recipientID string) (int, error) {
	all, err := s.repo.ListAll(ctx, recipientID)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, n := range all {
		if err := s.repo.Delete(ctx, n.DedupKey); err != nil {
			return deleted, err
		}
		deleted++
		s.hub.Publish(recipientID, domain.Change{Kind: domain.ChangeDelete, Notification: n})
	}
	return deleted, nil
}
