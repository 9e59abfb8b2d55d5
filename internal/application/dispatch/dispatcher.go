package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/buildstream-notify/internal/application/normalize"
	"github.com/buildstream-notify/internal/domain"
	"github.com/buildstream-notify/internal/pkg/id"
)

// Dispatcher is the event intake contract. Any transport that delivers
// normalized domain events at least once (webhook, DB trigger bridge, queue
// consumer) calls Dispatch; the natural-key design absorbs redelivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev domain.DomainEvent) error
}

type renderer interface {
	Normalize(ctx context.Context, ev domain.DomainEvent) (*normalize.Draft, error)
}

type directory interface {
	ListAdmins(ctx context.Context) ([]domain.User, error)
}

type notificationStore interface {
	Insert(ctx context.Context, n *domain.Notification) error
	InsertBatch(ctx context.Context, batch []domain.Notification) error
}

type deadLetterStore interface {
	Put(ctx context.Context, dl *domain.DeadLetter) error
}

type payloadArchive interface {
	Put(ctx context.Context, key string, payload []byte) (string, error)
}

type alertPublisher interface {
	PublishAlert(ctx context.Context, subject, message string) error
}

type changePublisher interface {
	Publish(recipientID string, c domain.Change)
}

type dispatcher struct {
	renderer    renderer
	directory   directory
	store       notificationStore
	deadLetters deadLetterStore
	archive     payloadArchive
	opsAlerts   alertPublisher
	hub         changePublisher
}

type Deps struct {
	Renderer    renderer
	Directory   directory
	Store       notificationStore
	DeadLetters deadLetterStore
	Archive     payloadArchive
	OpsAlerts   alertPublisher // optional
	Hub         changePublisher
}

func New(deps Deps) Dispatcher {
	return &dispatcher{
		renderer:    deps.Renderer,
		directory:   deps.Directory,
		store:       deps.Store,
		deadLetters: deps.DeadLetters,
		archive:     deps.Archive,
		opsAlerts:   deps.OpsAlerts,
		hub:         deps.Hub,
	}
}

// Dispatch renders ev, fans it out to every eligible admin exactly once, and
// pushes each inserted row to the live channel. Reprocessing the same event
// is safe: rows are keyed by the natural key and duplicates are skipped.
func (d *dispatcher) Dispatch(ctx context.Context, ev domain.DomainEvent) error {
	draft, err := d.renderer.Normalize(ctx, ev)
	if err != nil {
		d.deadLetter(ctx, ev, "", err)
		return err
	}
	if !draft.Broadcast {
		slog.Debug("event produces no fan-out", "event_type", ev.Type, "actor", ev.ActorID)
		return nil
	}

	admins, err := d.directory.ListAdmins(ctx)
	if err != nil {
		return fmt.Errorf("list admin recipients: %w", err)
	}

	now := time.Now().UTC()
	batch := make([]domain.Notification, 0, len(admins))
	for _, admin := range admins {
		// Self-suppression: an admin never sees a notification generated
		// by their own action.
		if admin.UserID == ev.ActorID {
			continue
		}
		batch = append(batch, buildRow(ev, draft, admin.UserID, now))
	}
	if len(batch) == 0 {
		return nil
	}

	// All rows for one event land in a single transaction. Only when the
	// transaction is refused because some rows already exist (redelivery) or
	// a field value is rejected do we drop to the per-row path, which can
	// skip, sanitize, or dead-letter each row independently.
	err = d.store.InsertBatch(ctx, batch)
	switch {
	case err == nil:
		d.publishInserts(batch)
		return nil
	case errors.Is(err, domain.ErrDuplicate), errors.Is(err, domain.ErrSchemaViolation):
		d.insertRows(ctx, ev, batch)
		return nil
	default:
		return fmt.Errorf("insert notification batch: %w", err)
	}
}

// insertRows writes rows one at a time so a single bad or existing row never
// blocks the rest of the batch.
func (d *dispatcher) insertRows(ctx context.Context, ev domain.DomainEvent, batch []domain.Notification) {
	for i := range batch {
		row := batch[i]
		err := d.store.Insert(ctx, &row)
		switch {
		case err == nil:
			d.hub.Publish(row.RecipientID, domain.Change{Kind: domain.ChangeInsert, Notification: row})
		case errors.Is(err, domain.ErrDuplicate):
			// Redelivered event; the row already exists.
			slog.Debug("skipping duplicate notification", "dedup_key", row.DedupKey)
		case errors.Is(err, domain.ErrSchemaViolation):
			d.insertSanitized(ctx, ev, row, err)
		default:
			d.deadLetter(ctx, ev, row.RecipientID, err)
		}
	}
}

// insertSanitized retries a rejected row once with the minimal
// guaranteed-valid field set. A rejected template value is a defect in the
// normalizer; it gets logged as such and never redirected into another
// table.
func (d *dispatcher) insertSanitized(ctx context.Context, ev domain.DomainEvent, row domain.Notification, cause error) {
	slog.Error("notification rejected by store schema; template needs fixing",
		"event_type", ev.Type, "recipient_id", row.RecipientID, "err", cause)

	sanitized := domain.Notification{
		NotificationID: row.NotificationID,
		DedupKey:       row.DedupKey,
		RecipientID:    row.RecipientID,
		Category:       domain.CategoryGeneral,
		Type:           row.Type,
		Title:          row.Title,
		Message:        row.Message,
		Priority:       domain.PriorityNormal,
		EntityType:     row.EntityType,
		EntityID:       row.EntityID,
		CreatedAt:      row.CreatedAt,
	}
	err := d.store.Insert(ctx, &sanitized)
	switch {
	case err == nil:
		d.hub.Publish(sanitized.RecipientID, domain.Change{Kind: domain.ChangeInsert, Notification: sanitized})
	case errors.Is(err, domain.ErrDuplicate):
		slog.Debug("skipping duplicate notification", "dedup_key", sanitized.DedupKey)
	default:
		d.deadLetter(ctx, ev, row.RecipientID, err)
	}
}

// deadLetter records an undeliverable row: raw payload to the archive, a
// pointer row to the dead-letter table, and a best-effort operator alert.
// It only ever drops the one affected recipient's row.
func (d *dispatcher) deadLetter(ctx context.Context, ev domain.DomainEvent, recipientID string, cause error) {
	dlID := id.New()

	payloadKey := ""
	if payload, err := json.Marshal(ev); err == nil {
		key := fmt.Sprintf("dead-letters/%s.json", dlID)
		if _, err := d.archive.Put(ctx, key, payload); err == nil {
			payloadKey = key
		} else {
			slog.Warn("could not archive dead-letter payload", "err", err)
		}
	}

	dl := &domain.DeadLetter{
		DeadLetterID: dlID,
		EventType:    ev.Type,
		RecipientID:  recipientID,
		Reason:       cause.Error(),
		PayloadKey:   payloadKey,
		CreatedAt:    time.Now().UTC(),
	}
	if err := d.deadLetters.Put(ctx, dl); err != nil {
		slog.Error("could not record dead letter", "event_type", ev.Type, "err", err)
	}

	if d.opsAlerts != nil {
		subject := fmt.Sprintf("notification dead-lettered: %s", ev.Type)
		if err := d.opsAlerts.PublishAlert(ctx, subject, cause.Error()); err != nil {
			slog.Warn("could not publish ops alert", "err", err)
		}
	}

	slog.Error("event row dead-lettered",
		"dead_letter_id", dlID, "event_type", ev.Type, "recipient_id", recipientID, "err", cause)
}

func (d *dispatcher) publishInserts(batch []domain.Notification) {
	for _, n := range batch {
		d.hub.Publish(n.RecipientID, domain.Change{Kind: domain.ChangeInsert, Notification: n})
	}
}

func buildRow(ev domain.DomainEvent, draft *normalize.Draft, recipientID string, now time.Time) domain.Notification {
	return domain.Notification{
		NotificationID: id.New(),
		DedupKey:       domain.NaturalKey(ev.EntityType, ev.EntityID, recipientID),
		RecipientID:    recipientID,
		ProjectID:      draft.ProjectID,
		Category:       draft.Category,
		Type:           ev.Type,
		Title:          draft.Title,
		Message:        draft.Message,
		Priority:       draft.Priority,
		EntityType:     ev.EntityType,
		EntityID:       ev.EntityID,
		Metadata:       draft.Metadata,
		CreatedAt:      now,
		IsRead:         false,
	}
}
