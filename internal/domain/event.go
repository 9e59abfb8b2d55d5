package domain

import "time"

// EventType discriminates the domain-event union. One normalizer template
// exists per type; anything else is rejected at intake.
type EventType string

const (
	EventMessageCreated        EventType = "message_created"
	EventDeliveryScheduled     EventType = "delivery_scheduled"
	EventDeliveryStatusChanged EventType = "delivery_status_changed"
	EventOrderCreated          EventType = "order_created"
	EventOrderStatusChanged    EventType = "order_status_changed"
	EventContractorAccepted    EventType = "contractor_accepted"
	EventDocumentUploaded      EventType = "document_uploaded"
	EventDocumentApproved      EventType = "document_approved"
)

// Well-known keys in DomainEvent.RelatedIDs.
const (
	RelatedProjectID      = "project_id"
	RelatedConversationID = "conversation_id"
)

// Event sources. SourceAdminDashboard marks admin-originated events so the
// client filter can drop them from the admin stream.
const (
	SourceMobileApp      = "mobile_app"
	SourceAdminDashboard = "admin_dashboard"
	SourceTrigger        = "trigger"
)

// DomainEvent is the normalized shape every intake transport delivers.
// It is ephemeral: the engine persists Notifications, never events.
// Delivery is at-least-once; the dedup key on Notification absorbs replays.
type DomainEvent struct {
	Type       EventType         `json:"event_type" validate:"required"`
	ActorID    string            `json:"actor_id" validate:"required"`
	ActorRole  string            `json:"actor_role"`
	EntityType string            `json:"entity_type" validate:"required"`
	EntityID   string            `json:"entity_id" validate:"required"`
	RelatedIDs map[string]string `json:"related_ids"`
	// Body is a free-text preview (message text, document name, ...).
	Body string `json:"body"`
	// Status carries the new state for *_status_changed events.
	Status     string    `json:"status"`
	Source     string    `json:"source"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Related returns the related id for key, or "" when absent.
func (e DomainEvent) Related(key string) string {
	if e.RelatedIDs == nil {
		return ""
	}
	return e.RelatedIDs[key]
}
