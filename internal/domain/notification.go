package domain

import (
	"fmt"
	"time"
)

// Notification categories.
const (
	CategoryMessage    = "message"
	CategoryDelivery   = "delivery"
	CategoryOrder      = "order"
	CategoryContractor = "contractor"
	CategoryDocument   = "document"
	CategoryPayment    = "payment"
	CategoryGeneral    = "general"
)

// Priority tiers, ordered by severity. Critical always selects the emergency
// alert sequence on the client.
const (
	PriorityLow      = "low"
	PriorityNormal   = "normal"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Metadata keys set by the normalizer. Each resolved name is qualified by the
// table it came from so consumers never guess which entity a label belongs to.
const (
	MetaSource           = "source"
	MetaSenderName       = "users.name"
	MetaProjectName      = "projects.name"
	MetaConversationName = "conversations.name"
)

// Notification is the durable record produced by fan-out. Created once by the
// dispatcher, mutated only by the read-state operations, deleted only by an
// explicit user action.
type Notification struct {
	NotificationID string            `json:"id" dynamodbav:"notification_id"`
	DedupKey       string            `json:"-" dynamodbav:"dedup_key"`
	RecipientID    string            `json:"recipient_id" dynamodbav:"recipient_id"`
	ProjectID      string            `json:"project_id,omitempty" dynamodbav:"project_id"`
	Category       string            `json:"category" dynamodbav:"category"`
	Type           EventType         `json:"type" dynamodbav:"type"`
	Title          string            `json:"title" dynamodbav:"title"`
	Message        string            `json:"message" dynamodbav:"message"`
	Priority       string            `json:"priority" dynamodbav:"priority"`
	EntityType     string            `json:"entity_type" dynamodbav:"entity_type"`
	EntityID       string            `json:"entity_id" dynamodbav:"entity_id"`
	Metadata       map[string]string `json:"metadata,omitempty" dynamodbav:"metadata"`
	CreatedAt      time.Time         `json:"created_at" dynamodbav:"created_at"`
	IsRead         bool              `json:"is_read" dynamodbav:"is_read"`
	ReadAt         *time.Time        `json:"read_at,omitempty" dynamodbav:"read_at"`
}

// NaturalKey builds the dedup key that guarantees at most one notification
// per (entity, recipient) pair. It is the store's partition key, so the
// uniqueness invariant is enforced by a conditional insert, not by
// application-level locking.
func NaturalKey(entityType, entityID, recipientID string) string {
	return fmt.Sprintf("%s#%s#%s", entityType, entityID, recipientID)
}

// ChangeKind tags a realtime push record.
type ChangeKind string

const (
	ChangeInsert ChangeKind = "insert"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

// Change is the unit pushed over a live subscription. Inserts carry new
// notifications; updates carry read-state transitions; deletes carry the id
// of a removed row.
type Change struct {
	Kind         ChangeKind   `json:"kind"`
	Notification Notification `json:"notification"`
}
