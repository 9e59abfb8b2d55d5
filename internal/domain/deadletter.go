package domain

import "time"

// DeadLetter records an event row that could not be written even after the
// sanitized retry. The raw event payload lives in object storage under
// PayloadKey; the row itself stays small. Dead letters exist to be fixed in
// the normalizer templates, never to be silently replayed into other tables.
type DeadLetter struct {
	DeadLetterID string    `json:"id" dynamodbav:"dead_letter_id"`
	EventType    EventType `json:"event_type" dynamodbav:"event_type"`
	RecipientID  string    `json:"recipient_id,omitempty" dynamodbav:"recipient_id"`
	Reason       string    `json:"reason" dynamodbav:"reason"`
	PayloadKey   string    `json:"payload_key" dynamodbav:"payload_key"`
	CreatedAt    time.Time `json:"created_at" dynamodbav:"created_at"`
}
