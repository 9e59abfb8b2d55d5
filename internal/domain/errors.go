package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")

	// ErrDuplicate signals a natural-key collision on insert. Dispatch treats
	// it as a silent skip: the row already exists and redelivery is safe.
	ErrDuplicate = errors.New("duplicate")

	// ErrSchemaViolation signals the store rejected a non-identity field value.
	// Dispatch retries once with a sanitized payload before dead-lettering.
	ErrSchemaViolation = errors.New("schema violation")
)
