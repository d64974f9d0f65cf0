package models

import "time"

// EventType enumerates the notable lifecycle occurrences recorded for a link.
type EventType string

const (
	EventCreated        EventType = "created"
	EventDeliveredSMS   EventType = "delivered-sms"
	EventDeliveredEmail EventType = "delivered-email"
	EventDeliveryFailed EventType = "delivery-failed"
	EventAccessed       EventType = "accessed"
	EventRevoked        EventType = "revoked"
)

// AccessEvent is one immutable audit record. Ordering by OccurredAt defines
// the history rendered to the issuing provider.
type AccessEvent struct {
	ID         string
	LinkID     string
	Type       EventType
	OccurredAt time.Time

	// Accessor context, present on accessed events. All best-effort.
	RemoteAddr string
	UserAgent  string
	Location   string
	Recipient  string

	// Actor context, present on provider-initiated events.
	ActorID   string
	ActorName string

	// Detail is a free-form structured payload serialized as JSON.
	Detail map[string]string
}
