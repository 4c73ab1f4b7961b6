package entity

import "time"

// EventStatus estado del evento de cancelación.
type EventStatus string

const (
	EventPending    EventStatus = "PENDING"
	EventRegistered EventStatus = "REGISTERED"
	EventRejected   EventStatus = "REJECTED"
)

// CancellationEvent evento de cancelación de un DE aprobado (rGeVeCan).
type CancellationEvent struct {
	ID           int64 // Id numérico de rEve
	DocumentID   string
	CDC          string
	Reason       string // mOtEve
	SignedXML    string
	ResponseCode string
	Message      string
	Status       EventStatus
	Attempts     int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
