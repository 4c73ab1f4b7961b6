package entity

import "time"

// TransmissionLog registro de auditoría de cada intento o transición.
type TransmissionLog struct {
	ID           string
	DocumentID   string
	Operation    string // submit, query, event, resubmit
	FromStatus   DocumentStatus
	ToStatus     DocumentStatus
	Request      string
	Response     string
	ResponseCode string
	Message      string
	ErrorKind    string
	Fingerprint  string // huella C14N del XML enviado
	CreatedAt    time.Time
}
