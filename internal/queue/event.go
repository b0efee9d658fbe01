// Package queue defines message payloads exchanged over the message broker.
package queue

import "encoding/json"

// Event types carried on the notifications queue.
const (
	TypeVerifyEmail           = "ninong.verify_email"
	TypeRegistrationSubmitted = "registration.submitted"
	TypeStatusUpdated         = "registration.status_updated"
)

// Envelope wraps every published notification.  Consumers switch on
// Type and unmarshal Payload into the matching struct.
type Envelope struct {
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	PublishedAt string          `json:"published_at"`
}

// VerifyEmailEvent asks for a verification-code email to a new or
// re-requesting ninong.  The code travels only over the broker and is
// stored hashed; it is never logged.
type VerifyEmailEvent struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Code  string `json:"code"`
}

// RegistrationSubmittedEvent is published when a guardian's
// submission commits.  It carries enough for downstream consumers to
// notify the guardian without querying the primary database.
type RegistrationSubmittedEvent struct {
	RegistrationID  uint64 `json:"registration_id"`
	ReferenceNumber string `json:"reference_number"`
	InaanakName     string `json:"inaanak_name"`
	GuardianName    string `json:"guardian_name"`
	GuardianEmail   string `json:"guardian_email"`
	SubmittedAt     string `json:"submitted_at"`
}

// StatusUpdatedEvent is published when an admin changes a
// registration's status.  RejectionReason is empty unless one was
// recorded.
type StatusUpdatedEvent struct {
	RegistrationID  uint64 `json:"registration_id"`
	ReferenceNumber string `json:"reference_number"`
	GuardianName    string `json:"guardian_name"`
	GuardianEmail   string `json:"guardian_email"`
	Status          string `json:"status"`
	RejectionReason string `json:"rejection_reason,omitempty"`
	UpdatedAt       string `json:"updated_at"`
}
