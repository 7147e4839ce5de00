package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	StateOpen   = "open"
	StateClosed = "closed"
)

// Event is a scheduling poll. The public token is the shareable participant
// link; the organizer token is the capability to manage and close the event.
type Event struct {
	ID             uuid.UUID
	PublicToken    string
	OrganizerToken string
	Title          string
	Description    *string
	State          string
	TimeZone       *string
	SlotDuration   int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EventSlot is one candidate window the organizer proposed, stored merged
// and disjoint.
type EventSlot struct {
	ID      int64     `json:"id"`
	EventID uuid.UUID `json:"event_id"`
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
}

// Participant is one respondent. The organizer is a participant with
// IsOrganizer set, created together with the event.
type Participant struct {
	ID          int64
	EventID     uuid.UUID
	Token       uuid.UUID
	Name        string
	IsOrganizer bool
	Comment     *string
}
