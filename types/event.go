package types

import "time"

// EventType identifies what happened in a lifecycle event.
type EventType string

const (
	EventUserRegistered EventType = "user.registered"
	EventTaskCreated    EventType = "task.created"
	EventTaskUpdated    EventType = "task.updated"
	EventTaskDeleted    EventType = "task.deleted"
)

// Event is published to the message broker after a change is committed.
type Event struct {
	// ID is a ULID, unique per event.
	ID string `json:"id"`

	// Type is the kind of change.
	Type EventType `json:"type"`

	// UserID is the acting (and owning) user.
	UserID int64 `json:"user_id"`

	// TaskID is set for task events.
	TaskID int64 `json:"task_id,omitempty"`

	// OccurredAt is when the change was committed.
	OccurredAt time.Time `json:"occurred_at"`
}
