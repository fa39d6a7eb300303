package types

import "time"

// Field limits for tasks.
const (
	TaskTitleMinLen       = 3
	TaskTitleMaxLen       = 200
	TaskDescriptionMinLen = 3
	TaskDescriptionMaxLen = 2000
	TaskPriorityMin       = 1
	TaskPriorityMax       = 5
)

// Task is a single to-do item owned by exactly one user.
type Task struct {
	// ID is the unique identifier of the task.
	ID int64 `json:"id" db:"id"`

	// Title is a short summary of the task.
	Title string `json:"title" db:"title"`

	// Description holds the details of the task.
	Description string `json:"description" db:"description"`

	// Priority ranks the task from 1 (lowest) to 5 (highest).
	Priority int `json:"priority" db:"priority"`

	// Completed marks the task as done. The JSON name keeps the
	// "complate" spelling used by existing clients.
	Completed bool `json:"complate" db:"complete"`

	// OwnerID references the user that owns the task. It is always taken
	// from the authenticated identity, never from client input.
	OwnerID int64 `json:"owner_id" db:"owner_id"`

	// CreatedAt is the timestamp when the task was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the task.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TaskExport describes a snapshot of a user's tasks written to object storage.
type TaskExport struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Count     int       `json:"count"`
	CreatedAt time.Time `json:"created_at"`
}
