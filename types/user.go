package types

import "time"

// User represents an account in the system.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int64 `json:"id" db:"id"`

	// Username is the unique login name chosen by the user.
	// Lookups by username are exact and case-sensitive.
	Username string `json:"username" db:"username"`

	// Email is the user's email address.
	Email string `json:"email" db:"email"`

	// FirstName is the user's given name.
	FirstName string `json:"first_name" db:"first_name"`

	// LastName is the user's family name.
	LastName string `json:"last_name" db:"last_name"`

	// Role is a free-form authorization label (e.g., "admin", "user").
	// It is carried into issued tokens but not interpreted further.
	Role string `json:"role" db:"role"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"hashed_password"`

	// IsActive reports whether the account may authenticate.
	IsActive bool `json:"is_active" db:"is_active"`

	// PhoneNumber is an optional contact number. It is stored for
	// forward compatibility and has no effect on authentication.
	PhoneNumber *string `json:"phone_number,omitempty" db:"phone_number"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
