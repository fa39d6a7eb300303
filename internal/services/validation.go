package services

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// FieldError describes a single rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned before any storage call when input is rejected.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (e *ValidationError) lengthBetween(field, value string, min, max int) {
	n := utf8.RuneCountInString(value)
	if n < min || n > max {
		e.add(field, "must be between %d and %d characters", min, max)
		return
	}
	e.storable(field, value)
}

// storable rejects text Postgres cannot hold in a TEXT column.
func (e *ValidationError) storable(field, value string) {
	switch {
	case strings.ContainsRune(value, 0):
		e.add(field, "must not contain NUL characters")
	case !utf8.ValidString(value):
		e.add(field, "must be valid UTF-8")
	}
}

func (e *ValidationError) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		e.add(field, "is required")
	}
}

// err returns nil when no field was rejected.
func (e *ValidationError) err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
