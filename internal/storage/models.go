package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ChatRecord is one persisted question-answer exchange. Records are written
// once and never mutated.
type ChatRecord struct {
	ID              string
	CreatedAt       time.Time
	UserInput       string
	Response        string
	SearchPerformed bool
	TestMode        bool
}
