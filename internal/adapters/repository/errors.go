package repository

import "errors"

// Sentinel kinds for result store errors.
var (
	ErrNotFound  = errors.New("event not found")
	ErrDuplicate = errors.New("event already submitted")
	ErrEmptyID   = errors.New("empty event id")
)
