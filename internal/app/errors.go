package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrMissingTables  = errors.New("effective area tables not configured")
	ErrInvalidEvent   = errors.New("invalid event")
	ErrDuplicate      = errors.New("duplicate event")
	ErrBackpressure   = errors.New("backpressure")
	ErrNotFound       = errors.New("event not found")
	ErrEvaluateFailed = errors.New("evaluation failed")
)
