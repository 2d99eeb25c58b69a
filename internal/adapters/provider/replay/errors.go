package replay

import "errors"

var (
	// ErrNoCurrentEvent is returned by queries issued before SetCurrentEvent.
	ErrNoCurrentEvent = errors.New("replay: no current event")
	// ErrUnsupportedEvent is returned when the event carries no recorded sums.
	ErrUnsupportedEvent = errors.New("replay: event does not carry recorded sums")
	// ErrSumsMissing is returned for candidates without recorded sums.
	ErrSumsMissing = errors.New("replay: no recorded sums for candidate")
)
