package worker

import "errors"

// Sentinel kinds for pool construction errors.
var (
	ErrNilFactory = errors.New("worker: nil processor factory")
	ErrNilSink    = errors.New("worker: nil result sink")
)
