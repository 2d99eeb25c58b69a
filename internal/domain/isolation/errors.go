package isolation

import "errors"

// Sentinel kinds for aggregator construction errors.
var (
	ErrNilProvider  = errors.New("isolation: nil sum provider")
	ErrNilAreaTable = errors.New("isolation: nil effective area table")
)
