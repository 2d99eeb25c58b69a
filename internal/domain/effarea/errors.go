package effarea

import "errors"

// Sentinel kinds for effective-area errors.
var (
	ErrInvalidTable = errors.New("invalid effective area table")
	ErrLoadTable    = errors.New("load effective area table failed")
)
