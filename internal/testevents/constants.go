package testevents

import "time"

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	resultPollInterval   = 50 * time.Millisecond
	PercentageMultiplier = 100
)

// Expected variables per candidate: mini-isolation plus dxy, dz and dca.
const (
	electronVarCount = 17 + 3
	muonVarCount     = 15 + 3
)
