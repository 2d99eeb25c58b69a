package testevents

import "time"

// Config holds configuration for the load test.
type Config struct {
	BaseURL     string        // Base URL of the service
	NumEvents   int           // Number of events to generate
	Workers     int           // Number of concurrent workers
	Timeout     time.Duration // HTTP request timeout
	WaitTimeout time.Duration // How long to wait for results to leave pending
	Seed        uint64        // Generator seed; equal seeds give equal events
	OutputFile  string        // Output file for events
	LogFile     string        // Log file for test output
	Verbose     bool          // Enable verbose logging
}

// Stats holds test statistics.
type Stats struct {
	EventsGenerated   int
	EventsSubmitted   int
	EventsAccepted    int
	EventsDuplicate   int
	EventsRejected    int // backpressure
	EventsFailed      int
	ResultsDone       int
	ResultsFailed     int
	ResultsPending    int
	CandidatesChecked int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}

// ackResponse is the body of an accepted submission.
type ackResponse struct {
	Status  string `json:"status"`
	EventID string `json:"event_id"`
}
