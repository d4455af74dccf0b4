// Package queue defines message payloads exchanged over the message broker.
package queue

// SeatingOptimizedEvent is published when a seating run finishes. It carries
// enough information for downstream consumers to log, notify, or trigger
// analytics without querying the primary database.
type SeatingOptimizedEvent struct {
	RunID          string  `json:"run_id"`
	EventID        uint64  `json:"event_id"`
	EventName      string  `json:"event_name"`
	State          string  `json:"state"` // COMPLETED | FAILED | CANCELLED
	Score          float64 `json:"score"`
	HardViolations int     `json:"hard_violations"`
	Generations    int     `json:"generations"`
	GuestCount     int     `json:"guest_count"`
	TableCount     int     `json:"table_count"`
	ElapsedMS      int64   `json:"elapsed_ms"`
	FinishedAt     string  `json:"finished_at"`
}
