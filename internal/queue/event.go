// Package queue defines message payloads exchanged over the message broker.
package queue

// SeatingQueueName is the durable queue seating events are routed to.
const SeatingQueueName = "seating.allocated"

// VenueFillEvent summarises one venue of a seating run.
type VenueFillEvent struct {
	VenueID  uint64 `json:"venue_id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
	Used     int    `json:"used"`
	Overflow int    `json:"overflow"`
}

// SeatingAllocatedEvent is published after an exam's allocations have been
// replaced.  Downstream consumers (hall tickets, notice boards, audit) can
// act on it without querying the primary database.
type SeatingAllocatedEvent struct {
	RunID             string           `json:"run_id"`
	ExamID            uint64           `json:"exam_id"`
	Mode              string           `json:"mode"` // "auto" or "manual"
	Placed            int              `json:"placed"`
	Overflow          int              `json:"overflow"`
	Capacity          int              `json:"capacity"`
	AdjacentConflicts int              `json:"adjacent_conflicts"`
	RowErrors         int              `json:"row_errors"`
	Venues            []VenueFillEvent `json:"venues"`
	AllocatedBy       string           `json:"allocated_by"`
	AllocatedAt       string           `json:"allocated_at"`
}
