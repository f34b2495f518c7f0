package model

import "strings"

// OverflowPrefix marks seats handed out after every venue is full.
const OverflowPrefix = "OVF-"

// MaxSeatNumberLen is the width of seat_allocations.seat_number.
const MaxSeatNumberLen = 20

// SeatAllocation binds one student to one seat of one venue for an exam.
// For a given exam each (venue, seat number) pair and each student occur
// at most once.  The whole set for an exam is replaced on every run.
type SeatAllocation struct {
	ID         uint64 `json:"id"`          // seat_allocations.id
	ExamID     uint64 `json:"exam_id"`     // seat_allocations.exam_id
	StudentID  uint64 `json:"student_id"`  // seat_allocations.student_id
	VenueID    uint64 `json:"venue_id"`    // seat_allocations.venue_id
	SeatNumber string `json:"seat_number"` // seat_allocations.seat_number ("12" or "OVF-3")
}

// IsOverflow reports whether the seat is an overflow placeholder.
func (a SeatAllocation) IsOverflow() bool {
	return strings.HasPrefix(a.SeatNumber, OverflowPrefix)
}

// AllocationView is the read model served to the presentation layer: a
// seat allocation joined with the student and venue it references.
type AllocationView struct {
	ID          uint64 `json:"id"`
	ExamID      uint64 `json:"exam_id"`
	StudentID   uint64 `json:"student_id"`
	VenueID     uint64 `json:"venue_id"`
	SeatNumber  string `json:"seat_number"`
	RollNumber  string `json:"roll_number"`
	StudentName string `json:"student_name"`
	Department  string `json:"department"`
	Section     string `json:"section"`
	VenueName   string `json:"venue_name"`
	VenueBlock  string `json:"venue_block"`
	IsOverflow  bool   `json:"is_overflow"`
}
