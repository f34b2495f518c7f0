// Package seating holds the allocation engine: it turns a roster and a set
// of venues (auto mode) or a list of validated placements (manual mode)
// into seat allocations for one exam.  The package is pure: it does no I/O
// and keeps no state between runs.
package seating

import "errors"

// Precondition errors abort a run before anything is written.
var (
	// ErrNoStudentsFound is returned when the roster for an exam is empty.
	ErrNoStudentsFound = errors.New("no students found for exam")

	// ErrNoVenuesSelected is returned when a run has no venues to seat into.
	ErrNoVenuesSelected = errors.New("no venues selected")

	// ErrAllVenuesUnavailable is returned when every referenced venue is
	// unavailable.
	ErrAllVenuesUnavailable = errors.New("all selected venues are unavailable")

	// ErrVenueUnavailable marks a single venue that was excluded because
	// its availability flag is off.
	ErrVenueUnavailable = errors.New("venue unavailable")

	// ErrEmptyValidBatch is returned when a manual import has no valid rows.
	ErrEmptyValidBatch = errors.New("no valid rows in import")

	// ErrInvalidVenue is returned for a venue with a non-positive capacity.
	ErrInvalidVenue = errors.New("venue capacity must be positive")
)
