// Package repository defines data access for venues, students, exams and
// seat allocations.  The sentinel errors below let the service and handler
// layers tell failure scenarios apart without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrVenueNotFound is returned when a venue lookup yields no rows.
var ErrVenueNotFound = errors.New("venue not found")

// ErrExamNotFound is returned when an exam lookup yields no rows.
var ErrExamNotFound = errors.New("exam not found")

// ErrSeatConflict is returned when a write would give a seat or a student
// a second allocation within the same exam.  Handlers should translate
// this into an HTTP 409 response.
var ErrSeatConflict = errors.New("seat allocation conflict")

// mysqlDuplicateEntry is the server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

func isDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
