package importer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/iliyamo/exam-seating/internal/model"
	"github.com/iliyamo/exam-seating/internal/seating"
)

// Row-level validation errors.  They are reported per row and never abort
// the rest of the file.
var (
	ErrMalformedRow     = errors.New("malformed row")
	ErrEmptyRollNumber  = errors.New("roll number is empty")
	ErrUnknownStudent   = errors.New("unknown student")
	ErrDuplicateStudent = errors.New("duplicate student")
	ErrUnknownVenue     = errors.New("unknown venue")
	ErrDuplicateSeat    = errors.New("duplicate seat")
	ErrInvalidSeat      = errors.New("invalid seat number")
)

// Log entry statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// RowError ties a validation failure to the line it came from.
type RowError struct {
	Line       int
	RollNumber string
	Err        error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d (%s): %v", e.Line, e.RollNumber, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// LogEntry is one line of the diagnostic log returned to the operator.
type LogEntry struct {
	Line    int    `json:"line"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Batch is the outcome of validating an upload.  Every input row ends up
// either in Placements or in Errors, and always in Log.
type Batch struct {
	Placements []seating.Placement
	Errors     []RowError
	Log        []LogEntry
}

// Directory resolves the references found in an upload.  Students are
// keyed by roll number and venues by exact name.
type Directory struct {
	Students map[string]model.Student
	Venues   map[string]model.Venue
}

// RollNumbers returns the distinct non-empty roll numbers of rows, in
// first-seen order, for loading the student directory in one query.
func RollNumbers(rows []Row) []string {
	seen := make(map[string]bool, len(rows))
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.RollNumber == "" || seen[r.RollNumber] {
			continue
		}
		seen[r.RollNumber] = true
		out = append(out, r.RollNumber)
	}
	return out
}

// Validate checks rows in file order.  Seat numbers given in the file are
// used verbatim; rows without one get the next unused sequential number of
// their venue.
func Validate(rows []Row, dir Directory) Batch {
	var b Batch
	book := newSeatBook()
	placed := make(map[uint64]int)

	for _, row := range rows {
		p, err := validateRow(row, dir, book, placed)
		if err != nil {
			re := RowError{Line: row.Line, RollNumber: row.RollNumber, Err: err}
			b.Errors = append(b.Errors, re)
			b.Log = append(b.Log, LogEntry{Line: row.Line, Status: StatusError, Message: err.Error()})
			continue
		}
		placed[p.Student.ID] = row.Line
		b.Placements = append(b.Placements, p)
		b.Log = append(b.Log, LogEntry{
			Line:    row.Line,
			Status:  StatusOK,
			Message: fmt.Sprintf("%s -> %s seat %s", p.Student.RollNumber, p.Venue.Name, p.SeatNumber),
		})
	}
	return b
}

func validateRow(row Row, dir Directory, book *seatBook, placed map[uint64]int) (seating.Placement, error) {
	if row.Short {
		return seating.Placement{}, fmt.Errorf("%w: expected at least 3 columns", ErrMalformedRow)
	}
	st, err := validateStudent(row.RollNumber, dir, placed)
	if err != nil {
		return seating.Placement{}, err
	}
	v, err := validateVenue(row.VenueName, dir)
	if err != nil {
		return seating.Placement{}, err
	}
	seat, err := book.claim(v.ID, row.SeatNumber)
	if err != nil {
		return seating.Placement{}, err
	}
	return seating.Placement{Student: st, Venue: v, SeatNumber: seat}, nil
}

func validateStudent(roll string, dir Directory, placed map[uint64]int) (model.Student, error) {
	if roll == "" {
		return model.Student{}, ErrEmptyRollNumber
	}
	st, ok := dir.Students[roll]
	if !ok {
		return model.Student{}, fmt.Errorf("%w: %q", ErrUnknownStudent, roll)
	}
	if line, dup := placed[st.ID]; dup {
		return model.Student{}, fmt.Errorf("%w: %q already placed on line %d", ErrDuplicateStudent, roll, line)
	}
	return st, nil
}

func validateVenue(name string, dir Directory) (model.Venue, error) {
	v, ok := dir.Venues[name]
	if !ok || name == "" {
		return model.Venue{}, fmt.Errorf("%w: %q", ErrUnknownVenue, name)
	}
	if !v.IsAvailable {
		return model.Venue{}, fmt.Errorf("%w: %q is unavailable", ErrUnknownVenue, name)
	}
	return v, nil
}

// seatBook tracks seat numbers taken per venue within one file.
type seatBook struct {
	used map[uint64]map[string]bool
	next map[uint64]int
}

func newSeatBook() *seatBook {
	return &seatBook{used: make(map[uint64]map[string]bool), next: make(map[uint64]int)}
}

func (b *seatBook) claim(venueID uint64, seat string) (string, error) {
	used := b.used[venueID]
	if used == nil {
		used = make(map[string]bool)
		b.used[venueID] = used
	}
	if seat != "" {
		if err := checkSeat(seat); err != nil {
			return "", err
		}
		if used[seat] {
			return "", fmt.Errorf("%w: seat %s already taken", ErrDuplicateSeat, seat)
		}
		used[seat] = true
		return seat, nil
	}
	n := b.next[venueID]
	for {
		n++
		s := strconv.Itoa(n)
		if !used[s] {
			used[s] = true
			b.next[venueID] = n
			return s, nil
		}
	}
}

// checkSeat rejects seat numbers the allocation table cannot hold and the
// overflow labels the engine reserves for itself.
func checkSeat(seat string) error {
	if n := utf8.RuneCountInString(seat); n > model.MaxSeatNumberLen {
		return fmt.Errorf("%w: %d characters, at most %d allowed", ErrInvalidSeat, n, model.MaxSeatNumberLen)
	}
	if strings.HasPrefix(strings.ToUpper(seat), model.OverflowPrefix) {
		return fmt.Errorf("%w: %q is reserved for overflow", ErrInvalidSeat, seat)
	}
	return nil
}
