package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/exam-seating/internal/model"
)

// insertChunk bounds the number of rows per multi-VALUES insert so a large
// exam stays well below max_allowed_packet and the placeholder limit.
const insertChunk = 500

// AllocationRepo persists seat allocations.  Allocations are never patched
// in place: the whole set for an exam is replaced in one transaction.
type AllocationRepo struct {
	db *sql.DB
}

// NewAllocationRepo returns a new AllocationRepo bound to the given database.
func NewAllocationRepo(db *sql.DB) *AllocationRepo { return &AllocationRepo{db: db} }

// Replace deletes every allocation of the exam and inserts rows in their
// place as a single all-or-nothing operation.  The exam row is locked with
// SELECT ... FOR UPDATE first, so two replacements of the same exam queue
// up behind each other while other exams are unaffected.  A failure at any
// point leaves the previous allocations untouched.
func (r *AllocationRepo) Replace(ctx context.Context, examID uint64, rows []model.SeatAllocation) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var locked uint64
		err := tx.QueryRowContext(ctx, `SELECT id FROM exams WHERE id = ? FOR UPDATE`, examID).Scan(&locked)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrExamNotFound
			}
			return fmt.Errorf("lock exam: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM seat_allocations WHERE exam_id = ?`, examID); err != nil {
			return fmt.Errorf("delete allocations: %w", err)
		}
		for start := 0; start < len(rows); start += insertChunk {
			end := start + insertChunk
			if end > len(rows) {
				end = len(rows)
			}
			if err := insertAllocationsTx(ctx, tx, examID, rows[start:end]); err != nil {
				if isDuplicateEntry(err) {
					return fmt.Errorf("%w: %v", ErrSeatConflict, err)
				}
				return fmt.Errorf("insert allocations: %w", err)
			}
		}
		return nil
	})
}

// insertAllocationsTx inserts rows with a single multi-VALUES statement.
// The exam id of every row is forced to examID.
func insertAllocationsTx(ctx context.Context, tx *sql.Tx, examID uint64, rows []model.SeatAllocation) error {
	if len(rows) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString(`INSERT INTO seat_allocations (exam_id, student_id, venue_id, seat_number) VALUES `)
	args := make([]interface{}, 0, len(rows)*4)
	for i, a := range rows {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?, ?, ?, ?)")
		args = append(args, examID, a.StudentID, a.VenueID, a.SeatNumber)
	}
	_, err := tx.ExecContext(ctx, b.String(), args...)
	return err
}

const allocationViewQuery = `SELECT sa.id, sa.exam_id, sa.student_id, sa.venue_id, sa.seat_number,
	       s.roll_number, s.full_name, s.department, s.section, v.name, v.block
	FROM seat_allocations sa
	JOIN students s ON s.id = sa.student_id
	JOIN venues v ON v.id = sa.venue_id`

// Overflow seats sort after real seats; numeric seats sort numerically.
const allocationViewOrder = ` ORDER BY sa.exam_id, v.name, v.id,
	(sa.seat_number LIKE 'OVF-%'),
	CAST(REPLACE(sa.seat_number, 'OVF-', '') AS UNSIGNED),
	sa.seat_number`

// ListByExam returns the allocations of one exam joined with student and
// venue details.
func (r *AllocationRepo) ListByExam(ctx context.Context, examID uint64) ([]model.AllocationView, error) {
	return r.list(ctx, allocationViewQuery+` WHERE sa.exam_id = ?`+allocationViewOrder, examID)
}

// ListAll returns the allocations of every exam.
func (r *AllocationRepo) ListAll(ctx context.Context) ([]model.AllocationView, error) {
	return r.list(ctx, allocationViewQuery+allocationViewOrder)
}

func (r *AllocationRepo) list(ctx context.Context, q string, args ...interface{}) ([]model.AllocationView, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.AllocationView{}
	for rows.Next() {
		var a model.AllocationView
		if err := rows.Scan(
			&a.ID, &a.ExamID, &a.StudentID, &a.VenueID, &a.SeatNumber,
			&a.RollNumber, &a.StudentName, &a.Department, &a.Section, &a.VenueName, &a.VenueBlock,
		); err != nil {
			return nil, err
		}
		a.IsOverflow = strings.HasPrefix(a.SeatNumber, model.OverflowPrefix)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
