package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/exam-seating/internal/model"
)

// ExamRepo reads exams and their eligibility rosters.  Exams themselves
// are scheduled elsewhere; only the identity and type matter here.
type ExamRepo struct {
	db *sql.DB
}

// NewExamRepo returns a new ExamRepo bound to the given database.
func NewExamRepo(db *sql.DB) *ExamRepo { return &ExamRepo{db: db} }

// GetByID retrieves an exam by id.  It returns ErrExamNotFound when no
// row matches.
func (r *ExamRepo) GetByID(ctx context.Context, id uint64) (*model.Exam, error) {
	const q = `SELECT id, title, exam_date, exam_type FROM exams WHERE id = ?`
	var e model.Exam
	err := r.db.QueryRowContext(ctx, q, id).Scan(&e.ID, &e.Title, &e.ExamDate, &e.ExamType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, err
	}
	return &e, nil
}

// Roster returns the students enrolled for an exam ordered by roll number.
// An exam without enrollments yields an empty slice, not an error.
func (r *ExamRepo) Roster(ctx context.Context, examID uint64) ([]model.Student, error) {
	const q = `SELECT s.id, s.roll_number, s.department, s.section, s.full_name
	           FROM exam_students es
	           JOIN students s ON s.id = es.student_id
	           WHERE es.exam_id = ?
	           ORDER BY s.roll_number, s.id`
	rows, err := r.db.QueryContext(ctx, q, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStudents(rows)
}
