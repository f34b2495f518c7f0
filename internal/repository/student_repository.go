package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/exam-seating/internal/model"
)

// StudentRepo looks up students owned by the user-management system.
type StudentRepo struct {
	db *sql.DB
}

// NewStudentRepo constructs a StudentRepo with the given DB handle.
func NewStudentRepo(db *sql.DB) *StudentRepo {
	return &StudentRepo{db: db}
}

// FindByRollNumbers returns the students whose roll numbers are listed,
// keyed by roll number.  Unknown roll numbers are absent from the map.
func (r *StudentRepo) FindByRollNumbers(ctx context.Context, rolls []string) (map[string]model.Student, error) {
	out := make(map[string]model.Student, len(rolls))
	if len(rolls) == 0 {
		return out, nil
	}
	args := make([]interface{}, len(rolls))
	for i, roll := range rolls {
		args[i] = roll
	}
	q := `SELECT id, roll_number, department, section, full_name
	      FROM students WHERE roll_number IN (` + placeholders(len(rolls)) + `)`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	students, err := scanStudents(rows)
	if err != nil {
		return nil, err
	}
	for _, s := range students {
		out[s.RollNumber] = s
	}
	return out, nil
}

func scanStudents(rows *sql.Rows) ([]model.Student, error) {
	var out []model.Student
	for rows.Next() {
		var s model.Student
		if err := rows.Scan(&s.ID, &s.RollNumber, &s.Department, &s.Section, &s.FullName); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
