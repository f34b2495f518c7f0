package repository // repository defines data access for venues

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives
	"errors"
	"strings"

	"github.com/iliyamo/exam-seating/internal/model"
)

// VenueFilter narrows a venue listing.  Zero values mean "no filter".
type VenueFilter struct {
	ExamType      string // keep venues tagged ALL or this type
	OnlyAvailable bool   // drop venues whose is_available flag is off
	Block         string // exact block label
}

// VenueRepo provides read access to examination venues.
type VenueRepo struct {
	db *sql.DB
}

// NewVenueRepo constructs a VenueRepo with the given DB handle.
func NewVenueRepo(db *sql.DB) *VenueRepo {
	return &VenueRepo{db: db}
}

const venueColumns = `id, name, block, capacity, exam_type, is_available`

// List returns venues matching the filter ordered by name, then id.
func (r *VenueRepo) List(ctx context.Context, f VenueFilter) ([]model.Venue, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.ExamType != "" {
		where = append(where, "(exam_type = 'ALL' OR exam_type = ?)")
		args = append(args, strings.ToUpper(f.ExamType))
	}
	if f.OnlyAvailable {
		where = append(where, "is_available = 1")
	}
	if f.Block != "" {
		where = append(where, "block = ?")
		args = append(args, f.Block)
	}
	q := `SELECT ` + venueColumns + ` FROM venues`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY name, id`
	return r.query(ctx, q, args...)
}

// GetByID retrieves a venue by id.
func (r *VenueRepo) GetByID(ctx context.Context, id uint64) (*model.Venue, error) {
	const q = `SELECT ` + venueColumns + ` FROM venues WHERE id = ?`
	var v model.Venue
	err := r.db.QueryRowContext(ctx, q, id).
		Scan(&v.ID, &v.Name, &v.Block, &v.Capacity, &v.ExamType, &v.IsAvailable)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVenueNotFound
		}
		return nil, err
	}
	return &v, nil
}

// GetByIDs loads the venues with the given ids, in no particular order.
// Missing ids are simply absent from the result.
func (r *VenueRepo) GetByIDs(ctx context.Context, ids []uint64) ([]model.Venue, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	q := `SELECT ` + venueColumns + ` FROM venues WHERE id IN (` + placeholders(len(ids)) + `)`
	return r.query(ctx, q, args...)
}

func (r *VenueRepo) query(ctx context.Context, q string, args ...interface{}) ([]model.Venue, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Venue
	for rows.Next() {
		var v model.Venue
		if err := rows.Scan(&v.ID, &v.Name, &v.Block, &v.Capacity, &v.ExamType, &v.IsAvailable); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// placeholders returns "?, ?, ?" with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
