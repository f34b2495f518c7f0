package seating

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/iliyamo/exam-seating/internal/model"
)

// Placement is a validated manual seat request: this student sits in this
// venue on this seat.
type Placement struct {
	Student    model.Student
	Venue      model.Venue
	SeatNumber string
}

// VenueFill reports how much of one venue a plan uses.  Used counts real
// seats only; overflow rows attached to the venue are counted separately.
type VenueFill struct {
	VenueID  uint64 `json:"venue_id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
	Used     int    `json:"used"`
	Overflow int    `json:"overflow"`
}

// Plan is the outcome of one allocation run.  Rows are in seating order.
type Plan struct {
	ExamID            uint64                 `json:"exam_id"`
	Rows              []model.SeatAllocation `json:"-"`
	Placed            int                    `json:"placed"`
	Overflow          int                    `json:"overflow"`
	Capacity          int                    `json:"capacity"`
	Venues            []VenueFill            `json:"venues"`
	AdjacentConflicts int                    `json:"adjacent_conflicts"`
}

// Total is the number of students seated by the plan, overflow included.
func (p Plan) Total() int { return len(p.Rows) }

// OrderVenues sorts venues by name, then id.  Two runs over the same venue
// set therefore walk the venues in the same order.
func OrderVenues(venues []model.Venue) []model.Venue {
	out := make([]model.Venue, len(venues))
	copy(out, venues)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Auto seats a roster across venues using the round-robin interleave.
// Venues are used in the order given; callers wanting the default order
// pass them through OrderVenues first.  Students left over once every
// venue is full get OVF-n seats on the last venue, so the plan always has
// exactly one row per roster entry.
func Auto(examID uint64, roster []model.Student, venues []model.Venue) (Plan, error) {
	if len(roster) == 0 {
		return Plan{}, ErrNoStudentsFound
	}
	if len(venues) == 0 {
		return Plan{}, ErrNoVenuesSelected
	}
	capacity := 0
	for _, v := range venues {
		if v.Capacity <= 0 {
			return Plan{}, fmt.Errorf("%w: %q", ErrInvalidVenue, v.Name)
		}
		capacity += v.Capacity
	}

	order := Interleave(GroupRoster(roster))
	plan := Plan{
		ExamID:   examID,
		Rows:     make([]model.SeatAllocation, 0, len(order)),
		Capacity: capacity,
		Venues:   make([]VenueFill, len(venues)),
	}
	for i, v := range venues {
		plan.Venues[i] = VenueFill{VenueID: v.ID, Name: v.Name, Capacity: v.Capacity}
	}

	next := 0
	for i, v := range venues {
		for seat := 1; seat <= v.Capacity && next < len(order); seat++ {
			plan.Rows = append(plan.Rows, model.SeatAllocation{
				ExamID:     examID,
				StudentID:  order[next].ID,
				VenueID:    v.ID,
				SeatNumber: strconv.Itoa(seat),
			})
			plan.Venues[i].Used++
			next++
		}
	}
	plan.Placed = next

	last := len(venues) - 1
	for n := 1; next < len(order); n++ {
		plan.Rows = append(plan.Rows, model.SeatAllocation{
			ExamID:     examID,
			StudentID:  order[next].ID,
			VenueID:    venues[last].ID,
			SeatNumber: model.OverflowPrefix + strconv.Itoa(n),
		})
		plan.Venues[last].Overflow++
		next++
	}
	plan.Overflow = len(plan.Rows) - plan.Placed

	byID := make(map[uint64]model.Student, len(roster))
	for _, s := range roster {
		byID[s.ID] = s
	}
	plan.AdjacentConflicts = AdjacentConflicts(plan.Rows, byID)
	return plan, nil
}

// Manual materialises validated placements one-to-one into allocation rows.
func Manual(examID uint64, placements []Placement) (Plan, error) {
	if len(placements) == 0 {
		return Plan{}, ErrEmptyValidBatch
	}
	plan := Plan{ExamID: examID, Rows: make([]model.SeatAllocation, 0, len(placements))}
	fill := make(map[uint64]int)
	for _, p := range placements {
		row := model.SeatAllocation{
			ExamID:     examID,
			StudentID:  p.Student.ID,
			VenueID:    p.Venue.ID,
			SeatNumber: p.SeatNumber,
		}
		i, ok := fill[p.Venue.ID]
		if !ok {
			i = len(plan.Venues)
			fill[p.Venue.ID] = i
			plan.Venues = append(plan.Venues, VenueFill{VenueID: p.Venue.ID, Name: p.Venue.Name, Capacity: p.Venue.Capacity})
			plan.Capacity += p.Venue.Capacity
		}
		if row.IsOverflow() {
			plan.Venues[i].Overflow++
			plan.Overflow++
		} else {
			plan.Venues[i].Used++
			plan.Placed++
		}
		plan.Rows = append(plan.Rows, row)
	}
	return plan, nil
}
