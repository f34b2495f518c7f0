package seating

import (
	"sort"

	"github.com/iliyamo/exam-seating/internal/model"
)

// GroupKey identifies an anti-clustering group.
type GroupKey struct {
	Department string
	Section    string
}

// Less orders keys by department, then section.
func (k GroupKey) Less(o GroupKey) bool {
	if k.Department != o.Department {
		return k.Department < o.Department
	}
	return k.Section < o.Section
}

// KeyOf returns the group a student belongs to.
func KeyOf(s model.Student) GroupKey {
	return GroupKey{Department: s.Department, Section: s.Section}
}

// Group is one (department, section) bucket of a roster.
type Group struct {
	Key      GroupKey
	Students []model.Student
}

// GroupRoster partitions a roster by (department, section).  Groups come
// back ordered by key and students inside a group by roll number, then
// id, so the result does not depend on the order of the input.
func GroupRoster(roster []model.Student) []Group {
	index := make(map[GroupKey]int)
	var groups []Group
	for _, s := range roster {
		k := KeyOf(s)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group{Key: k})
		}
		groups[i].Students = append(groups[i].Students, s)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Key.Less(groups[j].Key) })
	for _, g := range groups {
		sort.SliceStable(g.Students, func(i, j int) bool {
			a, b := g.Students[i], g.Students[j]
			if a.RollNumber != b.RollNumber {
				return a.RollNumber < b.RollNumber
			}
			return a.ID < b.ID
		})
	}
	return groups
}

// Interleave draws one student from each group in turn, cycling through
// the groups and skipping the exhausted ones, until every student has
// been drawn.  Two consecutive students share a group only once a single
// group is left with students.
func Interleave(groups []Group) []model.Student {
	total := 0
	for _, g := range groups {
		total += len(g.Students)
	}
	out := make([]model.Student, 0, total)
	for depth := 0; len(out) < total; depth++ {
		for _, g := range groups {
			if depth < len(g.Students) {
				out = append(out, g.Students[depth])
			}
		}
	}
	return out
}

// AdjacentConflicts counts pairs of consecutively numbered placed seats in
// the same venue whose students share a group.  Overflow seats are not
// physical seats and are ignored.  The rows must be in emission order.
func AdjacentConflicts(rows []model.SeatAllocation, students map[uint64]model.Student) int {
	conflicts := 0
	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1], rows[i]
		if prev.VenueID != cur.VenueID || prev.IsOverflow() || cur.IsOverflow() {
			continue
		}
		if KeyOf(students[prev.StudentID]) == KeyOf(students[cur.StudentID]) {
			conflicts++
		}
	}
	return conflicts
}
