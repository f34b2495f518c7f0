package model

import "strings"

// Exam type suitability tags.  A venue tagged ALL may host any exam.
const (
	ExamTypeSemester = "SEMESTER"
	ExamTypeInternal = "INTERNAL"
	ExamTypeLab      = "LAB"
	ExamTypeAll      = "ALL"
)

// Venue is a physical examination room.  Venues are administered
// elsewhere; the seating engine reads them and never changes them
// during an allocation run.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – unique display name, used by CSV imports.
//  Block       – building or block label.
//  Capacity    – number of seats (always > 0).
//  ExamType    – suitability tag (SEMESTER, INTERNAL, LAB, ALL).
//  IsAvailable – availability flag; unavailable venues are never used.
type Venue struct {
	ID          uint64 `json:"id"`           // venues.id
	Name        string `json:"name"`         // venues.name
	Block       string `json:"block"`        // venues.block
	Capacity    int    `json:"capacity"`     // venues.capacity
	ExamType    string `json:"exam_type"`    // venues.exam_type
	IsAvailable bool   `json:"is_available"` // venues.is_available
}

// Suits reports whether the venue may host an exam of the given type.
func (v Venue) Suits(examType string) bool {
	t := strings.ToUpper(strings.TrimSpace(v.ExamType))
	return t == ExamTypeAll || t == strings.ToUpper(strings.TrimSpace(examType))
}

// NormalizeExamType upper-cases and validates an exam type tag.  The
// second return value is false for unknown tags.
func NormalizeExamType(raw string) (string, bool) {
	switch t := strings.ToUpper(strings.TrimSpace(raw)); t {
	case ExamTypeSemester, ExamTypeInternal, ExamTypeLab, ExamTypeAll:
		return t, true
	}
	return "", false
}
