package model

import "time"

// Exam identifies an examination.  Scheduling lives in another system;
// seating only needs the identity, the type (for venue suitability) and
// the roster of eligible students held in exam_students.
type Exam struct {
	ID       uint64    `json:"id"`        // exams.id
	Title    string    `json:"title"`     // exams.title
	ExamDate time.Time `json:"exam_date"` // exams.exam_date
	ExamType string    `json:"exam_type"` // exams.exam_type
}
