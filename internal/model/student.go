package model

// Student is the slice of a student record the seating engine needs.
// Students are owned by the user-management system and are read-only here.
type Student struct {
	ID         uint64 `json:"id"`          // students.id
	RollNumber string `json:"roll_number"` // students.roll_number (unique)
	Department string `json:"department"`  // students.department
	Section    string `json:"section"`     // students.section
	FullName   string `json:"full_name"`   // students.full_name
}
