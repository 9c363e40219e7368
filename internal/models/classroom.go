package models

import "time"

// Classroom is a named group that owns a roster of students.
type Classroom struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// ClassroomSummary adds the roster size to a classroom.
type ClassroomSummary struct {
	Classroom
	StudentCount int `db:"student_count" json:"studentCount"`
}

// ClassroomFilter defines filter criteria for listing classrooms.
type ClassroomFilter struct {
	Search   string
	Page     int
	PageSize int
}

// RosterStudent is the minimal student shape shown when taking attendance.
type RosterStudent struct {
	ID          string `db:"id" json:"id"`
	ClassroomID string `db:"classroom_id" json:"-"`
	FirstName   string `db:"first_name" json:"firstName"`
	LastName    string `db:"last_name" json:"lastName"`
	StudentID   string `db:"student_id" json:"studentId"`
}

// ClassroomRoster is a classroom with its students for the attendance screen.
type ClassroomRoster struct {
	Classroom
	Students     []RosterStudent `json:"students"`
	StudentCount int             `json:"studentCount"`
}
