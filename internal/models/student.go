package models

import "time"

// Student represents an enrolled learner belonging to exactly one classroom.
type Student struct {
	ID          string    `db:"id" json:"id"`
	FirstName   string    `db:"first_name" json:"firstName"`
	LastName    string    `db:"last_name" json:"lastName"`
	StudentID   string    `db:"student_id" json:"studentId"`
	ClassroomID string    `db:"classroom_id" json:"classroomId"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// StudentDetail contains student information with classroom context.
type StudentDetail struct {
	Student
	ClassroomName   string `db:"classroom_name" json:"classroomName"`
	AttendanceCount int    `db:"attendance_count" json:"attendanceCount"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search      string
	ClassroomID string
	Page        int
	PageSize    int
}
