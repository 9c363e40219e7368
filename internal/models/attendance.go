package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO-8601 calendar date format used on the wire.
const DateLayout = "2006-01-02"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "PRESENT"
	AttendanceStatusAbsent  AttendanceStatus = "ABSENT"
	AttendanceStatusLate    AttendanceStatus = "LATE"
	AttendanceStatusExcused AttendanceStatus = "EXCUSED"
)

// AttendanceStatuses lists the supported statuses in display order.
var AttendanceStatuses = []AttendanceStatus{
	AttendanceStatusPresent,
	AttendanceStatusAbsent,
	AttendanceStatusLate,
	AttendanceStatusExcused,
}

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate, AttendanceStatusExcused:
		return true
	default:
		return false
	}
}

// Attended reports whether the status counts toward the attendance rate.
func (s AttendanceStatus) Attended() bool {
	return s == AttendanceStatusPresent || s == AttendanceStatusLate || s == AttendanceStatusExcused
}

// ParseAttendanceStatus normalises case and rejects unknown values.
func ParseAttendanceStatus(raw string) (AttendanceStatus, error) {
	status := AttendanceStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", fmt.Errorf("status must be PRESENT, ABSENT, LATE, or EXCUSED")
	}
	return status, nil
}

// Attendance is the single daily status of one student.
type Attendance struct {
	ID          string           `db:"id" json:"id"`
	StudentID   string           `db:"student_id" json:"studentId"`
	ClassroomID string           `db:"classroom_id" json:"classroomId"`
	Date        time.Time        `db:"date" json:"date"`
	Status      AttendanceStatus `db:"status" json:"status"`
	CreatedAt   time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updatedAt"`
}

// AttendanceStudent is the student projection embedded in listings.
type AttendanceStudent struct {
	ID        string `db:"id" json:"id"`
	FirstName string `db:"first_name" json:"firstName"`
	LastName  string `db:"last_name" json:"lastName"`
	StudentID string `db:"student_code" json:"studentId"`
}

// AttendanceClassroom is the classroom projection embedded in listings.
type AttendanceClassroom struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// AttendanceRecord extends the attendance row with student and classroom metadata.
type AttendanceRecord struct {
	Attendance
	Student   AttendanceStudent   `db:"student" json:"student"`
	Classroom AttendanceClassroom `db:"classroom" json:"classroom"`
	// PreviousClassroomID is only set by upserts that moved an existing record.
	PreviousClassroomID *string `db:"previous_classroom_id" json:"-"`
}

// MovedFrom returns the classroom the record was filed under before the
// write, or "" when it was new or stayed in place.
func (r AttendanceRecord) MovedFrom() string {
	if r.PreviousClassroomID == nil || *r.PreviousClassroomID == r.ClassroomID {
		return ""
	}
	return *r.PreviousClassroomID
}

type attendanceJSON struct {
	ID          string           `json:"id"`
	StudentID   string           `json:"studentId"`
	ClassroomID string           `json:"classroomId"`
	Date        string           `json:"date"`
	Status      AttendanceStatus `json:"status"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

func (a Attendance) wire() attendanceJSON {
	return attendanceJSON{
		ID:          a.ID,
		StudentID:   a.StudentID,
		ClassroomID: a.ClassroomID,
		Date:        a.Date.Format(DateLayout),
		Status:      a.Status,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

// MarshalJSON writes the date as a calendar day.
func (a Attendance) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.wire())
}

// MarshalJSON flattens the attendance fields next to the student and classroom projections.
func (r AttendanceRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		attendanceJSON
		Student   AttendanceStudent   `json:"student"`
		Classroom AttendanceClassroom `json:"classroom"`
	}{r.Attendance.wire(), r.Student, r.Classroom})
}

// AttendanceFilter defines query filters. Empty fields do not restrict.
type AttendanceFilter struct {
	ClassroomID string
	Date        *time.Time
	StudentID   string
}

// AttendanceStats summarises a filtered set of attendance records.
type AttendanceStats struct {
	Total          int    `json:"total"`
	Present        int    `json:"present"`
	Absent         int    `json:"absent"`
	Late           int    `json:"late"`
	Excused        int    `json:"excused"`
	AttendanceRate string `json:"attendanceRate"`
}

// ZeroAttendanceStats is returned for empty sets and degraded responses.
func ZeroAttendanceStats() AttendanceStats {
	return AttendanceStats{AttendanceRate: "0.0"}
}

// NormalizeDate discards time-of-day, keeping the calendar day as written in t's location.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts YYYY-MM-DD or RFC3339 and returns the normalised calendar day.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	if t, err := time.Parse(DateLayout, raw); err == nil {
		return NormalizeDate(t), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return NormalizeDate(t), nil
	}
	return time.Time{}, fmt.Errorf("invalid date format, expected YYYY-MM-DD")
}

// AllClassrooms is the classroom filter sentinel meaning no restriction.
const AllClassrooms = "all"
