package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttendanceMarshalsCalendarDate(t *testing.T) {
	created := time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC)
	raw, err := json.Marshal(Attendance{
		ID:          "att-1",
		StudentID:   "stu-1",
		ClassroomID: "cls-1",
		Date:        time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Status:      AttendanceStatusLate,
		CreatedAt:   created,
		UpdatedAt:   created,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id":"att-1","studentId":"stu-1","classroomId":"cls-1","date":"2024-01-15","status":"LATE",
		"createdAt":"2024-01-15T08:30:00Z","updatedAt":"2024-01-15T08:30:00Z"
	}`, string(raw))
}

func TestAttendanceRecordMarshalKeepsProjections(t *testing.T) {
	previous := "cls-0"
	record := AttendanceRecord{
		Attendance:          Attendance{ID: "att-1", ClassroomID: "cls-1", Date: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), Status: AttendanceStatusPresent},
		Student:             AttendanceStudent{ID: "stu-1", FirstName: "Alice", LastName: "Johnson", StudentID: "2024-1234"},
		Classroom:           AttendanceClassroom{ID: "cls-1", Name: "Form 1A"},
		PreviousClassroomID: &previous,
	}
	raw, err := json.Marshal(record)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "2024-01-15", decoded["date"])
	assert.Equal(t, "PRESENT", decoded["status"])
	assert.Equal(t, map[string]interface{}{"id": "stu-1", "firstName": "Alice", "lastName": "Johnson", "studentId": "2024-1234"}, decoded["student"])
	assert.Equal(t, map[string]interface{}{"id": "cls-1", "name": "Form 1A"}, decoded["classroom"])
	assert.Len(t, decoded, 9)
}

func TestAttendanceRecordMovedFrom(t *testing.T) {
	same := "cls-1"
	other := "cls-0"
	base := Attendance{ClassroomID: "cls-1"}

	assert.Empty(t, AttendanceRecord{Attendance: base}.MovedFrom())
	assert.Empty(t, AttendanceRecord{Attendance: base, PreviousClassroomID: &same}.MovedFrom())
	assert.Equal(t, "cls-0", AttendanceRecord{Attendance: base, PreviousClassroomID: &other}.MovedFrom())
}

func TestParseDate(t *testing.T) {
	day, err := ParseDate("2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), day)

	day, err = ParseDate("2024-01-15T23:10:00+07:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), day)

	_, err = ParseDate("15/01/2024")
	assert.Error(t, err)
}
