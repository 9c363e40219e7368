package dto

import (
	"time"

	"github.com/noah-isme/class-attendance-api/internal/models"
)

// DashboardResponse captures the daily attendance overview.
type DashboardResponse struct {
	Date           string                 `json:"date"`
	ClassroomCount int                    `json:"classroomCount"`
	StudentCount   int                    `json:"studentCount"`
	Unrecorded     int                    `json:"unrecorded"`
	Attendance     models.AttendanceStats `json:"attendance"`
	ByClassroom    []ClassroomAttendance  `json:"byClassroom"`
	GeneratedAt    time.Time              `json:"generatedAt"`
}

// ClassroomAttendance denotes per-classroom stats for the day.
type ClassroomAttendance struct {
	ClassroomID   string                 `json:"classroomId"`
	ClassroomName string                 `json:"classroomName"`
	Stats         models.AttendanceStats `json:"stats"`
	LowAttendance bool                   `json:"lowAttendance"`
}
