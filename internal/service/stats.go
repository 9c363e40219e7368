package service

import (
	"strconv"

	"github.com/noah-isme/class-attendance-api/internal/models"
)

// ComputeStats counts records per status and derives the attendance rate.
// LATE and EXCUSED count as attended. The rate has one decimal and is "0.0" for no records.
func ComputeStats(records []models.AttendanceRecord) models.AttendanceStats {
	stats := models.ZeroAttendanceStats()
	for _, record := range records {
		stats.Total++
		switch record.Status {
		case models.AttendanceStatusPresent:
			stats.Present++
		case models.AttendanceStatusAbsent:
			stats.Absent++
		case models.AttendanceStatusLate:
			stats.Late++
		case models.AttendanceStatusExcused:
			stats.Excused++
		}
	}
	if stats.Total > 0 {
		attended := stats.Present + stats.Late + stats.Excused
		rate := float64(attended) / float64(stats.Total) * 100
		stats.AttendanceRate = strconv.FormatFloat(rate, 'f', 1, 64)
	}
	return stats
}
