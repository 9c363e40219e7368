package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/class-attendance-api/internal/dto"
	"github.com/noah-isme/class-attendance-api/internal/models"
)

type rosterProvider interface {
	Roster(ctx context.Context) ([]models.ClassroomRoster, error)
}

type attendanceLister interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL               time.Duration
	LowAttendanceThreshold float64
}

// DashboardService composes the daily overview.
type DashboardService struct {
	roster     rosterProvider
	attendance attendanceLister
	cache      *CacheService
	logger     *zap.Logger
	now        func() time.Time
	cfg        DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Roster     rosterProvider
	Attendance attendanceLister
	Cache      *CacheService
	Logger     *zap.Logger
	Config     DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.LowAttendanceThreshold <= 0 {
		cfg.LowAttendanceThreshold = 90
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		roster:     params.Roster,
		attendance: params.Attendance,
		cache:      params.Cache,
		logger:     logger,
		now:        time.Now,
		cfg:        cfg,
	}
}

// Summary returns the overview for the given day, today when rawDate is empty.
// The boolean reports a cache hit.
func (s *DashboardService) Summary(ctx context.Context, rawDate string) (*dto.DashboardResponse, bool, error) {
	date := models.NormalizeDate(s.now())
	if raw := strings.TrimSpace(rawDate); raw != "" {
		parsed, err := models.ParseDate(raw)
		if err != nil {
			return nil, false, validationError("invalid filter", map[string][]string{"date": {err.Error()}})
		}
		date = parsed
	}

	key := dashboardCacheKey(date)
	var cached dto.DashboardResponse
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}

	summary, err := s.compose(ctx, date)
	if err != nil {
		return nil, false, err
	}
	s.cache.Set(ctx, key, summary, s.cfg.CacheTTL)
	return summary, false, nil
}

func (s *DashboardService) compose(ctx context.Context, date time.Time) (*dto.DashboardResponse, error) {
	roster, err := s.roster.Roster(ctx)
	if err != nil {
		s.logger.Warn("dashboard roster failed", zap.Error(err))
		return nil, storageError(err, "")
	}
	records, err := s.attendance.List(ctx, models.AttendanceFilter{Date: &date})
	if err != nil {
		s.logger.Warn("dashboard attendance failed", zap.Error(err))
		return nil, storageError(err, "")
	}

	byClassroom := make(map[string][]models.AttendanceRecord, len(roster))
	for _, record := range records {
		byClassroom[record.ClassroomID] = append(byClassroom[record.ClassroomID], record)
	}

	summary := &dto.DashboardResponse{
		Date:           date.Format(models.DateLayout),
		ClassroomCount: len(roster),
		Attendance:     ComputeStats(records),
		ByClassroom:    make([]dto.ClassroomAttendance, 0, len(roster)),
		GeneratedAt:    s.now().UTC(),
	}
	for _, classroom := range roster {
		summary.StudentCount += classroom.StudentCount
		stats := ComputeStats(byClassroom[classroom.ID])
		summary.ByClassroom = append(summary.ByClassroom, dto.ClassroomAttendance{
			ClassroomID:   classroom.ID,
			ClassroomName: classroom.Name,
			Stats:         stats,
			LowAttendance: s.isLow(stats),
		})
	}
	if unrecorded := summary.StudentCount - summary.Attendance.Total; unrecorded > 0 {
		summary.Unrecorded = unrecorded
	}
	return summary, nil
}

func (s *DashboardService) isLow(stats models.AttendanceStats) bool {
	if stats.Total == 0 {
		return false
	}
	rate, err := strconv.ParseFloat(stats.AttendanceRate, 64)
	if err != nil {
		return false
	}
	return rate < s.cfg.LowAttendanceThreshold
}
