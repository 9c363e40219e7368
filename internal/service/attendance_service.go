package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/class-attendance-api/internal/models"
	appErrors "github.com/noah-isme/class-attendance-api/pkg/errors"
)

type attendanceRepository interface {
	Upsert(ctx context.Context, record *models.Attendance) (*models.AttendanceRecord, error)
	UpsertBulk(ctx context.Context, records []models.Attendance) ([]models.AttendanceRecord, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
	Delete(ctx context.Context, id string) (string, error)
}

type studentFinder interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

// RecordAttendanceRequest is the boundary shape of one attendance entry.
type RecordAttendanceRequest struct {
	StudentID   string `json:"studentId" form:"studentId" validate:"required"`
	ClassroomID string `json:"classroomId" form:"classroomId" validate:"required"`
	Date        string `json:"date" form:"date" validate:"required,calendar_date"`
	Status      string `json:"status" form:"status" validate:"required,attendance_status"`
}

// AttendanceQuery carries the optional list and stats filters as received.
type AttendanceQuery struct {
	ClassroomID string `form:"classroomId"`
	Date        string `form:"date"`
	StudentID   string `form:"studentId"`
}

// AttendanceServiceConfig tunes attendance behaviour.
type AttendanceServiceConfig struct {
	StatsTTL time.Duration
}

// AttendanceService coordinates attendance workflows.
type AttendanceService struct {
	repo        attendanceRepository
	students    studentFinder
	cache       *CacheService
	revalidator *Revalidator
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         AttendanceServiceConfig
}

// AttendanceServiceParams groups constructor dependencies.
type AttendanceServiceParams struct {
	Repo        attendanceRepository
	Students    studentFinder
	Cache       *CacheService
	Revalidator *Revalidator
	Metrics     *MetricsService
	Validator   *validator.Validate
	Logger      *zap.Logger
	Config      AttendanceServiceConfig
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(params AttendanceServiceParams) *AttendanceService {
	validate := params.Validator
	if validate == nil {
		validate = NewValidator()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := params.Config
	if cfg.StatsTTL <= 0 {
		cfg.StatsTTL = 2 * time.Minute
	}
	return &AttendanceService{
		repo:        params.Repo,
		students:    params.Students,
		cache:       params.Cache,
		revalidator: params.Revalidator,
		metrics:     params.Metrics,
		validator:   validate,
		logger:      logger,
		cfg:         cfg,
	}
}

// Record creates or overwrites the attendance of one student for one day.
func (s *AttendanceService) Record(ctx context.Context, req RecordAttendanceRequest) (*models.AttendanceRecord, error) {
	req = req.trimmed()
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError("invalid attendance data", fieldErrors(err, ""))
	}
	if fields := req.malformedReferences(""); len(fields) > 0 {
		return nil, referenceError("referenced student or classroom does not exist", fields)
	}
	entry := toAttendance(req)

	start := time.Now()
	stored, err := s.repo.Upsert(ctx, &entry)
	s.metrics.ObserveDBQuery("attendance_upsert", time.Since(start))
	if err != nil {
		s.logger.Error("record attendance failed", zap.String("student_id", entry.StudentID), zap.Error(err))
		return nil, storageError(err, "")
	}

	s.metrics.RecordAttendanceWrites(WriteModeSingle, 1)
	s.revalidator.AttendanceChanged(ctx, affectedClassrooms([]models.AttendanceRecord{*stored})...)
	return stored, nil
}

// RecordBulk validates every entry, then persists all of them atomically.
// Results follow input order.
func (s *AttendanceService) RecordBulk(ctx context.Context, reqs []RecordAttendanceRequest) ([]models.AttendanceRecord, error) {
	if len(reqs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no attendance data provided")
	}

	fields := map[string][]string{}
	references := map[string][]string{}
	entries := make([]models.Attendance, 0, len(reqs))
	seen := make(map[string]int, len(reqs))
	for i, req := range reqs {
		req = req.trimmed()
		prefix := fmt.Sprintf("records[%d].", i)
		if err := s.validator.Struct(req); err != nil {
			mergeFields(fields, fieldErrors(err, prefix))
			continue
		}
		if bad := req.malformedReferences(prefix); len(bad) > 0 {
			mergeFields(references, bad)
			continue
		}
		entry := toAttendance(req)
		key := entry.StudentID + "|" + entry.Date.Format(models.DateLayout)
		if first, dup := seen[key]; dup {
			fields[prefix+"studentId"] = append(fields[prefix+"studentId"],
				fmt.Sprintf("duplicate attendance for this student and date (see records[%d])", first))
			continue
		}
		seen[key] = i
		entries = append(entries, entry)
	}
	if len(fields) > 0 {
		return nil, validationError("invalid attendance data", fields)
	}
	if len(references) > 0 {
		return nil, referenceError("referenced student or classroom does not exist", references)
	}

	start := time.Now()
	stored, err := s.repo.UpsertBulk(ctx, entries)
	s.metrics.ObserveDBQuery("attendance_upsert_bulk", time.Since(start))
	if err != nil {
		s.logger.Error("bulk record attendance failed", zap.Int("count", len(entries)), zap.Error(err))
		return nil, storageError(err, "")
	}

	s.metrics.RecordAttendanceWrites(WriteModeBulk, len(stored))
	s.revalidator.AttendanceChanged(ctx, affectedClassrooms(stored)...)
	return stored, nil
}

// List returns records matching every provided filter, newest day first then by surname and given name.
func (s *AttendanceService) List(ctx context.Context, query AttendanceQuery) ([]models.AttendanceRecord, error) {
	filter, err := parseAttendanceQuery(query)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	records, err := s.repo.List(ctx, filter)
	s.metrics.ObserveDBQuery("attendance_list", time.Since(start))
	if err != nil {
		s.logger.Warn("list attendance failed", zap.Error(err))
		return nil, storageError(err, "")
	}
	return records, nil
}

// Stats aggregates the filtered records. The boolean reports a cache hit.
func (s *AttendanceService) Stats(ctx context.Context, query AttendanceQuery) (models.AttendanceStats, bool, error) {
	query.StudentID = ""
	filter, err := parseAttendanceQuery(query)
	if err != nil {
		return models.ZeroAttendanceStats(), false, err
	}

	key := statsCacheKey(filter.ClassroomID, filter.Date)
	var cached models.AttendanceStats
	if s.cache.Get(ctx, key, &cached) {
		return cached, true, nil
	}

	start := time.Now()
	records, err := s.repo.List(ctx, filter)
	s.metrics.ObserveDBQuery("attendance_stats", time.Since(start))
	if err != nil {
		s.logger.Warn("attendance stats failed", zap.Error(err))
		return models.ZeroAttendanceStats(), false, storageError(err, "")
	}

	stats := ComputeStats(records)
	s.cache.Set(ctx, key, stats, s.cfg.StatsTTL)
	return stats, false, nil
}

// Delete removes one attendance record.
func (s *AttendanceService) Delete(ctx context.Context, id string) error {
	classroomID, err := s.repo.Delete(ctx, id)
	if err != nil {
		return storageError(err, "attendance record not found")
	}
	s.revalidator.AttendanceChanged(ctx, classroomID)
	return nil
}

// StudentHistory returns every record of one student, most recent first.
func (s *AttendanceService) StudentHistory(ctx context.Context, studentID string) ([]models.AttendanceRecord, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		return nil, storageError(err, "student not found")
	}
	records, err := s.repo.List(ctx, models.AttendanceFilter{StudentID: studentID})
	if err != nil {
		return nil, storageError(err, "")
	}
	return records, nil
}

func (r RecordAttendanceRequest) trimmed() RecordAttendanceRequest {
	return RecordAttendanceRequest{
		StudentID:   canonicalOrTrimmed(r.StudentID),
		ClassroomID: canonicalOrTrimmed(r.ClassroomID),
		Date:        strings.TrimSpace(r.Date),
		Status:      strings.TrimSpace(r.Status),
	}
}

// malformedReferences flags ids that are not UUIDs and so cannot match any stored row.
func (r RecordAttendanceRequest) malformedReferences(prefix string) map[string][]string {
	fields := map[string][]string{}
	if _, ok := canonicalID(r.StudentID); !ok {
		fields[prefix+"studentId"] = []string{"Student not found"}
	}
	if _, ok := canonicalID(r.ClassroomID); !ok {
		fields[prefix+"classroomId"] = []string{"Classroom not found"}
	}
	return fields
}

// toAttendance expects a request that already passed validation.
func toAttendance(req RecordAttendanceRequest) models.Attendance {
	date, _ := models.ParseDate(req.Date)
	status, _ := models.ParseAttendanceStatus(req.Status)
	return models.Attendance{
		StudentID:   req.StudentID,
		ClassroomID: req.ClassroomID,
		Date:        date,
		Status:      status,
	}
}

func parseAttendanceQuery(query AttendanceQuery) (models.AttendanceFilter, error) {
	var filter models.AttendanceFilter
	var err error
	if filter.ClassroomID, err = filterID("classroomId", query.ClassroomID, true); err != nil {
		return filter, err
	}
	if filter.StudentID, err = filterID("studentId", query.StudentID, false); err != nil {
		return filter, err
	}
	if raw := strings.TrimSpace(query.Date); raw != "" {
		date, err := models.ParseDate(raw)
		if err != nil {
			return filter, validationError("invalid filter", map[string][]string{"date": {err.Error()}})
		}
		filter.Date = &date
	}
	return filter, nil
}

// affectedClassrooms lists every classroom whose records changed, including
// the one a moved record was taken out of.
func affectedClassrooms(records []models.AttendanceRecord) []string {
	seen := make(map[string]struct{}, len(records))
	ids := make([]string, 0, len(records))
	add := func(id string) {
		if _, ok := seen[id]; ok || id == "" {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, record := range records {
		add(record.ClassroomID)
		add(record.MovedFrom())
	}
	return ids
}
