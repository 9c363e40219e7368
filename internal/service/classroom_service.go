package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/class-attendance-api/internal/models"
	"github.com/noah-isme/class-attendance-api/internal/repository"
	appErrors "github.com/noah-isme/class-attendance-api/pkg/errors"
)

const classroomNameTaken = "This classroom name is already taken"

type classroomRepository interface {
	List(ctx context.Context, filter models.ClassroomFilter) ([]models.ClassroomSummary, int, error)
	FindByID(ctx context.Context, id string) (*models.Classroom, error)
	ExistsByName(ctx context.Context, name string, excludeID string) (bool, error)
	Create(ctx context.Context, classroom *models.Classroom) error
	Update(ctx context.Context, classroom *models.Classroom) error
	Delete(ctx context.Context, id string) error
	CountStudents(ctx context.Context, id string) (int, error)
	Roster(ctx context.Context) ([]models.ClassroomRoster, error)
}

// ClassroomRequest captures create and rename payloads.
type ClassroomRequest struct {
	Name string `json:"name" form:"name" validate:"required,max=100"`
}

// ClassroomListRequest carries list query parameters.
type ClassroomListRequest struct {
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// ClassroomService coordinates classroom operations.
type ClassroomService struct {
	repo        classroomRepository
	revalidator *Revalidator
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewClassroomService constructs ClassroomService.
func NewClassroomService(repo classroomRepository, revalidator *Revalidator, validate *validator.Validate, logger *zap.Logger) *ClassroomService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassroomService{repo: repo, revalidator: revalidator, validator: validate, logger: logger}
}

// List returns classrooms with student counts and pagination metadata.
func (s *ClassroomService) List(ctx context.Context, req ClassroomListRequest) ([]models.ClassroomSummary, *models.Pagination, error) {
	filter := models.ClassroomFilter{Search: strings.TrimSpace(req.Search), Page: req.Page, PageSize: req.PageSize}
	classrooms, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, storageError(err, "")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return classrooms, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a classroom.
func (s *ClassroomService) Get(ctx context.Context, id string) (*models.Classroom, error) {
	classroom, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storageError(err, "classroom not found")
	}
	return classroom, nil
}

// Roster returns every classroom with its students for attendance taking.
func (s *ClassroomService) Roster(ctx context.Context) ([]models.ClassroomRoster, error) {
	roster, err := s.repo.Roster(ctx)
	if err != nil {
		return nil, storageError(err, "")
	}
	return roster, nil
}

// Create adds a classroom with a case-insensitively unique name.
func (s *ClassroomService) Create(ctx context.Context, req ClassroomRequest) (*models.Classroom, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError("invalid classroom data", fieldErrors(err, ""))
	}
	if err := s.ensureNameAvailable(ctx, req.Name, ""); err != nil {
		return nil, err
	}

	classroom := &models.Classroom{Name: req.Name}
	if err := s.repo.Create(ctx, classroom); err != nil {
		return nil, s.writeError(err)
	}
	s.revalidator.RosterChanged(ctx)
	return classroom, nil
}

// Update renames a classroom.
func (s *ClassroomService) Update(ctx context.Context, id string, req ClassroomRequest) (*models.Classroom, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError("invalid classroom data", fieldErrors(err, ""))
	}
	classroom, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storageError(err, "classroom not found")
	}
	if err := s.ensureNameAvailable(ctx, req.Name, id); err != nil {
		return nil, err
	}

	classroom.Name = req.Name
	if err := s.repo.Update(ctx, classroom); err != nil {
		return nil, s.writeError(err)
	}
	s.revalidator.RosterChanged(ctx)
	return classroom, nil
}

// Delete removes a classroom that no longer owns students.
func (s *ClassroomService) Delete(ctx context.Context, id string) error {
	classroom, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return storageError(err, "classroom not found")
	}
	id = classroom.ID
	count, err := s.repo.CountStudents(ctx, id)
	if err != nil {
		return storageError(err, "")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "classroom still has students; move or delete them first")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return storageError(err, "classroom not found")
	}
	s.revalidator.AttendanceChanged(ctx, id)
	return nil
}

func (s *ClassroomService) ensureNameAvailable(ctx context.Context, name, excludeID string) error {
	exists, err := s.repo.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return storageError(err, "")
	}
	if exists {
		return duplicateName()
	}
	return nil
}

// writeError also covers the race where another request took the name after the pre-check.
func (s *ClassroomService) writeError(err error) error {
	if repository.UniqueConstraint(err) != "" {
		return duplicateName()
	}
	s.logger.Error("classroom write failed", zap.Error(err))
	return storageError(err, "classroom not found")
}

func duplicateName() error {
	return appErrors.WithFields(appErrors.Clone(appErrors.ErrDuplicate, classroomNameTaken), map[string][]string{"name": {classroomNameTaken}})
}
