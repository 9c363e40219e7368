package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/class-attendance-api/internal/models"
	"github.com/noah-isme/class-attendance-api/internal/repository"
	appErrors "github.com/noah-isme/class-attendance-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	ExistsByStudentID(ctx context.Context, studentID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

type classroomFinder interface {
	FindByID(ctx context.Context, id string) (*models.Classroom, error)
}

type studentIDIssuer interface {
	Generate(ctx context.Context) (string, error)
}

// CreateStudentRequest captures enrolment payload.
type CreateStudentRequest struct {
	FirstName   string `json:"firstName" form:"firstName" validate:"required,max=100"`
	LastName    string `json:"lastName" form:"lastName" validate:"required,max=100"`
	ClassroomID string `json:"classroomId" form:"classroomId" validate:"required"`
}

// UpdateStudentRequest modifies student names.
type UpdateStudentRequest struct {
	FirstName string `json:"firstName" form:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" form:"lastName" validate:"required,max=100"`
}

// StudentListRequest carries list query parameters.
type StudentListRequest struct {
	ClassroomID string `form:"classroomId"`
	Search      string `form:"search"`
	Page        int    `form:"page"`
	PageSize    int    `form:"page_size"`
}

// StudentService coordinates student operations.
type StudentService struct {
	repo        studentRepository
	classrooms  classroomFinder
	ids         studentIDIssuer
	revalidator *Revalidator
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(repo studentRepository, classrooms classroomFinder, ids studentIDIssuer, revalidator *Revalidator, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if ids == nil {
		ids = NewStudentIDGenerator(repo)
	}
	return &StudentService{repo: repo, classrooms: classrooms, ids: ids, revalidator: revalidator, validator: validate, logger: logger}
}

// List returns students ordered by last then first name with attendance counts.
func (s *StudentService) List(ctx context.Context, req StudentListRequest) ([]models.StudentDetail, *models.Pagination, error) {
	classroomID, err := filterID("classroomId", req.ClassroomID, true)
	if err != nil {
		return nil, nil, err
	}
	filter := models.StudentFilter{
		ClassroomID: classroomID,
		Search:      strings.TrimSpace(req.Search),
		Page:        req.Page,
		PageSize:    req.PageSize,
	}
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, storageError(err, "")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ListByClassroom returns the students of one classroom.
func (s *StudentService) ListByClassroom(ctx context.Context, classroomID string, req StudentListRequest) ([]models.StudentDetail, *models.Pagination, error) {
	classroom, err := s.classrooms.FindByID(ctx, classroomID)
	if err != nil {
		return nil, nil, storageError(err, "classroom not found")
	}
	req.ClassroomID = classroom.ID
	return s.List(ctx, req)
}

// Get returns a student.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storageError(err, "student not found")
	}
	return student, nil
}

// Create enrols a student in an existing classroom under a freshly issued student id.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.StudentDetail, error) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.ClassroomID = canonicalOrTrimmed(req.ClassroomID)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError("invalid student data", fieldErrors(err, ""))
	}
	missingClassroom := referenceError("classroom does not exist", map[string][]string{"classroomId": {"Classroom not found"}})
	if _, ok := canonicalID(req.ClassroomID); !ok {
		return nil, missingClassroom
	}

	classroom, err := s.classrooms.FindByID(ctx, req.ClassroomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, missingClassroom
		}
		return nil, storageError(err, "")
	}

	code, err := s.ids.Generate(ctx)
	if err != nil {
		return nil, storageError(err, "")
	}

	student := &models.Student{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		StudentID:   code,
		ClassroomID: classroom.ID,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, appErrors.WithFields(appErrors.Clone(appErrors.ErrDuplicate, "student id already issued, please retry"),
				map[string][]string{"studentId": {"Student ID already exists"}})
		}
		s.logger.Error("create student failed", zap.Error(err))
		return nil, storageError(err, "")
	}

	s.revalidator.RosterChanged(ctx)
	return &models.StudentDetail{Student: *student, ClassroomName: classroom.Name}, nil
}

// Update renames a student.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.StudentDetail, error) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError("invalid student data", fieldErrors(err, ""))
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storageError(err, "student not found")
	}

	detail.FirstName = req.FirstName
	detail.LastName = req.LastName
	if err := s.repo.Update(ctx, &detail.Student); err != nil {
		return nil, storageError(err, "student not found")
	}
	s.revalidator.RosterChanged(ctx)
	return detail, nil
}

// Delete removes a student together with its attendance history.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return storageError(err, "student not found")
	}
	// records may have been taken under other classrooms
	s.revalidator.AllAttendanceChanged(ctx)
	return nil
}
