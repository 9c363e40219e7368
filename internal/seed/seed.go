// Package seed fills an empty database with demo classrooms, students and
// a few weeks of attendance.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/class-attendance-api/internal/models"
	"github.com/noah-isme/class-attendance-api/internal/service"
	"github.com/noah-isme/class-attendance-api/pkg/config"
)

var sections = []string{"A", "B"}

var firstNames = []string{
	"Alice", "Bob", "Carol", "David", "Emma", "Frank", "Grace", "Henry", "Isla", "Jack",
	"Kara", "Liam", "Maya", "Noah", "Olivia", "Peter", "Quinn", "Rosa", "Sam", "Tara",
}

var lastNames = []string{
	"Johnson", "Smith", "Davis", "Wilson", "Brown", "Taylor", "Moore", "Clark", "Lewis", "Walker",
	"Hall", "Young", "King", "Wright", "Scott", "Green", "Baker", "Adams", "Nelson", "Hill",
}

type classroomCreator interface {
	Create(ctx context.Context, req service.ClassroomRequest) (*models.Classroom, error)
}

type studentCreator interface {
	Create(ctx context.Context, req service.CreateStudentRequest) (*models.StudentDetail, error)
}

type bulkRecorder interface {
	RecordBulk(ctx context.Context, reqs []service.RecordAttendanceRequest) ([]models.AttendanceRecord, error)
}

// Summary reports what a run created.
type Summary struct {
	Classrooms int
	Students   int
	Records    int
}

// Seeder writes demo data through the regular services so every invariant holds.
type Seeder struct {
	classrooms classroomCreator
	students   studentCreator
	attendance bulkRecorder
	rng        *rand.Rand
	logger     *zap.Logger
}

// New constructs a Seeder. A nil rng gets a time-seeded source.
func New(classrooms classroomCreator, students studentCreator, attendance bulkRecorder, rng *rand.Rand, logger *zap.Logger) *Seeder {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{classrooms: classrooms, students: students, attendance: attendance, rng: rng, logger: logger}
}

// Run creates Forms 1..N with two sections each, enrols a random number of
// students per classroom and records attendance for the last cfg.Days weekdays
// up to today.
func (s *Seeder) Run(ctx context.Context, cfg config.SeedConfig, today time.Time) (Summary, error) {
	var summary Summary
	days := Weekdays(today, cfg.Days)

	for form := 1; form <= cfg.Forms; form++ {
		for _, section := range sections {
			classroom, err := s.classrooms.Create(ctx, service.ClassroomRequest{Name: fmt.Sprintf("Form %d%s", form, section)})
			if err != nil {
				return summary, fmt.Errorf("create classroom: %w", err)
			}
			summary.Classrooms++

			count := s.studentCount(cfg)
			enrolled := make([]string, 0, count)
			for i := 0; i < count; i++ {
				student, err := s.students.Create(ctx, service.CreateStudentRequest{
					FirstName:   firstNames[s.rng.Intn(len(firstNames))],
					LastName:    lastNames[s.rng.Intn(len(lastNames))],
					ClassroomID: classroom.ID,
				})
				if err != nil {
					return summary, fmt.Errorf("create student in %s: %w", classroom.Name, err)
				}
				enrolled = append(enrolled, student.ID)
			}
			summary.Students += len(enrolled)

			for _, day := range days {
				batch := make([]service.RecordAttendanceRequest, 0, len(enrolled))
				for _, studentID := range enrolled {
					batch = append(batch, service.RecordAttendanceRequest{
						StudentID:   studentID,
						ClassroomID: classroom.ID,
						Date:        day.Format(models.DateLayout),
						Status:      string(PickStatus(s.rng)),
					})
				}
				if len(batch) == 0 {
					continue
				}
				stored, err := s.attendance.RecordBulk(ctx, batch)
				if err != nil {
					return summary, fmt.Errorf("record attendance for %s on %s: %w", classroom.Name, day.Format(models.DateLayout), err)
				}
				summary.Records += len(stored)
			}
			s.logger.Info("classroom seeded", zap.String("classroom", classroom.Name), zap.Int("students", len(enrolled)))
		}
	}
	return summary, nil
}

func (s *Seeder) studentCount(cfg config.SeedConfig) int {
	if cfg.MaxStudents <= cfg.MinStudents {
		return cfg.MinStudents
	}
	return cfg.MinStudents + s.rng.Intn(cfg.MaxStudents-cfg.MinStudents+1)
}

// PickStatus draws PRESENT 80%, ABSENT 10%, LATE 5% and EXCUSED 5% of the time.
func PickStatus(rng *rand.Rand) models.AttendanceStatus {
	switch roll := rng.Intn(100); {
	case roll < 80:
		return models.AttendanceStatusPresent
	case roll < 90:
		return models.AttendanceStatusAbsent
	case roll < 95:
		return models.AttendanceStatusLate
	default:
		return models.AttendanceStatusExcused
	}
}

// Weekdays returns the last n Monday-to-Friday dates up to and including end, oldest first.
func Weekdays(end time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	days := make([]time.Time, n)
	day := models.NormalizeDate(end)
	for i := n - 1; i >= 0; {
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			days[i] = day
			i--
		}
		day = day.AddDate(0, 0, -1)
	}
	return days
}
