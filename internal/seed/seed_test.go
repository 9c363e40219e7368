package seed

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/class-attendance-api/internal/models"
	"github.com/noah-isme/class-attendance-api/internal/service"
	"github.com/noah-isme/class-attendance-api/pkg/config"
)

type recorder struct {
	classrooms []string
	students   map[string][]string
	batches    [][]service.RecordAttendanceRequest
	failBulk   bool
}

func newRecorder() *recorder {
	return &recorder{students: map[string][]string{}}
}

func (r *recorder) Create(_ context.Context, req service.ClassroomRequest) (*models.Classroom, error) {
	r.classrooms = append(r.classrooms, req.Name)
	return &models.Classroom{ID: fmt.Sprintf("cls-%d", len(r.classrooms)), Name: req.Name}, nil
}

type studentRecorder struct{ *recorder }

func (r studentRecorder) Create(_ context.Context, req service.CreateStudentRequest) (*models.StudentDetail, error) {
	id := fmt.Sprintf("%s-stu-%d", req.ClassroomID, len(r.students[req.ClassroomID]))
	r.students[req.ClassroomID] = append(r.students[req.ClassroomID], id)
	return &models.StudentDetail{Student: models.Student{ID: id, ClassroomID: req.ClassroomID}}, nil
}

func (r *recorder) RecordBulk(_ context.Context, reqs []service.RecordAttendanceRequest) ([]models.AttendanceRecord, error) {
	if r.failBulk {
		return nil, errors.New("store down")
	}
	r.batches = append(r.batches, reqs)
	return make([]models.AttendanceRecord, len(reqs)), nil
}

func TestSeederRun(t *testing.T) {
	rec := newRecorder()
	seeder := New(rec, studentRecorder{rec}, rec, rand.New(rand.NewSource(7)), nil)
	cfg := config.SeedConfig{Forms: 2, Days: 5, MinStudents: 12, MaxStudents: 15}
	today := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	summary, err := seeder.Run(context.Background(), cfg, today)

	require.NoError(t, err)
	assert.Equal(t, []string{"Form 1A", "Form 1B", "Form 2A", "Form 2B"}, rec.classrooms)
	assert.Equal(t, 4, summary.Classrooms)
	for _, ids := range rec.students {
		assert.GreaterOrEqual(t, len(ids), 12)
		assert.LessOrEqual(t, len(ids), 15)
	}
	assert.Len(t, rec.batches, 4*5)
	assert.Equal(t, summary.Students*5, summary.Records)
	for _, batch := range rec.batches {
		for _, entry := range batch {
			status, err := models.ParseAttendanceStatus(entry.Status)
			require.NoError(t, err)
			assert.True(t, status.Valid())
		}
	}
}

func TestSeederStopsOnStoreFailure(t *testing.T) {
	rec := newRecorder()
	rec.failBulk = true
	seeder := New(rec, studentRecorder{rec}, rec, rand.New(rand.NewSource(1)), nil)

	_, err := seeder.Run(context.Background(), config.SeedConfig{Forms: 1, Days: 1, MinStudents: 1, MaxStudents: 1}, time.Now())
	assert.Error(t, err)
	assert.Len(t, rec.classrooms, 1)
}

func TestWeekdaysSkipsWeekends(t *testing.T) {
	monday := time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC)
	days := Weekdays(monday, 3)

	require.Len(t, days, 3)
	assert.Equal(t, "2024-01-11", days[0].Format(models.DateLayout))
	assert.Equal(t, "2024-01-12", days[1].Format(models.DateLayout))
	assert.Equal(t, "2024-01-15", days[2].Format(models.DateLayout))
	assert.Nil(t, Weekdays(monday, 0))
}

func TestPickStatusDistribution(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	counts := map[models.AttendanceStatus]int{}
	for i := 0; i < 10000; i++ {
		counts[PickStatus(rng)]++
	}
	assert.InDelta(t, 8000, counts[models.AttendanceStatusPresent], 300)
	assert.InDelta(t, 1000, counts[models.AttendanceStatusAbsent], 200)
	assert.InDelta(t, 500, counts[models.AttendanceStatusLate], 150)
	assert.InDelta(t, 500, counts[models.AttendanceStatusExcused], 150)
}
