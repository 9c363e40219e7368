package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/class-attendance-api/internal/models"
	"github.com/noah-isme/class-attendance-api/internal/repository"
	appErrors "github.com/noah-isme/class-attendance-api/pkg/errors"
)

// memoryDB mimics the relational store: FKs, unique(student_id, date) and transactional bulk writes.
type memoryDB struct {
	classrooms map[string]models.Classroom
	students   map[string]models.Student
	attendance map[string]models.Attendance
	seq        int
	err        error
}

func newMemoryDB() *memoryDB {
	return &memoryDB{
		classrooms: map[string]models.Classroom{},
		students:   map[string]models.Student{},
		attendance: map[string]models.Attendance{},
	}
}

func (db *memoryDB) nextID() string {
	db.seq++
	return uuid.NewString()
}

func (db *memoryDB) addClassroom(name string) models.Classroom {
	c := models.Classroom{ID: db.nextID(), Name: name, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	db.classrooms[c.ID] = c
	return c
}

func (db *memoryDB) addStudent(first, last, classroomID string) models.Student {
	s := models.Student{ID: db.nextID(), FirstName: first, LastName: last, StudentID: fmt.Sprintf("2024-%04d", 1000+db.seq), ClassroomID: classroomID}
	db.students[s.ID] = s
	return s
}

func (db *memoryDB) join(a models.Attendance) models.AttendanceRecord {
	s := db.students[a.StudentID]
	c := db.classrooms[a.ClassroomID]
	return models.AttendanceRecord{
		Attendance: a,
		Student:    models.AttendanceStudent{ID: s.ID, FirstName: s.FirstName, LastName: s.LastName, StudentID: s.StudentID},
		Classroom:  models.AttendanceClassroom{ID: c.ID, Name: c.Name},
	}
}

type memAttendanceRepo struct{ db *memoryDB }

func attendanceKey(a models.Attendance) string {
	return a.StudentID + "|" + a.Date.Format(models.DateLayout)
}

func (r *memAttendanceRepo) apply(table map[string]models.Attendance, rec models.Attendance) (models.AttendanceRecord, error) {
	if _, ok := r.db.students[rec.StudentID]; !ok {
		return models.AttendanceRecord{}, fmt.Errorf("upsert attendance: %w", repository.ErrForeignKey)
	}
	if _, ok := r.db.classrooms[rec.ClassroomID]; !ok {
		return models.AttendanceRecord{}, fmt.Errorf("upsert attendance: %w", repository.ErrForeignKey)
	}
	rec.Date = models.NormalizeDate(rec.Date)
	now := time.Now()
	key := attendanceKey(rec)
	if existing, ok := table[key]; ok {
		previous := existing.ClassroomID
		if existing.Status != rec.Status || existing.ClassroomID != rec.ClassroomID {
			existing.Status = rec.Status
			existing.ClassroomID = rec.ClassroomID
			existing.UpdatedAt = now
		}
		table[key] = existing
		stored := r.db.join(existing)
		stored.PreviousClassroomID = &previous
		return stored, nil
	}
	rec.ID = r.db.nextID()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	table[key] = rec
	return r.db.join(rec), nil
}

func (r *memAttendanceRepo) Upsert(ctx context.Context, record *models.Attendance) (*models.AttendanceRecord, error) {
	if r.db.err != nil {
		return nil, r.db.err
	}
	stored, err := r.apply(r.db.attendance, *record)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *memAttendanceRepo) UpsertBulk(ctx context.Context, records []models.Attendance) ([]models.AttendanceRecord, error) {
	if r.db.err != nil {
		return nil, r.db.err
	}
	staged := make(map[string]models.Attendance, len(r.db.attendance))
	for k, v := range r.db.attendance {
		staged[k] = v
	}
	out := make([]models.AttendanceRecord, 0, len(records))
	for _, rec := range records {
		stored, err := r.apply(staged, rec)
		if err != nil {
			return nil, err
		}
		out = append(out, stored)
	}
	r.db.attendance = staged
	return out, nil
}

func (r *memAttendanceRepo) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	if r.db.err != nil {
		return nil, r.db.err
	}
	out := make([]models.AttendanceRecord, 0)
	for _, a := range r.db.attendance {
		if filter.ClassroomID != "" && a.ClassroomID != filter.ClassroomID {
			continue
		}
		if filter.Date != nil && !a.Date.Equal(models.NormalizeDate(*filter.Date)) {
			continue
		}
		if filter.StudentID != "" && a.StudentID != filter.StudentID {
			continue
		}
		out = append(out, r.db.join(a))
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if a.Student.LastName != b.Student.LastName {
			return a.Student.LastName < b.Student.LastName
		}
		if a.Student.FirstName != b.Student.FirstName {
			return a.Student.FirstName < b.Student.FirstName
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (r *memAttendanceRepo) Delete(ctx context.Context, id string) (string, error) {
	for k, a := range r.db.attendance {
		if a.ID == id {
			delete(r.db.attendance, k)
			return a.ClassroomID, nil
		}
	}
	return "", sql.ErrNoRows
}

type memStudentRepo struct{ db *memoryDB }

func (r *memStudentRepo) detail(s models.Student) models.StudentDetail {
	count := 0
	for _, a := range r.db.attendance {
		if a.StudentID == s.ID {
			count++
		}
	}
	return models.StudentDetail{Student: s, ClassroomName: r.db.classrooms[s.ClassroomID].Name, AttendanceCount: count}
}

func (r *memStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	if r.db.err != nil {
		return nil, 0, r.db.err
	}
	out := make([]models.StudentDetail, 0)
	for _, s := range r.db.students {
		if filter.ClassroomID != "" && s.ClassroomID != filter.ClassroomID {
			continue
		}
		out = append(out, r.detail(s))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		return out[i].FirstName < out[j].FirstName
	})
	return out, len(out), nil
}

func (r *memStudentRepo) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	s, ok := r.db.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	d := r.detail(s)
	return &d, nil
}

func (r *memStudentRepo) ExistsByStudentID(ctx context.Context, studentID string) (bool, error) {
	for _, s := range r.db.students {
		if s.StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if _, ok := r.db.classrooms[student.ClassroomID]; !ok {
		return fmt.Errorf("create student: %w", repository.ErrForeignKey)
	}
	student.ID = r.db.nextID()
	r.db.students[student.ID] = *student
	return nil
}

func (r *memStudentRepo) Update(ctx context.Context, student *models.Student) error {
	if _, ok := r.db.students[student.ID]; !ok {
		return sql.ErrNoRows
	}
	r.db.students[student.ID] = *student
	return nil
}

func (r *memStudentRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.db.students[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.db.students, id)
	for k, a := range r.db.attendance {
		if a.StudentID == id {
			delete(r.db.attendance, k)
		}
	}
	return nil
}

type memClassroomRepo struct{ db *memoryDB }

func (r *memClassroomRepo) List(ctx context.Context, filter models.ClassroomFilter) ([]models.ClassroomSummary, int, error) {
	out := make([]models.ClassroomSummary, 0)
	for _, c := range r.db.classrooms {
		count, _ := r.CountStudents(ctx, c.ID)
		out = append(out, models.ClassroomSummary{Classroom: c, StudentCount: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, len(out), nil
}

func (r *memClassroomRepo) FindByID(ctx context.Context, id string) (*models.Classroom, error) {
	if r.db.err != nil {
		return nil, r.db.err
	}
	c, ok := r.db.classrooms[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (r *memClassroomRepo) ExistsByName(ctx context.Context, name string, excludeID string) (bool, error) {
	for _, c := range r.db.classrooms {
		if strings.EqualFold(c.Name, name) && c.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memClassroomRepo) Create(ctx context.Context, classroom *models.Classroom) error {
	classroom.ID = r.db.nextID()
	r.db.classrooms[classroom.ID] = *classroom
	return nil
}

func (r *memClassroomRepo) Update(ctx context.Context, classroom *models.Classroom) error {
	if _, ok := r.db.classrooms[classroom.ID]; !ok {
		return sql.ErrNoRows
	}
	r.db.classrooms[classroom.ID] = *classroom
	return nil
}

func (r *memClassroomRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.db.classrooms[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.db.classrooms, id)
	return nil
}

func (r *memClassroomRepo) CountStudents(ctx context.Context, id string) (int, error) {
	count := 0
	for _, s := range r.db.students {
		if s.ClassroomID == id {
			count++
		}
	}
	return count, nil
}

func (r *memClassroomRepo) Roster(ctx context.Context) ([]models.ClassroomRoster, error) {
	if r.db.err != nil {
		return nil, r.db.err
	}
	out := make([]models.ClassroomRoster, 0, len(r.db.classrooms))
	for _, c := range r.db.classrooms {
		members := []models.RosterStudent{}
		for _, s := range r.db.students {
			if s.ClassroomID == c.ID {
				members = append(members, models.RosterStudent{ID: s.ID, ClassroomID: c.ID, FirstName: s.FirstName, LastName: s.LastName, StudentID: s.StudentID})
			}
		}
		out = append(out, models.ClassroomRoster{Classroom: c, Students: members, StudentCount: len(members)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// memCache stores JSON payloads and matches patterns with glob semantics close to Redis SCAN MATCH.
type memCache struct {
	entries     map[string][]byte
	invalidated []string
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]byte{}}
}

func (c *memCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *memCache) DeleteByPattern(ctx context.Context, pattern string) error {
	c.invalidated = append(c.invalidated, pattern)
	for key := range c.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(c.entries, key)
		}
	}
	return nil
}

func (c *memCache) Ping(ctx context.Context) error { return nil }

type fixture struct {
	db          *memoryDB
	cache       *memCache
	attendance  *AttendanceService
	classrooms  *ClassroomService
	students    *StudentService
	revalidator *Revalidator
}

func newFixture() *fixture {
	db := newMemoryDB()
	cache := newMemCache()
	cacheSvc := NewCacheService(cache, NewMetricsService(), time.Minute, nil, true)
	revalidator := NewRevalidator(cacheSvc, nil)
	studentRepo := &memStudentRepo{db: db}
	classroomRepo := &memClassroomRepo{db: db}
	return &fixture{
		db:          db,
		cache:       cache,
		revalidator: revalidator,
		attendance: NewAttendanceService(AttendanceServiceParams{
			Repo:        &memAttendanceRepo{db: db},
			Students:    studentRepo,
			Cache:       cacheSvc,
			Revalidator: revalidator,
			Metrics:     NewMetricsService(),
		}),
		classrooms: NewClassroomService(classroomRepo, revalidator, nil, nil),
		students:   NewStudentService(studentRepo, classroomRepo, nil, revalidator, nil, nil),
	}
}
