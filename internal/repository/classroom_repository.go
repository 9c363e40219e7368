package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/class-attendance-api/internal/models"
)

// ClassroomRepository manages persistence for classrooms.
type ClassroomRepository struct {
	db *sqlx.DB
}

// NewClassroomRepository constructs a new classroom repository.
func NewClassroomRepository(db *sqlx.DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

// List returns classrooms with their roster size, newest first.
func (r *ClassroomRepository) List(ctx context.Context, filter models.ClassroomFilter) ([]models.ClassroomSummary, int, error) {
	where := "WHERE 1=1"
	var args []interface{}
	if filter.Search != "" {
		where += fmt.Sprintf(" AND LOWER(c.name) LIKE $%d", len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT c.id, c.name, c.created_at, c.updated_at, COUNT(s.id) AS student_count
        FROM classrooms c LEFT JOIN students s ON s.classroom_id = c.id
        %s GROUP BY c.id ORDER BY c.created_at DESC, c.name ASC LIMIT %d OFFSET %d`, where, size, offset)

	var classrooms []models.ClassroomSummary
	if err := r.db.SelectContext(ctx, &classrooms, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classrooms: %w", classify(err))
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM classrooms c "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count classrooms: %w", classify(err))
	}
	return classrooms, total, nil
}

// FindByID retrieves a classroom by its identifier.
func (r *ClassroomRepository) FindByID(ctx context.Context, id string) (*models.Classroom, error) {
	const query = `SELECT id, name, created_at, updated_at FROM classrooms WHERE id = $1`
	var classroom models.Classroom
	if err := r.db.GetContext(ctx, &classroom, query, id); err != nil {
		return nil, classify(err)
	}
	return &classroom, nil
}

// ExistsByName checks case-insensitively whether a classroom name is taken, optionally excluding an ID.
func (r *ClassroomRepository) ExistsByName(ctx context.Context, name string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM classrooms WHERE LOWER(name) = LOWER($1)"
	args := []interface{}{name}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check classroom name: %w", classify(err))
	}
	return true, nil
}

// Create inserts a new classroom.
func (r *ClassroomRepository) Create(ctx context.Context, classroom *models.Classroom) error {
	if classroom.ID == "" {
		classroom.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	classroom.CreatedAt = now
	classroom.UpdatedAt = now
	const query = `INSERT INTO classrooms (id, name, created_at, updated_at) VALUES (:id, :name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, classroom); err != nil {
		return fmt.Errorf("create classroom: %w", classify(err))
	}
	return nil
}

// Update renames an existing classroom.
func (r *ClassroomRepository) Update(ctx context.Context, classroom *models.Classroom) error {
	classroom.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classrooms SET name = :name, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, classroom)
	if err != nil {
		return fmt.Errorf("update classroom: %w", classify(err))
	}
	return requireAffected(res)
}

// Delete removes a classroom.
func (r *ClassroomRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM classrooms WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete classroom: %w", classify(err))
	}
	return requireAffected(res)
}

// CountStudents returns how many students belong to the classroom.
func (r *ClassroomRepository) CountStudents(ctx context.Context, id string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM students WHERE classroom_id = $1`, id); err != nil {
		return 0, fmt.Errorf("count classroom students: %w", classify(err))
	}
	return total, nil
}

// Roster returns every classroom ordered by name with its students ordered by first then last name.
func (r *ClassroomRepository) Roster(ctx context.Context) ([]models.ClassroomRoster, error) {
	var classrooms []models.Classroom
	if err := r.db.SelectContext(ctx, &classrooms, `SELECT id, name, created_at, updated_at FROM classrooms ORDER BY name ASC`); err != nil {
		return nil, fmt.Errorf("list roster classrooms: %w", classify(err))
	}

	var students []models.RosterStudent
	const studentQuery = `SELECT id, classroom_id, first_name, last_name, student_id FROM students ORDER BY first_name ASC, last_name ASC`
	if err := r.db.SelectContext(ctx, &students, studentQuery); err != nil {
		return nil, fmt.Errorf("list roster students: %w", classify(err))
	}

	byClassroom := make(map[string][]models.RosterStudent, len(classrooms))
	for _, student := range students {
		byClassroom[student.ClassroomID] = append(byClassroom[student.ClassroomID], student)
	}

	roster := make([]models.ClassroomRoster, 0, len(classrooms))
	for _, classroom := range classrooms {
		members := byClassroom[classroom.ID]
		if members == nil {
			members = []models.RosterStudent{}
		}
		roster = append(roster, models.ClassroomRoster{Classroom: classroom, Students: members, StudentCount: len(members)})
	}
	return roster, nil
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
