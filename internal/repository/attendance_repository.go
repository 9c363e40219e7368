package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/class-attendance-api/internal/models"
)

const attendanceRecordColumns = `a.id, a.student_id, a.classroom_id, a.date, a.status, a.created_at, a.updated_at,
    s.id AS "student.id", s.first_name AS "student.first_name", s.last_name AS "student.last_name", s.student_id AS "student.student_code",
    c.id AS "classroom.id", c.name AS "classroom.name"`

// updated_at only moves when the stored row actually changes, so replaying
// the same record is a no-op. prev reads the pre-statement snapshot, so it
// reports the classroom the record was filed under before this write.
const upsertAttendanceQuery = `WITH prev AS (
    SELECT classroom_id FROM attendances WHERE student_id = $2 AND date = $4
), a AS (
    INSERT INTO attendances (id, student_id, classroom_id, date, status, created_at, updated_at)
    VALUES ($1, $2, $3, $4, $5, $6, $7)
    ON CONFLICT (student_id, date) DO UPDATE SET
        status = EXCLUDED.status,
        classroom_id = EXCLUDED.classroom_id,
        updated_at = CASE
            WHEN attendances.status = EXCLUDED.status AND attendances.classroom_id = EXCLUDED.classroom_id THEN attendances.updated_at
            ELSE EXCLUDED.updated_at
        END
    RETURNING id, student_id, classroom_id, date, status, created_at, updated_at
)
SELECT ` + attendanceRecordColumns + `,
    (SELECT classroom_id FROM prev) AS previous_classroom_id
FROM a
JOIN students s ON s.id = a.student_id
JOIN classrooms c ON c.id = a.classroom_id`

// AttendanceRepository handles persistence for attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Upsert creates or overwrites the record for (student, date).
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.Attendance) (*models.AttendanceRecord, error) {
	stored, err := upsertAttendance(ctx, r.db, record, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("upsert attendance: %w", classify(err))
	}
	return stored, nil
}

// UpsertBulk applies every record through the upsert statement inside one transaction.
// Any failure rolls back the whole batch. Results follow input order.
func (r *AttendanceRepository) UpsertBulk(ctx context.Context, records []models.Attendance) ([]models.AttendanceRecord, error) {
	if len(records) == 0 {
		return []models.AttendanceRecord{}, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin bulk attendance: %w", classify(err))
	}
	commit := false
	defer func() {
		if !commit {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	stored := make([]models.AttendanceRecord, 0, len(records))
	for i := range records {
		rec, err := upsertAttendance(ctx, tx, &records[i], now)
		if err != nil {
			return nil, fmt.Errorf("bulk upsert attendance %d: %w", i, classify(err))
		}
		stored = append(stored, *rec)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit bulk attendance: %w", classify(err))
	}
	commit = true
	return stored, nil
}

func upsertAttendance(ctx context.Context, q sqlx.QueryerContext, record *models.Attendance, now time.Time) (*models.AttendanceRecord, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	record.Date = models.NormalizeDate(record.Date)

	var stored models.AttendanceRecord
	if err := sqlx.GetContext(ctx, q, &stored, upsertAttendanceQuery,
		record.ID, record.StudentID, record.ClassroomID, record.Date, record.Status, record.CreatedAt, record.UpdatedAt); err != nil {
		return nil, err
	}
	stored.Date = models.NormalizeDate(stored.Date)
	return &stored, nil
}

// List returns attendance rows matching every provided filter,
// most recent date first then by surname and given name.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	where := []string{"1=1"}
	var args []interface{}
	if filter.ClassroomID != "" {
		where = append(where, fmt.Sprintf("a.classroom_id = $%d", len(args)+1))
		args = append(args, filter.ClassroomID)
	}
	if filter.Date != nil {
		where = append(where, fmt.Sprintf("a.date = $%d", len(args)+1))
		args = append(args, models.NormalizeDate(*filter.Date))
	}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("a.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}

	query := fmt.Sprintf(`SELECT %s
FROM attendances a
JOIN students s ON s.id = a.student_id
JOIN classrooms c ON c.id = a.classroom_id
WHERE %s
ORDER BY a.date DESC, s.last_name ASC, s.first_name ASC, a.id ASC`, attendanceRecordColumns, strings.Join(where, " AND "))

	rows := make([]models.AttendanceRecord, 0)
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance: %w", classify(err))
	}
	for i := range rows {
		rows[i].Date = models.NormalizeDate(rows[i].Date)
	}
	return rows, nil
}

// Delete removes a record and returns the classroom it was taken under.
func (r *AttendanceRepository) Delete(ctx context.Context, id string) (string, error) {
	var classroomID string
	if err := r.db.GetContext(ctx, &classroomID, `DELETE FROM attendances WHERE id = $1 RETURNING classroom_id`, id); err != nil {
		return "", classify(err)
	}
	return classroomID, nil
}
