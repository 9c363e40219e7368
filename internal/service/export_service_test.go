package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/class-attendance-api/pkg/errors"
)

func TestExportServicePrepareCSV(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	classroom := f.db.addClassroom("Form 1A")
	alice := f.db.addStudent("Alice", "Johnson", classroom.ID)
	_, err := f.attendance.Record(ctx, RecordAttendanceRequest{StudentID: alice.ID, ClassroomID: classroom.ID, Date: "2024-01-15", Status: "LATE"})
	require.NoError(t, err)

	svc := NewExportService(f.attendance, nil)
	svc.now = func() time.Time { return time.Date(2024, 1, 16, 8, 30, 0, 0, time.UTC) }

	doc, err := svc.Prepare(ctx, ExportRequest{AttendanceQuery: AttendanceQuery{ClassroomID: classroom.ID}})
	require.NoError(t, err)
	assert.Equal(t, "attendance-20240116-083000.csv", doc.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", doc.ContentType)

	var buf bytes.Buffer
	require.NoError(t, doc.Render(&buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Date,Student ID,Last Name,First Name,Classroom,Status", lines[0])
	assert.Equal(t, "2024-01-15,"+alice.StudentID+",Johnson,Alice,Form 1A,LATE", lines[1])
}

func TestExportServicePreparePDF(t *testing.T) {
	f := newFixture()
	svc := NewExportService(f.attendance, nil)

	doc, err := svc.Prepare(context.Background(), ExportRequest{Format: "PDF"})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", doc.ContentType)

	var buf bytes.Buffer
	require.NoError(t, doc.Render(&buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	f := newFixture()
	svc := NewExportService(f.attendance, nil)

	_, err := svc.Prepare(context.Background(), ExportRequest{Format: "xlsx"})
	appErr := requireAppError(t, err, appErrors.ErrValidation.Code)
	assert.Contains(t, appErr.Fields, "format")
}
