package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/class-attendance-api/internal/models"
	"github.com/noah-isme/class-attendance-api/pkg/export"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

var exportHeaders = []string{"Date", "Student ID", "Last Name", "First Name", "Classroom", "Status"}

type renderer interface {
	Render(w io.Writer, data export.Dataset) error
	ContentType() string
}

type attendanceQueryer interface {
	List(ctx context.Context, query AttendanceQuery) ([]models.AttendanceRecord, error)
}

// ExportRequest selects the records and output format.
type ExportRequest struct {
	AttendanceQuery
	Format string `form:"format"`
}

// ExportDocument is a rendered-on-demand attendance sheet.
type ExportDocument struct {
	Filename    string
	ContentType string
	dataset     export.Dataset
	renderer    renderer
}

// Render writes the document into w.
func (d *ExportDocument) Render(w io.Writer) error {
	return d.renderer.Render(w, d.dataset)
}

// ExportService turns attendance listings into CSV or PDF sheets.
type ExportService struct {
	attendance attendanceQueryer
	renderers  map[string]renderer
	logger     *zap.Logger
	now        func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(attendance attendanceQueryer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		attendance: attendance,
		renderers: map[string]renderer{
			ExportFormatCSV: export.NewCSVExporter(),
			ExportFormatPDF: export.NewPDFExporter(),
		},
		logger: logger,
		now:    time.Now,
	}
}

// Prepare loads the filtered listing and binds it to a renderer.
func (s *ExportService) Prepare(ctx context.Context, req ExportRequest) (*ExportDocument, error) {
	format := strings.ToLower(strings.TrimSpace(req.Format))
	if format == "" {
		format = ExportFormatCSV
	}
	r, ok := s.renderers[format]
	if !ok {
		return nil, validationError("invalid export request", map[string][]string{"format": {"format must be csv or pdf"}})
	}

	records, err := s.attendance.List(ctx, req.AttendanceQuery)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Title:    "Attendance Report",
		Subtitle: exportSubtitle(req.AttendanceQuery, records),
		Headers:  exportHeaders,
		Rows:     make([]map[string]string, 0, len(records)),
	}
	for _, record := range records {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Date":       record.Date.Format(models.DateLayout),
			"Student ID": record.Student.StudentID,
			"Last Name":  record.Student.LastName,
			"First Name": record.Student.FirstName,
			"Classroom":  record.Classroom.Name,
			"Status":     string(record.Status),
		})
	}

	s.logger.Info("attendance export prepared", zap.String("format", format), zap.Int("rows", len(records)))
	return &ExportDocument{
		Filename:    fmt.Sprintf("attendance-%s.%s", s.now().UTC().Format("20060102-150405"), format),
		ContentType: r.ContentType(),
		dataset:     dataset,
		renderer:    r,
	}, nil
}

func exportSubtitle(query AttendanceQuery, records []models.AttendanceRecord) []string {
	lines := make([]string, 0, 3)
	classroom := "All classrooms"
	if id := strings.TrimSpace(query.ClassroomID); id != "" && !strings.EqualFold(id, models.AllClassrooms) {
		classroom = "Classroom " + id
		if len(records) > 0 {
			classroom = records[0].Classroom.Name
		}
	}
	lines = append(lines, classroom)
	if query.Date != "" {
		lines = append(lines, "Date: "+query.Date)
	}
	stats := ComputeStats(records)
	lines = append(lines, fmt.Sprintf("Total %d | Present %d | Absent %d | Late %d | Excused %d | Rate %s%%",
		stats.Total, stats.Present, stats.Absent, stats.Late, stats.Excused, stats.AttendanceRate))
	return lines
}
