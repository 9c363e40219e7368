package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/class-attendance-api/internal/middleware"
	"github.com/noah-isme/class-attendance-api/internal/models"
	"github.com/noah-isme/class-attendance-api/internal/service"
	appErrors "github.com/noah-isme/class-attendance-api/pkg/errors"
	"github.com/noah-isme/class-attendance-api/pkg/response"
)

type attendanceService interface {
	Record(ctx context.Context, req service.RecordAttendanceRequest) (*models.AttendanceRecord, error)
	RecordBulk(ctx context.Context, reqs []service.RecordAttendanceRequest) ([]models.AttendanceRecord, error)
	List(ctx context.Context, query service.AttendanceQuery) ([]models.AttendanceRecord, error)
	Stats(ctx context.Context, query service.AttendanceQuery) (models.AttendanceStats, bool, error)
	Delete(ctx context.Context, id string) error
}

type exportService interface {
	Prepare(ctx context.Context, req service.ExportRequest) (*service.ExportDocument, error)
}

// AttendanceHandler exposes attendance endpoints.
type AttendanceHandler struct {
	attendance attendanceService
	exports    exportService
	logger     *zap.Logger
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance attendanceService, exports exportService, logger *zap.Logger) *AttendanceHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceHandler{attendance: attendance, exports: exports, logger: logger}
}

// BulkResult is returned by the bulk endpoint.
type BulkResult struct {
	Count   int                       `json:"count"`
	Records []models.AttendanceRecord `json:"records"`
}

// Record godoc
// @Summary Record attendance
// @Description Creates or updates the attendance of one student on one day.
// @Tags Attendance
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param payload body service.RecordAttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Record(c *gin.Context) {
	var req service.RecordAttendanceRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	record, err := h.attendance.Record(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// RecordBulk godoc
// @Summary Record attendance in bulk
// @Description Applies every entry or none of them.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body []service.RecordAttendanceRequest true "Attendance entries"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /attendance/bulk [post]
func (h *AttendanceHandler) RecordBulk(c *gin.Context) {
	var reqs []service.RecordAttendanceRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	records, err := h.attendance.RecordBulk(c.Request.Context(), reqs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, BulkResult{Count: len(records), Records: records}, nil)
}

// List godoc
// @Summary List attendance
// @Tags Attendance
// @Produce json
// @Param classroomId query string false "Classroom ID or all"
// @Param date query string false "Date (YYYY-MM-DD)"
// @Param studentId query string false "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	var query service.AttendanceQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	records, err := h.attendance.List(c.Request.Context(), query)
	if err != nil {
		if isValidation(err) {
			response.Error(c, err)
			return
		}
		h.degrade(c, "attendance list", []models.AttendanceRecord{}, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Stats godoc
// @Summary Attendance statistics
// @Tags Attendance
// @Produce json
// @Param classroomId query string false "Classroom ID or all"
// @Param date query string false "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /attendance/stats [get]
func (h *AttendanceHandler) Stats(c *gin.Context) {
	var query service.AttendanceQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	stats, hit, err := h.attendance.Stats(c.Request.Context(), query)
	if err != nil {
		if isValidation(err) {
			response.Error(c, err)
			return
		}
		h.degrade(c, "attendance stats", models.ZeroAttendanceStats(), err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Export attendance
// @Tags Attendance
// @Produce text/csv,application/pdf
// @Param format query string false "csv or pdf"
// @Param classroomId query string false "Classroom ID or all"
// @Param date query string false "Date (YYYY-MM-DD)"
// @Param studentId query string false "Student ID"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /attendance/export [get]
func (h *AttendanceHandler) Export(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var req service.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	doc, err := h.exports.Prepare(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Type", doc.ContentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Header("Cache-Control", "no-store")
	c.Status(http.StatusOK)
	if err := doc.Render(c.Writer); err != nil {
		h.logger.Error("attendance export failed", zap.String("file", doc.Filename), zap.Error(err))
		_ = c.Error(err)
	}
}

// Delete godoc
// @Summary Delete attendance record
// @Tags Attendance
// @Param id path string true "Attendance ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /attendance/{id} [delete]
func (h *AttendanceHandler) Delete(c *gin.Context) {
	if err := h.attendance.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *AttendanceHandler) degrade(c *gin.Context, view string, fallback interface{}, err error) {
	h.logger.Warn("serving degraded response", zap.String("view", view), zap.Error(err))
	middleware.MarkDegraded(c)
	response.Degraded(c, fallback, err)
}
