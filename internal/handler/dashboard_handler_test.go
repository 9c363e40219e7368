package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/class-attendance-api/internal/dto"
	appErrors "github.com/noah-isme/class-attendance-api/pkg/errors"
)

type fakeDashboardSrv struct {
	resp    *dto.DashboardResponse
	hit     bool
	err     error
	rawDate string
}

func (f *fakeDashboardSrv) Summary(_ context.Context, rawDate string) (*dto.DashboardResponse, bool, error) {
	f.rawDate = rawDate
	return f.resp, f.hit, f.err
}

func TestDashboardHandlerSummary(t *testing.T) {
	srv := &fakeDashboardSrv{resp: &dto.DashboardResponse{Date: "2024-01-15", ClassroomCount: 10}, hit: true}
	r := newTestRouter()
	r.GET("/dashboard", NewDashboardHandler(srv).Summary)

	rec := perform(r, http.MethodGet, "/dashboard?date=2024-01-15", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-01-15", srv.rawDate)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Contains(t, envelope.Meta, "processing_time_ms")
	assert.Contains(t, string(envelope.Data), `"classroomCount":10`)
}

func TestDashboardHandlerErrors(t *testing.T) {
	srv := &fakeDashboardSrv{err: appErrors.WithFields(appErrors.ErrValidation, map[string][]string{"date": {"bad"}})}
	r := newTestRouter()
	r.GET("/dashboard", NewDashboardHandler(srv).Summary)
	assert.Equal(t, http.StatusBadRequest, perform(r, http.MethodGet, "/dashboard?date=x", "", nil).Code)

	srv.err = errors.New("boom")
	assert.Equal(t, http.StatusInternalServerError, perform(r, http.MethodGet, "/dashboard", "", nil).Code)

	r = newTestRouter()
	r.GET("/dashboard", NewDashboardHandler(nil).Summary)
	assert.Equal(t, http.StatusInternalServerError, perform(r, http.MethodGet, "/dashboard", "", nil).Code)
}
