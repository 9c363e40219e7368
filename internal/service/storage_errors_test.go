package service

import (
	"database/sql"
	"fmt"
	"net/http"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/class-attendance-api/internal/repository"
	appErrors "github.com/noah-isme/class-attendance-api/pkg/errors"
)

func TestStorageErrorMapping(t *testing.T) {
	malformed := fmt.Errorf("find student: %w: %w", repository.ErrMalformedID, &pq.Error{Code: "22P02"})

	cases := []struct {
		name     string
		err      error
		notFound string
		code     string
		status   int
		message  string
	}{
		{name: "missing row", err: sql.ErrNoRows, notFound: "student not found", code: appErrors.ErrNotFound.Code, status: http.StatusNotFound, message: "student not found"},
		{name: "malformed path id", err: malformed, notFound: "student not found", code: appErrors.ErrNotFound.Code, status: http.StatusNotFound, message: "student not found"},
		{name: "malformed reference", err: malformed, code: appErrors.ErrReference.Code, status: http.StatusUnprocessableEntity, message: appErrors.ErrReference.Message},
		{name: "foreign key", err: fmt.Errorf("x: %w", repository.ErrForeignKey), code: appErrors.ErrReference.Code, status: http.StatusUnprocessableEntity, message: appErrors.ErrReference.Message},
		{name: "duplicate", err: fmt.Errorf("x: %w", repository.ErrUniqueViolation), code: appErrors.ErrDuplicate.Code, status: http.StatusConflict, message: appErrors.ErrDuplicate.Message},
		{name: "unavailable", err: fmt.Errorf("x: %w", repository.ErrUnavailable), code: appErrors.ErrStorageUnavailable.Code, status: http.StatusServiceUnavailable, message: appErrors.ErrStorageUnavailable.Message},
		{name: "unknown", err: &pq.Error{Code: "42601"}, code: appErrors.ErrInternal.Code, status: http.StatusInternalServerError, message: appErrors.ErrInternal.Message},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			appErr := requireAppError(t, storageError(tc.err, tc.notFound), tc.code)
			assert.Equal(t, tc.status, appErr.Status)
			assert.Equal(t, tc.message, appErr.Message)
		})
	}

	assert.Nil(t, storageError(nil, ""))
}
