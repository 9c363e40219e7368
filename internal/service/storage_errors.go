package service

import (
	"database/sql"
	"errors"

	"github.com/noah-isme/class-attendance-api/internal/repository"
	appErrors "github.com/noah-isme/class-attendance-api/pkg/errors"
)

// storageError maps repository failures onto the API error taxonomy.
// notFound overrides the default message for missing rows. A malformed id
// addressed by path is as missing as an unknown one.
func storageError(err error, notFound string) error {
	if err == nil {
		return nil
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	switch {
	case errors.Is(err, sql.ErrNoRows):
		msg := notFound
		if msg == "" {
			msg = appErrors.ErrNotFound.Message
		}
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, msg)
	case errors.Is(err, repository.ErrMalformedID) && notFound != "":
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, notFound)
	case errors.Is(err, repository.ErrForeignKey), errors.Is(err, repository.ErrMalformedID):
		return appErrors.Wrap(err, appErrors.ErrReference.Code, appErrors.ErrReference.Status, appErrors.ErrReference.Message)
	case errors.Is(err, repository.ErrUniqueViolation):
		return appErrors.Wrap(err, appErrors.ErrDuplicate.Code, appErrors.ErrDuplicate.Status, appErrors.ErrDuplicate.Message)
	case errors.Is(err, repository.ErrUnavailable):
		return appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, appErrors.ErrStorageUnavailable.Message)
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
}
