package handler

import (
	"errors"
	"net/http"

	appErrors "github.com/noah-isme/class-attendance-api/pkg/errors"
)

func invalidPayload(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload")
}

func isValidation(err error) bool {
	return errors.Is(err, appErrors.ErrValidation)
}
