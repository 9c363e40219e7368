package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/class-attendance-api/internal/models"
	appErrors "github.com/noah-isme/class-attendance-api/pkg/errors"
)

// NewValidator returns a validator reporting JSON field names and knowing the attendance rules.
func NewValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	registerAttendanceRules(validate)
	return validate
}

func registerAttendanceRules(validate *validator.Validate) {
	_ = validate.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		_, err := models.ParseAttendanceStatus(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("calendar_date", func(fl validator.FieldLevel) bool {
		_, err := models.ParseDate(fl.Field().String())
		return err == nil
	})
}

// fieldErrors flattens validator output into field -> messages. Keys are prefixed when set.
func fieldErrors(err error, prefix string) map[string][]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string][]string{prefix + "_": {err.Error()}}
	}
	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		key := prefix + fe.Field()
		fields[key] = append(fields[key], fieldMessage(fe))
	}
	return fields
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "attendance_status":
		return "status must be PRESENT, ABSENT, LATE, or EXCUSED"
	case "calendar_date":
		return "date must be a valid date (YYYY-MM-DD)"
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func validationError(message string, fields map[string][]string) error {
	return appErrors.WithFields(appErrors.Clone(appErrors.ErrValidation, message), fields)
}

func mergeFields(dst, src map[string][]string) {
	for key, messages := range src {
		dst[key] = append(dst[key], messages...)
	}
}
