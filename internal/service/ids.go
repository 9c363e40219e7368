package service

import (
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/class-attendance-api/internal/models"
	appErrors "github.com/noah-isme/class-attendance-api/pkg/errors"
)

// canonicalID returns the lowercase hyphenated form of a UUID so cache keys
// and filters agree with what the database returns.
func canonicalID(raw string) (string, bool) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// canonicalOrTrimmed keeps unparseable input as typed so validation can report it.
func canonicalOrTrimmed(raw string) string {
	if id, ok := canonicalID(raw); ok {
		return id
	}
	return strings.TrimSpace(raw)
}

// referenceError reports references that cannot point at an existing row.
func referenceError(message string, fields map[string][]string) error {
	return appErrors.WithFields(appErrors.Clone(appErrors.ErrReference, message), fields)
}

// filterID canonicalises an optional id filter. "" and "all" mean no restriction.
func filterID(field, raw string, allowAll bool) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || (allowAll && strings.EqualFold(raw, models.AllClassrooms)) {
		return "", nil
	}
	id, ok := canonicalID(raw)
	if !ok {
		return "", validationError("invalid filter", map[string][]string{field: {field + " must be a valid id"}})
	}
	return id, nil
}
