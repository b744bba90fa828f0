package validation

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ndewijer/portfolio-performance/internal/apperrors"
	"github.com/ndewijer/portfolio-performance/internal/model"
)

// ValidateUUID checks if a string is a valid UUID
func ValidateUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidUUID, id)
	}
	return nil
}

// ParseDate parses a required YYYY-MM-DD value.
func ParseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, &Error{Fields: map[string]string{field: field + " is required"}}
	}
	d, err := model.ParseDate(value)
	if err != nil {
		return time.Time{}, &Error{Fields: map[string]string{field: "must be in YYYY-MM-DD format"}}
	}
	return d, nil
}

// ParseOptionalDate parses a YYYY-MM-DD value, returning fallback when empty.
func ParseOptionalDate(field, value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	return ParseDate(field, value)
}

// ValidateDateRange checks that from is not after to.
func ValidateDateRange(from, to time.Time) error {
	if from.After(to) {
		return fmt.Errorf("%w: %s is after %s", apperrors.ErrInvalidDateRange,
			from.Format(model.DateLayout), to.Format(model.DateLayout))
	}
	return nil
}
