package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/lib/pq"
)

// Storage error kinds surfaced to the service layer. The underlying driver
// error stays wrapped so it can still be logged.
var (
	ErrForeignKey      = errors.New("foreign key violation")
	ErrUniqueViolation = errors.New("unique constraint violation")
	ErrUnavailable     = errors.New("storage unavailable")
	ErrMalformedID     = errors.New("malformed identifier")
)

const (
	pqForeignKeyViolation = "23503"
	pqUniqueViolation     = "23505"
	pqInvalidTextRep      = "22P02"
	pqAdminShutdown       = "57P01"
	pqCannotConnectNow    = "57P03"
	pqConnectionClass     = "08"
)

// classify maps driver errors onto the storage error kinds.
func classify(err error) error {
	if err == nil || errors.Is(err, sql.ErrNoRows) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == pqForeignKeyViolation:
			return fmt.Errorf("%w: %w", ErrForeignKey, err)
		case pqErr.Code == pqUniqueViolation:
			return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
		case pqErr.Code == pqInvalidTextRep:
			return fmt.Errorf("%w: %w", ErrMalformedID, err)
		case pqErr.Code == pqAdminShutdown, pqErr.Code == pqCannotConnectNow, string(pqErr.Code.Class()) == pqConnectionClass:
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return err
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return err
}

// UniqueConstraint returns the violated constraint name when err is a unique violation.
func UniqueConstraint(err error) string {
	var pqErr *pq.Error
	if errors.Is(err, ErrUniqueViolation) && errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}
