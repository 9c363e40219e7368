package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{name: "foreign key", err: &pq.Error{Code: "23503"}, want: ErrForeignKey},
		{name: "unique", err: &pq.Error{Code: "23505"}, want: ErrUniqueViolation},
		{name: "malformed uuid", err: &pq.Error{Code: "22P02", Message: `invalid input syntax for type uuid: "ghost"`}, want: ErrMalformedID},
		{name: "connection failure", err: &pq.Error{Code: "08006"}, want: ErrUnavailable},
		{name: "admin shutdown", err: &pq.Error{Code: "57P01"}, want: ErrUnavailable},
		{name: "bad conn", err: driver.ErrBadConn, want: ErrUnavailable},
		{name: "deadline", err: fmt.Errorf("query: %w", context.DeadlineExceeded), want: ErrUnavailable},
		{name: "dial", err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}, want: ErrUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classify(tc.err)
			assert.ErrorIs(t, got, tc.want)
			assert.ErrorIs(t, got, tc.err)
		})
	}
}

func TestClassifyPassthrough(t *testing.T) {
	assert.Nil(t, classify(nil))
	assert.Equal(t, sql.ErrNoRows, classify(sql.ErrNoRows))

	syntax := &pq.Error{Code: "42601"}
	got := classify(syntax)
	assert.Equal(t, syntax, got)
	assert.False(t, errors.Is(got, ErrUnavailable))
}

func TestUniqueConstraint(t *testing.T) {
	err := classify(&pq.Error{Code: "23505", Constraint: "students_student_id_key"})
	assert.Equal(t, "students_student_id_key", UniqueConstraint(err))
	assert.Empty(t, UniqueConstraint(errors.New("boom")))
}
