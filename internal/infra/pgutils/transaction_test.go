package pgutils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		code      string
		retryable bool
		unique    bool
	}{
		{name: "nil", err: nil},
		{name: "plain", err: errors.New("boom")},
		{name: "serialization", err: &pgconn.PgError{Code: "40001"}, code: "40001", retryable: true},
		{name: "deadlock", err: &pgconn.PgError{Code: "40P01"}, code: "40P01", retryable: true},
		{name: "wrapped", err: fmt.Errorf("save: %w", &pgconn.PgError{Code: "40001"}), code: "40001", retryable: true},
		{name: "unique_violation", err: &pgconn.PgError{Code: "23505"}, code: "23505", unique: true},
		{
			name:      "joined",
			err:       errors.Join(errors.New("rollback"), &pgconn.PgError{Code: "40P01"}),
			code:      "40P01",
			retryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.code, Code(tt.err))
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
			assert.Equal(t, tt.unique, IsUniqueViolation(tt.err))
		})
	}
}
