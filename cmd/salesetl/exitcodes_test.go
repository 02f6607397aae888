package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/erp/salesetl/internal/domain/bulk"
	"github.com/erp/salesetl/internal/infrastructure/persistence"
	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: exitOK},
		{name: "plain error", err: errors.New("boom"), want: exitFailed},
		{name: "coded", err: withCode(exitFailed, errors.New("load failed")), want: exitFailed},
		{name: "configuration", err: bulk.NewConfigurationError("source", "missing"), want: exitConfig},
		{name: "wrapped configuration",
			err:  withCode(exitFailed, fmt.Errorf("load failed: %w", bulk.NewConfigurationError("load.tolerance", "bad"))),
			want: exitConfig},
		{name: "missing dsn", err: fmt.Errorf("open: %w", persistence.ErrMissingDSN), want: exitConfig},
		{name: "explicit config code", err: withCode(exitConfig, errors.New("invalid run id")), want: exitConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestWithCode(t *testing.T) {
	assert.Nil(t, withCode(exitFailed, nil))

	inner := errors.New("inner")
	err := withCode(exitConfig, inner)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "inner", err.Error())
}
