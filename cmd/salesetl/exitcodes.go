package main

import (
	"errors"

	"github.com/erp/salesetl/internal/domain/bulk"
	"github.com/erp/salesetl/internal/infrastructure/persistence"
)

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string {
	return e.err.Error()
}

func (e *cliError) Unwrap() error {
	return e.err
}

const (
	exitOK     = 0
	exitFailed = 1
	exitConfig = 2
)

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: code, err: err}
}

// exitCode maps an error to the process exit code. Configuration problems
// exit with 2 wherever they surface.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var cerr *bulk.ConfigurationError
	if errors.As(err, &cerr) || errors.Is(err, persistence.ErrMissingDSN) {
		return exitConfig
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	return exitFailed
}
