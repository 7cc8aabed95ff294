package main

import "github.com/go-faster/errors"

// Process exit statuses. Scripts wrapping a scheduled sync branch on these.
const (
	exitOK         = 0
	exitUnexpected = 1
	// exitValidation: unreadable config or input table.
	exitValidation = 2
	// exitUsage: bad flags, missing credentials or a declined confirmation.
	exitUsage = 3
	// exitPreflight: the write-permission check was rejected; nothing was changed.
	exitPreflight = 4
	// exitRunErrors: the run completed but the error journal is not empty.
	exitRunErrors = 5
)

// codedError carries the exit status chosen where the failure was detected.
type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }

func (e *codedError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &codedError{code: code, err: err}
}

// exitCode finds the outermost coded error in err's chain. Uncoded errors
// map to exitUnexpected.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *codedError
	if errors.As(err, &ce) {
		return ce.code
	}
	return exitUnexpected
}
