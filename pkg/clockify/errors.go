package clockify

import (
	"fmt"

	"github.com/go-faster/errors"
)

var (
	// ErrRateLimited is the cause of a ConnectionError when every attempt
	// was answered with 429.
	ErrRateLimited = errors.New("rate limited")
	ErrInvalidURL  = errors.New("invalid base url")
)

// ConnectionError reports a logical call that produced no usable response
// after the retry budget was spent.
type ConnectionError struct {
	Method   string
	Path     string
	Attempts int
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s %s: no response after %d attempt(s): %v", e.Method, e.Path, e.Attempts, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// PageError stops a paginated fetch early.
type PageError struct {
	Endpoint   string
	Page       int
	StatusCode int
	Err        error
}

func (e *PageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s page %d: %v", e.Endpoint, e.Page, e.Err)
	}
	return fmt.Sprintf("fetch %s page %d: status %d", e.Endpoint, e.Page, e.StatusCode)
}

func (e *PageError) Unwrap() error {
	return e.Err
}
