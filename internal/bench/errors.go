package bench

import (
	"context"
	"errors"
	"fmt"

	"json-decode-bench/internal/decode"
	"json-decode-bench/internal/jobs"
	"json-decode-bench/internal/pool"
)

// Error kinds reported in domain.ErrorInfo.
const (
	KindSourceLoad     = "source_load"
	KindDecode         = "decode"
	KindPoolCreation   = "pool_creation"
	KindAlreadyRunning = "already_running"
	KindCancelled      = "cancelled"
	KindInternal       = "internal"
)

// SourceLoadError reports that the source text could not be read. No work
// has been scheduled when it is returned.
type SourceLoadError struct {
	Source string `json:"source"`
	Err    error  `json:"-"`
}

// Error formats load failures for logs and UI.
func (e *SourceLoadError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("load source %s", e.Source)
	}
	return fmt.Sprintf("load source %s: %v", e.Source, e.Err)
}

// Unwrap exposes the loader error.
func (e *SourceLoadError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Kind classifies err into one of the Kind constants.
func Kind(err error) string {
	var (
		loadErr   *SourceLoadError
		decodeErr *decode.Error
		createErr *pool.CreationError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	case errors.As(err, &loadErr):
		return KindSourceLoad
	case errors.As(err, &decodeErr):
		return KindDecode
	case errors.As(err, &createErr):
		return KindPoolCreation
	case errors.Is(err, jobs.ErrJobAlreadyRunning):
		return KindAlreadyRunning
	default:
		return KindInternal
	}
}
