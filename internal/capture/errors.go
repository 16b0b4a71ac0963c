package capture

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceNotFound means the named or handle-identified window is gone.
	ErrSourceNotFound = errors.New("capture source not found")
	// ErrInvalidGeometry means the capture area has zero or negative size.
	ErrInvalidGeometry = errors.New("invalid capture geometry")
	// ErrCaptureFailed is matched by every *CaptureError.
	ErrCaptureFailed = errors.New("capture failed")
)

// CaptureError is a transient OS-level failure of one capture call.
type CaptureError struct {
	Op     string
	Reason string
	Err    error
}

func (e *CaptureError) Error() string {
	msg := "capture failed: " + e.Op
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

func (e *CaptureError) Is(target error) bool {
	return target == ErrCaptureFailed
}

func failed(op, reason string, err error) error {
	return &CaptureError{Op: op, Reason: reason, Err: err}
}

func failedf(op string, err error, format string, args ...any) error {
	return &CaptureError{Op: op, Reason: fmt.Sprintf(format, args...), Err: err}
}
