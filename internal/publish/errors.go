package publish

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// TransientError is a publish failure worth retrying: rate limiting, server
// errors, timeouts.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError is a publish failure that will not succeed on retry:
// authentication, platform policy, invalid content.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func Transientf(format string, args ...interface{}) error {
	return &TransientError{Err: fmt.Errorf(format, args...)}
}

func Permanentf(format string, args ...interface{}) error {
	return &PermanentError{Err: fmt.Errorf(format, args...)}
}

func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// classifyStatus maps an HTTP response code to the retry taxonomy.
func classifyStatus(code int, detail string) error {
	if code == 429 || code >= 500 {
		return Transientf("HTTP %d: %s", code, detail)
	}
	return Permanentf("HTTP %d: %s", code, detail)
}

// classifyTransport wraps a request error. Timeouts, cancellations and
// connection problems are transient; everything else (bad request
// construction) is permanent.
func classifyTransport(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Transientf("request timed out: %v", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Transientf("request timed out: %v", err)
	}
	if errors.Is(err, context.Canceled) {
		// Worker shutdown mid-request; the post must not be dead-lettered.
		return Transientf("request canceled: %v", err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return Transientf("connection failed: %v", err)
	}
	return Permanentf("request failed: %v", err)
}
