// Package integration contains the clients for the external insurance systems
// (PolicySTAR, RMV, SpeedPay and CLUE) together with the plumbing they share:
// a JSON-over-HTTP Caller with per-attempt timeouts and exponential-backoff
// retries, a bounded Executor that runs calls asynchronously and hands back
// Futures, and Prometheus instrumentation.
//
// Every client call resolves to a result or an *Error whose Kind says whether
// the remote timed out, was unavailable, or rejected the request.
package integration

import (
	"errors"
	"fmt"
)

// Kind classifies an integration failure.
type Kind int

const (
	// KindTimeout means no answer arrived within the configured timeout.
	KindTimeout Kind = iota + 1
	// KindUnavailable covers network errors, 5xx/429 and unreadable replies.
	KindUnavailable
	// KindRejected means the remote refused the request (4xx or a declined
	// business outcome). Rejections are never retried.
	KindRejected
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindUnavailable:
		return "unavailable"
	case KindRejected:
		return "rejected"
	}
	return "unknown"
}

// Error is the failure half of every integration call.
type Error struct {
	Integration string // policystar|rmv|speedpay|clue
	Op          string // logical operation, e.g. "export"
	Kind        Kind
	StatusCode  int    // remote HTTP status, 0 when no response
	Message     string // remote or local explanation, safe to show callers
	Attempts    int
	Err         error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Integration, e.Op, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Attempts > 1 {
		msg += fmt.Sprintf(" after %d attempts", e.Attempts)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func kindOf(err error) (Kind, bool) {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Kind, true
	}
	return 0, false
}

// IsTimeout reports whether err is an integration timeout.
func IsTimeout(err error) bool { k, ok := kindOf(err); return ok && k == KindTimeout }

// IsUnavailable reports whether err is an integration availability failure.
func IsUnavailable(err error) bool { k, ok := kindOf(err); return ok && k == KindUnavailable }

// IsRejected reports whether the remote refused the request.
func IsRejected(err error) bool { k, ok := kindOf(err); return ok && k == KindRejected }

// ErrExecutorClosed is returned by futures submitted after Shutdown.
var ErrExecutorClosed = errors.New("integration executor closed")
