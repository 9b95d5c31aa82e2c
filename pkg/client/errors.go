package client

import (
	"errors"
	"fmt"
)

// Kind classifies why a Domain Operation failed.
type Kind int

const (
	// KindNetwork means no response was received, including timeouts.
	KindNetwork Kind = iota + 1
	// KindAuthFailure is a 401 answer; the session has been invalidated.
	KindAuthFailure
	// KindMalformedPayload is a body that is not the JSON the operation expects.
	KindMalformedPayload
	// KindRequestRejected is any other non-success HTTP status.
	KindRequestRejected
	// KindLocalValidation is input rejected before any request was sent.
	KindLocalValidation
)

var (
	ErrNetwork          = errors.New("network error")
	ErrAuthFailure      = errors.New("authentication required")
	ErrMalformedPayload = errors.New("malformed response payload")
	ErrRequestRejected  = errors.New("request rejected")
	ErrLocalValidation  = errors.New("invalid input")

	// ErrUnexpectedFormat is wrapped by the MalformedPayload error ListModels
	// returns for a body that is neither an array nor {"models": [...]}.
	ErrUnexpectedFormat = errors.New("unexpected response format")
	// ErrBaseURLMissing is returned by New when no API base URL was given.
	ErrBaseURLMissing = errors.New("api base url is not configured")
)

func (k Kind) sentinel() error {
	switch k {
	case KindNetwork:
		return ErrNetwork
	case KindAuthFailure:
		return ErrAuthFailure
	case KindMalformedPayload:
		return ErrMalformedPayload
	case KindRequestRejected:
		return ErrRequestRejected
	case KindLocalValidation:
		return ErrLocalValidation
	default:
		return nil
	}
}

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network_error"
	case KindAuthFailure:
		return "auth_failure"
	case KindMalformedPayload:
		return "malformed_payload"
	case KindRequestRejected:
		return "request_rejected"
	case KindLocalValidation:
		return "local_validation"
	default:
		return "unknown"
	}
}

// Error is the classified failure of a Domain Operation. Match a class with
// errors.Is(err, ErrAuthFailure) and friends, or read fields via errors.As.
type Error struct {
	Op        string
	Kind      Kind
	Status    int    // HTTP status, zero when no response was received
	Detail    string // server-provided or generic message
	RequestID string
	Err       error
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.sentinel().Error()
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// KindOf returns the classification of err, or zero when err is not a
// classified client error.
func KindOf(err error) Kind {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Kind
	}
	return 0
}

func validationError(op, format string, args ...any) *Error {
	return &Error{Op: op, Kind: KindLocalValidation, Detail: fmt.Sprintf(format, args...)}
}
