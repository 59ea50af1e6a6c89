package client

import (
	"errors"
	"fmt"
)

// Kind classifies transport failures.
type Kind string

const (
	KindInvalidURL         Kind = "INVALID_URL"
	KindInvalidResponse    Kind = "INVALID_RESPONSE"
	KindNetwork            Kind = "NETWORK_ERROR"
	KindDecoding           Kind = "DECODING_ERROR"
	KindInvalidBoardFormat Kind = "INVALID_BOARD_FORMAT"
	KindServer             Kind = "SERVER_ERROR"
	KindUnauthorized       Kind = "UNAUTHORIZED"
)

// Error is returned by every Client request. Callers match it with
// errors.Is against the sentinels below, which compare by Kind only.
type Error struct {
	Kind       Kind
	StatusCode int    // set for KindServer and KindUnauthorized
	Message    string // server-provided detail, if any
	Cause      error
}

var (
	ErrInvalidURL         = &Error{Kind: KindInvalidURL}
	ErrInvalidResponse    = &Error{Kind: KindInvalidResponse}
	ErrNetwork            = &Error{Kind: KindNetwork}
	ErrDecoding           = &Error{Kind: KindDecoding}
	ErrInvalidBoardFormat = &Error{Kind: KindInvalidBoardFormat}
	ErrServer             = &Error{Kind: KindServer}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized}
)

func (e *Error) Error() string {
	switch e.Kind {
	case KindInvalidURL:
		return e.withCause("invalid URL")
	case KindInvalidResponse:
		return e.withCause("invalid response from server")
	case KindNetwork:
		return e.withCause("network error")
	case KindDecoding:
		return e.withCause("failed to decode response")
	case KindInvalidBoardFormat:
		return e.withCause("invalid board format")
	case KindServer:
		msg := fmt.Sprintf("server error with code: %d", e.StatusCode)
		if e.Message != "" {
			msg += ": " + e.Message
		}
		return msg
	case KindUnauthorized:
		return "unauthorized access"
	}
	return e.withCause(string(e.Kind))
}

func (e *Error) withCause(msg string) string {
	if e.Cause == nil {
		return msg
	}
	return msg + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// StatusCode extracts the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}
