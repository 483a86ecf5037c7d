package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrMissingToken       = errors.New("no access token in response")
	ErrEmptyMessage       = errors.New("message is empty")
	ErrEmptyAPIKey        = errors.New("api key is empty")
	ErrEmptyAsset         = errors.New("asset has no data")
	ErrAssetTooLarge      = errors.New("asset is too large")
	ErrTokenExpired       = errors.New("stored token has expired")
	ErrEndpointUnresolved = errors.New("server endpoint is not resolved")
	ErrInvalidServerIP    = errors.New("invalid server ip address")
	ErrUnexpectedServer   = errors.New("unexpected server response")
)

// ErrorKind groups gateway failures by the operation family that produced them.
type ErrorKind string

const (
	KindAuth         ErrorKind = "auth"
	KindChat         ErrorKind = "chat"
	KindUpload       ErrorKind = "upload"
	KindConnectivity ErrorKind = "connectivity"
)

// Error is the only error shape returned across the gateway boundary.
// Message is safe to show to the user as-is.
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s failed", e.Kind, e.Op)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a gateway Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// UserMessage returns the display message of a gateway error, or fallback for anything else.
func UserMessage(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}
