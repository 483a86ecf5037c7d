package service

import (
	"context"
	"errors"
	"net"
	"syscall"

	"github.com/set-night/assistant/internal/domain"
)

const (
	msgTimeout        = "Connection timed out. Please check your internet connection."
	msgNetwork        = "Network error. Please check your internet connection and try again."
	msgProbePrefix    = "Could not connect to the server. "
	msgProbeTimeout   = "Connection timed out. Please check if the server is running and try again."
	msgProbeCheckAddr = "Please check the IP address and try again."
)

var localMessages = []struct {
	err error
	msg string
}{
	{domain.ErrNotAuthenticated, "Not authenticated. Please log in first."},
	{domain.ErrMissingToken, "The server did not return an access token."},
	{domain.ErrEmptyMessage, "Message is empty."},
	{domain.ErrEmptyAPIKey, "Please enter an API key."},
	{domain.ErrEmptyAsset, "The file is empty."},
	{domain.ErrAssetTooLarge, "The file is too large."},
	{domain.ErrTokenExpired, "Session expired. Please log in again."},
	{domain.ErrEndpointUnresolved, "Server address is not configured."},
	{domain.ErrInvalidServerIP, "Please enter a valid IP address."},
	{domain.ErrUnexpectedServer, "Unexpected response from the server."},
}

// wrapError normalizes err into a *domain.Error of the given kind.
// A value that already is a *domain.Error passes through untouched.
func wrapError(kind domain.ErrorKind, op string, err error, fallback string) *domain.Error {
	var de *domain.Error
	if errors.As(err, &de) {
		return de
	}

	e := &domain.Error{Kind: kind, Op: op, Err: err}
	var se *statusError
	switch {
	case errors.As(err, &se):
		e.Status = se.Status
		e.Message = se.Detail
	case isTimeout(err):
		e.Message = msgTimeout
	case isNetworkError(err):
		e.Message = msgNetwork
	default:
		e.Message = localMessage(err)
		if e.Message == "" && err != nil {
			e.Message = err.Error()
		}
	}
	if e.Message == "" {
		e.Message = fallback
	}
	return e
}

func localMessage(err error) string {
	for _, m := range localMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return ""
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isNetworkError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET)
}
