package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/set-night/assistant/internal/domain"
)

func TestExtractDetail(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string detail", `{"detail":"Email already registered"}`, "Email already registered"},
		{"validation list", `{"detail":[{"loc":["body","email"],"msg":"value is not a valid email address"}]}`, "value is not a valid email address"},
		{"empty list", `{"detail":[]}`, ""},
		{"no detail", `{"message":"nope"}`, ""},
		{"not json", `Internal Server Error`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractDetail([]byte(tt.body)); got != tt.want {
				t.Errorf("extractDetail = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"server detail", &statusError{Status: 400, Detail: "Bad things"}, "Bad things"},
		{"status without detail", &statusError{Status: 500}, "Signup failed"},
		{"timeout", fmt.Errorf("post: %w", context.DeadlineExceeded), msgTimeout},
		{"local sentinel", domain.ErrEmptyAPIKey, "Please enter an API key."},
		{"expired session", domain.ErrTokenExpired, "Session expired. Please log in again."},
		{"raw message", errors.New("something odd"), "something odd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrapError(domain.KindAuth, "signup", tt.err, "Signup failed")
			if got.Message != tt.want {
				t.Errorf("Message = %q, want %q", got.Message, tt.want)
			}
			if got.Kind != domain.KindAuth {
				t.Errorf("Kind = %q, want auth", got.Kind)
			}
			if !errors.Is(got, tt.err) {
				t.Error("wrapped error does not unwrap to the cause")
			}
		})
	}
}

func TestWrapError_KeepsNormalizedError(t *testing.T) {
	inner := &domain.Error{Kind: domain.KindAuth, Op: "login", Message: "Incorrect email or password"}
	if got := wrapError(domain.KindUpload, "upload-image", inner, "x"); got != inner {
		t.Errorf("wrapError re-wrapped an already normalized error: %+v", got)
	}
}
