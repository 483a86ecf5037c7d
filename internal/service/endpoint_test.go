package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/set-night/assistant/internal/config"
	"github.com/set-night/assistant/internal/domain"
	"github.com/set-night/assistant/internal/repository"
)

func TestValidateIP(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"192.168.1.100", true},
		{"10.0.0.1", true},
		{"999.1.1.1", true},
		{"192.168.1", false},
		{"abc.def.1.1", false},
		{"", false},
		{"192.168.1.100 ", false},
		{"1.2.3.4.5", false},
	}
	for _, tt := range tests {
		if got := ValidateIP(tt.ip); got != tt.want {
			t.Errorf("ValidateIP(%q) = %v, want %v", tt.ip, got, tt.want)
		}
	}
}

func newTestResolver(store KeyValueStore, defaultURL string) *EndpointResolver {
	return NewEndpointResolver(store, defaultURL, config.DefaultServerPort, NewHTTPClient(5*time.Second))
}

func TestEndpointResolver_BaseURL(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	r := newTestResolver(store, "https://assistant.example.com/")

	got, err := r.BaseURL(ctx)
	if err != nil || got != "https://assistant.example.com" {
		t.Fatalf("BaseURL = %q, %v; want default url", got, err)
	}

	if err := r.SetServerIP(ctx, "192.168.1.100"); err != nil {
		t.Fatalf("SetServerIP: %v", err)
	}
	got, _ = r.BaseURL(ctx)
	if got != "http://192.168.1.100:8000" {
		t.Errorf("BaseURL = %q, want http://192.168.1.100:8000", got)
	}
	if v, _, _ := store.Get(ctx, config.KeyServerIP); v != "192.168.1.100" {
		t.Errorf("persisted ip = %q", v)
	}

	if err := r.SetServerIP(ctx, "abc.def.1.1"); !errors.Is(err, domain.ErrInvalidServerIP) {
		t.Errorf("SetServerIP(invalid) = %v, want ErrInvalidServerIP", err)
	}
	if ip, _ := r.ServerIP(ctx); ip != "192.168.1.100" {
		t.Errorf("ServerIP after invalid set = %q, want previous value", ip)
	}

	if err := r.ClearServerIP(ctx); err != nil {
		t.Fatalf("ClearServerIP: %v", err)
	}
	got, _ = r.BaseURL(ctx)
	if got != "https://assistant.example.com" {
		t.Errorf("BaseURL after clear = %q, want default url", got)
	}
}

func TestEndpointResolver_LoadsPersistedIP(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	_ = store.Set(ctx, config.KeyServerIP, "10.0.0.7")

	got, err := newTestResolver(store, "https://assistant.example.com").BaseURL(ctx)
	if err != nil || got != "http://10.0.0.7:8000" {
		t.Errorf("BaseURL = %q, %v; want persisted ip", got, err)
	}
}

func TestEndpointResolver_Unresolved(t *testing.T) {
	r := newTestResolver(repository.NewMemoryStore(), "not a url")
	if _, err := r.BaseURL(context.Background()); !errors.Is(err, domain.ErrEndpointUnresolved) {
		t.Errorf("BaseURL = %v, want ErrEndpointUnresolved", err)
	}
}

func TestEndpointResolver_Probe(t *testing.T) {
	closed := httptest.NewServer(nil)
	closedURL := closed.URL
	closed.Close()

	tests := []struct {
		name    string
		handler http.HandlerFunc
		url      string
		deadline time.Duration
		wantErr  bool
		wantMsg  string
	}{
		{
			name: "assistant backend",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]string{"message": config.WelcomeMessage})
			},
		},
		{
			name: "other json service",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]string{"message": "hello"})
			},
			wantErr: true,
			wantMsg: "Invalid server response.",
		},
		{
			name: "html page",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				_, _ = w.Write([]byte("<html><head><title>Router Login</title></head><body></body></html>"))
			},
			wantErr: true,
			wantMsg: "Router Login",
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeDetail(w, http.StatusBadGateway, "upstream down")
			},
			wantErr: true,
			wantMsg: "status 502",
		},
		{
			name: "server hangs",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(5 * time.Second):
				}
			},
			deadline: 200 * time.Millisecond,
			wantErr:  true,
			wantMsg:  msgProbeTimeout,
		},
		{
			name:    "unreachable",
			url:     closedURL,
			wantErr: true,
			wantMsg: msgNetwork,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := tt.url
			if tt.handler != nil {
				srv := httptest.NewServer(tt.handler)
				defer srv.Close()
				base = srv.URL
			}

			ctx := context.Background()
			if tt.deadline > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, tt.deadline)
				defer cancel()
			}

			err := newTestResolver(repository.NewMemoryStore(), base).Probe(ctx)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("Probe = %v, want nil", err)
				}
				return
			}
			if !domain.IsKind(err, domain.KindConnectivity) {
				t.Fatalf("Probe = %v, want connectivity error", err)
			}
			msg := domain.UserMessage(err, "")
			if !strings.HasPrefix(msg, msgProbePrefix) {
				t.Errorf("message %q lacks prefix %q", msg, msgProbePrefix)
			}
			if !strings.Contains(msg, tt.wantMsg) {
				t.Errorf("message %q does not mention %q", msg, tt.wantMsg)
			}
		})
	}
}
