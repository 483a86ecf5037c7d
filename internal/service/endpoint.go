package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/set-night/assistant/internal/config"
	"github.com/set-night/assistant/internal/domain"
)

var ipPattern = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}$`)

// ValidateIP reports whether ip looks like a dotted IPv4 address.
// Octet ranges are not checked, so "999.1.1.1" passes.
func ValidateIP(ip string) bool {
	return ipPattern.MatchString(ip)
}

// EndpointResolver decides which backend a device talks to: a user-chosen
// LAN address on the configured port, or the default hosted URL.
type EndpointResolver struct {
	store      KeyValueStore
	defaultURL string
	port       int
	client     *http.Client

	mu     sync.RWMutex
	ip     string
	loaded bool
}

func NewEndpointResolver(store KeyValueStore, defaultURL string, port int, client *http.Client) *EndpointResolver {
	return &EndpointResolver{
		store:      store,
		defaultURL: strings.TrimRight(strings.TrimSpace(defaultURL), "/"),
		port:       port,
		client:     client,
	}
}

// ServerIP returns the stored server IP, or "" when none is set.
func (r *EndpointResolver) ServerIP(ctx context.Context) (string, error) {
	r.mu.RLock()
	if r.loaded {
		ip := r.ip
		r.mu.RUnlock()
		return ip, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return r.ip, nil
	}
	ip, _, err := r.store.Get(ctx, config.KeyServerIP)
	if err != nil {
		return "", fmt.Errorf("read server ip: %w", err)
	}
	r.ip = ip
	r.loaded = true
	return ip, nil
}

// SetServerIP persists ip. Invalid input is rejected and the previous value kept.
func (r *EndpointResolver) SetServerIP(ctx context.Context, ip string) error {
	ip = strings.TrimSpace(ip)
	if !ValidateIP(ip) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidServerIP, ip)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.store.Set(ctx, config.KeyServerIP, ip); err != nil {
		return fmt.Errorf("save server ip: %w", err)
	}
	r.ip = ip
	r.loaded = true
	return nil
}

func (r *EndpointResolver) ClearServerIP(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.store.Remove(ctx, config.KeyServerIP); err != nil {
		return fmt.Errorf("remove server ip: %w", err)
	}
	r.ip = ""
	r.loaded = true
	return nil
}

// BaseURL returns the root every API path is appended to, without a trailing slash.
func (r *EndpointResolver) BaseURL(ctx context.Context) (string, error) {
	ip, err := r.ServerIP(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrEndpointUnresolved, err)
	}

	base := r.defaultURL
	if ip != "" {
		base = fmt.Sprintf("http://%s:%d", ip, r.port)
	}

	u, err := url.Parse(base)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("%w: %q", domain.ErrEndpointUnresolved, base)
	}
	return base, nil
}

// Probe checks that the resolved endpoint is an assistant backend.
// Every failure is a connectivity error with a display message.
func (r *EndpointResolver) Probe(ctx context.Context) error {
	const op = "probe"

	base, err := r.BaseURL(ctx)
	if err != nil {
		return probeError(op, err, msgProbeCheckAddr)
	}

	ctx, cancel := context.WithTimeout(ctx, config.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/", nil)
	if err != nil {
		return probeError(op, fmt.Errorf("create request: %w", err), msgProbeCheckAddr)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		switch {
		case isTimeout(err):
			return probeError(op, err, msgProbeTimeout)
		case isNetworkError(err):
			return probeError(op, err, msgNetwork)
		default:
			return probeError(op, err, msgProbeCheckAddr)
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, config.MaxResponseBodyBytes))
	if err != nil {
		return probeError(op, fmt.Errorf("read response: %w", err), msgProbeCheckAddr)
	}

	if isHTML(resp.Header.Get("Content-Type"), body) {
		title := pageTitle(body)
		if title == "" {
			title = "an HTML page"
		}
		return probeError(op,
			fmt.Errorf("%w: html page %q", domain.ErrUnexpectedServer, title),
			fmt.Sprintf("The address answered with %q instead of the assistant API. %s", title, msgProbeCheckAddr))
	}

	if resp.StatusCode != http.StatusOK {
		return probeError(op,
			&statusError{Status: resp.StatusCode, Detail: extractDetail(body)},
			fmt.Sprintf("Server answered with status %d. %s", resp.StatusCode, msgProbeCheckAddr))
	}

	var greeting struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &greeting); err != nil || greeting.Message != config.WelcomeMessage {
		return probeError(op,
			fmt.Errorf("%w: greeting %q", domain.ErrUnexpectedServer, greeting.Message),
			"Invalid server response. "+msgProbeCheckAddr)
	}
	return nil
}

func probeError(op string, err error, hint string) *domain.Error {
	return &domain.Error{
		Kind:    domain.KindConnectivity,
		Op:      op,
		Message: msgProbePrefix + hint,
		Err:     err,
	}
}

func isHTML(contentType string, body []byte) bool {
	if strings.HasPrefix(strings.ToLower(contentType), "text/html") {
		return true
	}
	head := bytes.ToLower(bytes.TrimSpace(body))
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html"))
}

func pageTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
