package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/set-night/assistant/internal/config"
	"github.com/set-night/assistant/internal/domain"
)

const requestIDHeader = "X-Request-ID"

// apiTransport stamps every outgoing request and logs failed exchanges.
type apiTransport struct {
	base http.RoundTripper
}

func (t *apiTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	reqID := req.Header.Get(requestIDHeader)
	if reqID == "" {
		reqID = uuid.NewString()
		req.Header.Set(requestIDHeader, reqID)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		// Query strings may carry the api key, log the path only.
		slog.Error("api request failed",
			"method", req.Method,
			"path", req.URL.Path,
			"request_id", reqID,
			"duration", time.Since(start),
			"error", err,
		)
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		slog.Warn("api error response",
			"method", req.Method,
			"path", req.URL.Path,
			"status", resp.StatusCode,
			"request_id", reqID,
			"duration", time.Since(start),
		)
	} else {
		slog.Debug("api request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", resp.StatusCode,
			"request_id", reqID,
			"duration", time.Since(start),
		)
	}
	return resp, nil
}

// NewHTTPClient returns the client shared by gateways and endpoint probes.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = config.RequestTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: &apiTransport{base: http.DefaultTransport},
	}
}

// statusError is a non-2xx answer from the assistant API.
type statusError struct {
	Status int
	Detail string
}

func (e *statusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("status %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("status %d", e.Status)
}

type apiRequest struct {
	method      string
	path        string
	query       url.Values
	token       string
	body        []byte
	contentType string
	timeout     time.Duration
}

type apiClient struct {
	http     *http.Client
	endpoint *EndpointResolver
}

func jsonRequest(method, path string, payload any) (apiRequest, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return apiRequest{}, fmt.Errorf("marshal request: %w", err)
	}
	return apiRequest{method: method, path: path, body: body, contentType: "application/json"}, nil
}

// do sends r to the resolved base URL and decodes a 2xx JSON body into out.
func (c *apiClient) do(ctx context.Context, r apiRequest, out any) error {
	base, err := c.endpoint.BaseURL(ctx)
	if err != nil {
		return err
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	target := base + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, config.MaxResponseBodyBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &statusError{Status: resp.StatusCode, Detail: extractDetail(raw)}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: parse response: %v", domain.ErrUnexpectedServer, err)
	}
	return nil
}

// extractDetail reads a FastAPI error body: {"detail": "..."} or
// {"detail": [{"msg": "..."}, ...]} for validation failures.
func extractDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(payload.Detail, &text); err == nil {
		return strings.TrimSpace(text)
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &items); err == nil && len(items) > 0 {
		return strings.TrimSpace(items[0].Msg)
	}
	return ""
}

type filePart struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// multipartBody encodes one file part followed by plain form fields.
func multipartBody(file filePart, fields map[string]string) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(file.field), quoteEscaper.Replace(file.filename)))
	h.Set("Content-Type", file.contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(file.data); err != nil {
		return nil, "", fmt.Errorf("write file part: %w", err)
	}

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
