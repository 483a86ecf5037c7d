package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/set-night/assistant/internal/config"
	"github.com/set-night/assistant/internal/domain"
)

// Gateway owns the authenticated session of one device and every call made
// to the assistant API on its behalf. It is the only writer of the token key.
type Gateway struct {
	store    KeyValueStore
	endpoint *EndpointResolver
	api      *apiClient
	now      func() time.Time

	// authMu serializes signup, login, logout and restore.
	authMu  sync.Mutex
	restore singleflight.Group

	mu      sync.RWMutex
	state   domain.SessionState
	session *domain.Session
	loading int
	lastErr error
}

type GatewayOption func(*Gateway)

// WithClock overrides the time source used for upload names and token expiry.
func WithClock(now func() time.Time) GatewayOption {
	return func(g *Gateway) { g.now = now }
}

func NewGateway(store KeyValueStore, endpoint *EndpointResolver, client *http.Client, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		store:    store,
		endpoint: endpoint,
		api:      &apiClient{http: client, endpoint: endpoint},
		now:      time.Now,
		state:    domain.StateUnauthenticated,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Signup registers a user and leaves the device logged in. When the backend
// does not hand out a token on signup, one login with the same credentials follows.
func (g *Gateway) Signup(ctx context.Context, username, email, password string) (*domain.Session, error) {
	g.authMu.Lock()
	defer g.authMu.Unlock()

	return g.authenticate(func() (*domain.Session, error) {
		return g.signup(ctx, username, email, password)
	})
}

func (g *Gateway) signup(ctx context.Context, username, email, password string) (*domain.Session, error) {
	const op, fallback = "signup", "Signup failed"

	req, err := jsonRequest(http.MethodPost, "/signup", signupRequest{
		Username: username,
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, wrapError(domain.KindAuth, op, err, fallback)
	}
	req.timeout = config.SignupTimeout

	var resp struct {
		domain.Profile
		AccessToken string `json:"access_token"`
	}
	if err := g.api.do(ctx, req, &resp); err != nil {
		return nil, wrapError(domain.KindAuth, op, err, fallback)
	}

	if resp.AccessToken == "" {
		slog.Info("signup returned no token, logging in", "username", username)
		return g.login(ctx, email, password)
	}

	if err := g.store.Set(ctx, config.KeyToken, resp.AccessToken); err != nil {
		return nil, wrapError(domain.KindAuth, op, fmt.Errorf("save token: %w", err), fallback)
	}
	return &domain.Session{User: resp.Profile, Token: resp.AccessToken}, nil
}

// Login exchanges credentials for a token and loads the profile. The token is
// persisted only once the profile fetch has succeeded.
func (g *Gateway) Login(ctx context.Context, email, password string) (*domain.Profile, error) {
	g.authMu.Lock()
	defer g.authMu.Unlock()

	sess, err := g.authenticate(func() (*domain.Session, error) {
		return g.login(ctx, email, password)
	})
	if err != nil {
		return nil, err
	}
	user := sess.User
	return &user, nil
}

func (g *Gateway) login(ctx context.Context, email, password string) (*domain.Session, error) {
	const op, fallback = "login", "An error occurred during login"

	req, err := jsonRequest(http.MethodPost, "/login", loginRequest{Email: email, Password: password})
	if err != nil {
		return nil, wrapError(domain.KindAuth, op, err, fallback)
	}

	var tok tokenResponse
	if err := g.api.do(ctx, req, &tok); err != nil {
		return nil, wrapError(domain.KindAuth, op, err, fallback)
	}
	if tok.AccessToken == "" {
		return nil, wrapError(domain.KindAuth, op, domain.ErrMissingToken, fallback)
	}

	profile, err := g.fetchProfile(ctx, tok.AccessToken)
	if err != nil {
		return nil, wrapError(domain.KindAuth, op, err, fallback)
	}

	if err := g.store.Set(ctx, config.KeyToken, tok.AccessToken); err != nil {
		return nil, wrapError(domain.KindAuth, op, fmt.Errorf("save token: %w", err), fallback)
	}
	return &domain.Session{User: *profile, Token: tok.AccessToken}, nil
}

func (g *Gateway) fetchProfile(ctx context.Context, token string) (*domain.Profile, error) {
	var profile domain.Profile
	err := g.api.do(ctx, apiRequest{method: http.MethodGet, path: "/users/me", token: token}, &profile)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// authenticate runs fn as an Authenticating transition. On failure the
// previous state and session are kept.
func (g *Gateway) authenticate(fn func() (*domain.Session, error)) (*domain.Session, error) {
	g.mu.Lock()
	prev := g.state
	g.state = domain.StateAuthenticating
	g.loading++
	g.lastErr = nil
	g.mu.Unlock()

	sess, err := fn()

	g.mu.Lock()
	defer g.mu.Unlock()
	g.loading--
	if err != nil {
		g.state = prev
		g.lastErr = err
		return nil, err
	}
	g.session = sess
	g.state = domain.StateAuthenticated
	return sess, nil
}

// Logout forgets the session. It never fails; storage errors are logged.
func (g *Gateway) Logout(ctx context.Context) {
	g.authMu.Lock()
	defer g.authMu.Unlock()

	if err := g.store.Remove(ctx, config.KeyToken); err != nil {
		slog.Error("remove token on logout", "error", err)
	}

	g.mu.Lock()
	g.session = nil
	g.state = domain.StateUnauthenticated
	g.lastErr = nil
	g.mu.Unlock()
}

// RestoreSession rebuilds the session from a persisted token. Any failure
// drops the token and leaves the device logged out. Concurrent callers
// share one restore.
func (g *Gateway) RestoreSession(ctx context.Context) {
	_, _, _ = g.restore.Do("restore", func() (any, error) {
		g.authMu.Lock()
		defer g.authMu.Unlock()
		g.restoreLocked(ctx)
		return nil, nil
	})
}

func (g *Gateway) restoreLocked(ctx context.Context) {
	token, ok, err := g.store.Get(ctx, config.KeyToken)
	if err != nil {
		slog.Error("read token on restore", "error", err)
		g.dropSession(ctx)
		return
	}
	if !ok || token == "" {
		g.mu.Lock()
		g.session = nil
		g.state = domain.StateUnauthenticated
		g.mu.Unlock()
		return
	}

	g.mu.Lock()
	g.state = domain.StateAuthenticating
	g.loading++
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		g.loading--
		g.mu.Unlock()
	}()

	if tokenExpired(token, g.now()) {
		slog.Info("session restore skipped", "error", domain.ErrTokenExpired)
		g.dropSession(ctx)
		return
	}

	profile, err := g.fetchProfile(ctx, token)
	if err != nil {
		slog.Warn("session restore failed", "error", err)
		g.dropSession(ctx)
		return
	}

	g.mu.Lock()
	g.session = &domain.Session{User: *profile, Token: token}
	g.state = domain.StateAuthenticated
	g.mu.Unlock()
}

func (g *Gateway) dropSession(ctx context.Context) {
	if err := g.store.Remove(ctx, config.KeyToken); err != nil {
		slog.Error("remove token", "error", err)
	}
	g.mu.Lock()
	g.session = nil
	g.state = domain.StateUnauthenticated
	g.mu.Unlock()
}

// tokenExpired reads the exp claim without verifying the signature. Tokens
// that are not JWTs or carry no exp are treated as live.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(now)
}

func (g *Gateway) token(ctx context.Context) (string, error) {
	token, ok, err := g.store.Get(ctx, config.KeyToken)
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	if !ok || token == "" {
		return "", domain.ErrNotAuthenticated
	}
	return token, nil
}

// track marks the gateway busy while fn runs and records its error.
func (g *Gateway) track(fn func() error) error {
	g.mu.Lock()
	g.loading++
	g.lastErr = nil
	g.mu.Unlock()

	err := fn()

	g.mu.Lock()
	g.loading--
	g.lastErr = err
	g.mu.Unlock()
	return err
}

func (g *Gateway) fail(err *domain.Error) error {
	g.mu.Lock()
	g.lastErr = err
	g.mu.Unlock()
	return err
}

type chatRequest struct {
	Query string `json:"query"`
}

func (g *Gateway) SendMessage(ctx context.Context, text string) (*domain.Reply, error) {
	const op, fallback = "chat", "Failed to send message"

	token, err := g.token(ctx)
	if err != nil {
		return nil, g.fail(wrapError(domain.KindAuth, op, err, fallback))
	}
	if strings.TrimSpace(text) == "" {
		return nil, g.fail(wrapError(domain.KindChat, op, domain.ErrEmptyMessage, fallback))
	}

	var reply domain.Reply
	err = g.track(func() error {
		req, err := jsonRequest(http.MethodPost, "/chat", chatRequest{Query: text})
		if err != nil {
			return wrapError(domain.KindChat, op, err, fallback)
		}
		req.token = token
		if err := g.api.do(ctx, req, &reply); err != nil {
			return wrapError(domain.KindChat, op, err, fallback)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &reply, nil
}

// UploadImage sends a picture and returns the stored filename. The server
// side name is user_<id>_<unix millis>.
func (g *Gateway) UploadImage(ctx context.Context, asset domain.Asset) (string, error) {
	const op, fallback = "upload-image", "Failed to upload image"

	token, err := g.token(ctx)
	if err != nil {
		return "", g.fail(wrapError(domain.KindUpload, op, err, fallback))
	}
	sess := g.Session()
	if !sess.LoggedIn() {
		return "", g.fail(wrapError(domain.KindUpload, op, domain.ErrNotAuthenticated, fallback))
	}
	if err := checkAsset(asset); err != nil {
		return "", g.fail(wrapError(domain.KindUpload, op, err, fallback))
	}

	contentType := asset.ContentType
	if contentType == "" {
		contentType = config.DefaultImageType
	}
	ext := strings.ToLower(path.Ext(asset.Name))
	if ext == "" {
		ext = config.DefaultImageExt
	}
	name := fmt.Sprintf("user_%d_%d", sess.User.ID, g.now().UnixMilli())

	var resp struct {
		Message  string `json:"message"`
		Filename string `json:"filename"`
		Path     string `json:"path"`
	}
	err = g.track(func() error {
		body, ctype, err := multipartBody(filePart{
			field:       "file",
			filename:    "image" + ext,
			contentType: contentType,
			data:        asset.Data,
		}, map[string]string{"name": name})
		if err != nil {
			return wrapError(domain.KindUpload, op, err, fallback)
		}
		req := apiRequest{method: http.MethodPost, path: "/upload-image", token: token, body: body, contentType: ctype}
		if err := g.api.do(ctx, req, &resp); err != nil {
			return wrapError(domain.KindUpload, op, err, fallback)
		}
		if resp.Filename == "" {
			return wrapError(domain.KindUpload, op, domain.ErrUnexpectedServer, fallback)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return resp.Filename, nil
}

func (g *Gateway) UploadDocument(ctx context.Context, asset domain.Asset) (*domain.DocumentResult, error) {
	const op, fallback = "upload-document", "Failed to upload document"

	token, err := g.token(ctx)
	if err != nil {
		return nil, g.fail(wrapError(domain.KindUpload, op, err, fallback))
	}
	if err := checkAsset(asset); err != nil {
		return nil, g.fail(wrapError(domain.KindUpload, op, err, fallback))
	}

	filename := asset.Name
	if filename == "" {
		filename = "document.pdf"
	}
	contentType := asset.ContentType
	if contentType == "" {
		contentType = config.DefaultDocumentType
	}

	var result domain.DocumentResult
	err = g.track(func() error {
		body, ctype, err := multipartBody(filePart{
			field:       "file",
			filename:    filename,
			contentType: contentType,
			data:        asset.Data,
		}, nil)
		if err != nil {
			return wrapError(domain.KindUpload, op, err, fallback)
		}
		req := apiRequest{method: http.MethodPost, path: "/process-pdf", token: token, body: body, contentType: ctype}
		if err := g.api.do(ctx, req, &result); err != nil {
			return wrapError(domain.KindUpload, op, err, fallback)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func checkAsset(asset domain.Asset) error {
	if len(asset.Data) == 0 {
		return domain.ErrEmptyAsset
	}
	if len(asset.Data) > config.MaxUploadBytes {
		return fmt.Errorf("%w: %d bytes", domain.ErrAssetTooLarge, len(asset.Data))
	}
	return nil
}

// UpdateAPIKey stores the user's model provider key on the backend.
func (g *Gateway) UpdateAPIKey(ctx context.Context, key string) error {
	const op, fallback = "update-api-key", "Failed to update API key"

	key = strings.TrimSpace(key)
	if key == "" {
		return g.fail(wrapError(domain.KindAuth, op, domain.ErrEmptyAPIKey, fallback))
	}
	token, err := g.token(ctx)
	if err != nil {
		return g.fail(wrapError(domain.KindAuth, op, err, fallback))
	}

	return g.track(func() error {
		var resp struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		}
		req := apiRequest{
			method: http.MethodPost,
			path:   "/update-api-key",
			query:  url.Values{"api_key": {key}},
			token:  token,
		}
		if err := g.api.do(ctx, req, &resp); err != nil {
			return wrapError(domain.KindAuth, op, err, fallback)
		}
		if resp.Status != "success" {
			msg := resp.Message
			if msg == "" {
				msg = fallback
			}
			return &domain.Error{Kind: domain.KindAuth, Op: op, Message: msg, Err: domain.ErrUnexpectedServer}
		}
		return nil
	})
}

// Session returns a copy of the current session, or nil when logged out.
func (g *Gateway) Session() *domain.Session {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.session == nil {
		return nil
	}
	s := *g.session
	return &s
}

func (g *Gateway) State() domain.SessionState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

func (g *Gateway) Loading() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.loading > 0
}

// LastError is the error of the most recent user-initiated operation, or nil.
func (g *Gateway) LastError() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.lastErr
}
