package service

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/set-night/assistant/internal/config"
	"github.com/set-night/assistant/internal/domain"
)

type fakeUser struct {
	profile domain.Profile
	hash    []byte
}

type fakeUpload struct {
	filename    string
	contentType string
	name        string
	size        int
}

// fakeBackend mimics the assistant API closely enough for gateway tests.
type fakeBackend struct {
	srv    *httptest.Server
	secret []byte

	mu           sync.Mutex
	users        map[string]*fakeUser
	staticTokens map[string]string
	nextID       int64
	hits         map[string]int
	apiKeys      map[int64]string
	uploads      []fakeUpload

	signupReturnsToken bool
	failLogin          bool
	failProfile        bool
	rejectAPIKey       string

	// profileGate, when set, holds every /users/me response until closed.
	profileGate chan struct{}
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{
		secret:       []byte("test-secret"),
		users:        make(map[string]*fakeUser),
		staticTokens: make(map[string]string),
		hits:         make(map[string]int),
		apiKeys:      make(map[int64]string),
	}

	r := mux.NewRouter()
	r.Use(fb.count)
	r.HandleFunc("/", fb.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/signup", fb.handleSignup).Methods(http.MethodPost)
	r.HandleFunc("/login", fb.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/users/me", fb.authed(fb.handleMe)).Methods(http.MethodGet)
	r.HandleFunc("/chat", fb.authed(fb.handleChat)).Methods(http.MethodPost)
	r.HandleFunc("/upload-image", fb.authed(fb.handleUploadImage)).Methods(http.MethodPost)
	r.HandleFunc("/process-pdf", fb.authed(fb.handleProcessPDF)).Methods(http.MethodPost)
	r.HandleFunc("/update-api-key", fb.authed(fb.handleUpdateAPIKey)).Methods(http.MethodPost)

	fb.srv = httptest.NewServer(r)
	t.Cleanup(fb.srv.Close)
	return fb
}

func (fb *fakeBackend) URL() string {
	return fb.srv.URL
}

func (fb *fakeBackend) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		fb.hits[r.Method+" "+r.URL.Path]++
		fb.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (fb *fakeBackend) Hits(route string) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.hits[route]
}

func (fb *fakeBackend) TotalHits() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	n := 0
	for _, v := range fb.hits {
		n += v
	}
	return n
}

func (fb *fakeBackend) addUser(t *testing.T, username, email, password string) domain.Profile {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.nextID++
	u := &fakeUser{
		profile: domain.Profile{ID: fb.nextID, Username: username, Email: email, IsActive: true},
		hash:    hash,
	}
	fb.users[email] = u
	return u.profile
}

// addStaticToken makes token authenticate as email without being a JWT.
func (fb *fakeBackend) addStaticToken(token, email string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.staticTokens[token] = email
}

func (fb *fakeBackend) issueToken(t *testing.T, email string, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": email,
		"exp": exp.Unix(),
	}).SignedString(fb.secret)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

type authedHandler func(w http.ResponseWriter, r *http.Request, u *fakeUser)

func (fb *fakeBackend) authed(h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if raw == "" {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		fb.mu.Lock()
		email, ok := fb.staticTokens[raw]
		fb.mu.Unlock()
		if !ok {
			tok, err := jwt.Parse(raw, func(*jwt.Token) (any, error) { return fb.secret, nil },
				jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil {
				writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
				return
			}
			email, _ = tok.Claims.GetSubject()
		}

		fb.mu.Lock()
		u, ok := fb.users[email]
		fb.mu.Unlock()
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		h(w, r, u)
	}
}

func (fb *fakeBackend) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": config.WelcomeMessage})
}

func (fb *fakeBackend) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	if req.Email == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]any{{"loc": []string{"body", "email"}, "msg": "field required"}},
		})
		return
	}

	fb.mu.Lock()
	_, exists := fb.users[req.Email]
	fb.mu.Unlock()
	if exists {
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	fb.mu.Lock()
	fb.nextID++
	u := &fakeUser{
		profile: domain.Profile{ID: fb.nextID, Username: req.Username, Email: req.Email, IsActive: true},
		hash:    hash,
	}
	fb.users[req.Email] = u
	withToken := fb.signupReturnsToken
	fb.mu.Unlock()

	resp := map[string]any{
		"id":        u.profile.ID,
		"username":  u.profile.Username,
		"email":     u.profile.Email,
		"is_active": u.profile.IsActive,
	}
	if withToken {
		resp["access_token"] = fb.signToken(req.Email)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (fb *fakeBackend) signToken(email string) string {
	tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": email,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(fb.secret)
	return tok
}

func (fb *fakeBackend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	fb.mu.Lock()
	u, ok := fb.users[req.Email]
	fail := fb.failLogin
	fb.mu.Unlock()
	if fail {
		writeDetail(w, http.StatusInternalServerError, "Login service unavailable")
		return
	}
	if !ok || bcrypt.CompareHashAndPassword(u.hash, []byte(req.Password)) != nil {
		writeDetail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: fb.signToken(req.Email), TokenType: "bearer"})
}

func (fb *fakeBackend) handleMe(w http.ResponseWriter, r *http.Request, u *fakeUser) {
	fb.mu.Lock()
	fail := fb.failProfile
	gate := fb.profileGate
	fb.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}
	if fail {
		writeDetail(w, http.StatusInternalServerError, "profile unavailable")
		return
	}
	writeJSON(w, http.StatusOK, u.profile)
}

func (fb *fakeBackend) handleChat(w http.ResponseWriter, r *http.Request, u *fakeUser) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	writeJSON(w, http.StatusOK, domain.Reply{Content: "echo: " + req.Query})
}

func (fb *fakeBackend) readUpload(w http.ResponseWriter, r *http.Request) (fakeUpload, bool) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid form")
		return fakeUpload{}, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "file is required")
		return fakeUpload{}, false
	}
	defer file.Close()
	data, _ := io.ReadAll(file)

	up := fakeUpload{
		filename:    header.Filename,
		contentType: header.Header.Get("Content-Type"),
		name:        r.FormValue("name"),
		size:        len(data),
	}
	fb.mu.Lock()
	fb.uploads = append(fb.uploads, up)
	fb.mu.Unlock()
	return up, true
}

func (fb *fakeBackend) handleUploadImage(w http.ResponseWriter, r *http.Request, u *fakeUser) {
	up, ok := fb.readUpload(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message":  "Image uploaded successfully",
		"filename": up.name + ".jpg",
		"path":     "uploads/" + up.name + ".jpg",
	})
}

func (fb *fakeBackend) handleProcessPDF(w http.ResponseWriter, r *http.Request, u *fakeUser) {
	up, ok := fb.readUpload(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, domain.DocumentResult{Message: "PDF processed successfully", Filename: up.filename})
}

func (fb *fakeBackend) handleUpdateAPIKey(w http.ResponseWriter, r *http.Request, u *fakeUser) {
	key := r.URL.Query().Get("api_key")
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if key == fb.rejectAPIKey {
		writeJSON(w, http.StatusOK, map[string]string{"status": "error", "message": "Invalid API key"})
		return
	}
	fb.apiKeys[u.profile.ID] = key
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "API key updated successfully"})
}
