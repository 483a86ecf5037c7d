package domain

type SessionState string

const (
	StateUnauthenticated SessionState = "unauthenticated"
	StateAuthenticating  SessionState = "authenticating"
	StateAuthenticated   SessionState = "authenticated"
)

// Profile is the authenticated user as returned by GET /users/me.
type Profile struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsActive bool   `json:"is_active"`
}

// Session is the in-memory view of who is logged in. Token mirrors the persisted value.
type Session struct {
	User  Profile
	Token string
}

func (s *Session) LoggedIn() bool {
	return s != nil && s.Token != ""
}

type Reply struct {
	Content string `json:"content"`
}

type DocumentResult struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
}

// Asset is a picked image or document handed to an upload.
type Asset struct {
	Name        string
	ContentType string
	Data        []byte
}
