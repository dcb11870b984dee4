package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	sessionName = "tripsplit_session"

	sessionKeyToken = "token"
	sessionKeyState = "oauth_state"
)

var ErrStateMismatch = errors.New("oauth state mismatch")

// SessionManager keeps browser state in a signed cookie: the OAuth state
// during sign-in and the session token afterwards.
type SessionManager struct {
	store *sessions.CookieStore
}

// NewSessionManager creates a cookie store signed with key.
// Set secure when the site is served over HTTPS.
func NewSessionManager(key string, secure bool) *SessionManager {
	store := sessions.NewCookieStore([]byte(key))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionManager{store: store}
}

// NewState stores a fresh random state value in the session and returns it.
func (m *SessionManager) NewState(w http.ResponseWriter, r *http.Request) (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	state := base64.RawURLEncoding.EncodeToString(buf)

	sess, _ := m.store.Get(r, sessionName)
	sess.Values[sessionKeyState] = state
	if err := sess.Save(r, w); err != nil {
		return "", err
	}
	return state, nil
}

// ConsumeState checks state against the stored value and clears it.
func (m *SessionManager) ConsumeState(w http.ResponseWriter, r *http.Request, state string) error {
	sess, _ := m.store.Get(r, sessionName)
	want, _ := sess.Values[sessionKeyState].(string)
	delete(sess.Values, sessionKeyState)
	if err := sess.Save(r, w); err != nil {
		return err
	}
	if want == "" || state != want {
		return ErrStateMismatch
	}
	return nil
}

// SetToken stores the session token.
func (m *SessionManager) SetToken(w http.ResponseWriter, r *http.Request, token string) error {
	sess, _ := m.store.Get(r, sessionName)
	sess.Values[sessionKeyToken] = token
	return sess.Save(r, w)
}

// Token returns the session token, or "" when there is none.
// Only the request headers are read, so a request rebuilt from RPC headers works.
func (m *SessionManager) Token(r *http.Request) string {
	sess, err := m.store.Get(r, sessionName)
	if err != nil {
		return ""
	}
	token, _ := sess.Values[sessionKeyToken].(string)
	return token
}

// Clear expires the session cookie.
func (m *SessionManager) Clear(w http.ResponseWriter, r *http.Request) error {
	sess, _ := m.store.Get(r, sessionName)
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}
