package service

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/mmynk/tripsplit/internal/auth"
)

// IdentityProvider is a redirect-based sign-in provider such as Google.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.Identity, error)
}

// GoogleHandler serves the browser side of Google sign-in and sign-out.
type GoogleHandler struct {
	provider    IdentityProvider
	sessions    *auth.SessionManager
	authService *AuthService
	jwtManager  *auth.JWTManager
	frontendURL string
}

// NewGoogleHandler creates the handler. Users land on frontendURL after
// signing in or out.
func NewGoogleHandler(provider IdentityProvider, sessions *auth.SessionManager, authService *AuthService, jwtManager *auth.JWTManager, frontendURL string) *GoogleHandler {
	return &GoogleHandler{
		provider:    provider,
		sessions:    sessions,
		authService: authService,
		jwtManager:  jwtManager,
		frontendURL: frontendURL,
	}
}

// Login redirects to the provider's consent page.
func (h *GoogleHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := h.sessions.NewState(w, r)
	if err != nil {
		slog.Error("Failed to start sign-in", "error", err)
		http.Error(w, "failed to start sign-in", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, h.provider.AuthCodeURL(state), http.StatusFound)
}

// Callback finishes sign-in: it checks the state, exchanges the code,
// creates the profile on first sign-in and stores the session token.
func (h *GoogleHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if reason := q.Get("error"); reason != "" {
		slog.Warn("Sign-in declined", "reason", reason)
		h.redirectWithError(w, r, reason)
		return
	}

	if err := h.sessions.ConsumeState(w, r, q.Get("state")); err != nil {
		slog.Warn("Sign-in state check failed", "error", err)
		http.Error(w, "invalid sign-in state", http.StatusBadRequest)
		return
	}

	identity, err := h.provider.Exchange(r.Context(), q.Get("code"))
	if err != nil {
		slog.Error("Code exchange failed", "error", err)
		h.redirectWithError(w, r, "exchange_failed")
		return
	}

	user, token, err := h.authService.SignInIdentity(r.Context(), identity)
	if err != nil {
		slog.Error("Sign-in failed", "uid", identity.UID, "error", err)
		http.Error(w, "sign-in failed", http.StatusInternalServerError)
		return
	}
	if err := h.sessions.SetToken(w, r, token); err != nil {
		slog.Error("Failed to save session", "error", err)
		http.Error(w, "sign-in failed", http.StatusInternalServerError)
		return
	}

	slog.Info("Signed in with Google", "user_id", user.UID)
	http.Redirect(w, r, h.frontendURL, http.StatusFound)
}

// Logout revokes the session token and clears the cookie.
func (h *GoogleHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := h.sessions.Token(r); token != "" {
		if claims, err := h.jwtManager.Validate(token); err == nil {
			if err := h.jwtManager.Revoke(r.Context(), claims); err != nil {
				slog.Error("Failed to persist sign-out", "user_id", claims.UserID, "error", err)
			}
		}
	}
	if err := h.sessions.Clear(w, r); err != nil {
		slog.Error("Failed to clear session", "error", err)
	}
	http.Redirect(w, r, h.frontendURL, http.StatusFound)
}

func (h *GoogleHandler) redirectWithError(w http.ResponseWriter, r *http.Request, reason string) {
	target, err := url.Parse(h.frontendURL)
	if err != nil {
		http.Error(w, "sign-in failed", http.StatusBadRequest)
		return
	}
	values := target.Query()
	values.Set("auth_error", reason)
	target.RawQuery = values.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}
