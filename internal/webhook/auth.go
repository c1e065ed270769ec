package webhook

import (
	"crypto/subtle"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/sells-group/leadhook/internal/config"
)

// stateCookie carries the OAuth state issued by /auth/login back to the
// callback on the same browser.
const (
	stateCookie    = "leadhook_oauth_state"
	stateCookieTTL = 600
)

func newOAuthConfig(tt config.ThumbtackConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     tt.ClientID,
		ClientSecret: tt.ClientSecret,
		RedirectURL:  tt.RedirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:  tt.AuthURL,
			TokenURL: tt.TokenURL,
		},
	}
}

// handleAuthLogin redirects the browser to the Thumbtack consent page. The
// state is also stored in a short-lived cookie so the callback can match it.
func (s *Server) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	if s.oauth == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "OAuth not configured"})
		return
	}
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth",
		MaxAge:   stateCookieTTL,
		HttpOnly: true,
		Secure:   r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, s.oauth.AuthCodeURL(state), http.StatusFound)
}

// handleAuthCallback acknowledges the authorization code. A flow started at
// /auth/login must return the state it was issued; installs started from
// Thumbtack carry no cookie and are reported as unverified. Token exchange
// is not performed.
func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code := q.Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Authorization code is required"})
		return
	}

	state := q.Get("state")
	verified := false
	if c, err := r.Cookie(stateCookie); err == nil {
		http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/auth", MaxAge: -1, HttpOnly: true})
		if subtle.ConstantTimeCompare([]byte(c.Value), []byte(state)) != 1 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "OAuth state mismatch"})
			return
		}
		verified = true
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":        "OAuth callback received",
		"code":           code,
		"state":          state,
		"state_verified": verified,
		"timestamp":      s.timestamp(),
	})
}
