package handler

import (
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/zackriver/carvalue/internal/apperror"
	"github.com/zackriver/carvalue/internal/auth"
	"github.com/zackriver/carvalue/internal/serialize"
	"github.com/zackriver/carvalue/internal/service"
)

// oauthStateCookie carries the anti-CSRF state between the redirect to
// GitHub and the callback.
const oauthStateCookie = "oauth_state"

// AuthHandler serves registration, login/logout, the current-user
// endpoint, and GitHub sign-in.
type AuthHandler struct {
	auths    *service.AuthService
	sessions *auth.SessionCodec
	github   *auth.GitHubProvider // nil when GitHub sign-in is not configured
}

// NewAuthHandler creates an AuthHandler. github may be nil; the GitHub
// routes are only mounted when it isn't.
func NewAuthHandler(auths *service.AuthService, sessions *auth.SessionCodec, github *auth.GitHubProvider) *AuthHandler {
	return &AuthHandler{
		auths:    auths,
		sessions: sessions,
		github:   github,
	}
}

type credentialsRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /api/auth/register. A successful signup also logs
// the user in — the session cookie rides on the response.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, "register", err)
		return
	}

	user, err := h.auths.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, "register", err)
		return
	}

	if err := h.issueSession(w, user.ID); err != nil {
		writeError(w, "register", err)
		return
	}

	projected, err := serialize.UserFields.Apply(user)
	if err != nil {
		writeError(w, "register", err)
		return
	}
	writeData(w, http.StatusCreated, "register", "account created", projected)
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, "login", err)
		return
	}

	user, err := h.auths.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, "login", err)
		return
	}

	if err := h.issueSession(w, user.ID); err != nil {
		writeError(w, "login", err)
		return
	}

	projected, err := serialize.UserFields.Apply(user)
	if err != nil {
		writeError(w, "login", err)
		return
	}
	writeData(w, http.StatusOK, "login", "logged in", projected)
}

// Logout handles POST /api/auth/logout. It succeeds whether or not a
// session was present — logging out twice is not an error.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearCookie(w)
	writeData(w, http.StatusOK, "logout", "logged out", nil)
}

// Me handles GET /api/me: the user behind the current session. The route
// sits behind the login guard, so an identity is always present here.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeError(w, "whoami", apperror.Unauthorized("you must be logged in"))
		return
	}

	projected, err := serialize.UserFields.Apply(user)
	if err != nil {
		writeError(w, "whoami", err)
		return
	}
	writeData(w, http.StatusOK, "whoami", "", projected)
}

// GitHubLogin handles GET /auth/github/login: set the state cookie and
// bounce the browser to GitHub's consent page.
func (h *AuthHandler) GitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/auth/github",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// GitHubCallback handles GET /auth/github/callback. The state query
// parameter must match the cookie set at login start, or the code could
// have been planted by an attacker's page.
func (h *AuthHandler) GitHubCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		writeError(w, "oauthLogin", apperror.ValidationFailed("state", "OAuth state mismatch"))
		return
	}

	// The state is single-use; drop the cookie before anything else.
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/auth/github",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, "oauthLogin", apperror.ValidationFailed("code", "authorization code missing"))
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		writeError(w, "oauthLogin", err)
		return
	}

	user, err := h.auths.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		writeError(w, "oauthLogin", err)
		return
	}

	if err := h.issueSession(w, user.ID); err != nil {
		writeError(w, "oauthLogin", err)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// issueSession writes a session cookie for the given user onto the
// response.
func (h *AuthHandler) issueSession(w http.ResponseWriter, userID int64) error {
	var session auth.Session
	session.Establish(userID)
	return h.sessions.IssueCookie(w, session)
}
