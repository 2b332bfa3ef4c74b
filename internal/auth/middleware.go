package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/zackriver/carvalue/internal/model"
	"github.com/zackriver/carvalue/internal/repository"
)

// contextKey is an unexported type used for context keys in this package.
// Only this package can create a key of type contextKey, so no other
// package can read or shadow the current-user value in the context.
type contextKey string

const currentUserKey contextKey = "currentUser"

// THE REQUEST PIPELINE:
// Every request flows through an explicit, ordered chain of stages:
//
//	session decode → identity resolve → guard → handler → projection
//
// Each stage either passes an enriched context to the next stage or
// short-circuits with a response. ResolveIdentity is the first two stages;
// RequireAuth / RequirePrivileged are the guards. A denied guard writes
// the rejection itself — the handler is never invoked.

// ResolveIdentity decodes the session cookie and loads the matching user
// record, making it available to guards and handlers via CurrentUser.
//
// It NEVER blocks a request. No cookie, a cookie that fails signature
// verification, or a userId that no longer exists in the store (the user
// was deleted between cookie issuance and use) all resolve to "anonymous"
// and the chain continues. Rejecting anonymous requests is the guards' job,
// not the resolver's.
//
// The lookup happens at most once per request; the resolved user is
// request-scoped and not cached beyond it.
func ResolveIdentity(codec *SessionCodec, users repository.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil {
				// http.ErrNoCookie — anonymous request
				next.ServeHTTP(w, r)
				return
			}

			sess := codec.Decode(cookie.Value)
			if !sess.Authenticated() {
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.GetByID(r.Context(), sess.UserID)
			if err != nil {
				// Store miss or failure — treat as anonymous, don't error
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser returns a context carrying the resolved user. ResolveIdentity
// uses it; handler tests use it to simulate an authenticated request
// without running the full pipeline.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, currentUserKey, user)
}

// CurrentUser retrieves the resolved user from the request context.
// Returns (nil, false) for anonymous requests.
func CurrentUser(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(currentUserKey).(*model.User)
	return user, ok && user != nil
}

// RequireAuth is the authenticated-guard: it allows the request through iff
// identity resolution produced a user, and otherwise short-circuits with a
// 403 before the handler runs.
//
// Guards are pure predicates over the resolved identity — they read the
// context and nothing else, and mutate neither session nor user state.
func RequireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := CurrentUser(r.Context()); !ok {
				denyRequest(w, "you must be logged in")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePrivileged is the privileged-guard: the request passes iff a user
// was resolved AND that user is privileged.
//
// The two denial reasons map to the same 403 but carry different messages:
// "not logged in" and "logged in but not allowed" are different problems
// for the caller to fix. Neither message reveals whether the target
// resource exists.
func RequirePrivileged() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := CurrentUser(r.Context())
			if !ok {
				denyRequest(w, "you must be logged in")
				return
			}
			if !user.IsPrivileged {
				denyRequest(w, "you are not allowed to perform this action")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// denyRequest writes the standard rejection envelope. It mirrors the
// handler package's error envelope shape; duplicated here because the
// handler package imports this one.
func denyRequest(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"action":  "authorize",
		"message": message,
		"data":    struct{}{},
	})
}
