package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/zackriver/carvalue/internal/auth"
	"github.com/zackriver/carvalue/internal/metrics"
	"github.com/zackriver/carvalue/internal/repository/sqlite"
	"github.com/zackriver/carvalue/internal/service"
)

// testEnv wires real services over an in-memory database behind the same
// middleware chain the server mounts, so handler tests exercise routing,
// guards, and projection together.
type testEnv struct {
	router *chi.Mux
	db     *sqlite.DB
	codec  *auth.SessionCodec
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	codec, err := auth.NewSessionCodec("test-secret-at-least-16-chars!!", time.Hour, false)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	passwords := auth.NewPasswordServiceForTest()
	recorder := metrics.Nop{}

	authHandler := NewAuthHandler(
		service.NewAuthService(db.Users(), passwords, recorder, logger),
		codec,
		nil,
	)
	userHandler := NewUserHandler(service.NewUserService(db.Users(), passwords, logger))
	reportHandler := NewReportHandler(service.NewReportService(db.Reports(), recorder, logger))

	router := chi.NewRouter()
	router.Use(auth.ResolveIdentity(codec, db.Users()))

	router.Post("/api/auth/register", authHandler.Register)
	router.Post("/api/auth/login", authHandler.Login)
	router.Post("/api/auth/logout", authHandler.Logout)

	router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth())
		r.Get("/api/me", authHandler.Me)
		r.Get("/api/users/{id}", userHandler.Get)
		r.Put("/api/users/{id}", userHandler.Update)
		r.Delete("/api/users/{id}", userHandler.Delete)
		r.Post("/api/reports", reportHandler.Create)
		r.Get("/api/reports", reportHandler.List)
		r.Get("/api/reports/{id}", reportHandler.Get)
		r.Get("/api/estimate", reportHandler.Estimate)
	})

	router.Group(func(r chi.Router) {
		r.Use(auth.RequirePrivileged())
		r.Get("/api/users", userHandler.LookupByEmail)
		r.Post("/api/reports/{id}/approve", reportHandler.Approve)
		r.Post("/api/reports/{id}/reject", reportHandler.Reject)
	})

	return &testEnv{router: router, db: db, codec: codec}
}

// envelope mirrors the response shape with the data left raw so tests can
// decode it as an object or a list.
type envelope struct {
	Success bool            `json:"success"`
	Action  string          `json:"action"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// do runs one request through the router. body (if non-nil) is sent as
// JSON; cookie (if non-nil) rides along as the session.
func (e *testEnv) do(t *testing.T, method, target string, body any, cookie *http.Cookie) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, target, reader)
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "every response must be an envelope")
	return rec, env
}

// dataMap decodes the envelope data as a JSON object.
func dataMap(t *testing.T, env envelope) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &m))
	return m
}

// dataList decodes the envelope data as a JSON array of objects.
func dataList(t *testing.T, env envelope) []map[string]any {
	t.Helper()
	var l []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &l))
	return l
}

// register signs a user up through the API and returns their ID and
// session cookie.
func (e *testEnv) register(t *testing.T, email string) (int64, *http.Cookie) {
	t.Helper()

	rec, env := e.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"name":     "Test User",
		"email":    email,
		"password": "hunter2hunter2",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	id := int64(dataMap(t, env)["id"].(float64))

	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			return id, c
		}
	}
	t.Fatal("register response carried no session cookie")
	return 0, nil
}

// promote flips is_privileged directly in the store — there is no API for
// granting privilege.
func (e *testEnv) promote(t *testing.T, id int64) {
	t.Helper()
	users := e.db.Users()
	user, err := users.GetByID(context.Background(), id)
	require.NoError(t, err)
	user.IsPrivileged = true
	require.NoError(t, users.Update(context.Background(), user))
}
