package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zackriver/carvalue/internal/apperror"
	"github.com/zackriver/carvalue/internal/auth"
	"github.com/zackriver/carvalue/internal/model"
	"github.com/zackriver/carvalue/internal/serialize"
	"github.com/zackriver/carvalue/internal/service"
)

// UserHandler serves account lookup, update, and deletion.
type UserHandler struct {
	users *service.UserService
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// pathID parses the {id} route parameter.
func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, apperror.ValidationFailed("id", "id must be a positive integer")
	}
	return id, nil
}

// actor returns the resolved identity. Routes using it sit behind the
// login guard, so a missing identity is a wiring bug, reported as 403
// rather than a panic.
func actor(r *http.Request) (*model.User, error) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		return nil, apperror.Unauthorized("you must be logged in")
	}
	return user, nil
}

// Get handles GET /api/users/{id}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	act, err := actor(r)
	if err != nil {
		writeError(w, "getUser", err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, "getUser", err)
		return
	}

	user, err := h.users.Get(r.Context(), act, id)
	if err != nil {
		writeError(w, "getUser", err)
		return
	}

	projected, err := serialize.UserFields.Apply(user)
	if err != nil {
		writeError(w, "getUser", err)
		return
	}
	writeData(w, http.StatusOK, "getUser", "", projected)
}

// LookupByEmail handles GET /api/users?email=... (privileged only, guarded
// at the route).
func (h *UserHandler) LookupByEmail(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByEmail(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		writeError(w, "findUser", err)
		return
	}

	projected, err := serialize.UserFields.Apply(user)
	if err != nil {
		writeError(w, "findUser", err)
		return
	}
	writeData(w, http.StatusOK, "findUser", "", projected)
}

type updateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// Update handles PUT /api/users/{id}. Absent body fields stay unchanged.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	act, err := actor(r)
	if err != nil {
		writeError(w, "updateUser", err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, "updateUser", err)
		return
	}

	var req updateUserRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, "updateUser", err)
		return
	}

	user, err := h.users.Update(r.Context(), act, id, service.UserUpdate{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, "updateUser", err)
		return
	}

	projected, err := serialize.UserFields.Apply(user)
	if err != nil {
		writeError(w, "updateUser", err)
		return
	}
	writeData(w, http.StatusOK, "updateUser", "account updated", projected)
}

// Delete handles DELETE /api/users/{id}.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	act, err := actor(r)
	if err != nil {
		writeError(w, "deleteUser", err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, "deleteUser", err)
		return
	}

	if err := h.users.Delete(r.Context(), act, id); err != nil {
		writeError(w, "deleteUser", err)
		return
	}
	writeData(w, http.StatusOK, "deleteUser", "account deleted", nil)
}
