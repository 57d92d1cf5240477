package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/diewo77/pureclean/auth"
	"github.com/diewo77/pureclean/httpx"
	"github.com/diewo77/pureclean/internal/models"
	"github.com/diewo77/pureclean/internal/services"
)

// AdminUserHandler lets admins manage accounts and their roles.
type AdminUserHandler struct {
	users *services.UserService
	log   *zap.Logger
}

func NewAdminUserHandler(users *services.UserService, log *zap.Logger) *AdminUserHandler {
	return &AdminUserHandler{users: users, log: log}
}

type roleRequest struct {
	Role models.Role `json:"role"`
}

func (h *AdminUserHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	ok(w, list)
}

func (h *AdminUserHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}
	var in roleRequest
	if err := httpx.Decode(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	u, err := h.users.SetRole(r.Context(), id, in.Role)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	ok(w, u)
}

// Delete removes an account. Admins cannot delete themselves.
func (h *AdminUserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}
	if id == auth.FromContext(r.Context()).UserID {
		httpx.JSONError(w, http.StatusConflict, string(services.KindConflict), "cannot delete own account", nil)
		return
	}
	if err := h.users.Delete(r.Context(), id); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	noContent(w)
}
