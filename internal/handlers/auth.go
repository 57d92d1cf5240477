package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/diewo77/pureclean/auth"
	"github.com/diewo77/pureclean/httpx"
	"github.com/diewo77/pureclean/internal/services"
)

type AuthHandler struct {
	users *services.UserService
	log   *zap.Logger
}

func NewAuthHandler(users *services.UserService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, log: log}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type passwordRequest struct {
	Current string `json:"current"`
	New     string `json:"new"`
}

// Signup registers an account with its client record and signs it in.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := httpx.Decode(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	user, err := h.users.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	auth.CreateSession(w, user.ID)
	created(w, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := httpx.Decode(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	user, err := h.users.Authenticate(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	auth.CreateSession(w, user.ID)
	ok(w, user)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSession(w)
	noContent(w)
}

type meResponse struct {
	UserID   uint   `json:"user_id"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Role     string `json:"role"`
	ClientID *uint  `json:"client_id,omitempty"`
}

// Me describes the signed-in account.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	s := auth.FromContext(r.Context())
	ok(w, meResponse{UserID: s.UserID, Email: s.Email, Phone: s.Phone, Role: string(s.Role), ClientID: s.ClientID})
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var in passwordRequest
	if err := httpx.Decode(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	s := auth.FromContext(r.Context())
	if err := h.users.ChangePassword(r.Context(), s.UserID, in.Current, in.New); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	noContent(w)
}
