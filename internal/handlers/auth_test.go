package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/pureclean/auth"
	"github.com/diewo77/pureclean/internal/models"
	"github.com/diewo77/pureclean/internal/services"
)

func TestAuthHandlerSignupAndLogin(t *testing.T) {
	e := newEnv(t)
	h := NewAuthHandler(e.users, e.log)
	in := services.RegisterInput{
		Email: "new@example.com", Phone: "+7 900 555-55-55", FirstName: "Olga", LastName: "Ivanova", Password: "password123",
	}

	rec := httptest.NewRecorder()
	h.Signup(rec, request(t, http.MethodPost, "/auth/signup", in, auth.Guest))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotEmpty(t, rec.Result().Cookies())
	var user models.User
	decodeBody(t, rec, &user)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NotNil(t, user.ClientID)
	assert.NotContains(t, rec.Body.String(), "password123")

	rec = httptest.NewRecorder()
	h.Signup(rec, request(t, http.MethodPost, "/auth/signup", in, auth.Guest))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	h.Login(rec, request(t, http.MethodPost, "/auth/login", loginRequest{Email: in.Email, Password: "wrong-password"}, auth.Guest))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.Login(rec, request(t, http.MethodPost, "/auth/login", loginRequest{Email: "NEW@example.com", Password: in.Password}, auth.Guest))
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	// the issued cookie resolves back to the account
	r := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	r.AddCookie(cookies[0])
	uid, valid := auth.ParseSession(r)
	require.True(t, valid)
	assert.Equal(t, user.ID, uid)
}

func TestAuthHandlerMeAndPassword(t *testing.T) {
	e := newEnv(t)
	h := NewAuthHandler(e.users, e.log)
	sess := e.account(t, "me@example.com", "+7 900 111-11-11", models.RoleUser)

	rec := httptest.NewRecorder()
	h.Me(rec, request(t, http.MethodGet, "/auth/me", nil, sess))
	require.Equal(t, http.StatusOK, rec.Code)
	var me meResponse
	decodeBody(t, rec, &me)
	assert.Equal(t, "me@example.com", me.Email)
	assert.Equal(t, "user", me.Role)

	rec = httptest.NewRecorder()
	h.ChangePassword(rec, request(t, http.MethodPost, "/auth/password", passwordRequest{Current: "nope", New: "another-secret"}, sess))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	h.ChangePassword(rec, request(t, http.MethodPost, "/auth/password", passwordRequest{Current: "password123", New: "another-secret"}, sess))
	require.Equal(t, http.StatusNoContent, rec.Code)
	_, err := e.users.Authenticate(t.Context(), "me@example.com", "another-secret")
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	h.Logout(rec, request(t, http.MethodPost, "/auth/logout", nil, sess))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
