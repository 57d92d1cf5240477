package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/diewo77/pureclean/internal/models"
)

func cookieRequest(t *testing.T, uid uint) *http.Request {
	t.Helper()
	w := httptest.NewRecorder()
	CreateSession(w, uid)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range w.Result().Cookies() {
		r.AddCookie(c)
	}
	return r
}

func TestParseSession_RoundTrip(t *testing.T) {
	uid, ok := ParseSession(cookieRequest(t, 42))
	if !ok || uid != 42 {
		t.Fatalf("ParseSession = %d, %v", uid, ok)
	}
}

func TestParseSession_Tampered(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "1.forged"})
	if _, ok := ParseSession(r); ok {
		t.Fatal("forged cookie accepted")
	}
}

func TestFromContext_DefaultsToGuest(t *testing.T) {
	s := FromContext(context.Background())
	if s.Authenticated() || s.Role != models.RoleGuest {
		t.Fatalf("got %+v", s)
	}
}

func TestMiddleware(t *testing.T) {
	clientID := uint(7)
	load := func(_ context.Context, uid uint) (Session, bool) {
		if uid != 42 {
			return Session{}, false
		}
		return Session{UserID: 42, Role: models.RoleUser, ClientID: &clientID}, true
	}
	var got Session
	h := Middleware(load)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), cookieRequest(t, 42))
	if got.UserID != 42 || got.ClientID == nil || *got.ClientID != 7 {
		t.Fatalf("session = %+v", got)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, cookieRequest(t, 99))
	if got.Authenticated() {
		t.Fatalf("unknown user authenticated: %+v", got)
	}
	if len(w.Result().Cookies()) == 0 {
		t.Error("stale cookie not cleared")
	}
}

func TestRequireAuth(t *testing.T) {
	h := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("guest status = %d", w.Code)
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(WithSession(r.Context(), Session{UserID: 1, Role: models.RoleUser}))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusNoContent {
		t.Fatalf("user status = %d", w.Code)
	}
}
