package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/diewo77/pureclean/internal/models"
)

type ctxKey string

const (
	sessionCookieName = "session"
	sessionCtxKey     = ctxKey("session")
	sessionTTL        = 14 * 24 * time.Hour
)

// Session is the identity of the caller for one request. Services that need
// to know who is acting receive it explicitly.
type Session struct {
	UserID   uint
	Email    string
	Phone    string
	Role     models.Role
	ClientID *uint
}

// Guest is the session of an anonymous caller.
var Guest = Session{Role: models.RoleGuest}

// Authenticated is true for any logged-in, non-guest account.
func (s Session) Authenticated() bool {
	return s.UserID != 0 && s.Role != models.RoleGuest
}

// SessionLoader rebuilds a Session from the user id found in the cookie.
// It returns false when the user no longer exists.
type SessionLoader func(ctx context.Context, uid uint) (Session, bool)

var (
	secretMu sync.RWMutex
	secret   = []byte("devsessionsecret")
)

// SetSecret replaces the cookie signing key.
func SetSecret(s string) {
	if s == "" {
		return
	}
	secretMu.Lock()
	secret = []byte(s)
	secretMu.Unlock()
}

func sign(v string) string {
	secretMu.RLock()
	mac := hmac.New(sha256.New, secret)
	secretMu.RUnlock()
	mac.Write([]byte(v))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// CreateSession sets a signed cookie with the user id.
func CreateSession(w http.ResponseWriter, userID uint) {
	uidStr := strconv.FormatUint(uint64(userID), 10)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    uidStr + "." + sign(uidStr),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(sessionTTL),
	})
}

// ClearSession deletes the session cookie.
func ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: sessionCookieName, Value: "", Path: "/", Expires: time.Unix(0, 0), HttpOnly: true, SameSite: http.SameSiteLaxMode})
}

// ParseSession validates cookie and returns user id.
func ParseSession(r *http.Request) (uint, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return 0, false
	}
	uidStr, sig, ok := strings.Cut(c.Value, ".")
	if !ok {
		return 0, false
	}
	if !hmac.Equal([]byte(sig), []byte(sign(uidStr))) {
		return 0, false
	}
	id64, err := strconv.ParseUint(uidStr, 10, 64)
	if err != nil || id64 == 0 {
		return 0, false
	}
	return uint(id64), true
}

// WithSession stores s in context.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey, s)
}

// FromContext returns the request session, or Guest.
func FromContext(ctx context.Context) Session {
	if s, ok := ctx.Value(sessionCtxKey).(Session); ok {
		return s
	}
	return Guest
}

// Middleware resolves the cookie into a Session. A cookie that points at a
// deleted user is cleared and the request continues as a guest.
func Middleware(load SessionLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if uid, ok := ParseSession(r); ok {
				if s, found := load(r.Context(), uid); found {
					r = r.WithContext(WithSession(r.Context(), s))
				} else {
					ClearSession(w)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth answers 401 for guests.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !FromContext(r.Context()).Authenticated() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
