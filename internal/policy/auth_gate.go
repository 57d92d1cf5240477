// Package policy configures authorization for the shop: role profiles,
// ownership policies and the HTTP middleware built on them.
package policy

import (
	"context"
	"net/http"

	"github.com/diewo77/pureclean/auth"
	"github.com/diewo77/pureclean/gate"
	"github.com/diewo77/pureclean/httpx"
)

// AuthGate binds the gate to the session carried in the request context.
type AuthGate struct {
	Gate *gate.Gate[auth.Session]
}

// NewAuthGate creates the gate with role profiles and the ownership policies
// for carts, orders and reviews.
func NewAuthGate() *AuthGate {
	g := gate.New[auth.Session](NewRoleResolver())
	g.Register(ResourceCart, OwnershipPolicy{})
	g.Register(ResourceOrder, OwnershipPolicy{StaffBypass: true})
	g.Register(ResourceReview, OwnershipPolicy{StaffBypass: true})
	return &AuthGate{Gate: g}
}

// Authorize checks the current session against a loaded resource.
func (ag *AuthGate) Authorize(ctx context.Context, action gate.Action, resourceType string, resource any) error {
	return ag.Gate.Authorize(ctx, auth.FromContext(ctx), action, resourceType, resource)
}

// Can is Authorize returning a bool.
func (ag *AuthGate) Can(ctx context.Context, action gate.Action, resourceType string, resource any) bool {
	return ag.Authorize(ctx, action, resourceType, resource) == nil
}

// RequirePermission returns middleware that checks the session's profile.
// Guests get 401, signed-in callers 403.
func (ag *AuthGate) RequirePermission(resourceType string, action gate.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := auth.FromContext(r.Context())
			if ag.Gate.CanProfile(r.Context(), s, action, resourceType) {
				next.ServeHTTP(w, r)
				return
			}
			if !s.Authenticated() {
				httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", "sign in required", nil)
				return
			}
			httpx.JSONError(w, http.StatusForbidden, "forbidden", "", nil)
		})
	}
}

// Guard wraps a handler func with RequirePermission.
func (ag *AuthGate) Guard(resourceType string, action gate.Action, h http.HandlerFunc) http.Handler {
	return ag.RequirePermission(resourceType, action)(h)
}
