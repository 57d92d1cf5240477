// Package handlers exposes the shop services as a JSON API.
package handlers

import (
	"context"
	"net/http"

	"github.com/diewo77/pureclean/auth"
	"github.com/diewo77/pureclean/gate"
	"github.com/diewo77/pureclean/httpx"
	"github.com/diewo77/pureclean/internal/services"
)

// Resource names checked against the gate. They must match the role
// profiles configured in internal/policy.
const (
	resourceCart   = "cart"
	resourceOrder  = "order"
	resourceReview = "review"
)

// Authorizer checks the session in ctx against a loaded resource.
type Authorizer interface {
	Authorize(ctx context.Context, action gate.Action, resourceType string, resource any) error
}

// callerClient returns the signed-in caller's client, linking one for
// accounts created before the link existed.
func callerClient(ctx context.Context, clients *services.ClientService) (uint, error) {
	s := auth.FromContext(ctx)
	if s.ClientID != nil {
		return *s.ClientID, nil
	}
	c, err := clients.ResolveForUser(ctx, s)
	if err != nil {
		return 0, err
	}
	return c.ID, nil
}

func badRequest(w http.ResponseWriter, err error) {
	httpx.JSONError(w, http.StatusBadRequest, "bad_request", err.Error(), nil)
}

// deny answers a gate refusal: 401 for guests, 403 for everyone else.
func deny(w http.ResponseWriter, r *http.Request) {
	if !auth.FromContext(r.Context()).Authenticated() {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", "sign in required", nil)
		return
	}
	httpx.JSONError(w, http.StatusForbidden, "forbidden", "", nil)
}

func created(w http.ResponseWriter, v any) { httpx.JSON(w, http.StatusCreated, v) }

func ok(w http.ResponseWriter, v any) { httpx.JSON(w, http.StatusOK, v) }

func noContent(w http.ResponseWriter) { w.WriteHeader(http.StatusNoContent) }
