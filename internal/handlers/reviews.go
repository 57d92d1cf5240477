package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/diewo77/pureclean/auth"
	"github.com/diewo77/pureclean/gate"
	"github.com/diewo77/pureclean/httpx"
	"github.com/diewo77/pureclean/internal/services"
)

type ReviewHandler struct {
	reviews *services.ReviewService
	clients *services.ClientService
	gate    Authorizer
	log     *zap.Logger
}

func NewReviewHandler(reviews *services.ReviewService, clients *services.ClientService, g Authorizer, log *zap.Logger) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, clients: clients, gate: g, log: log}
}

type hiddenRequest struct {
	Hidden bool `json:"hidden"`
}

// List shows visible reviews. Staff may pass ?all=1 to include hidden ones.
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	all := r.URL.Query().Get("all") == "1"
	if all {
		if err := h.gate.Authorize(r.Context(), gate.ActionManage, resourceReview, nil); err != nil {
			writeError(w, r, h.log, err)
			return
		}
	}
	list, err := h.reviews.List(r.Context(), all)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	ok(w, list)
}

func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.ReviewInput
	if err := httpx.Decode(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	cid, err := callerClient(r.Context(), h.clients)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	sess := auth.FromContext(r.Context())
	sess.ClientID = &cid
	rv, err := h.reviews.Create(r.Context(), sess, in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	created(w, rv)
}

func (h *ReviewHandler) SetHidden(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}
	var in hiddenRequest
	if err := httpx.Decode(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	rv, err := h.reviews.SetHidden(r.Context(), id, in.Hidden)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	ok(w, rv)
}

func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}
	if err := h.reviews.Delete(r.Context(), id); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	noContent(w)
}

func (h *ReviewHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.reviews.Stats(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	ok(w, st)
}
