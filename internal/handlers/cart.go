package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/diewo77/pureclean/gate"
	"github.com/diewo77/pureclean/httpx"
	"github.com/diewo77/pureclean/internal/services"
)

// CartHandler serves the signed-in client's own cart. Every mutation answers
// with the repriced cart.
type CartHandler struct {
	carts   *services.CartService
	clients *services.ClientService
	gate    Authorizer
	log     *zap.Logger
}

func NewCartHandler(carts *services.CartService, clients *services.ClientService, g Authorizer, log *zap.Logger) *CartHandler {
	return &CartHandler{carts: carts, clients: clients, gate: g, log: log}
}

type addItemRequest struct {
	ServiceID uint `json:"service_id"`
	Quantity  int  `json:"quantity"`
}

type changeQuantityRequest struct {
	Delta int `json:"delta"`
}

func (h *CartHandler) clientID(ctx context.Context) (uint, error) {
	return callerClient(ctx, h.clients)
}

func (h *CartHandler) respond(w http.ResponseWriter, r *http.Request, status int, clientID uint) {
	v, err := h.carts.View(r.Context(), clientID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, status, v)
}

func (h *CartHandler) View(w http.ResponseWriter, r *http.Request) {
	cid, err := h.clientID(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	h.respond(w, r, http.StatusOK, cid)
}

func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	var in addItemRequest
	if err := httpx.Decode(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	cid, err := h.clientID(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if _, err := h.carts.AddItem(r.Context(), cid, in.ServiceID, in.Quantity); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	h.respond(w, r, http.StatusCreated, cid)
}

// ownLine loads {id} and checks it is in the caller's cart. It writes the
// reply and returns 0 on failure.
func (h *CartHandler) ownLine(w http.ResponseWriter, r *http.Request, action gate.Action) (lineID, clientID uint) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		badRequest(w, err)
		return 0, 0
	}
	line, err := h.carts.Line(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return 0, 0
	}
	if err := h.gate.Authorize(r.Context(), action, resourceCart, line); err != nil {
		writeError(w, r, h.log, err)
		return 0, 0
	}
	return line.ID, line.OwnerClientID()
}

func (h *CartHandler) ChangeQuantity(w http.ResponseWriter, r *http.Request) {
	var in changeQuantityRequest
	if err := httpx.Decode(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	lineID, cid := h.ownLine(w, r, gate.ActionUpdate)
	if lineID == 0 {
		return
	}
	if _, err := h.carts.ChangeQuantity(r.Context(), lineID, in.Delta); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	h.respond(w, r, http.StatusOK, cid)
}

func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	lineID, cid := h.ownLine(w, r, gate.ActionDelete)
	if lineID == 0 {
		return
	}
	if err := h.carts.RemoveItem(r.Context(), lineID); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	h.respond(w, r, http.StatusOK, cid)
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	cid, err := h.clientID(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.carts.Clear(r.Context(), cid); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	noContent(w)
}
