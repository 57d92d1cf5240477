package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/diewo77/pureclean/auth"
	"github.com/diewo77/pureclean/gate"
	"github.com/diewo77/pureclean/httpx"
	"github.com/diewo77/pureclean/internal/models"
	"github.com/diewo77/pureclean/internal/services"
)

type OrderHandler struct {
	orders  *services.OrderService
	clients *services.ClientService
	gate    Authorizer
	log     *zap.Logger
}

func NewOrderHandler(orders *services.OrderService, clients *services.ClientService, g Authorizer, log *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, clients: clients, gate: g, log: log}
}

type checkoutRequest struct {
	Comment string `json:"comment"`
}

type statusRequest struct {
	Status  models.OrderStatus `json:"status"`
	Comment *string            `json:"comment,omitempty"`
}

type prepaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// Checkout turns the caller's cart into an order. An empty body is allowed.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var in checkoutRequest
	if r.ContentLength != 0 {
		if err := httpx.Decode(r, &in); err != nil {
			badRequest(w, err)
			return
		}
	}
	o, err := h.orders.Convert(r.Context(), auth.FromContext(r.Context()), in.Comment)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	created(w, o)
}

// Mine lists the caller's own orders.
func (h *OrderHandler) Mine(w http.ResponseWriter, r *http.Request) {
	cid, err := callerClient(r.Context(), h.clients)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	list, err := h.orders.ListForClient(r.Context(), cid)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	ok(w, list)
}

// List is the staff view over every order. Filters: status, client, limit, offset.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := orderFilter(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	list, err := h.orders.List(r.Context(), f)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	ok(w, list)
}

func orderFilter(r *http.Request) (services.OrderFilter, error) {
	q := r.URL.Query()
	f := services.OrderFilter{Status: models.OrderStatus(q.Get("status"))}
	if f.Status != "" && !f.Status.Valid() {
		return f, errors.New("invalid status")
	}
	var err error
	if f.ClientID, err = httpx.QueryID(r, "client"); err != nil {
		return f, err
	}
	if f.Limit, err = queryInt(q.Get("limit")); err != nil {
		return f, errors.New("invalid limit")
	}
	if f.Offset, err = queryInt(q.Get("offset")); err != nil {
		return f, errors.New("invalid offset")
	}
	return f, nil
}

func queryInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New("invalid number")
	}
	return n, nil
}

// Get returns one order to its owner or to staff.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}
	o, err := h.orders.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.gate.Authorize(r.Context(), gate.ActionView, resourceOrder, o); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	ok(w, o)
}

func (h *OrderHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}
	var in statusRequest
	if err := httpx.Decode(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	o, err := h.orders.ChangeStatus(r.Context(), id, in.Status, in.Comment)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	ok(w, o)
}

func (h *OrderHandler) SetPrepayment(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}
	var in prepaymentRequest
	if err := httpx.Decode(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	o, err := h.orders.SetPrepayment(r.Context(), id, in.Amount)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	ok(w, o)
}

type itemTypeRequest struct {
	ItemTypeID *uint `json:"item_type_id"`
}

// SetLineItemType tags one order line with a garment type.
func (h *OrderHandler) SetLineItemType(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}
	var in itemTypeRequest
	if err := httpx.Decode(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	line, err := h.orders.SetLineItemType(r.Context(), id, in.ItemTypeID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	ok(w, line)
}

// Summary feeds the manager dashboard.
func (h *OrderHandler) Summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.orders.Summary(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	ok(w, s)
}
