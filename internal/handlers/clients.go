package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/diewo77/pureclean/httpx"
	"github.com/diewo77/pureclean/internal/services"
)

type ClientHandler struct {
	clients *services.ClientService
	log     *zap.Logger
}

func NewClientHandler(clients *services.ClientService, log *zap.Logger) *ClientHandler {
	return &ClientHandler{clients: clients, log: log}
}

// List accepts ?q= to search by name, phone or email.
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.clients.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	ok(w, list)
}

func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}
	c, err := h.clients.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	ok(w, c)
}

func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.ClientInput
	if err := httpx.Decode(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	c, err := h.clients.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	created(w, c)
}

func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}
	var in services.ClientInput
	if err := httpx.Decode(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	c, err := h.clients.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	ok(w, c)
}
