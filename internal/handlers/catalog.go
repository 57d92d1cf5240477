package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/diewo77/pureclean/httpx"
	"github.com/diewo77/pureclean/internal/models"
	"github.com/diewo77/pureclean/internal/services"
)

type CatalogHandler struct {
	catalog *services.CatalogService
	log     *zap.Logger
}

func NewCatalogHandler(catalog *services.CatalogService, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, log: log}
}

// serviceView adds the price the client pays today to a catalog entry.
type serviceView struct {
	models.Service
	FinalPrice  decimal.Decimal `json:"final_price"`
	HasDiscount bool            `json:"has_discount"`
}

func viewOf(s models.Service) serviceView {
	return serviceView{Service: s, FinalPrice: s.FinalPrice(), HasDiscount: s.HasDiscount()}
}

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	ok(w, cats)
}

func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var in services.CategoryInput
	if err := httpx.Decode(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	c, err := h.catalog.CreateCategory(r.Context(), in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	created(w, c)
}

func (h *CatalogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}
	var in services.CategoryInput
	if err := httpx.Decode(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	c, err := h.catalog.UpdateCategory(r.Context(), id, in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	ok(w, c)
}

func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}
	if err := h.catalog.DeleteCategory(r.Context(), id); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	noContent(w)
}

// ListServices returns the live catalog, optionally narrowed by ?category=.
func (h *CatalogHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	categoryID, err := httpx.QueryID(r, "category")
	if err != nil {
		badRequest(w, err)
		return
	}
	list, err := h.catalog.ListServices(r.Context(), categoryID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	out := make([]serviceView, 0, len(list))
	for _, s := range list {
		out = append(out, viewOf(s))
	}
	ok(w, out)
}

func (h *CatalogHandler) GetService(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}
	s, err := h.catalog.GetService(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	ok(w, viewOf(*s))
}

func (h *CatalogHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	var in services.ServiceInput
	if err := httpx.Decode(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	s, err := h.catalog.CreateService(r.Context(), in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	created(w, viewOf(*s))
}

func (h *CatalogHandler) UpdateService(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}
	var in services.ServiceInput
	if err := httpx.Decode(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	s, err := h.catalog.UpdateService(r.Context(), id, in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	ok(w, viewOf(*s))
}

func (h *CatalogHandler) DeleteService(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}
	if err := h.catalog.DeleteService(r.Context(), id); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	noContent(w)
}

// ListItemTypes returns garment types, optionally filtered by ?q=.
func (h *CatalogHandler) ListItemTypes(w http.ResponseWriter, r *http.Request) {
	list, err := h.catalog.ListItemTypes(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	ok(w, list)
}

func (h *CatalogHandler) GetItemType(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}
	it, err := h.catalog.GetItemType(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	ok(w, it)
}

func (h *CatalogHandler) CreateItemType(w http.ResponseWriter, r *http.Request) {
	var in services.ItemTypeInput
	if err := httpx.Decode(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	it, err := h.catalog.CreateItemType(r.Context(), in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	created(w, it)
}

func (h *CatalogHandler) UpdateItemType(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}
	var in services.ItemTypeInput
	if err := httpx.Decode(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	it, err := h.catalog.UpdateItemType(r.Context(), id, in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	ok(w, it)
}

func (h *CatalogHandler) DeleteItemType(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}
	if err := h.catalog.DeleteItemType(r.Context(), id); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	noContent(w)
}

func (h *CatalogHandler) ItemTypeStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.catalog.ItemTypeStats(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	ok(w, st)
}
