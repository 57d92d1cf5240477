package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/diewo77/pureclean/httpx"
	"github.com/diewo77/pureclean/internal/services"
)

const maxImportBytes = 10 << 20

// InventoryHandler covers materials, suppliers and the stock ledger.
type InventoryHandler struct {
	materials *services.MaterialService
	inventory *services.InventoryService
	log       *zap.Logger
}

func NewInventoryHandler(materials *services.MaterialService, inventory *services.InventoryService, log *zap.Logger) *InventoryHandler {
	return &InventoryHandler{materials: materials, inventory: inventory, log: log}
}

type importResponse struct {
	Imported int `json:"imported"`
}

func (h *InventoryHandler) ListMaterials(w http.ResponseWriter, r *http.Request) {
	list, err := h.materials.ListMaterials(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	ok(w, list)
}

func (h *InventoryHandler) GetMaterial(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}
	m, err := h.materials.GetMaterial(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	ok(w, services.MaterialView{Material: *m, Status: m.StockStatus()})
}

func (h *InventoryHandler) CreateMaterial(w http.ResponseWriter, r *http.Request) {
	var in services.MaterialInput
	if err := httpx.Decode(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	m, err := h.materials.CreateMaterial(r.Context(), in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	created(w, m)
}

func (h *InventoryHandler) UpdateMaterial(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}
	var in services.MaterialInput
	if err := httpx.Decode(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	m, err := h.materials.UpdateMaterial(r.Context(), id, in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	ok(w, m)
}

func (h *InventoryHandler) DeleteMaterial(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}
	if err := h.materials.DeleteMaterial(r.Context(), id); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	noContent(w)
}

func (h *InventoryHandler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	list, err := h.materials.ListSuppliers(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	ok(w, list)
}

func (h *InventoryHandler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	var in services.SupplierInput
	if err := httpx.Decode(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	s, err := h.materials.CreateSupplier(r.Context(), in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	created(w, s)
}

func (h *InventoryHandler) UpdateSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}
	var in services.SupplierInput
	if err := httpx.Decode(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	s, err := h.materials.UpdateSupplier(r.Context(), id, in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	ok(w, s)
}

func (h *InventoryHandler) DeleteSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}
	if err := h.materials.DeleteSupplier(r.Context(), id); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	noContent(w)
}

// ListSupplies accepts ?material= to narrow to one material.
func (h *InventoryHandler) ListSupplies(w http.ResponseWriter, r *http.Request) {
	mid, err := httpx.QueryID(r, "material")
	if err != nil {
		badRequest(w, err)
		return
	}
	list, err := h.inventory.ListSupplies(r.Context(), mid)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	ok(w, list)
}

func (h *InventoryHandler) CreateSupply(w http.ResponseWriter, r *http.Request) {
	var in services.SupplyInput
	if err := httpx.Decode(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	s, err := h.inventory.RecordSupply(r.Context(), in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	created(w, s)
}

func (h *InventoryHandler) UpdateSupply(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}
	var in services.SupplyInput
	if err := httpx.Decode(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	s, err := h.inventory.UpdateSupply(r.Context(), id, in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	ok(w, s)
}

func (h *InventoryHandler) DeleteSupply(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}
	if err := h.inventory.DeleteSupply(r.Context(), id); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	noContent(w)
}

// ImportSupplies reads an xlsx workbook from the multipart field "file".
func (h *InventoryHandler) ImportSupplies(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		badRequest(w, err)
		return
	}
	defer file.Close()
	n, err := h.inventory.ImportSupplies(r.Context(), file)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	created(w, importResponse{Imported: n})
}

func (h *InventoryHandler) ListUsages(w http.ResponseWriter, r *http.Request) {
	mid, err := httpx.QueryID(r, "material")
	if err != nil {
		badRequest(w, err)
		return
	}
	list, err := h.inventory.ListUsages(r.Context(), mid)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	ok(w, list)
}

func (h *InventoryHandler) CreateUsage(w http.ResponseWriter, r *http.Request) {
	var in services.UsageInput
	if err := httpx.Decode(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	u, err := h.inventory.RecordUsage(r.Context(), in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	created(w, u)
}

func (h *InventoryHandler) UpdateUsage(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}
	var in services.UsageInput
	if err := httpx.Decode(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	u, err := h.inventory.UpdateUsage(r.Context(), id, in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	ok(w, u)
}

func (h *InventoryHandler) DeleteUsage(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}
	if err := h.inventory.DeleteUsage(r.Context(), id); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	noContent(w)
}
