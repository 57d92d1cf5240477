package main

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/pureclean/auth"
	"github.com/diewo77/pureclean/gate"
	"github.com/diewo77/pureclean/httpx"
	"github.com/diewo77/pureclean/internal/metrics"
	"github.com/diewo77/pureclean/internal/policy"
)

// App is the main application handler that sets up all routes.
type App struct {
	mux       *http.ServeMux
	db        *gorm.DB
	routerCfg *RouterConfig
	log       *zap.Logger
	handler   http.Handler
}

// NewApp creates a new application with all routes configured.
func NewApp(db *gorm.DB, routerCfg *RouterConfig, log *zap.Logger) *App {
	app := &App{
		mux:       http.NewServeMux(),
		db:        db,
		routerCfg: routerCfg,
		log:       log,
	}
	app.setupRoutes()
	app.handler = withLogging(log, withRecover(log, auth.Middleware(routerCfg.Users.LoadSession)(app.mux)))
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

// handle registers h under pattern with request metrics.
func (a *App) handle(pattern string, h http.Handler) {
	_, route, _ := strings.Cut(pattern, " ")
	a.mux.Handle(pattern, instrument(route, h))
}

// guard registers a route that needs resource:action on the caller's profile.
func (a *App) guard(pattern, resource string, action gate.Action, h http.HandlerFunc) {
	a.handle(pattern, a.routerCfg.AuthGate.Guard(resource, action, h))
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Infrastructure
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.HandleFunc("GET /health", a.health)
	a.mux.HandleFunc("GET /healthz", a.health)
	a.mux.Handle("GET /metrics", metrics.Handler())

	// ─────────────────────────────────────────────────────────────────────────
	// Accounts
	// ─────────────────────────────────────────────────────────────────────────
	ah := a.routerCfg.AuthHandler
	a.handle("POST /auth/signup", http.HandlerFunc(ah.Signup))
	a.handle("POST /auth/login", http.HandlerFunc(ah.Login))
	a.handle("POST /auth/logout", http.HandlerFunc(ah.Logout))
	a.handle("GET /auth/me", auth.RequireAuth(http.HandlerFunc(ah.Me)))
	a.guard("POST /auth/password", policy.ResourceAccount, gate.ActionUpdate, ah.ChangePassword)

	// ─────────────────────────────────────────────────────────────────────────
	// Catalog (public reads, staff writes)
	// ─────────────────────────────────────────────────────────────────────────
	ch := a.routerCfg.CatalogHandler
	a.guard("GET /categories", policy.ResourceCategory, gate.ActionList, ch.ListCategories)
	a.guard("POST /categories", policy.ResourceCategory, gate.ActionCreate, ch.CreateCategory)
	a.guard("PUT /categories/{id}", policy.ResourceCategory, gate.ActionUpdate, ch.UpdateCategory)
	a.guard("DELETE /categories/{id}", policy.ResourceCategory, gate.ActionDelete, ch.DeleteCategory)
	a.guard("GET /services", policy.ResourceService, gate.ActionList, ch.ListServices)
	a.guard("GET /services/{id}", policy.ResourceService, gate.ActionView, ch.GetService)
	a.guard("POST /services", policy.ResourceService, gate.ActionCreate, ch.CreateService)
	a.guard("PUT /services/{id}", policy.ResourceService, gate.ActionUpdate, ch.UpdateService)
	a.guard("DELETE /services/{id}", policy.ResourceService, gate.ActionDelete, ch.DeleteService)
	a.guard("GET /item-types", policy.ResourceItemType, gate.ActionList, ch.ListItemTypes)
	a.guard("GET /item-types/stats", policy.ResourceItemType, gate.ActionList, ch.ItemTypeStats)
	a.guard("GET /item-types/{id}", policy.ResourceItemType, gate.ActionView, ch.GetItemType)
	a.guard("POST /item-types", policy.ResourceItemType, gate.ActionCreate, ch.CreateItemType)
	a.guard("PUT /item-types/{id}", policy.ResourceItemType, gate.ActionUpdate, ch.UpdateItemType)
	a.guard("DELETE /item-types/{id}", policy.ResourceItemType, gate.ActionDelete, ch.DeleteItemType)

	// ─────────────────────────────────────────────────────────────────────────
	// Cart and checkout
	// ─────────────────────────────────────────────────────────────────────────
	cart := a.routerCfg.CartHandler
	a.guard("GET /cart", policy.ResourceCart, gate.ActionView, cart.View)
	a.guard("DELETE /cart", policy.ResourceCart, gate.ActionDelete, cart.Clear)
	a.guard("POST /cart/items", policy.ResourceCart, gate.ActionCreate, cart.Add)
	a.guard("PATCH /cart/items/{id}", policy.ResourceCart, gate.ActionUpdate, cart.ChangeQuantity)
	a.guard("DELETE /cart/items/{id}", policy.ResourceCart, gate.ActionDelete, cart.Remove)

	oh := a.routerCfg.OrderHandler
	a.guard("POST /orders", policy.ResourceOrder, gate.ActionCreate, oh.Checkout)
	a.guard("GET /orders/mine", policy.ResourceOrder, gate.ActionList, oh.Mine)
	a.guard("GET /orders", policy.ResourceOrder, gate.ActionManage, oh.List)
	a.guard("GET /orders/{id}", policy.ResourceOrder, gate.ActionView, oh.Get)
	a.guard("PATCH /orders/{id}/status", policy.ResourceOrder, gate.ActionManage, oh.ChangeStatus)
	a.guard("PATCH /orders/{id}/prepayment", policy.ResourceOrder, gate.ActionManage, oh.SetPrepayment)
	a.guard("PATCH /order-lines/{id}/item-type", policy.ResourceOrder, gate.ActionManage, oh.SetLineItemType)
	a.guard("GET /reports/summary", policy.ResourceReport, gate.ActionView, oh.Summary)

	// ─────────────────────────────────────────────────────────────────────────
	// Reviews
	// ─────────────────────────────────────────────────────────────────────────
	rh := a.routerCfg.ReviewHandler
	a.guard("GET /reviews", policy.ResourceReview, gate.ActionList, rh.List)
	a.guard("GET /reviews/stats", policy.ResourceReview, gate.ActionList, rh.Stats)
	a.guard("POST /reviews", policy.ResourceReview, gate.ActionCreate, rh.Create)
	a.guard("PATCH /reviews/{id}/hidden", policy.ResourceReview, gate.ActionUpdate, rh.SetHidden)
	a.guard("DELETE /reviews/{id}", policy.ResourceReview, gate.ActionDelete, rh.Delete)

	// ─────────────────────────────────────────────────────────────────────────
	// Back office: clients, materials, suppliers, stock ledger
	// ─────────────────────────────────────────────────────────────────────────
	clh := a.routerCfg.ClientHandler
	a.guard("GET /clients", policy.ResourceClient, gate.ActionList, clh.List)
	a.guard("POST /clients", policy.ResourceClient, gate.ActionCreate, clh.Create)
	a.guard("GET /clients/{id}", policy.ResourceClient, gate.ActionView, clh.Get)
	a.guard("PUT /clients/{id}", policy.ResourceClient, gate.ActionUpdate, clh.Update)

	ih := a.routerCfg.InventoryHandler
	a.guard("GET /materials", policy.ResourceMaterial, gate.ActionList, ih.ListMaterials)
	a.guard("POST /materials", policy.ResourceMaterial, gate.ActionCreate, ih.CreateMaterial)
	a.guard("GET /materials/{id}", policy.ResourceMaterial, gate.ActionView, ih.GetMaterial)
	a.guard("PUT /materials/{id}", policy.ResourceMaterial, gate.ActionUpdate, ih.UpdateMaterial)
	a.guard("DELETE /materials/{id}", policy.ResourceMaterial, gate.ActionDelete, ih.DeleteMaterial)

	a.guard("GET /suppliers", policy.ResourceSupplier, gate.ActionList, ih.ListSuppliers)
	a.guard("POST /suppliers", policy.ResourceSupplier, gate.ActionCreate, ih.CreateSupplier)
	a.guard("PUT /suppliers/{id}", policy.ResourceSupplier, gate.ActionUpdate, ih.UpdateSupplier)
	a.guard("DELETE /suppliers/{id}", policy.ResourceSupplier, gate.ActionDelete, ih.DeleteSupplier)

	a.guard("GET /supplies", policy.ResourceSupply, gate.ActionList, ih.ListSupplies)
	a.guard("POST /supplies", policy.ResourceSupply, gate.ActionCreate, ih.CreateSupply)
	a.guard("POST /supplies/import", policy.ResourceSupply, gate.ActionCreate, ih.ImportSupplies)
	a.guard("PUT /supplies/{id}", policy.ResourceSupply, gate.ActionUpdate, ih.UpdateSupply)
	a.guard("DELETE /supplies/{id}", policy.ResourceSupply, gate.ActionDelete, ih.DeleteSupply)

	a.guard("GET /usages", policy.ResourceUsage, gate.ActionList, ih.ListUsages)
	a.guard("POST /usages", policy.ResourceUsage, gate.ActionCreate, ih.CreateUsage)
	a.guard("PUT /usages/{id}", policy.ResourceUsage, gate.ActionUpdate, ih.UpdateUsage)
	a.guard("DELETE /usages/{id}", policy.ResourceUsage, gate.ActionDelete, ih.DeleteUsage)

	// ─────────────────────────────────────────────────────────────────────────
	// Admin
	// ─────────────────────────────────────────────────────────────────────────
	uh := a.routerCfg.AdminUserHandler
	a.guard("GET /admin/users", policy.ResourceUser, gate.ActionList, uh.List)
	a.guard("PATCH /admin/users/{id}/role", policy.ResourceUser, gate.ActionUpdate, uh.SetRole)
	a.guard("DELETE /admin/users/{id}", policy.ResourceUser, gate.ActionDelete, uh.Delete)
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// health pings the database.
func (a *App) health(w http.ResponseWriter, r *http.Request) {
	if err := a.db.WithContext(r.Context()).Exec("SELECT 1").Error; err != nil {
		a.log.Warn("health check failed", zap.Error(err))
		httpx.JSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Database: "down"})
		return
	}
	httpx.JSON(w, http.StatusOK, healthResponse{Status: "ok", Database: "up"})
}
