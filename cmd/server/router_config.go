package main

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/pureclean/internal/config"
	"github.com/diewo77/pureclean/internal/handlers"
	"github.com/diewo77/pureclean/internal/policy"
	"github.com/diewo77/pureclean/internal/services"
)

// RouterConfig holds the services, handlers and gate shared by all routes.
type RouterConfig struct {
	AuthGate *policy.AuthGate

	Users   *services.UserService
	Clients *services.ClientService
	Orders  *services.OrderService

	AuthHandler      *handlers.AuthHandler
	CatalogHandler   *handlers.CatalogHandler
	CartHandler      *handlers.CartHandler
	OrderHandler     *handlers.OrderHandler
	ClientHandler    *handlers.ClientHandler
	InventoryHandler *handlers.InventoryHandler
	ReviewHandler    *handlers.ReviewHandler
	AdminUserHandler *handlers.AdminUserHandler
}

// NewRouterConfig wires every service over conn.
func NewRouterConfig(conn *gorm.DB, cfg config.AppConfig, log *zap.Logger) *RouterConfig {
	ag := policy.NewAuthGate()

	users := services.NewUserService(conn)
	clients := services.NewClientService(conn)
	carts := services.NewCartService(conn)
	orders := services.NewOrderService(conn, clients)
	orders.SetReturnDays(cfg.PlannedReturnDays)
	catalog := services.NewCatalogService(conn)
	materials := services.NewMaterialService(conn)
	inventory := services.NewInventoryService(conn)
	reviews := services.NewReviewService(conn)

	return &RouterConfig{
		AuthGate: ag,
		Users:    users,
		Clients:  clients,
		Orders:   orders,

		AuthHandler:      handlers.NewAuthHandler(users, log),
		CatalogHandler:   handlers.NewCatalogHandler(catalog, log),
		CartHandler:      handlers.NewCartHandler(carts, clients, ag, log),
		OrderHandler:     handlers.NewOrderHandler(orders, clients, ag, log),
		ClientHandler:    handlers.NewClientHandler(clients, log),
		InventoryHandler: handlers.NewInventoryHandler(materials, inventory, log),
		ReviewHandler:    handlers.NewReviewHandler(reviews, clients, ag, log),
		AdminUserHandler: handlers.NewAdminUserHandler(users, log),
	}
}
