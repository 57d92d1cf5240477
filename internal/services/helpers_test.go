package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diewo77/pureclean/auth"
	"github.com/diewo77/pureclean/internal/db"
	"github.com/diewo77/pureclean/internal/models"
)

var testNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	conn, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(conn))
	return conn
}

// shop bundles every service over one test database.
type shop struct {
	db        *gorm.DB
	carts     *CartService
	clients   *ClientService
	orders    *OrderService
	inventory *InventoryService
	materials *MaterialService
	catalog   *CatalogService
	reviews   *ReviewService
	users     *UserService
}

func newShop(t *testing.T) *shop {
	conn := setupTestDB(t)
	s := &shop{
		db:        conn,
		carts:     NewCartService(conn),
		clients:   NewClientService(conn),
		inventory: NewInventoryService(conn),
		materials: NewMaterialService(conn),
		catalog:   NewCatalogService(conn),
		reviews:   NewReviewService(conn),
		users:     NewUserService(conn),
	}
	s.orders = NewOrderService(conn, s.clients)
	s.carts.SetClock(fixedClock)
	s.clients.SetClock(fixedClock)
	s.orders.SetClock(fixedClock)
	s.inventory.SetClock(fixedClock)
	s.users.SetClock(fixedClock)
	s.users.SetCost(bcrypt.MinCost)
	return s
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func intPtr(v int) *int { return &v }

func (s *shop) category(t *testing.T, name string) *models.ServiceCategory {
	t.Helper()
	c, err := s.catalog.CreateCategory(context.Background(), CategoryInput{Name: name})
	require.NoError(t, err)
	return c
}

func (s *shop) service(t *testing.T, name, price string, discount *int) *models.Service {
	t.Helper()
	var cat models.ServiceCategory
	if err := s.db.Where("name = ?", "Test").First(&cat).Error; err != nil {
		cat = *s.category(t, "Test")
	}
	svc, err := s.catalog.CreateService(context.Background(), ServiceInput{
		Name: name, CategoryID: cat.ID, BasePrice: dec(price), DiscountPercent: discount, ExecutionTimeHours: 24,
	})
	require.NoError(t, err)
	return svc
}

// customer registers an account and returns its session.
func (s *shop) customer(t *testing.T, email, phone string) auth.Session {
	t.Helper()
	u, err := s.users.Register(context.Background(), RegisterInput{
		Email: email, Phone: phone, FirstName: "Ivan", LastName: "Petrov", Password: "password123",
	})
	require.NoError(t, err)
	sess, ok := s.users.LoadSession(context.Background(), u.ID)
	require.True(t, ok)
	require.NotNil(t, sess.ClientID)
	return sess
}

func (s *shop) material(t *testing.T, name, stock string) *models.Material {
	t.Helper()
	m, err := s.materials.CreateMaterial(context.Background(), MaterialInput{Name: name, Unit: "l", InitialStock: dec(stock)})
	require.NoError(t, err)
	return m
}

func (s *shop) supplier(t *testing.T, name string) *models.Supplier {
	t.Helper()
	sup, err := s.materials.CreateSupplier(context.Background(), SupplierInput{Name: name})
	require.NoError(t, err)
	return sup
}

// placedOrder checks out one unit of a fresh service for a fresh customer.
func (s *shop) placedOrder(t *testing.T) (*models.Order, auth.Session) {
	t.Helper()
	sess := s.customer(t, "order@example.com", "+7 900 000-00-01")
	svc := s.service(t, "Coat", "1000", nil)
	_, err := s.carts.AddItem(context.Background(), *sess.ClientID, svc.ID, 1)
	require.NoError(t, err)
	o, err := s.orders.Convert(context.Background(), sess, "")
	require.NoError(t, err)
	return o, sess
}

func (s *shop) stock(t *testing.T, materialID uint) decimal.Decimal {
	t.Helper()
	m, err := s.materials.GetMaterial(context.Background(), materialID)
	require.NoError(t, err)
	return m.QuantityInStock
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, KindOf(err), "error: %v", err)
}
