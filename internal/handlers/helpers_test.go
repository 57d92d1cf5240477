package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diewo77/pureclean/auth"
	"github.com/diewo77/pureclean/internal/db"
	"github.com/diewo77/pureclean/internal/models"
	"github.com/diewo77/pureclean/internal/policy"
	"github.com/diewo77/pureclean/internal/services"
)

type testEnv struct {
	db        *gorm.DB
	users     *services.UserService
	clients   *services.ClientService
	carts     *services.CartService
	orders    *services.OrderService
	catalog   *services.CatalogService
	materials *services.MaterialService
	inventory *services.InventoryService
	reviews   *services.ReviewService
	gate      *policy.AuthGate
	log       *zap.Logger
}

func newEnv(t *testing.T) *testEnv {
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

	e := &testEnv{
		db:        conn,
		users:     services.NewUserService(conn),
		clients:   services.NewClientService(conn),
		carts:     services.NewCartService(conn),
		catalog:   services.NewCatalogService(conn),
		materials: services.NewMaterialService(conn),
		inventory: services.NewInventoryService(conn),
		reviews:   services.NewReviewService(conn),
		gate:      policy.NewAuthGate(),
		log:       zap.NewNop(),
	}
	e.orders = services.NewOrderService(conn, e.clients)
	e.users.SetCost(bcrypt.MinCost)
	return e
}

func (e *testEnv) account(t *testing.T, email, phone string, role models.Role) auth.Session {
	t.Helper()
	ctx := context.Background()
	u, err := e.users.Register(ctx, services.RegisterInput{
		Email: email, Phone: phone, FirstName: "Anna", LastName: "Smirnova", Password: "password123",
	})
	require.NoError(t, err)
	if role != models.RoleUser {
		_, err = e.users.SetRole(ctx, u.ID, role)
		require.NoError(t, err)
	}
	sess, found := e.users.LoadSession(ctx, u.ID)
	require.True(t, found)
	return sess
}

func (e *testEnv) service(t *testing.T, name, price string) *models.Service {
	t.Helper()
	ctx := context.Background()
	var cat models.ServiceCategory
	if err := e.db.Where("name = ?", "Test").First(&cat).Error; err != nil {
		c, err := e.catalog.CreateCategory(ctx, services.CategoryInput{Name: "Test"})
		require.NoError(t, err)
		cat = *c
	}
	svc, err := e.catalog.CreateService(ctx, services.ServiceInput{
		Name: name, CategoryID: cat.ID, BasePrice: decimal.RequireFromString(price), ExecutionTimeHours: 24,
	})
	require.NoError(t, err)
	return svc
}

// request builds a JSON request carrying sess. Path values are set from
// pairs of name, value.
func request(t *testing.T, method, target string, body any, sess auth.Session, path ...string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, target, &buf)
	if body == nil {
		r.ContentLength = 0
	}
	r.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(path); i += 2 {
		r.SetPathValue(path[i], path[i+1])
	}
	return r.WithContext(auth.WithSession(r.Context(), sess))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

type errorBody struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}
