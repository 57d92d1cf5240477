package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/pureclean/auth"
	"github.com/diewo77/pureclean/internal/metrics"
	"github.com/diewo77/pureclean/internal/models"
	"github.com/diewo77/pureclean/internal/pricing"
)

// DefaultReturnDays is the planned turnaround of a new order.
const DefaultReturnDays = 7

// OrderFilter narrows List. Zero values match everything.
type OrderFilter struct {
	Status   models.OrderStatus
	ClientID uint
	Limit    int
	Offset   int
}

// Summary feeds the manager dashboard.
type Summary struct {
	ByStatus map[models.OrderStatus]int64 `json:"by_status"`
	Revenue  decimal.Decimal              `json:"revenue"`
	Restock  []models.Material            `json:"restock"`
}

// OrderService turns carts into orders and moves orders through their statuses.
type OrderService struct {
	db         *gorm.DB
	clients    *ClientService
	now        Clock
	returnDays int
}

func NewOrderService(db *gorm.DB, clients *ClientService) *OrderService {
	return &OrderService{db: db, clients: clients, now: time.Now, returnDays: DefaultReturnDays}
}

// SetClock overrides the time source.
func (s *OrderService) SetClock(c Clock) { s.now = c }

// SetReturnDays changes the planned turnaround for new orders.
func (s *OrderService) SetReturnDays(days int) {
	if days > 0 {
		s.returnDays = days
	}
}

// Convert turns the caller's cart into an order. Prices are frozen on the
// order lines and the cart is removed, all in one transaction.
func (s *OrderService) Convert(ctx context.Context, sess auth.Session, comment string) (*models.Order, error) {
	client, err := s.clients.ResolveForUser(ctx, sess)
	if err != nil {
		return nil, err
	}

	var order models.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := loadCart(tx, client.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEmptyCart
		}
		if err != nil {
			return fmt.Errorf("load cart: %w", err)
		}
		if len(cart.Lines) == 0 {
			return ErrEmptyCart
		}

		lines := make([]models.OrderLine, 0, len(cart.Lines))
		total := decimal.Zero
		for _, cl := range cart.Lines {
			if cl.Service == nil || cl.Service.DeletedAt.Valid {
				return notFound(fmt.Sprintf("service %d", cl.ServiceID))
			}
			price := cl.Service.FinalPrice()
			total = total.Add(pricing.LineTotal(price, cl.Quantity))
			lines = append(lines, models.OrderLine{ServiceID: cl.ServiceID, Quantity: cl.Quantity, PriceAtOrder: price})
		}

		now := s.now()
		order = models.Order{
			ClientID:          client.ID,
			UserID:            sess.UserID,
			Status:            models.OrderStatusAccepted,
			TotalAmount:       total,
			Prepayment:        decimal.Zero,
			Comment:           trimmedOrNil(comment),
			AcceptanceDate:    now,
			PlannedReturnDate: now.AddDate(0, 0, s.returnDays),
		}
		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		for i := range lines {
			lines[i].OrderID = order.ID
			if err := tx.Create(&lines[i]).Error; err != nil {
				return fmt.Errorf("create order line: %w", err)
			}
		}
		order.Lines = lines
		return deleteCart(tx, cart.ID)
	})
	if err != nil {
		return nil, err
	}
	metrics.OrdersConverted.Inc()
	return &order, nil
}

// ChangeStatus moves an order through its workflow and optionally replaces
// the comment. Setting the current status again only updates the comment.
func (s *OrderService) ChangeStatus(ctx context.Context, orderID uint, status models.OrderStatus, comment *string) (*models.Order, error) {
	if !status.Valid() {
		return nil, invalidField("status", "unknown_status")
	}
	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lookup(tx.First(&order, orderID).Error, "order"); err != nil {
			return err
		}
		if order.Status.IsTerminal() {
			return conflictf(KindInvalidTransition, "order %d is %s", order.ID, order.Status)
		}
		from := order.Status
		if status != from {
			if err := order.Transition(status, s.now()); err != nil {
				return conflictf(KindInvalidTransition, "%s -> %s", from, status)
			}
		}
		if comment != nil {
			order.Comment = trimmedOrNil(*comment)
		}
		return tx.Model(&order).Select("status", "actual_return_date", "comment").Updates(&order).Error
	})
	if err != nil {
		return nil, err
	}
	metrics.StatusChanges.WithLabelValues(string(order.Status)).Inc()
	return &order, nil
}

// SetPrepayment records money taken upfront on an open order.
func (s *OrderService) SetPrepayment(ctx context.Context, orderID uint, amount decimal.Decimal) (*models.Order, error) {
	if amount.IsNegative() {
		return nil, invalidField("prepayment", "must_not_be_negative")
	}
	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lookup(tx.First(&order, orderID).Error, "order"); err != nil {
			return err
		}
		if order.Status.IsTerminal() {
			return conflictf(KindInvalidTransition, "order %d is %s", order.ID, order.Status)
		}
		if amount.GreaterThan(order.TotalAmount) {
			return invalidField("prepayment", "exceeds_total")
		}
		order.Prepayment = amount
		return tx.Model(&order).Update("prepayment", amount).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// SetLineItemType tags an order line with the garment taken in. A nil
// itemTypeID clears the tag.
func (s *OrderService) SetLineItemType(ctx context.Context, lineID uint, itemTypeID *uint) (*models.OrderLine, error) {
	var line models.OrderLine
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lookup(tx.Preload("Order").First(&line, lineID).Error, "order line"); err != nil {
			return err
		}
		if line.Order != nil && line.Order.Status.IsTerminal() {
			return conflictf(KindInvalidTransition, "order %d is %s", line.OrderID, line.Order.Status)
		}
		line.ItemType = nil
		if itemTypeID != nil {
			var it models.ItemType
			if err := lookup(tx.First(&it, *itemTypeID).Error, "item type"); err != nil {
				return err
			}
			line.ItemType = &it
		}
		line.ItemTypeID = itemTypeID
		return tx.Model(&models.OrderLine{}).Where("id = ?", line.ID).Update("item_type_id", itemTypeID).Error
	})
	if err != nil {
		return nil, err
	}
	line.Order = nil
	return &line, nil
}

// Get loads an order with its client and lines.
func (s *OrderService) Get(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	err := s.db.WithContext(ctx).Preload("Client").Preload("Lines").Preload("Lines.Service", unscoped).Preload("Lines.ItemType").First(&o, id).Error
	if err := lookup(err, "order"); err != nil {
		return nil, err
	}
	return &o, nil
}

// ListForClient returns a client's orders, newest first.
func (s *OrderService) ListForClient(ctx context.Context, clientID uint) ([]models.Order, error) {
	return s.List(ctx, OrderFilter{ClientID: clientID})
}

func (s *OrderService) List(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	db := s.db.WithContext(ctx).Preload("Client").Preload("Lines").Order("acceptance_date DESC, id DESC")
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	if f.ClientID != 0 {
		db = db.Where("client_id = ?", f.ClientID)
	}
	if f.Limit > 0 {
		db = db.Limit(f.Limit).Offset(f.Offset)
	}
	var out []models.Order
	if err := db.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return out, nil
}

// Summary counts orders per status, sums delivered revenue and lists the
// materials that need restocking.
func (s *OrderService) Summary(ctx context.Context) (*Summary, error) {
	db := s.db.WithContext(ctx)
	out := &Summary{ByStatus: map[models.OrderStatus]int64{}, Revenue: decimal.Zero, Restock: []models.Material{}}

	var counts []struct {
		Status models.OrderStatus
		N      int64
	}
	if err := db.Model(&models.Order{}).Select("status, COUNT(*) AS n").Group("status").Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}
	for _, c := range counts {
		out.ByStatus[c.Status] = c.N
	}

	var totals []decimal.Decimal
	if err := db.Model(&models.Order{}).Where("status = ?", models.OrderStatusDelivered).Pluck("total_amount", &totals).Error; err != nil {
		return nil, fmt.Errorf("sum revenue: %w", err)
	}
	for _, t := range totals {
		out.Revenue = out.Revenue.Add(t)
	}

	var mats []models.Material
	if err := db.Order("name").Find(&mats).Error; err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	for _, m := range mats {
		if st := m.StockStatus(); st == models.StockOutOfStock || st == models.StockNeedsOrder {
			out.Restock = append(out.Restock, m)
		}
	}
	return out, nil
}

func trimmedOrNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
