package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/pureclean/internal/models"
	"github.com/diewo77/pureclean/internal/pricing"
)

// Totals summarises a cart.
type Totals struct {
	ItemCount int             `json:"item_count"`
	Amount    decimal.Decimal `json:"amount"`
}

// CartItem is a cart line priced at the current catalog price.
type CartItem struct {
	LineID    uint            `json:"line_id"`
	ServiceID uint            `json:"service_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
	// Available is false once the service was removed from the catalog.
	Available bool `json:"available"`
}

// CartView is what the client sees on the cart page.
type CartView struct {
	CartID      uint       `json:"cart_id,omitempty"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
	Items       []CartItem `json:"items"`
	Totals      Totals     `json:"totals"`
}

// CartService keeps one cart per client and prices it from the live catalog.
type CartService struct {
	db  *gorm.DB
	now Clock
}

func NewCartService(db *gorm.DB) *CartService {
	return &CartService{db: db, now: time.Now}
}

// SetClock overrides the time source.
func (s *CartService) SetClock(c Clock) { s.now = c }

// AddItem puts qty of a service in the client's cart, creating the cart on
// first use and merging with an existing line for the same service.
func (s *CartService) AddItem(ctx context.Context, clientID, serviceID uint, qty int) (*models.CartLine, error) {
	if qty < 1 {
		return nil, invalidField("quantity", "must_be_positive")
	}
	var line models.CartLine
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lookup(tx.Select("id").First(&models.Client{}, clientID).Error, "client"); err != nil {
			return err
		}
		if err := lookup(tx.Select("id").First(&models.Service{}, serviceID).Error, "service"); err != nil {
			return err
		}
		now := s.now()
		cart, err := cartFor(tx, clientID, now)
		if err != nil {
			return err
		}
		err = tx.Where("cart_id = ? AND service_id = ?", cart.ID, serviceID).First(&line).Error
		switch {
		case err == nil:
			line.Quantity += qty
			line.AddedAt = now
			if err := tx.Model(&line).Updates(map[string]any{"quantity": line.Quantity, "added_at": now}).Error; err != nil {
				return fmt.Errorf("update cart line: %w", err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			line = models.CartLine{CartID: cart.ID, ServiceID: serviceID, Quantity: qty, AddedAt: now}
			if err := tx.Create(&line).Error; err != nil {
				return fmt.Errorf("create cart line: %w", err)
			}
		default:
			return fmt.Errorf("load cart line: %w", err)
		}
		return touchCart(tx, cart.ID, now)
	})
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// ChangeQuantity adds delta to a line. A result below 1 removes the line,
// and the cart with it when nothing is left. The returned line is nil when
// it was removed.
func (s *CartService) ChangeQuantity(ctx context.Context, lineID uint, delta int) (*models.CartLine, error) {
	var out *models.CartLine
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var line models.CartLine
		if err := lookup(tx.First(&line, lineID).Error, "cart line"); err != nil {
			return err
		}
		now := s.now()
		qty := line.Quantity + delta
		if qty < 1 {
			return removeLine(tx, &line, now)
		}
		if err := tx.Model(&line).Updates(map[string]any{"quantity": qty, "added_at": now}).Error; err != nil {
			return fmt.Errorf("update cart line: %w", err)
		}
		line.Quantity = qty
		line.AddedAt = now
		out = &line
		return touchCart(tx, line.CartID, now)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RemoveItem deletes a line, and the cart if it was the last one.
func (s *CartService) RemoveItem(ctx context.Context, lineID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var line models.CartLine
		if err := lookup(tx.First(&line, lineID).Error, "cart line"); err != nil {
			return err
		}
		return removeLine(tx, &line, s.now())
	})
}

// Clear drops the client's cart. Clearing a client without a cart is a no-op.
func (s *CartService) Clear(ctx context.Context, clientID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart models.Cart
		err := tx.Where("client_id = ?", clientID).First(&cart).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load cart: %w", err)
		}
		return deleteCart(tx, cart.ID)
	})
}

// Totals counts items and sums their current final prices.
func (s *CartService) Totals(ctx context.Context, clientID uint) (Totals, error) {
	v, err := s.View(ctx, clientID)
	if err != nil {
		return Totals{}, err
	}
	return v.Totals, nil
}

// View returns the priced cart. A client without a cart gets an empty view.
func (s *CartService) View(ctx context.Context, clientID uint) (*CartView, error) {
	view := &CartView{Items: []CartItem{}, Totals: Totals{Amount: decimal.Zero}}
	cart, err := loadCart(s.db.WithContext(ctx), clientID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return view, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	view.CartID = cart.ID
	view.LastUpdated = &cart.LastUpdated
	for _, l := range cart.Lines {
		item := CartItem{LineID: l.ID, ServiceID: l.ServiceID, Quantity: l.Quantity}
		if l.Service != nil {
			item.Name = l.Service.Name
			item.Available = !l.Service.DeletedAt.Valid
		}
		if item.Available {
			item.UnitPrice = l.Service.FinalPrice()
			item.LineTotal = pricing.LineTotal(item.UnitPrice, l.Quantity)
			view.Totals.ItemCount += l.Quantity
			view.Totals.Amount = view.Totals.Amount.Add(item.LineTotal)
		}
		view.Items = append(view.Items, item)
	}
	return view, nil
}

// Line returns a cart line with its cart, for ownership checks.
func (s *CartService) Line(ctx context.Context, lineID uint) (*models.CartLine, error) {
	var line models.CartLine
	if err := lookup(s.db.WithContext(ctx).Preload("Cart").First(&line, lineID).Error, "cart line"); err != nil {
		return nil, err
	}
	return &line, nil
}

// loadCart fetches the client's cart with lines and services, removed
// services included.
func loadCart(db *gorm.DB, clientID uint) (*models.Cart, error) {
	var cart models.Cart
	err := db.Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Lines.Service", unscoped).
		Where("client_id = ?", clientID).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func cartFor(tx *gorm.DB, clientID uint, now time.Time) (*models.Cart, error) {
	var cart models.Cart
	err := tx.Where("client_id = ?", clientID).First(&cart).Error
	if err == nil {
		return &cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	cart = models.Cart{ClientID: clientID, CreatedAt: now, LastUpdated: now}
	if err := tx.Create(&cart).Error; err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}
	return &cart, nil
}

func touchCart(tx *gorm.DB, cartID uint, now time.Time) error {
	if err := tx.Model(&models.Cart{}).Where("id = ?", cartID).Update("last_updated", now).Error; err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}
	return nil
}

func removeLine(tx *gorm.DB, line *models.CartLine, now time.Time) error {
	if err := tx.Delete(&models.CartLine{}, line.ID).Error; err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}
	var left int64
	if err := tx.Model(&models.CartLine{}).Where("cart_id = ?", line.CartID).Count(&left).Error; err != nil {
		return fmt.Errorf("count cart lines: %w", err)
	}
	if left == 0 {
		return deleteCart(tx, line.CartID)
	}
	return touchCart(tx, line.CartID, now)
}

func deleteCart(tx *gorm.DB, cartID uint) error {
	if err := tx.Where("cart_id = ?", cartID).Delete(&models.CartLine{}).Error; err != nil {
		return fmt.Errorf("delete cart lines: %w", err)
	}
	if err := tx.Delete(&models.Cart{}, cartID).Error; err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}
