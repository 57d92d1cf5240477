package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/pureclean/internal/metrics"
	"github.com/diewo77/pureclean/internal/models"
	"github.com/diewo77/pureclean/validation"
)

// SupplyInput describes a delivery of material.
type SupplyInput struct {
	MaterialID    uint            `json:"material_id"`
	SupplierID    uint            `json:"supplier_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Date          *time.Time      `json:"date,omitempty"`
	InvoiceNumber string          `json:"invoice_number,omitempty"`
}

func (in SupplyInput) validate() validation.Violations {
	v := validation.Violations{}
	if in.MaterialID == 0 {
		v.Add("material_id", "required")
	}
	if in.SupplierID == 0 {
		v.Add("supplier_id", "required")
	}
	validation.PositiveDecimal("quantity", in.Quantity, v)
	validation.NonNegativeDecimal("unit_price", in.UnitPrice, v)
	validation.MaxLen("invoice_number", in.InvoiceNumber, 50, v)
	return v
}

// UsageInput describes material consumed on an order line.
type UsageInput struct {
	MaterialID  uint            `json:"material_id"`
	OrderLineID uint            `json:"order_line_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	Date        *time.Time      `json:"date,omitempty"`
}

func (in UsageInput) validate() validation.Violations {
	v := validation.Violations{}
	if in.MaterialID == 0 {
		v.Add("material_id", "required")
	}
	if in.OrderLineID == 0 {
		v.Add("order_line_id", "required")
	}
	validation.PositiveDecimal("quantity", in.Quantity, v)
	return v
}

// InventoryService keeps Material.QuantityInStock in step with supply and
// usage records. Every stock change is one conditional UPDATE, so the stock
// never drops below zero even under concurrent requests.
type InventoryService struct {
	db  *gorm.DB
	now Clock
}

func NewInventoryService(db *gorm.DB) *InventoryService {
	return &InventoryService{db: db, now: time.Now}
}

// SetClock overrides the time source.
func (s *InventoryService) SetClock(c Clock) { s.now = c }

// RecordSupply stores a delivery and adds its quantity to stock.
func (s *InventoryService) RecordSupply(ctx context.Context, in SupplyInput) (*models.MaterialSupply, error) {
	var out *models.MaterialSupply
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		out, err = s.recordSupply(tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *InventoryService) recordSupply(tx *gorm.DB, in SupplyInput) (*models.MaterialSupply, error) {
	if v := in.validate(); !v.Empty() {
		return nil, invalid(v)
	}
	if err := lookup(tx.Select("id").First(&models.Material{}, in.MaterialID).Error, "material"); err != nil {
		return nil, err
	}
	if err := lookup(tx.Select("id").First(&models.Supplier{}, in.SupplierID).Error, "supplier"); err != nil {
		return nil, err
	}
	sup := models.MaterialSupply{
		MaterialID:    in.MaterialID,
		SupplierID:    in.SupplierID,
		Quantity:      in.Quantity,
		UnitPrice:     in.UnitPrice,
		SupplyDate:    s.dateOrNow(in.Date),
		InvoiceNumber: strings.TrimSpace(in.InvoiceNumber),
	}
	if err := tx.Create(&sup).Error; err != nil {
		return nil, fmt.Errorf("create supply: %w", err)
	}
	if err := addStock(tx, in.MaterialID, in.Quantity); err != nil {
		return nil, err
	}
	return &sup, nil
}

// UpdateSupply edits a delivery, applying only the quantity difference to
// stock. Lowering a delivery that was already consumed fails with
// InsufficientStock.
func (s *InventoryService) UpdateSupply(ctx context.Context, id uint, in SupplyInput) (*models.MaterialSupply, error) {
	var sup models.MaterialSupply
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lookup(tx.First(&sup, id).Error, "supply"); err != nil {
			return err
		}
		if in.MaterialID == 0 {
			in.MaterialID = sup.MaterialID
		}
		if v := in.validate(); !v.Empty() {
			return invalid(v)
		}
		if in.MaterialID != sup.MaterialID {
			return invalidField("material_id", "immutable")
		}
		if err := lookup(tx.Select("id").First(&models.Supplier{}, in.SupplierID).Error, "supplier"); err != nil {
			return err
		}
		if err := applyDelta(tx, sup.MaterialID, in.Quantity.Sub(sup.Quantity)); err != nil {
			return err
		}
		sup.SupplierID = in.SupplierID
		sup.Quantity = in.Quantity
		sup.UnitPrice = in.UnitPrice
		sup.InvoiceNumber = strings.TrimSpace(in.InvoiceNumber)
		if in.Date != nil {
			sup.SupplyDate = *in.Date
		}
		return tx.Save(&sup).Error
	})
	if err != nil {
		countRejection("update_supply", err)
		return nil, err
	}
	return &sup, nil
}

// DeleteSupply removes a delivery and takes its quantity back out of stock.
func (s *InventoryService) DeleteSupply(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sup models.MaterialSupply
		if err := lookup(tx.First(&sup, id).Error, "supply"); err != nil {
			return err
		}
		if err := takeStock(tx, sup.MaterialID, sup.Quantity); err != nil {
			return err
		}
		return tx.Delete(&sup).Error
	})
	countRejection("delete_supply", err)
	return err
}

// RecordUsage takes quantity out of stock for an open order's line.
func (s *InventoryService) RecordUsage(ctx context.Context, in UsageInput) (*models.MaterialUsage, error) {
	if v := in.validate(); !v.Empty() {
		return nil, invalid(v)
	}
	var use models.MaterialUsage
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lookup(tx.Select("id").First(&models.Material{}, in.MaterialID).Error, "material"); err != nil {
			return err
		}
		var line models.OrderLine
		if err := lookup(tx.Preload("Order").First(&line, in.OrderLineID).Error, "order line"); err != nil {
			return err
		}
		if line.Order != nil && line.Order.Status.IsTerminal() {
			return invalidField("order_line_id", "order_closed")
		}
		if err := takeStock(tx, in.MaterialID, in.Quantity); err != nil {
			return err
		}
		use = models.MaterialUsage{
			MaterialID:  in.MaterialID,
			OrderLineID: in.OrderLineID,
			Quantity:    in.Quantity,
			UsageDate:   s.dateOrNow(in.Date),
		}
		return tx.Create(&use).Error
	})
	if err != nil {
		countRejection("record_usage", err)
		return nil, err
	}
	return &use, nil
}

// UpdateUsage edits a usage record. The old quantity counts as available, so
// stock changes by exactly old-new.
func (s *InventoryService) UpdateUsage(ctx context.Context, id uint, in UsageInput) (*models.MaterialUsage, error) {
	var use models.MaterialUsage
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lookup(tx.First(&use, id).Error, "usage"); err != nil {
			return err
		}
		if in.MaterialID == 0 {
			in.MaterialID = use.MaterialID
		}
		if in.OrderLineID == 0 {
			in.OrderLineID = use.OrderLineID
		}
		if v := in.validate(); !v.Empty() {
			return invalid(v)
		}
		if in.MaterialID != use.MaterialID {
			return invalidField("material_id", "immutable")
		}
		if in.OrderLineID != use.OrderLineID {
			return invalidField("order_line_id", "immutable")
		}
		// usage grows when new > old, which is a stock decrement
		err := applyDelta(tx, use.MaterialID, use.Quantity.Sub(in.Quantity))
		var e *Error
		if errors.As(err, &e) && e.Kind == KindInsufficientStock {
			return insufficientStock(e.Available.Add(use.Quantity))
		}
		if err != nil {
			return err
		}
		use.Quantity = in.Quantity
		if in.Date != nil {
			use.UsageDate = *in.Date
		}
		return tx.Save(&use).Error
	})
	if err != nil {
		countRejection("update_usage", err)
		return nil, err
	}
	return &use, nil
}

// DeleteUsage removes a usage record and returns its quantity to stock.
func (s *InventoryService) DeleteUsage(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var use models.MaterialUsage
		if err := lookup(tx.First(&use, id).Error, "usage"); err != nil {
			return err
		}
		if err := addStock(tx, use.MaterialID, use.Quantity); err != nil {
			return err
		}
		return tx.Delete(&use).Error
	})
}

// ListSupplies returns deliveries, newest first. A zero materialID lists all.
func (s *InventoryService) ListSupplies(ctx context.Context, materialID uint) ([]models.MaterialSupply, error) {
	db := s.db.WithContext(ctx).Preload("Material").Preload("Supplier").Order("supply_date DESC, id DESC")
	if materialID != 0 {
		db = db.Where("material_id = ?", materialID)
	}
	var out []models.MaterialSupply
	if err := db.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list supplies: %w", err)
	}
	return out, nil
}

// ListUsages returns usage records, newest first. A zero materialID lists all.
func (s *InventoryService) ListUsages(ctx context.Context, materialID uint) ([]models.MaterialUsage, error) {
	db := s.db.WithContext(ctx).Preload("Material").Preload("OrderLine").Order("usage_date DESC, id DESC")
	if materialID != 0 {
		db = db.Where("material_id = ?", materialID)
	}
	var out []models.MaterialUsage
	if err := db.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list usages: %w", err)
	}
	return out, nil
}

func (s *InventoryService) dateOrNow(d *time.Time) time.Time {
	if d != nil && !d.IsZero() {
		return *d
	}
	return s.now()
}

func applyDelta(tx *gorm.DB, materialID uint, delta decimal.Decimal) error {
	switch {
	case delta.IsPositive():
		return addStock(tx, materialID, delta)
	case delta.IsNegative():
		return takeStock(tx, materialID, delta.Neg())
	}
	return nil
}

// addStock rounds to the column scale so float arithmetic on sqlite does not drift.
func addStock(tx *gorm.DB, materialID uint, qty decimal.Decimal) error {
	res := tx.Model(&models.Material{}).Where("id = ?", materialID).
		Update("quantity_in_stock", gorm.Expr("ROUND(quantity_in_stock + ?, 3)", qty))
	if res.Error != nil {
		return fmt.Errorf("add stock: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("material")
	}
	return nil
}

// takeStock decrements stock only if enough is on hand.
func takeStock(tx *gorm.DB, materialID uint, qty decimal.Decimal) error {
	res := tx.Model(&models.Material{}).Where("id = ? AND quantity_in_stock >= ?", materialID, qty).
		Update("quantity_in_stock", gorm.Expr("ROUND(quantity_in_stock - ?, 3)", qty))
	if res.Error != nil {
		return fmt.Errorf("take stock: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}
	var m models.Material
	if err := lookup(tx.Select("id", "quantity_in_stock").First(&m, materialID).Error, "material"); err != nil {
		return err
	}
	return insufficientStock(m.QuantityInStock)
}

func countRejection(op string, err error) {
	if KindOf(err) == KindInsufficientStock {
		metrics.StockRejections.WithLabelValues(op).Inc()
	}
}
