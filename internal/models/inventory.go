package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultMinQuantity applies to materials created without a threshold.
var DefaultMinQuantity = decimal.NewFromInt(10)

// StockStatus is the restock signal shown next to a material.
type StockStatus string

const (
	StockOutOfStock StockStatus = "out_of_stock"
	StockNeedsOrder StockStatus = "needs_order"
	StockLow        StockStatus = "low"
	StockSufficient StockStatus = "sufficient"
)

// Material is a consumable (solvent, detergent, hangers...) tracked in stock.
type Material struct {
	ID              uint                `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	Name            string              `gorm:"size:200;uniqueIndex;not null" json:"name"`
	Unit            string              `gorm:"size:20;not null" json:"unit"`
	QuantityInStock decimal.Decimal     `gorm:"type:decimal(12,3);not null;default:0;check:chk_materials_stock,quantity_in_stock >= 0" json:"quantity_in_stock"`
	MinQuantity     decimal.NullDecimal `gorm:"type:decimal(12,3)" json:"min_quantity"`
}

// MinThreshold returns MinQuantity or DefaultMinQuantity when unset.
func (m *Material) MinThreshold() decimal.Decimal {
	if m.MinQuantity.Valid {
		return m.MinQuantity.Decimal
	}
	return DefaultMinQuantity
}

// StockStatus classifies the current quantity against the threshold.
func (m *Material) StockStatus() StockStatus {
	threshold := m.MinThreshold()
	switch {
	case !m.QuantityInStock.IsPositive():
		return StockOutOfStock
	case m.QuantityInStock.LessThan(threshold):
		return StockNeedsOrder
	case m.QuantityInStock.LessThan(threshold.Mul(decimal.NewFromInt(2))):
		return StockLow
	}
	return StockSufficient
}

// Supplier delivers materials.
type Supplier struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Name          string    `gorm:"size:200;not null" json:"name"`
	ContactPerson string    `gorm:"size:200" json:"contact_person,omitempty"`
	Phone         string    `gorm:"size:32" json:"phone,omitempty"`
	Email         string    `gorm:"size:255" json:"email,omitempty"`
}

// MaterialSupply adds stock.
type MaterialSupply struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	MaterialID    uint            `gorm:"index;not null" json:"material_id"`
	Material      *Material       `gorm:"foreignKey:MaterialID" json:"material,omitempty"`
	SupplierID    uint            `gorm:"index;not null" json:"supplier_id"`
	Supplier      *Supplier       `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	Quantity      decimal.Decimal `gorm:"type:decimal(12,3);not null" json:"quantity"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	SupplyDate    time.Time       `gorm:"not null" json:"supply_date"`
	InvoiceNumber string          `gorm:"size:50" json:"invoice_number,omitempty"`
}

// Cost is quantity x unit price.
func (s *MaterialSupply) Cost() decimal.Decimal {
	return s.Quantity.Mul(s.UnitPrice).Round(2)
}

// MaterialUsage removes stock consumed while servicing an order line.
type MaterialUsage struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	MaterialID  uint            `gorm:"index;not null" json:"material_id"`
	Material    *Material       `gorm:"foreignKey:MaterialID" json:"material,omitempty"`
	OrderLineID uint            `gorm:"index;not null" json:"order_line_id"`
	OrderLine   *OrderLine      `gorm:"foreignKey:OrderLineID" json:"order_line,omitempty"`
	Quantity    decimal.Decimal `gorm:"type:decimal(12,3);not null" json:"quantity"`
	UsageDate   time.Time       `gorm:"not null" json:"usage_date"`
}
