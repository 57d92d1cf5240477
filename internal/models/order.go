package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the workflow position of an order.
type OrderStatus string

const (
	OrderStatusAccepted   OrderStatus = "accepted"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusReady      OrderStatus = "ready"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// ErrInvalidTransition is returned by Order.Transition for a move the
// workflow does not allow.
var ErrInvalidTransition = errors.New("invalid_status_transition")

var nextStatus = map[OrderStatus]OrderStatus{
	OrderStatusAccepted:   OrderStatusInProgress,
	OrderStatusInProgress: OrderStatusReady,
	OrderStatusReady:      OrderStatusDelivered,
}

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusAccepted, OrderStatusInProgress, OrderStatusReady, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// IsTerminal is true for Delivered and Cancelled.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo reports whether an order in s may move to next.
// Forward moves go one step at a time; cancel is allowed until the order is closed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.IsTerminal() || !next.Valid() {
		return false
	}
	if next == OrderStatusCancelled {
		return true
	}
	return nextStatus[s] == next
}

// Order is the frozen result of a checkout.
type Order struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	ClientID          uint            `gorm:"index;not null" json:"client_id"`
	Client            *Client         `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	UserID            uint            `gorm:"index;not null" json:"user_id"`
	Status            OrderStatus     `gorm:"size:20;index;not null;default:'accepted'" json:"status"`
	TotalAmount       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	Prepayment        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"prepayment"`
	Comment           *string         `gorm:"type:text" json:"comment,omitempty"`
	AcceptanceDate    time.Time       `gorm:"not null" json:"acceptance_date"`
	PlannedReturnDate time.Time       `gorm:"not null" json:"planned_return_date"`
	ActualReturnDate  *time.Time      `json:"actual_return_date,omitempty"`
	Lines             []OrderLine     `gorm:"foreignKey:OrderID" json:"lines,omitempty"`
}

// Transition moves the order to next and applies the return date side
// effects. The order is left untouched on error.
func (o *Order) Transition(next OrderStatus, now time.Time) error {
	if !o.Status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	o.Status = next
	switch next {
	case OrderStatusDelivered:
		if o.ActualReturnDate == nil {
			t := now
			o.ActualReturnDate = &t
		}
	case OrderStatusCancelled:
		o.ActualReturnDate = nil
	}
	return nil
}

// Balance is what the client still owes.
func (o *Order) Balance() decimal.Decimal {
	return o.TotalAmount.Sub(o.Prepayment)
}

func (o *Order) OwnerClientID() uint { return o.ClientID }

// OrderLine is a snapshot of a cart line at checkout. Only the garment
// type can be set afterwards; service, quantity and price never change.
type OrderLine struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time       `json:"created_at"`
	OrderID      uint            `gorm:"index;not null" json:"order_id"`
	Order        *Order          `gorm:"foreignKey:OrderID" json:"-"`
	ServiceID    uint            `gorm:"index;not null" json:"service_id"`
	Service      *Service        `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
	Quantity     int             `gorm:"not null" json:"quantity"`
	PriceAtOrder decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price_at_order"`
	ItemTypeID   *uint           `gorm:"index" json:"item_type_id,omitempty"`
	ItemType     *ItemType       `gorm:"foreignKey:ItemTypeID" json:"item_type,omitempty"`
}

// Total is quantity x frozen unit price.
func (l *OrderLine) Total() decimal.Decimal {
	return l.PriceAtOrder.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
