package models

import "time"

// Cart is the per-client basket. It exists only while it has lines.
type Cart struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ClientID    uint       `gorm:"uniqueIndex;not null" json:"client_id"`
	Client      *Client    `gorm:"foreignKey:ClientID" json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	LastUpdated time.Time  `gorm:"not null" json:"last_updated"`
	Lines       []CartLine `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"lines,omitempty"`
}

// CartLine holds one service and how many times it was added.
type CartLine struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CartID    uint      `gorm:"not null;uniqueIndex:idx_cart_service" json:"cart_id"`
	Cart      *Cart     `gorm:"foreignKey:CartID" json:"-"`
	ServiceID uint      `gorm:"not null;uniqueIndex:idx_cart_service" json:"service_id"`
	Service   *Service  `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
	Quantity  int       `gorm:"not null;check:chk_cart_lines_quantity,quantity >= 1" json:"quantity"`
	AddedAt   time.Time `gorm:"not null" json:"added_at"`
}

// OwnerClientID is the client the cart belongs to.
func (c *Cart) OwnerClientID() uint { return c.ClientID }

// OwnerClientID needs Cart loaded and is zero otherwise.
func (l *CartLine) OwnerClientID() uint {
	if l.Cart == nil {
		return 0
	}
	return l.Cart.ClientID
}
