package models

import (
	"strings"
	"time"
)

// Client is a shop customer. Orders and the cart hang off it.
type Client struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	FirstName        string    `gorm:"size:100;not null" json:"first_name"`
	LastName         string    `gorm:"size:100;not null" json:"last_name"`
	Phone            string    `gorm:"size:32;uniqueIndex;not null" json:"phone"`
	Email            string    `gorm:"size:255;index" json:"email,omitempty"`
	RegistrationDate time.Time `gorm:"not null" json:"registration_date"`
}

// DisplayName returns "Last First", the order used on receipts.
func (c *Client) DisplayName() string {
	return strings.TrimSpace(c.LastName + " " + c.FirstName)
}
