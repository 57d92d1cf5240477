package models

import "time"

// Review is a client's rating of a delivered order.
type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	OrderID   uint      `gorm:"uniqueIndex;not null" json:"order_id"`
	Order     *Order    `gorm:"foreignKey:OrderID" json:"order,omitempty"`
	Rating    int       `gorm:"not null;check:chk_reviews_rating,rating BETWEEN 1 AND 5" json:"rating"`
	Comment   string    `gorm:"type:text" json:"comment,omitempty"`
	Hidden    bool      `gorm:"not null;default:false" json:"hidden"`
}
