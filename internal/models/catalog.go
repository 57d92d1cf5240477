package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/pureclean/internal/pricing"
)

// ServiceCategory groups catalog services (dry cleaning, ironing, repairs...).
type ServiceCategory struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Name        string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"size:500" json:"description,omitempty"`
}

// Service is a catalog entry. Removed services are soft deleted so order
// lines keep pointing at them.
type Service struct {
	ID                 uint             `gorm:"primaryKey" json:"id"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
	DeletedAt          gorm.DeletedAt   `gorm:"index" json:"deleted_at,omitempty"`
	Name               string           `gorm:"size:200;not null" json:"name"`
	Description        string           `gorm:"type:text" json:"description,omitempty"`
	CategoryID         uint             `gorm:"index;not null" json:"category_id"`
	Category           *ServiceCategory `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	BasePrice          decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"base_price"`
	DiscountPercent    *int             `json:"discount_percent,omitempty"`
	OldPrice           *decimal.Decimal `gorm:"type:decimal(12,2)" json:"old_price,omitempty"`
	ExecutionTimeHours int              `gorm:"not null;default:24" json:"execution_time_hours"`
	ImagePath          string           `gorm:"size:255" json:"image_path,omitempty"`
}

// ItemType is a kind of garment taken in (coat, silk dress...) with its
// fabric and care notes.
type ItemType struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	Name             string    `gorm:"size:100;not null" json:"name"`
	Material         *string   `gorm:"size:100" json:"material,omitempty"`
	CareInstructions *string   `gorm:"type:text" json:"care_instructions,omitempty"`
}

// FinalPrice is the price the client pays today.
func (s *Service) FinalPrice() decimal.Decimal {
	return pricing.FinalPrice(s.BasePrice, s.DiscountPercent)
}

// HasDiscount is true when FinalPrice differs from BasePrice.
func (s *Service) HasDiscount() bool {
	return !s.FinalPrice().Equal(s.BasePrice)
}
