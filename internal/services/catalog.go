package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/pureclean/internal/models"
	"github.com/diewo77/pureclean/internal/pricing"
	"github.com/diewo77/pureclean/validation"
)

// CategoryInput carries editable category fields.
type CategoryInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ServiceInput carries editable catalog service fields.
type ServiceInput struct {
	Name               string           `json:"name"`
	Description        string           `json:"description"`
	CategoryID         uint             `json:"category_id"`
	BasePrice          decimal.Decimal  `json:"base_price"`
	DiscountPercent    *int             `json:"discount_percent,omitempty"`
	OldPrice           *decimal.Decimal `json:"old_price,omitempty"`
	ExecutionTimeHours int              `json:"execution_time_hours"`
	ImagePath          string           `json:"image_path,omitempty"`
}

func (in *ServiceInput) validate() validation.Violations {
	in.Name = strings.TrimSpace(in.Name)
	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	validation.MaxLen("name", in.Name, 200, v)
	if in.CategoryID == 0 {
		v.Add("category_id", "required")
	}
	if err := pricing.ValidatePrice(in.BasePrice); err != nil {
		v.Add("base_price", "must_not_be_negative")
	}
	if err := pricing.ValidateDiscount(in.DiscountPercent); err != nil {
		v.Add("discount_percent", "out_of_range")
	}
	if in.OldPrice != nil {
		validation.NonNegativeDecimal("old_price", *in.OldPrice, v)
	}
	validation.PositiveInt("execution_time_hours", in.ExecutionTimeHours, v)
	return v
}

type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.ServiceCategory, error) {
	var out []models.ServiceCategory
	if err := s.db.WithContext(ctx).Order("name").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, in CategoryInput) (*models.ServiceCategory, error) {
	c := models.ServiceCategory{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.saveCategory(tx, &c, in)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id uint, in CategoryInput) (*models.ServiceCategory, error) {
	var c models.ServiceCategory
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lookup(tx.First(&c, id).Error, "category"); err != nil {
			return err
		}
		return s.saveCategory(tx, &c, in)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CatalogService) saveCategory(tx *gorm.DB, c *models.ServiceCategory, in CategoryInput) error {
	name := strings.TrimSpace(in.Name)
	v := validation.Violations{}
	validation.Required("name", name, v)
	validation.MaxLen("name", name, 100, v)
	if !v.Empty() {
		return invalid(v)
	}
	var n int64
	if err := tx.Model(&models.ServiceCategory{}).Where("name = ? AND id <> ?", name, c.ID).Count(&n).Error; err != nil {
		return fmt.Errorf("check category name: %w", err)
	}
	if n > 0 {
		return invalidField("name", "already_used")
	}
	c.Name, c.Description = name, strings.TrimSpace(in.Description)
	return tx.Save(c).Error
}

// DeleteCategory refuses while any service, removed ones included, uses it.
func (s *CatalogService) DeleteCategory(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lookup(tx.First(&models.ServiceCategory{}, id).Error, "category"); err != nil {
			return err
		}
		var n int64
		if err := tx.Unscoped().Model(&models.Service{}).Where("category_id = ?", id).Count(&n).Error; err != nil {
			return fmt.Errorf("count services: %w", err)
		}
		if n > 0 {
			return conflictf(KindReferentialConflict, "category %d has %d services", id, n)
		}
		return tx.Delete(&models.ServiceCategory{}, id).Error
	})
}

// ListServices returns the live catalog. A zero categoryID lists everything.
func (s *CatalogService) ListServices(ctx context.Context, categoryID uint) ([]models.Service, error) {
	db := s.db.WithContext(ctx).Preload("Category").Order("name")
	if categoryID != 0 {
		db = db.Where("category_id = ?", categoryID)
	}
	var out []models.Service
	if err := db.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return out, nil
}

func (s *CatalogService) GetService(ctx context.Context, id uint) (*models.Service, error) {
	var svc models.Service
	if err := lookup(s.db.WithContext(ctx).Preload("Category").First(&svc, id).Error, "service"); err != nil {
		return nil, err
	}
	return &svc, nil
}

func (s *CatalogService) CreateService(ctx context.Context, in ServiceInput) (*models.Service, error) {
	svc := models.Service{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return saveService(tx, &svc, in)
	})
	if err != nil {
		return nil, err
	}
	return &svc, nil
}

func (s *CatalogService) UpdateService(ctx context.Context, id uint, in ServiceInput) (*models.Service, error) {
	var svc models.Service
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lookup(tx.First(&svc, id).Error, "service"); err != nil {
			return err
		}
		return saveService(tx, &svc, in)
	})
	if err != nil {
		return nil, err
	}
	return &svc, nil
}

func saveService(tx *gorm.DB, svc *models.Service, in ServiceInput) error {
	if v := in.validate(); !v.Empty() {
		return invalid(v)
	}
	if err := lookup(tx.Select("id").First(&models.ServiceCategory{}, in.CategoryID).Error, "category"); err != nil {
		return err
	}
	svc.Name = in.Name
	svc.Description = strings.TrimSpace(in.Description)
	svc.CategoryID = in.CategoryID
	svc.BasePrice = in.BasePrice
	svc.DiscountPercent = in.DiscountPercent
	svc.OldPrice = in.OldPrice
	svc.ExecutionTimeHours = in.ExecutionTimeHours
	svc.ImagePath = strings.TrimSpace(in.ImagePath)
	svc.Category = nil
	return tx.Save(svc).Error
}

// DeleteService removes a service from the catalog. Order lines and carts
// keep their reference to it.
func (s *CatalogService) DeleteService(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Service{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete service: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("service")
	}
	return nil
}
