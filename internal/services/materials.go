package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/pureclean/internal/models"
	"github.com/diewo77/pureclean/validation"
)

// MaterialInput carries editable material fields. InitialStock is only read
// on creation; afterwards stock moves through supplies and usages.
type MaterialInput struct {
	Name         string           `json:"name"`
	Unit         string           `json:"unit"`
	InitialStock decimal.Decimal  `json:"initial_stock"`
	MinQuantity  *decimal.Decimal `json:"min_quantity,omitempty"`
}

func (in *MaterialInput) validate() validation.Violations {
	in.Name = strings.TrimSpace(in.Name)
	in.Unit = strings.TrimSpace(in.Unit)
	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	validation.Required("unit", in.Unit, v)
	validation.MaxLen("unit", in.Unit, 20, v)
	validation.NonNegativeDecimal("initial_stock", in.InitialStock, v)
	if in.MinQuantity != nil {
		validation.NonNegativeDecimal("min_quantity", *in.MinQuantity, v)
	}
	return v
}

// SupplierInput carries editable supplier fields.
type SupplierInput struct {
	Name          string `json:"name"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
}

// MaterialView pairs a material with its stock signal.
type MaterialView struct {
	models.Material
	Status models.StockStatus `json:"stock_status"`
}

type MaterialService struct {
	db *gorm.DB
}

func NewMaterialService(db *gorm.DB) *MaterialService {
	return &MaterialService{db: db}
}

func (s *MaterialService) ListMaterials(ctx context.Context) ([]MaterialView, error) {
	var mats []models.Material
	if err := s.db.WithContext(ctx).Order("name").Find(&mats).Error; err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	out := make([]MaterialView, len(mats))
	for i, m := range mats {
		out[i] = MaterialView{Material: m, Status: m.StockStatus()}
	}
	return out, nil
}

func (s *MaterialService) GetMaterial(ctx context.Context, id uint) (*models.Material, error) {
	var m models.Material
	if err := lookup(s.db.WithContext(ctx).First(&m, id).Error, "material"); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *MaterialService) CreateMaterial(ctx context.Context, in MaterialInput) (*models.Material, error) {
	if v := in.validate(); !v.Empty() {
		return nil, invalid(v)
	}
	m := models.Material{Name: in.Name, Unit: in.Unit, QuantityInStock: in.InitialStock}
	if in.MinQuantity != nil {
		m.MinQuantity = decimal.NewNullDecimal(*in.MinQuantity)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := materialNameFree(tx, in.Name, 0); err != nil {
			return err
		}
		return tx.Create(&m).Error
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateMaterial edits name, unit and threshold. Stock is left alone.
func (s *MaterialService) UpdateMaterial(ctx context.Context, id uint, in MaterialInput) (*models.Material, error) {
	if v := in.validate(); !v.Empty() {
		return nil, invalid(v)
	}
	var m models.Material
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lookup(tx.First(&m, id).Error, "material"); err != nil {
			return err
		}
		if err := materialNameFree(tx, in.Name, id); err != nil {
			return err
		}
		m.Name, m.Unit = in.Name, in.Unit
		m.MinQuantity = decimal.NullDecimal{}
		if in.MinQuantity != nil {
			m.MinQuantity = decimal.NewNullDecimal(*in.MinQuantity)
		}
		return tx.Model(&m).Select("name", "unit", "min_quantity").Updates(&m).Error
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// DeleteMaterial refuses while any supply or usage references the material.
func (s *MaterialService) DeleteMaterial(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lookup(tx.First(&models.Material{}, id).Error, "material"); err != nil {
			return err
		}
		var supplies, usages int64
		if err := tx.Model(&models.MaterialSupply{}).Where("material_id = ?", id).Count(&supplies).Error; err != nil {
			return fmt.Errorf("count supplies: %w", err)
		}
		if err := tx.Model(&models.MaterialUsage{}).Where("material_id = ?", id).Count(&usages).Error; err != nil {
			return fmt.Errorf("count usages: %w", err)
		}
		if supplies+usages > 0 {
			return conflictf(KindReferentialConflict, "material %d has %d supplies and %d usages", id, supplies, usages)
		}
		return tx.Delete(&models.Material{}, id).Error
	})
}

func materialNameFree(tx *gorm.DB, name string, except uint) error {
	var n int64
	if err := tx.Model(&models.Material{}).Where("name = ? AND id <> ?", name, except).Count(&n).Error; err != nil {
		return fmt.Errorf("check material name: %w", err)
	}
	if n > 0 {
		return invalidField("name", "already_used")
	}
	return nil
}

func (s *MaterialService) ListSuppliers(ctx context.Context) ([]models.Supplier, error) {
	var out []models.Supplier
	if err := s.db.WithContext(ctx).Order("name").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	return out, nil
}

func (s *MaterialService) CreateSupplier(ctx context.Context, in SupplierInput) (*models.Supplier, error) {
	sup := models.Supplier{}
	if err := s.saveSupplier(s.db.WithContext(ctx), &sup, in); err != nil {
		return nil, err
	}
	return &sup, nil
}

func (s *MaterialService) UpdateSupplier(ctx context.Context, id uint, in SupplierInput) (*models.Supplier, error) {
	var sup models.Supplier
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lookup(tx.First(&sup, id).Error, "supplier"); err != nil {
			return err
		}
		return s.saveSupplier(tx, &sup, in)
	})
	if err != nil {
		return nil, err
	}
	return &sup, nil
}

func (s *MaterialService) saveSupplier(tx *gorm.DB, sup *models.Supplier, in SupplierInput) error {
	in.Name = strings.TrimSpace(in.Name)
	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	validation.Email("email", in.Email, v)
	validation.Phone("phone", in.Phone, v)
	if !v.Empty() {
		return invalid(v)
	}
	sup.Name = in.Name
	sup.ContactPerson = strings.TrimSpace(in.ContactPerson)
	sup.Phone = strings.TrimSpace(in.Phone)
	sup.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := tx.Save(sup).Error; err != nil {
		return fmt.Errorf("save supplier: %w", err)
	}
	return nil
}

// DeleteSupplier refuses while deliveries from the supplier are on record.
func (s *MaterialService) DeleteSupplier(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lookup(tx.First(&models.Supplier{}, id).Error, "supplier"); err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&models.MaterialSupply{}).Where("supplier_id = ?", id).Count(&n).Error; err != nil {
			return fmt.Errorf("count supplies: %w", err)
		}
		if n > 0 {
			return conflictf(KindReferentialConflict, "supplier %d has %d supplies", id, n)
		}
		return tx.Delete(&models.Supplier{}, id).Error
	})
}
