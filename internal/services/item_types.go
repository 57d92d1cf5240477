package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/diewo77/pureclean/internal/models"
	"github.com/diewo77/pureclean/validation"
)

// ItemTypeInput carries editable garment type fields. Blank material or
// care notes are stored as null.
type ItemTypeInput struct {
	Name             string `json:"name"`
	Material         string `json:"material"`
	CareInstructions string `json:"care_instructions"`
}

// ItemTypeStats backs the counters above the garment type list.
type ItemTypeStats struct {
	Total     int64 `json:"total"`
	Materials int64 `json:"materials"`
}

// ListItemTypes returns garment types by name. A non-empty query matches
// the name, material, care notes or id.
func (s *CatalogService) ListItemTypes(ctx context.Context, query string) ([]models.ItemType, error) {
	db := s.db.WithContext(ctx).Order("name")
	if q := strings.TrimSpace(query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		db = db.Where("LOWER(name) LIKE ? OR LOWER(material) LIKE ? OR LOWER(care_instructions) LIKE ? OR CAST(id AS TEXT) LIKE ?",
			like, like, like, like)
	}
	var out []models.ItemType
	if err := db.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list item types: %w", err)
	}
	return out, nil
}

func (s *CatalogService) GetItemType(ctx context.Context, id uint) (*models.ItemType, error) {
	var it models.ItemType
	if err := lookup(s.db.WithContext(ctx).First(&it, id).Error, "item type"); err != nil {
		return nil, err
	}
	return &it, nil
}

func (s *CatalogService) CreateItemType(ctx context.Context, in ItemTypeInput) (*models.ItemType, error) {
	it := models.ItemType{}
	if err := saveItemType(s.db.WithContext(ctx), &it, in); err != nil {
		return nil, err
	}
	return &it, nil
}

func (s *CatalogService) UpdateItemType(ctx context.Context, id uint, in ItemTypeInput) (*models.ItemType, error) {
	var it models.ItemType
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lookup(tx.First(&it, id).Error, "item type"); err != nil {
			return err
		}
		return saveItemType(tx, &it, in)
	})
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func saveItemType(tx *gorm.DB, it *models.ItemType, in ItemTypeInput) error {
	name := strings.TrimSpace(in.Name)
	v := validation.Violations{}
	validation.Required("name", name, v)
	validation.MaxLen("name", name, 100, v)
	validation.MaxLen("material", strings.TrimSpace(in.Material), 100, v)
	if !v.Empty() {
		return invalid(v)
	}
	it.Name = name
	it.Material = trimmedOrNil(in.Material)
	it.CareInstructions = trimmedOrNil(in.CareInstructions)
	return tx.Save(it).Error
}

// DeleteItemType refuses while any order line is tagged with the type.
func (s *CatalogService) DeleteItemType(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lookup(tx.First(&models.ItemType{}, id).Error, "item type"); err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&models.OrderLine{}).Where("item_type_id = ?", id).Count(&n).Error; err != nil {
			return fmt.Errorf("count order lines: %w", err)
		}
		if n > 0 {
			return conflictf(KindReferentialConflict, "item type %d is used by %d order lines", id, n)
		}
		return tx.Delete(&models.ItemType{}, id).Error
	})
}

// ItemTypeStats counts garment types and their distinct materials.
func (s *CatalogService) ItemTypeStats(ctx context.Context) (ItemTypeStats, error) {
	var st ItemTypeStats
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.ItemType{}).Count(&st.Total).Error; err != nil {
		return st, fmt.Errorf("count item types: %w", err)
	}
	if err := db.Model(&models.ItemType{}).Select("COUNT(DISTINCT LOWER(material))").
		Where("material IS NOT NULL").Scan(&st.Materials).Error; err != nil {
		return st, fmt.Errorf("count materials: %w", err)
	}
	return st, nil
}
