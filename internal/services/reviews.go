package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/diewo77/pureclean/auth"
	"github.com/diewo77/pureclean/internal/models"
	"github.com/diewo77/pureclean/validation"
)

// ReviewInput is what a client submits about a delivered order.
type ReviewInput struct {
	OrderID uint   `json:"order_id"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// ReviewStats summarises all reviews.
type ReviewStats struct {
	Total   int64   `json:"total"`
	Hidden  int64   `json:"hidden"`
	Average float64 `json:"average"`
}

type ReviewService struct {
	db *gorm.DB
}

func NewReviewService(db *gorm.DB) *ReviewService {
	return &ReviewService{db: db}
}

// Create stores the caller's review of one of their delivered orders.
func (s *ReviewService) Create(ctx context.Context, sess auth.Session, in ReviewInput) (*models.Review, error) {
	if !sess.Authenticated() || sess.ClientID == nil {
		return nil, ErrUnauthorized
	}
	v := validation.Violations{}
	if in.OrderID == 0 {
		v.Add("order_id", "required")
	}
	validation.RangeInt("rating", in.Rating, 1, 5, v)
	validation.MaxLen("comment", in.Comment, 2000, v)
	if !v.Empty() {
		return nil, invalid(v)
	}
	var r models.Review
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o models.Order
		if err := lookup(tx.First(&o, in.OrderID).Error, "order"); err != nil {
			return err
		}
		if o.ClientID != *sess.ClientID {
			return notFound("order")
		}
		if o.Status != models.OrderStatusDelivered {
			return invalidField("order_id", "not_delivered")
		}
		var n int64
		if err := tx.Model(&models.Review{}).Where("order_id = ?", o.ID).Count(&n).Error; err != nil {
			return fmt.Errorf("check review: %w", err)
		}
		if n > 0 {
			return conflictf(KindConflict, "order %d already reviewed", o.ID)
		}
		r = models.Review{OrderID: o.ID, Rating: in.Rating, Comment: strings.TrimSpace(in.Comment)}
		return tx.Create(&r).Error
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// List returns reviews, newest first. Hidden ones only when includeHidden.
func (s *ReviewService) List(ctx context.Context, includeHidden bool) ([]models.Review, error) {
	db := s.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if !includeHidden {
		db = db.Where("hidden = ?", false)
	}
	var out []models.Review
	if err := db.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return out, nil
}

// SetHidden hides or restores a review.
func (s *ReviewService) SetHidden(ctx context.Context, id uint, hidden bool) (*models.Review, error) {
	var r models.Review
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lookup(tx.First(&r, id).Error, "review"); err != nil {
			return err
		}
		r.Hidden = hidden
		return tx.Model(&r).Update("hidden", hidden).Error
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *ReviewService) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Review{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete review: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("review")
	}
	return nil
}

func (s *ReviewService) Stats(ctx context.Context) (ReviewStats, error) {
	var ratings []struct {
		Rating int
		Hidden bool
	}
	if err := s.db.WithContext(ctx).Model(&models.Review{}).Select("rating, hidden").Scan(&ratings).Error; err != nil {
		return ReviewStats{}, fmt.Errorf("review stats: %w", err)
	}
	var st ReviewStats
	sum := 0
	for _, r := range ratings {
		st.Total++
		sum += r.Rating
		if r.Hidden {
			st.Hidden++
		}
	}
	if st.Total > 0 {
		st.Average = float64(sum) / float64(st.Total)
	}
	return st, nil
}
