package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/pureclean/auth"
	"github.com/diewo77/pureclean/internal/models"
	"github.com/diewo77/pureclean/validation"
)

// ClientInput carries editable client fields.
type ClientInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

func (in *ClientInput) normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
}

func (in ClientInput) validate() validation.Violations {
	v := validation.Violations{}
	validation.Required("first_name", in.FirstName, v)
	validation.Required("last_name", in.LastName, v)
	validation.Required("phone", in.Phone, v)
	validation.Phone("phone", in.Phone, v)
	validation.Email("email", in.Email, v)
	validation.MaxLen("first_name", in.FirstName, 100, v)
	validation.MaxLen("last_name", in.LastName, 100, v)
	return v
}

type ClientService struct {
	db  *gorm.DB
	now Clock
}

func NewClientService(db *gorm.DB) *ClientService {
	return &ClientService{db: db, now: time.Now}
}

// SetClock overrides the time source.
func (s *ClientService) SetClock(c Clock) { s.now = c }

// ResolveForUser returns the client linked to the session's account. Accounts
// created before the link existed get a client now, committed immediately.
func (s *ClientService) ResolveForUser(ctx context.Context, sess auth.Session) (*models.Client, error) {
	if !sess.Authenticated() {
		return nil, ErrUnauthorized
	}
	var client models.Client
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := lookup(tx.First(&user, sess.UserID).Error, "user"); err != nil {
			return err
		}
		if user.ClientID != nil {
			err := tx.First(&client, *user.ClientID).Error
			if err == nil {
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("load client: %w", err)
			}
		}
		c, err := clientForUser(tx, &user, s.now())
		if err != nil {
			return err
		}
		client = *c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &client, nil
}

// clientForUser attaches a client to user: an unlinked client with the same
// phone is reused, otherwise one is created from the account fields.
func clientForUser(tx *gorm.DB, user *models.User, now time.Time) (*models.Client, error) {
	in := ClientInput{FirstName: user.FirstName, LastName: user.LastName, Phone: user.Phone, Email: user.Email}
	in.normalize()
	if v := in.validate(); !v.Empty() {
		return nil, invalid(v)
	}
	var client models.Client
	err := tx.Where("phone = ?", in.Phone).First(&client).Error
	switch {
	case err == nil:
		var linked int64
		if err := tx.Model(&models.User{}).Where("client_id = ? AND id <> ?", client.ID, user.ID).Count(&linked).Error; err != nil {
			return nil, fmt.Errorf("check client link: %w", err)
		}
		if linked > 0 {
			return nil, conflictf(KindConflict, "phone %s belongs to another account", in.Phone)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		client = models.Client{FirstName: in.FirstName, LastName: in.LastName, Phone: in.Phone, Email: in.Email, RegistrationDate: now}
		if err := tx.Create(&client).Error; err != nil {
			return nil, fmt.Errorf("create client: %w", err)
		}
	default:
		return nil, fmt.Errorf("find client: %w", err)
	}
	if err := tx.Model(user).Update("client_id", client.ID).Error; err != nil {
		return nil, fmt.Errorf("link client: %w", err)
	}
	user.ClientID = &client.ID
	return &client, nil
}

func (s *ClientService) Get(ctx context.Context, id uint) (*models.Client, error) {
	var c models.Client
	if err := lookup(s.db.WithContext(ctx).First(&c, id).Error, "client"); err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns clients ordered by last name, optionally filtered by a
// name, phone or email fragment.
func (s *ClientService) List(ctx context.Context, query string) ([]models.Client, error) {
	db := s.db.WithContext(ctx).Order("last_name, first_name")
	if q := strings.TrimSpace(query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		db = db.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR phone LIKE ? OR LOWER(email) LIKE ?", like, like, like, like)
	}
	var out []models.Client
	if err := db.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return out, nil
}

// Create registers a walk-in client without an account.
func (s *ClientService) Create(ctx context.Context, in ClientInput) (*models.Client, error) {
	in.normalize()
	if v := in.validate(); !v.Empty() {
		return nil, invalid(v)
	}
	c := models.Client{FirstName: in.FirstName, LastName: in.LastName, Phone: in.Phone, Email: in.Email, RegistrationDate: s.now()}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := phoneFree(tx, in.Phone, 0); err != nil {
			return err
		}
		return tx.Create(&c).Error
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *ClientService) Update(ctx context.Context, id uint, in ClientInput) (*models.Client, error) {
	in.normalize()
	if v := in.validate(); !v.Empty() {
		return nil, invalid(v)
	}
	var c models.Client
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lookup(tx.First(&c, id).Error, "client"); err != nil {
			return err
		}
		if err := phoneFree(tx, in.Phone, id); err != nil {
			return err
		}
		c.FirstName, c.LastName, c.Phone, c.Email = in.FirstName, in.LastName, in.Phone, in.Email
		return tx.Save(&c).Error
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func phoneFree(tx *gorm.DB, phone string, except uint) error {
	var n int64
	if err := tx.Model(&models.Client{}).Where("phone = ? AND id <> ?", phone, except).Count(&n).Error; err != nil {
		return fmt.Errorf("check phone: %w", err)
	}
	if n > 0 {
		return invalidField("phone", "already_used")
	}
	return nil
}

// LinkLegacyUsers links accounts that predate the explicit user->client
// relation to the client with the same email or phone. It is meant to run
// once after upgrading and returns the number of accounts linked.
func (s *ClientService) LinkLegacyUsers(ctx context.Context) (int, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Where("client_id IS NULL").Find(&users).Error; err != nil {
		return 0, fmt.Errorf("list unlinked users: %w", err)
	}
	linked := 0
	for i := range users {
		u := &users[i]
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var c models.Client
			q := tx.Where("id NOT IN (?)", tx.Model(&models.User{}).Select("client_id").Where("client_id IS NOT NULL"))
			err := q.Where("(email <> '' AND LOWER(email) = ?) OR (phone <> '' AND phone = ?)", strings.ToLower(u.Email), u.Phone).
				Order("id").First(&c).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			if err := tx.Model(u).Update("client_id", c.ID).Error; err != nil {
				return err
			}
			linked++
			return nil
		})
		if err != nil {
			return linked, fmt.Errorf("link user %d: %w", u.ID, err)
		}
	}
	return linked, nil
}
