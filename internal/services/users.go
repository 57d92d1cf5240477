package services

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/diewo77/pureclean/auth"
	"github.com/diewo77/pureclean/internal/models"
	"github.com/diewo77/pureclean/validation"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 72 // bcrypt input limit
)

// RegisterInput is the sign-up form.
type RegisterInput struct {
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

type UserService struct {
	db   *gorm.DB
	now  Clock
	cost int
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db, now: time.Now, cost: bcrypt.DefaultCost}
}

// SetClock overrides the time source.
func (s *UserService) SetClock(c Clock) { s.now = c }

// SetCost changes the bcrypt cost. Tests use bcrypt.MinCost.
func (s *UserService) SetCost(cost int) { s.cost = cost }

func checkPassword(field, pw string, v validation.Violations) {
	if len(pw) < minPasswordLen {
		v.Add(field, "too_short")
	}
	if len(pw) > maxPasswordLen {
		v.Add(field, "too_long")
	}
}

// Register creates the account and its client record in one transaction.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	v := validation.Violations{}
	validation.Required("email", in.Email, v)
	validation.Email("email", in.Email, v)
	checkPassword("password", in.Password, v)
	ci := ClientInput{FirstName: in.FirstName, LastName: in.LastName, Phone: in.Phone, Email: in.Email}
	ci.normalize()
	for f, msg := range ci.validate() {
		v.Add(f, msg)
	}
	if !v.Empty() {
		return nil, invalid(v)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := models.User{
		Email:     in.Email,
		Phone:     ci.Phone,
		FirstName: ci.FirstName,
		LastName:  ci.LastName,
		Password:  string(hash),
		Scheme:    models.SchemeBcrypt,
		Role:      models.RoleUser,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Unscoped().Model(&models.User{}).Where("email = ?", user.Email).Count(&n).Error; err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if n > 0 {
			return invalidField("email", "already_used")
		}
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		_, err := clientForUser(tx, &user, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Authenticate checks credentials. Hashes in an older scheme are replaced by
// plain bcrypt after a successful check.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !verifyPassword(user.Scheme, user.Password, password) {
		return nil, ErrUnauthorized
	}
	if user.Scheme != models.SchemeBcrypt {
		if err := s.setPassword(ctx, &user, password); err != nil {
			return nil, err
		}
	}
	return &user, nil
}

// ChangePassword replaces the password after checking the current one.
func (s *UserService) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	v := validation.Violations{}
	checkPassword("new", next, v)
	if !v.Empty() {
		return invalid(v)
	}
	var user models.User
	if err := lookup(s.db.WithContext(ctx).First(&user, userID).Error, "user"); err != nil {
		return err
	}
	if !verifyPassword(user.Scheme, user.Password, current) {
		return invalidField("current", "mismatch")
	}
	return s.setPassword(ctx, &user, next)
}

func (s *UserService) setPassword(ctx context.Context, user *models.User, pw string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	err = s.db.WithContext(ctx).Model(user).Updates(map[string]any{"password": string(hash), "scheme": models.SchemeBcrypt}).Error
	if err != nil {
		return fmt.Errorf("save password: %w", err)
	}
	user.Password, user.Scheme = string(hash), models.SchemeBcrypt
	return nil
}

// SetRole changes the access level of an account.
func (s *UserService) SetRole(ctx context.Context, userID uint, role models.Role) (*models.User, error) {
	if !role.Valid() || role == models.RoleGuest {
		return nil, invalidField("role", "unknown_role")
	}
	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lookup(tx.First(&user, userID).Error, "user"); err != nil {
			return err
		}
		return tx.Model(&user).Update("role", role).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	var out []models.User
	if err := s.db.WithContext(ctx).Order("email").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

// Delete soft deletes an account. Its client and orders stay.
func (s *UserService) Delete(ctx context.Context, userID uint) error {
	res := s.db.WithContext(ctx).Delete(&models.User{}, userID)
	if res.Error != nil {
		return fmt.Errorf("delete user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("user")
	}
	return nil
}

// LoadSession builds the request identity for a user id.
func (s *UserService) LoadSession(ctx context.Context, uid uint) (auth.Session, bool) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, uid).Error; err != nil {
		return auth.Session{}, false
	}
	return auth.Session{
		UserID:   user.ID,
		Email:    user.Email,
		Phone:    user.Phone,
		Role:     user.Role,
		ClientID: user.ClientID,
	}, true
}

// MigrateLegacyPasswords rewraps every legacy hash in bcrypt so no plaintext
// or unsalted digest stays at rest. It returns the number of rows changed.
func (s *UserService) MigrateLegacyPasswords(ctx context.Context) (int, error) {
	var users []models.User
	err := s.db.WithContext(ctx).Unscoped().
		Where("scheme IN ?", []models.PasswordScheme{models.SchemeLegacySHA256, models.SchemeLegacyMD5, models.SchemeLegacyPlain}).
		Find(&users).Error
	if err != nil {
		return 0, fmt.Errorf("list legacy users: %w", err)
	}
	done := 0
	for _, u := range users {
		next, secret := models.SchemeBcrypt, u.Password
		switch u.Scheme {
		case models.SchemeLegacySHA256:
			next = models.SchemeBcryptSHA256
		case models.SchemeLegacyMD5:
			next, secret = models.SchemeBcryptMD5, strings.ToLower(u.Password)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.cost)
		if err != nil {
			return done, fmt.Errorf("hash user %d: %w", u.ID, err)
		}
		err = s.db.WithContext(ctx).Unscoped().Model(&models.User{}).Where("id = ? AND scheme = ?", u.ID, u.Scheme).
			Updates(map[string]any{"password": string(hash), "scheme": next}).Error
		if err != nil {
			return done, fmt.Errorf("save user %d: %w", u.ID, err)
		}
		done++
	}
	return done, nil
}

func sha256Base64(pw string) string {
	sum := sha256.Sum256([]byte(pw))
	return base64.StdEncoding.EncodeToString(sum[:])
}

func md5Hex(pw string) string {
	sum := md5.Sum([]byte(pw))
	return hex.EncodeToString(sum[:])
}

func verifyPassword(scheme models.PasswordScheme, stored, pw string) bool {
	eq := func(a, b string) bool { return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1 }
	switch scheme {
	case models.SchemeBcrypt, "":
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(pw)) == nil
	case models.SchemeBcryptSHA256:
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(sha256Base64(pw))) == nil
	case models.SchemeBcryptMD5:
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(md5Hex(pw))) == nil
	case models.SchemeLegacySHA256:
		return eq(stored, sha256Base64(pw))
	case models.SchemeLegacyMD5:
		return eq(strings.ToLower(stored), md5Hex(pw))
	case models.SchemeLegacyPlain:
		return eq(stored, pw)
	}
	return false
}
