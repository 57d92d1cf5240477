package db

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/diewo77/pureclean/internal/models"
)

// SeedOptions configures the bootstrap admin account. An empty email skips it.
type SeedOptions struct {
	AdminEmail    string
	AdminPassword string
}

var defaultCategories = []models.ServiceCategory{
	{Name: "Dry cleaning", Description: "Solvent cleaning of garments"},
	{Name: "Laundry", Description: "Washing and drying"},
	{Name: "Ironing", Description: "Pressing and steaming"},
	{Name: "Repairs", Description: "Alterations and small repairs"},
}

// Seed inserts the default categories and the admin account. It is safe to
// run on every start.
func Seed(conn *gorm.DB, opts SeedOptions) error {
	return conn.Transaction(func(tx *gorm.DB) error {
		for _, c := range defaultCategories {
			c := c
			if err := tx.Where(models.ServiceCategory{Name: c.Name}).FirstOrCreate(&c).Error; err != nil {
				return fmt.Errorf("seed category %s: %w", c.Name, err)
			}
		}
		return seedAdmin(tx, opts)
	})
}

func seedAdmin(tx *gorm.DB, opts SeedOptions) error {
	email := strings.ToLower(strings.TrimSpace(opts.AdminEmail))
	if email == "" {
		return nil
	}
	if opts.AdminPassword == "" {
		return errors.New("seed admin: password required")
	}
	var existing models.User
	err := tx.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("seed admin: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(opts.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	admin := models.User{Email: email, FirstName: "Admin", Password: string(hash), Scheme: models.SchemeBcrypt, Role: models.RoleAdmin}
	if err := tx.Create(&admin).Error; err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	return nil
}
