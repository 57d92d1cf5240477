package models

import (
	"time"

	"gorm.io/gorm"
)

// Role is the coarse access level of an account.
type Role string

const (
	RoleGuest   Role = "guest"
	RoleUser    Role = "user"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleGuest, RoleUser, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// IsStaff is true for managers and admins.
func (r Role) IsStaff() bool {
	return r == RoleManager || r == RoleAdmin
}

// PasswordScheme records how User.Password was produced.
type PasswordScheme string

const (
	SchemeBcrypt PasswordScheme = "bcrypt"
	// Legacy rows rewrapped by the password migration: bcrypt over the old digest.
	SchemeBcryptSHA256 PasswordScheme = "bcrypt-sha256"
	SchemeBcryptMD5    PasswordScheme = "bcrypt-md5"
	// Rows imported from the old database that were never migrated.
	SchemeLegacySHA256 PasswordScheme = "legacy-sha256"
	SchemeLegacyMD5    PasswordScheme = "legacy-md5"
	SchemeLegacyPlain  PasswordScheme = "legacy-plain"
)

// IsLegacy reports whether the stored hash still needs the one-time rewrap.
func (s PasswordScheme) IsLegacy() bool {
	return s == SchemeLegacySHA256 || s == SchemeLegacyMD5 || s == SchemeLegacyPlain
}

// User represents an authenticated account.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	Email     string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Phone     string         `gorm:"size:32" json:"phone,omitempty"`
	FirstName string         `gorm:"size:100" json:"first_name"`
	LastName  string         `gorm:"size:100" json:"last_name"`
	Password  string         `gorm:"size:255;not null" json:"-"`
	Scheme    PasswordScheme `gorm:"size:20;not null;default:'bcrypt'" json:"-"`
	Role      Role           `gorm:"size:20;not null;default:'user'" json:"role"`
	// ClientID is the customer record this account orders as.
	ClientID *uint   `gorm:"uniqueIndex" json:"client_id,omitempty"`
	Client   *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`
}

// FullName joins first and last name.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
