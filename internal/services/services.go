// Package services implements the shop's business operations on top of gorm.
// Each operation runs in a single transaction and reports failures as *Error.
package services

import (
	"time"

	"gorm.io/gorm"
)

// Clock returns the current time. Tests replace it to pin timestamps.
type Clock func() time.Time

func unscoped(db *gorm.DB) *gorm.DB { return db.Unscoped() }
