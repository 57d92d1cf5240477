package validation

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Add records msg for field unless the field already has a violation.
func (v Violations) Add(field, msg string) {
	if _, ok := v[field]; !ok {
		v[field] = msg
	}
}

var (
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phoneRe = regexp.MustCompile(`^\+?[0-9()\-\s]{5,20}$`)
)

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "required")
	}
}

func MaxLen(field, value string, n int, v Violations) {
	if len([]rune(value)) > n {
		v.Add(field, "too_long")
	}
}

// Email accepts an empty value; combine with Required when mandatory.
func Email(field, value string, v Violations) {
	if value = strings.TrimSpace(value); value != "" && !emailRe.MatchString(value) {
		v.Add(field, "invalid_email")
	}
}

func Phone(field, value string, v Violations) {
	if value = strings.TrimSpace(value); value != "" && !phoneRe.MatchString(value) {
		v.Add(field, "invalid_phone")
	}
}

func PositiveDecimal(field string, val decimal.Decimal, v Violations) {
	if !val.IsPositive() {
		v.Add(field, "must_be_positive")
	}
}

func NonNegativeDecimal(field string, val decimal.Decimal, v Violations) {
	if val.IsNegative() {
		v.Add(field, "must_not_be_negative")
	}
}

func PositiveInt(field string, val int, v Violations) {
	if val <= 0 {
		v.Add(field, "must_be_positive")
	}
}

func RangeInt(field string, val, minVal, maxVal int, v Violations) {
	if val < minVal || val > maxVal {
		v.Add(field, "out_of_range")
	}
}
