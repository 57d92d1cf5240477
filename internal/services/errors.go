package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/pureclean/validation"
)

// Kind classifies a service failure. Every kind is recoverable by the caller.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindNotFound            Kind = "not_found"
	KindInsufficientStock   Kind = "insufficient_stock"
	KindReferentialConflict Kind = "referential_conflict"
	KindEmptyCart           Kind = "empty_cart"
	KindInvalidTransition   Kind = "invalid_transition"
	KindConflict            Kind = "conflict"
	KindUnauthorized        Kind = "unauthorized"
)

// Error is the failure type returned by every service in this package.
type Error struct {
	Kind    Kind
	Message string
	// Fields holds per-field violations for KindValidation.
	Fields validation.Violations
	// Available is the usable stock for KindInsufficientStock.
	Available decimal.Decimal
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Message
}

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrValidation          = &Error{Kind: KindValidation}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrInsufficientStock   = &Error{Kind: KindInsufficientStock}
	ErrReferentialConflict = &Error{Kind: KindReferentialConflict}
	ErrEmptyCart           = &Error{Kind: KindEmptyCart}
	ErrInvalidTransition   = &Error{Kind: KindInvalidTransition}
	ErrConflict            = &Error{Kind: KindConflict}
	ErrUnauthorized        = &Error{Kind: KindUnauthorized}
)

func invalid(fields validation.Violations) *Error {
	return &Error{Kind: KindValidation, Message: "invalid input", Fields: fields}
}

func invalidField(field, msg string) *Error {
	return invalid(validation.Violations{field: msg})
}

func notFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func insufficientStock(available decimal.Decimal) *Error {
	return &Error{Kind: KindInsufficientStock, Message: "available " + available.String(), Available: available}
}

func conflictf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or "" for infrastructure errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// lookup wraps a First/Take error, turning a missing row into NotFound.
func lookup(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(what)
	}
	return fmt.Errorf("load %s: %w", what, err)
}
