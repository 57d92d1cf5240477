package policy

import (
	"context"

	"github.com/diewo77/pureclean/auth"
	"github.com/diewo77/pureclean/gate"
)

// ClientOwned is implemented by resources that belong to one client.
type ClientOwned interface {
	OwnerClientID() uint
}

// OwnershipPolicy allows a session to act on resources of its own client.
type OwnershipPolicy struct {
	// StaffBypass lets managers and admins act on any client's resource.
	StaffBypass bool
}

// Can denies resources that do not implement ClientOwned.
func (p OwnershipPolicy) Can(_ context.Context, s auth.Session, _ gate.Action, resource any) bool {
	if resource == nil {
		return true
	}
	if p.StaffBypass && s.Role.IsStaff() {
		return true
	}
	owned, ok := resource.(ClientOwned)
	if !ok {
		return false
	}
	owner := owned.OwnerClientID()
	return owner != 0 && s.ClientID != nil && *s.ClientID == owner
}
