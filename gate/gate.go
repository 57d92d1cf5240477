// Package gate is a small authorization layer: profiles grant
// "resource:action" permissions and optional per-resource policies check
// ownership of a loaded resource. It has no dependency on domain models.
package gate

import "context"

// Policy decides whether subject may act on one loaded resource.
type Policy[U any] interface {
	Can(ctx context.Context, subject U, action Action, resource any) bool
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc[U any] func(ctx context.Context, subject U, action Action, resource any) bool

func (f PolicyFunc[U]) Can(ctx context.Context, subject U, action Action, resource any) bool {
	return f(ctx, subject, action, resource)
}

// Gate combines profile permissions with resource policies.
// Authorization flow:
//  1. Resolve the subject's profile
//  2. Check the profile has resource:action
//  3. If a resource is given and a policy is registered for its type, ask the policy
type Gate[U any] struct {
	resolver ProfileResolver[U]
	policies map[string]Policy[U]
}

// New creates a gate backed by resolver.
func New[U any](resolver ProfileResolver[U]) *Gate[U] {
	return &Gate[U]{resolver: resolver, policies: make(map[string]Policy[U])}
}

// Register adds a resource policy. Overwrites any existing policy for that type.
func (g *Gate[U]) Register(resourceType string, p Policy[U]) {
	g.policies[resourceType] = p
}

// Authorize returns nil when allowed and ErrForbidden otherwise.
func (g *Gate[U]) Authorize(ctx context.Context, subject U, action Action, resourceType string, resource any) error {
	if !g.CanProfile(ctx, subject, action, resourceType) {
		return ErrForbidden
	}
	if resource == nil {
		return nil
	}
	if p, ok := g.policies[resourceType]; ok && !p.Can(ctx, subject, action, resource) {
		return ErrForbidden
	}
	return nil
}

// Can is Authorize returning a bool.
func (g *Gate[U]) Can(ctx context.Context, subject U, action Action, resourceType string, resource any) bool {
	return g.Authorize(ctx, subject, action, resourceType, resource) == nil
}

// CanProfile checks only the profile permission, before any resource is loaded.
func (g *Gate[U]) CanProfile(ctx context.Context, subject U, action Action, resourceType string) bool {
	profile, err := g.resolver.Resolve(ctx, subject)
	if err != nil || profile == nil {
		return false
	}
	return profile.HasPermission(NewPermission(resourceType, action))
}
