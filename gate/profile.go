package gate

import "context"

// Profile is a named set of permissions.
type Profile interface {
	Name() string
	HasPermission(permission Permission) bool
	Permissions() []Permission
}

// ProfileResolver maps a subject to its profile.
type ProfileResolver[U any] interface {
	Resolve(ctx context.Context, subject U) (Profile, error)
}

// StaticProfile is an in-memory profile.
type StaticProfile struct {
	name        string
	permissions []Permission
}

// NewStaticProfile creates a profile with the given permissions.
func NewStaticProfile(name string, permissions ...Permission) *StaticProfile {
	return &StaticProfile{name: name, permissions: append([]Permission(nil), permissions...)}
}

// Extend returns a new profile holding p's permissions plus extra.
func (p *StaticProfile) Extend(name string, extra ...Permission) *StaticProfile {
	perms := append(append([]Permission(nil), p.permissions...), extra...)
	return &StaticProfile{name: name, permissions: perms}
}

func (p *StaticProfile) Name() string { return p.name }

func (p *StaticProfile) Permissions() []Permission {
	return append([]Permission(nil), p.permissions...)
}

// HasPermission checks the request against every granted permission, wildcards included.
func (p *StaticProfile) HasPermission(requested Permission) bool {
	for _, perm := range p.permissions {
		if perm.Matches(requested) {
			return true
		}
	}
	return false
}

// KeyedResolver resolves subjects through a key function, typically the role.
type KeyedResolver[U any, K comparable] struct {
	key      func(U) K
	profiles map[K]Profile
}

// NewKeyedResolver creates a resolver that looks up key(subject).
func NewKeyedResolver[U any, K comparable](key func(U) K) *KeyedResolver[U, K] {
	return &KeyedResolver[U, K]{key: key, profiles: make(map[K]Profile)}
}

// Set assigns a profile to a key.
func (r *KeyedResolver[U, K]) Set(k K, profile Profile) {
	r.profiles[k] = profile
}

// Resolve returns the profile for the subject's key, or ErrNoProfile.
func (r *KeyedResolver[U, K]) Resolve(_ context.Context, subject U) (Profile, error) {
	if profile, ok := r.profiles[r.key(subject)]; ok {
		return profile, nil
	}
	return nil, ErrNoProfile
}
