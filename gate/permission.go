package gate

import "strings"

// Permission is an allowed action on a resource type, written "resource:action"
// (e.g. "order:create", "material:update").
type Permission string

// NewPermission creates a permission from resource type and action.
func NewPermission(resourceType string, action Action) Permission {
	return Permission(resourceType + ":" + string(action))
}

// Parse splits a permission into resource type and action.
func (p Permission) Parse() (resourceType string, action Action) {
	res, act, ok := strings.Cut(string(p), ":")
	if !ok {
		return "", ""
	}
	return res, Action(act)
}

const (
	Wildcard                 = "*"
	PermissionAll Permission = "*:*"
)

// Matches reports whether p grants requested. Either half of p may be "*":
// "order:*" grants every order action, "*:view" grants viewing anything.
func (p Permission) Matches(requested Permission) bool {
	if p == PermissionAll || p == requested {
		return true
	}
	res, act := p.Parse()
	reqRes, reqAct := requested.Parse()
	if res == "" || reqRes == "" {
		return false
	}
	return (res == Wildcard || res == reqRes) && (string(act) == Wildcard || act == reqAct)
}
