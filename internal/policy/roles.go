package policy

import (
	"github.com/diewo77/pureclean/auth"
	"github.com/diewo77/pureclean/gate"
	"github.com/diewo77/pureclean/internal/models"
)

// Resource type names shared by the profiles, policies and routes.
const (
	ResourceService  = "service"
	ResourceCategory = "category"
	ResourceItemType = "item_type"
	ResourceCart     = "cart"
	ResourceOrder    = "order"
	ResourceReview   = "review"
	ResourceClient   = "client"
	ResourceMaterial = "material"
	ResourceSupplier = "supplier"
	ResourceSupply   = "supply"
	ResourceUsage    = "usage"
	ResourceReport   = "report"
	ResourceUser     = "user"
	ResourceAccount  = "account"
)

func perm(resource string, action gate.Action) gate.Permission {
	return gate.NewPermission(resource, action)
}

func all(resource string) gate.Permission {
	return gate.Permission(resource + ":" + gate.Wildcard)
}

// RoleProfiles builds the fixed profile of each role. Every role includes the
// one below it; admin holds every permission.
func RoleProfiles() map[models.Role]*gate.StaticProfile {
	guest := gate.NewStaticProfile(string(models.RoleGuest),
		perm(ResourceService, gate.ActionList),
		perm(ResourceService, gate.ActionView),
		perm(ResourceCategory, gate.ActionList),
		perm(ResourceCategory, gate.ActionView),
		perm(ResourceReview, gate.ActionList),
	)
	user := guest.Extend(string(models.RoleUser),
		all(ResourceCart),
		all(ResourceAccount),
		perm(ResourceOrder, gate.ActionCreate),
		perm(ResourceOrder, gate.ActionList),
		perm(ResourceOrder, gate.ActionView),
		perm(ResourceReview, gate.ActionCreate),
	)
	manager := user.Extend(string(models.RoleManager),
		all(ResourceOrder),
		all(ResourceClient),
		all(ResourceService),
		all(ResourceCategory),
		all(ResourceItemType),
		all(ResourceMaterial),
		all(ResourceSupplier),
		all(ResourceSupply),
		all(ResourceUsage),
		all(ResourceReview),
		all(ResourceReport),
	)
	admin := gate.NewStaticProfile(string(models.RoleAdmin), gate.PermissionAll)
	return map[models.Role]*gate.StaticProfile{
		models.RoleGuest:   guest,
		models.RoleUser:    user,
		models.RoleManager: manager,
		models.RoleAdmin:   admin,
	}
}

// NewRoleResolver resolves a session to the profile of its role.
func NewRoleResolver() *gate.KeyedResolver[auth.Session, models.Role] {
	r := gate.NewKeyedResolver[auth.Session, models.Role](func(s auth.Session) models.Role { return s.Role })
	for role, p := range RoleProfiles() {
		r.Set(role, p)
	}
	return r
}
