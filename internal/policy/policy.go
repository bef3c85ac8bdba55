// Package policy centralizes role and office/region scoped authorization for
// civil records. Handlers resolve the actor from the JWT, repositories supply
// the target record's office scope, and every decision funnels through here.
package policy

import "github.com/noah-isme/civreg-api/internal/models"

// Actor is the acting user reduced to the fields authorization needs.
type Actor struct {
	UserID        string
	Role          models.UserRole
	IsSystemAdmin bool
	IsApproved    bool
	OfficeID      string
	OfficeRegion  string
}

// Scope identifies the office that owns the target record.
type Scope struct {
	OfficeID string
	Region   string
}

// ActorFromUser builds an Actor from a loaded user row.
func ActorFromUser(u *models.UserDetail) Actor {
	actor := Actor{
		UserID:        u.ID,
		Role:          u.Role,
		IsSystemAdmin: u.IsSystemAdmin,
		IsApproved:    u.IsApproved,
	}
	if u.OfficeID != nil {
		actor.OfficeID = *u.OfficeID
	}
	if u.OfficeRegion != nil {
		actor.OfficeRegion = *u.OfficeRegion
	}
	return actor
}

func (a Actor) isApprovedStaff() bool {
	return a.IsApproved && (a.Role == models.RoleRegistrar || a.Role == models.RoleClerk)
}

// canAccessOffice resolves office scoping: registrars reach every office in
// their region, other approved users only their own office.
func canAccessOffice(actor Actor, scope Scope) bool {
	if actor.IsSystemAdmin {
		return true
	}
	if !actor.IsApproved {
		return false
	}
	if actor.Role == models.RoleRegistrar && actor.OfficeRegion != "" && actor.OfficeRegion == scope.Region {
		return true
	}
	return actor.OfficeID != "" && actor.OfficeID == scope.OfficeID
}

// CanViewAny reports whether the actor may list records at all. Listings are
// additionally filtered to the actor's scope by the caller.
func CanViewAny(actor Actor) bool {
	return actor.IsSystemAdmin || actor.isApprovedStaff()
}

// CanView reports whether the actor may read one record in the given scope.
func CanView(actor Actor, scope Scope) bool {
	if actor.IsSystemAdmin {
		return true
	}
	return actor.isApprovedStaff() && canAccessOffice(actor, scope)
}

// CanCreate reports whether the actor may create records. Clerks are
// read-only.
func CanCreate(actor Actor) bool {
	if actor.IsSystemAdmin {
		return true
	}
	return actor.IsApproved && actor.Role == models.RoleRegistrar
}

// CanUpdate reports whether the actor may modify one record in the scope.
func CanUpdate(actor Actor, scope Scope) bool {
	if actor.IsSystemAdmin {
		return true
	}
	return actor.IsApproved && actor.Role == models.RoleRegistrar && canAccessOffice(actor, scope)
}

// CanDelete reports whether the actor may delete one record in the scope.
func CanDelete(actor Actor, scope Scope) bool {
	return CanUpdate(actor, scope)
}

// CanManageOffices reports whether the actor may administer registration
// offices and users.
func CanManageOffices(actor Actor) bool {
	return actor.IsSystemAdmin
}

// ListScope returns the region and office the actor's listings must be
// restricted to. Empty strings mean unrestricted.
func ListScope(actor Actor) (region, officeID string) {
	if actor.IsSystemAdmin {
		return "", ""
	}
	if actor.Role == models.RoleRegistrar {
		return actor.OfficeRegion, ""
	}
	return "", actor.OfficeID
}
