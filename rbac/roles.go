package rbac

import "github.com/ecobuddy/locator/models"

// Role represents a logical capability grouping for authenticated users.
type Role string

const (
	RoleManager Role = "manager"
	RoleVisitor Role = "visitor"
)

// Permission represents an actionable verb within the API surface.
type Permission string

const (
	PermissionManageFacilities Permission = "facilities:manage"
	PermissionViewSession      Permission = "session:view"
)

// RoleMatrix enumerates which roles satisfy a permission.
var RoleMatrix = map[Permission][]Role{
	PermissionManageFacilities: {
		RoleManager,
	},
	PermissionViewSession: {
		RoleManager,
		RoleVisitor,
	},
}

// RolesFor maps a stored account class onto its roles.
func RolesFor(kind models.UserType) []Role {
	if kind == models.UserTypeManager {
		return []Role{RoleManager}
	}
	return []Role{RoleVisitor}
}
