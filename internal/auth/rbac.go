package auth

import "sort"

// Role is one of the fixed set of user roles.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleManager   Role = "manager"
	RoleFinance   Role = "finance"
	RoleInventory Role = "inventory"
	RoleHR        Role = "hr"
	RoleSales     Role = "sales"
	RoleViewer    Role = "viewer"
)

// Permission is a capability tag scoped by domain and action.
type Permission string

const (
	PermViewFinance    Permission = "view_finance"
	PermCreateFinance  Permission = "create_finance"
	PermEditFinance    Permission = "edit_finance"
	PermDeleteFinance  Permission = "delete_finance"
	PermApproveFinance Permission = "approve_finance"

	PermViewInventory   Permission = "view_inventory"
	PermCreateInventory Permission = "create_inventory"
	PermEditInventory   Permission = "edit_inventory"
	PermDeleteInventory Permission = "delete_inventory"

	PermViewHR    Permission = "view_hr"
	PermCreateHR  Permission = "create_hr"
	PermEditHR    Permission = "edit_hr"
	PermDeleteHR  Permission = "delete_hr"
	PermApproveHR Permission = "approve_hr"

	PermViewSales   Permission = "view_sales"
	PermCreateSales Permission = "create_sales"
	PermEditSales   Permission = "edit_sales"
	PermDeleteSales Permission = "delete_sales"

	PermManageUsers    Permission = "manage_users"
	PermManageRoles    Permission = "manage_roles"
	PermViewReports    Permission = "view_reports"
	PermSystemSettings Permission = "system_settings"
)

var allRoles = []Role{
	RoleAdmin, RoleManager, RoleFinance, RoleInventory, RoleHR, RoleSales, RoleViewer,
}

var allPermissions = []Permission{
	PermViewFinance, PermCreateFinance, PermEditFinance, PermDeleteFinance, PermApproveFinance,
	PermViewInventory, PermCreateInventory, PermEditInventory, PermDeleteInventory,
	PermViewHR, PermCreateHR, PermEditHR, PermDeleteHR, PermApproveHR,
	PermViewSales, PermCreateSales, PermEditSales, PermDeleteSales,
	PermManageUsers, PermManageRoles, PermViewReports, PermSystemSettings,
}

// rolePermissions is the role to permission table. Admin is filled in
// with the full universe by init.
var rolePermissions = map[Role][]Permission{
	RoleManager: {
		PermViewFinance, PermViewInventory, PermViewHR, PermViewSales, PermViewReports,
		PermCreateFinance, PermCreateInventory, PermEditFinance, PermEditInventory,
		PermApproveHR,
	},
	RoleFinance: {
		PermViewFinance, PermCreateFinance, PermEditFinance, PermDeleteFinance, PermApproveFinance,
	},
	RoleInventory: {
		PermViewInventory, PermCreateInventory, PermEditInventory, PermDeleteInventory,
	},
	RoleHR: {
		PermViewHR, PermCreateHR, PermEditHR, PermDeleteHR, PermApproveHR,
	},
	RoleSales: {
		PermViewSales, PermCreateSales, PermEditSales, PermDeleteSales,
	},
	RoleViewer: {
		PermViewFinance, PermViewInventory, PermViewHR, PermViewSales,
	},
}

// permissionSets is the lookup form of rolePermissions. Read-only after init.
var permissionSets map[Role]map[Permission]struct{}

func init() {
	rolePermissions[RoleAdmin] = append([]Permission(nil), allPermissions...)

	permissionSets = make(map[Role]map[Permission]struct{}, len(rolePermissions))
	for role, perms := range rolePermissions {
		set := make(map[Permission]struct{}, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		permissionSets[role] = set
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := permissionSets[r]
	return ok
}

// Roles returns every known role.
func Roles() []Role {
	return append([]Role(nil), allRoles...)
}

// AllPermissions returns the full permission universe.
func AllPermissions() []Permission {
	return append([]Permission(nil), allPermissions...)
}

// PermissionsFor returns the permissions granted to role, sorted by name.
// Unknown roles have no permissions.
func PermissionsFor(role Role) []Permission {
	perms := append([]Permission(nil), rolePermissions[role]...)
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}

// HasPermission reports whether role grants permission.
func HasPermission(role Role, permission Permission) bool {
	_, ok := permissionSets[role][permission]
	return ok
}

// HasAny reports whether role grants at least one of permissions.
func HasAny(role Role, permissions ...Permission) bool {
	for _, p := range permissions {
		if HasPermission(role, p) {
			return true
		}
	}
	return false
}

// HasAll reports whether role grants every one of permissions.
func HasAll(role Role, permissions ...Permission) bool {
	for _, p := range permissions {
		if !HasPermission(role, p) {
			return false
		}
	}
	return true
}

// RoleIn reports whether role is one of roles.
func RoleIn(role Role, roles ...Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
