package domain

// Role is the access level carried by a session principal.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleStore      Role = "store"
	RoleSuperAdmin Role = "superadmin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStore, RoleSuperAdmin:
		return true
	}
	return false
}

// Principal is the authenticated identity attached to a session. It is
// immutable for the lifetime of a session and re-issued at login.
// TenantID == 0 is valid only for superadmins, which are tenant-unscoped.
type Principal struct {
	ID           int64
	Username     string
	Role         Role
	TenantID     int64
	TenantSlug   string
	IsSuperAdmin bool
}
