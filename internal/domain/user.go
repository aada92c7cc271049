package domain

import "time"

// User is a tenant-scoped account that can authenticate.
type User struct {
	ID           int64
	TenantID     int64
	Username     string
	PasswordHash string
	Role         Role
	IsSuperAdmin bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
