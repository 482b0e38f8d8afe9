package domain

import "time"

// UserStatus enumerates possible account states.
type UserStatus string

const (
	UserStatusPending UserStatus = "pending"
	UserStatusActive  UserStatus = "active"
)

// UserRole enumerates the roles an account can hold.
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

// IsValid reports whether the role is one of the known values.
func (r UserRole) IsValid() bool {
	return r == UserRoleUser || r == UserRoleAdmin
}

// User mirrors the persisted representation in the users table.
// Email is the cross-entity join key and is globally unique.
type User struct {
	ID                         string
	Firstname                  string
	Email                      string
	PasswordHash               string
	Role                       UserRole
	Status                     UserStatus
	AcceptedGeneralConditions  bool
	AcceptedResearchConditions bool
	CreatedAt                  time.Time
}

// IsActive reports whether the account completed email verification.
func (u User) IsActive() bool {
	return u.Status == UserStatusActive
}

// IsAdmin reports whether the account holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}
