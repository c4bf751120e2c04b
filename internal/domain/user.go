package domain

import "time"

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User is the persisted identity behind an Actor. CONTRACTOR users carry
// the company they belong to; ADMIN and MANAGER users are not
// company-bound; UTILITY users reach companies through grants.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CompanyID    *string
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor derives the per-request actor value from the stored identity.
func (u *User) Actor() Actor {
	return Actor{ID: u.ID, Role: u.Role, CompanyID: u.CompanyID}
}
