package domain

import "time"

// Role identifies what a user is allowed to do.
type Role string

const (
	RoleCSR        Role = "CSR"
	RoleTL         Role = "TL"
	RoleAccounting Role = "Accounting"
	RoleAdmin      Role = "Admin"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCSR, RoleTL, RoleAccounting, RoleAdmin:
		return true
	}
	return false
}

// CanMutate reports whether the role may create or modify records.
func (r Role) CanMutate() bool {
	switch r {
	case RoleCSR, RoleTL, RoleAdmin:
		return true
	}
	return false
}

// CanDelete reports whether the role may delete or deactivate records.
func (r Role) CanDelete() bool {
	return r == RoleTL || r == RoleAdmin
}

// User is an operator account.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	Role         Role       `json:"role"`
	IsActive     bool       `json:"isActive"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// FullName returns the user's display name.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
