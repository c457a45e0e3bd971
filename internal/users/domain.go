package users

import (
	"time"

	"github.com/vaultledger/vaultledger/internal/rbac"
)

// Status is the account lifecycle state.
type Status string

// Account states. Deleted accounts are kept for audit and cannot log in.
const (
	StatusActive  Status = "ACTIVE"
	StatusDeleted Status = "DELETED"
)

// Profile holds optional personal details owned by the user row.
type Profile struct {
	Phone    string     `json:"phone,omitempty"`
	Address  string     `json:"address,omitempty"`
	Birthday *time.Time `json:"birthday,omitempty"`
	Gender   string     `json:"gender,omitempty"`
}

// User represents a user account for management.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	PasswordHash string    `json:"-"`
	Role         rbac.Role `json:"role"`
	Status       Status    `json:"status"`
	Profile      Profile   `json:"profile"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IsActive reports whether the account may authenticate.
func (u User) IsActive() bool {
	return u.Status == StatusActive
}

// CreateInput describes a new account.
type CreateInput struct {
	Email    string  `json:"email" validate:"required,email,max=255"`
	Password string  `json:"password" validate:"required,min=8,max=72"`
	FullName string  `json:"fullName" validate:"required,max=120"`
	Role     string  `json:"role" validate:"omitempty,oneof=USER STAFF ADMIN"`
	Profile  Profile `json:"profile"`
}

// UpdateInput changes role and/or status. Nil fields are left untouched.
type UpdateInput struct {
	Role   *string `json:"role" validate:"omitempty,oneof=USER STAFF ADMIN"`
	Status *Status `json:"status" validate:"omitempty,oneof=ACTIVE DELETED"`
}
