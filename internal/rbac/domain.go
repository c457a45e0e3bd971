package rbac

import (
	"strings"
)

// Role is a closed set of permission groupings.
type Role string

// Known roles.
const (
	RoleUser  Role = "USER"
	RoleStaff Role = "STAFF"
	RoleAdmin Role = "ADMIN"
)

// ParseRole normalises raw into a known role.
func ParseRole(raw string) (Role, bool) {
	switch role := Role(strings.ToUpper(strings.TrimSpace(raw))); role {
	case RoleUser, RoleStaff, RoleAdmin:
		return role, true
	default:
		return "", false
	}
}

func (r Role) String() string {
	return string(r)
}

// Permission grants Method on every path matching Pattern. An empty Method
// means any method.
type Permission struct {
	Name    string
	Pattern string
	Method  string
}

// Built-in permissions.
var (
	UserRead   = Permission{Name: "USER_READ", Pattern: "/api/users/**", Method: "GET"}
	UserCreate = Permission{Name: "USER_CREATE", Pattern: "/api/users", Method: "POST"}
	UserUpdate = Permission{Name: "USER_UPDATE", Pattern: "/api/users/**", Method: "PUT"}
	UserDelete = Permission{Name: "USER_DELETE", Pattern: "/api/users/**", Method: "DELETE"}
	TxnRead    = Permission{Name: "TXN_READ", Pattern: "/api/transactions/**", Method: "GET"}
	TxnCreate  = Permission{Name: "TXN_CREATE", Pattern: "/api/transactions", Method: "POST"}
	TxnSecure  = Permission{Name: "TXN_SECURE", Pattern: "/api/transactions/secure/*", Method: "POST"}
)

// DefaultRoles returns the role table. USER carries no route permission.
func DefaultRoles() map[Role][]Permission {
	return map[Role][]Permission{
		RoleUser:  {},
		RoleStaff: {UserRead, UserCreate, TxnRead, TxnCreate},
		RoleAdmin: {UserRead, UserCreate, UserUpdate, UserDelete, TxnRead, TxnCreate, TxnSecure},
	}
}
