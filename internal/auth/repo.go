package auth

import (
	"context"

	"github.com/vaultledger/vaultledger/internal/users"
)

// Accounts is the user store the auth flows depend on.
type Accounts interface {
	FindByEmail(ctx context.Context, email string) (users.User, error)
	Register(ctx context.Context, input users.CreateInput) (users.User, error)
}

var _ Accounts = (*users.Service)(nil)
