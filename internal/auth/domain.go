package auth

import (
	"time"

	"github.com/vaultledger/vaultledger/internal/shared"
)

// LoginRequest carries credentials for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// TokenResponse is returned on successful login.
type TokenResponse struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Outcome is the single result of evaluating a request at the gate.
type Outcome int

// Gate outcomes.
const (
	OutcomeBypassed Outcome = iota + 1
	OutcomeAuthenticated
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeBypassed:
		return "bypassed"
	case OutcomeAuthenticated:
		return "authenticated"
	case OutcomeRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Decision is what the gate concluded for one request.
type Decision struct {
	Outcome  Outcome
	Identity *shared.Identity
	Err      error
}
