package auth

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/vaultledger/vaultledger/internal/shared"
	"github.com/vaultledger/vaultledger/internal/users"
)

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(userID int64, role string) (string, error)
	TTL() time.Duration
}

// dummyHash keeps unknown-email logins as slow as wrong-password ones.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("vaultledger-placeholder"), bcrypt.MinCost)

// Service wraps authentication business rules.
type Service struct {
	accounts Accounts
	tokens   TokenIssuer
	now      func() time.Time
}

// NewService constructs a new Service.
func NewService(accounts Accounts, tokens TokenIssuer) *Service {
	return &Service{accounts: accounts, tokens: tokens, now: time.Now}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (users.User, error) {
	user, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return users.User{}, shared.ErrInvalidCredentials
		}
		return users.User{}, err
	}
	if !user.IsActive() {
		return users.User{}, shared.ErrInvalidCredentials
	}
	if err := users.VerifyPassword(user, password); err != nil {
		return users.User{}, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates and issues an access token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (TokenResponse, error) {
	user, err := s.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return TokenResponse{}, err
	}
	issuedAt := s.now()
	token, err := s.tokens.Issue(user.ID, string(user.Role))
	if err != nil {
		return TokenResponse{}, err
	}
	return TokenResponse{AccessToken: token, TokenType: "Bearer", ExpiresAt: issuedAt.Add(s.tokens.TTL()).UTC()}, nil
}

// Register creates a USER-role account.
func (s *Service) Register(ctx context.Context, input users.CreateInput) (users.User, error) {
	return s.accounts.Register(ctx, input)
}
