package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/unicode/norm"

	"github.com/vaultledger/vaultledger/internal/rbac"
	"github.com/vaultledger/vaultledger/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	CreateUser(ctx context.Context, user User) (User, error)
	UpdateUser(ctx context.Context, user User) (User, error)
	SoftDeleteUser(ctx context.Context, id int64, at time.Time) error
}

// Service handles user business logic.
type Service struct {
	repo      RepositoryPort
	validator *validator.Validate
	cost      int
	now       func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, validator: validator.New(), cost: bcrypt.DefaultCost, now: time.Now}
}

// WithHashCost overrides the bcrypt cost; tests use bcrypt.MinCost.
func (s *Service) WithHashCost(cost int) *Service {
	s.cost = cost
	return s
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// GetUser returns one user.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	if id <= 0 {
		return User{}, shared.ErrNotFound
	}
	return s.repo.GetUser(ctx, id)
}

// FindByEmail looks up an account for login.
func (s *Service) FindByEmail(ctx context.Context, email string) (User, error) {
	return s.repo.FindByEmail(ctx, strings.TrimSpace(email))
}

// CreateUser validates input, hashes the password and stores the account.
// An empty role defaults to USER.
func (s *Service) CreateUser(ctx context.Context, input CreateInput) (User, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.FullName = norm.NFC.String(strings.TrimSpace(input.FullName))
	input.Role = strings.ToUpper(strings.TrimSpace(input.Role))
	if err := s.validator.Struct(input); err != nil {
		return User{}, shared.FieldErrorsFrom(err)
	}
	role := rbac.RoleUser
	if input.Role != "" {
		role = rbacRole(input.Role)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		return User{}, shared.Wrap(shared.ErrProcess, "users: hash password", err)
	}
	now := s.now().UTC()
	return s.repo.CreateUser(ctx, User{
		Email:        input.Email,
		FullName:     input.FullName,
		PasswordHash: string(hash),
		Role:         role,
		Status:       StatusActive,
		Profile:      input.Profile,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

// Register creates a self-service account which always receives the USER role.
func (s *Service) Register(ctx context.Context, input CreateInput) (User, error) {
	input.Role = string(rbac.RoleUser)
	return s.CreateUser(ctx, input)
}

// UpdateUser applies role/status changes.
func (s *Service) UpdateUser(ctx context.Context, id int64, input UpdateInput) (User, error) {
	if input.Role != nil {
		normalized := strings.ToUpper(strings.TrimSpace(*input.Role))
		input.Role = &normalized
	}
	if err := s.validator.Struct(input); err != nil {
		return User{}, shared.FieldErrorsFrom(err)
	}
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	if input.Role != nil {
		user.Role = rbacRole(*input.Role)
	}
	if input.Status != nil {
		user.Status = *input.Status
	}
	user.UpdatedAt = s.now().UTC()
	return s.repo.UpdateUser(ctx, user)
}

// DeleteUser soft-deletes the account.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrNotFound
	}
	return s.repo.SoftDeleteUser(ctx, id, s.now().UTC())
}

// VerifyPassword compares password against the stored hash.
func VerifyPassword(user User, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return shared.ErrInvalidCredentials
		}
		return shared.Wrap(shared.ErrInvalidCredentials, "users: compare hash", err)
	}
	return nil
}

func rbacRole(raw string) rbac.Role {
	role, ok := rbac.ParseRole(raw)
	if !ok {
		return rbac.Role(raw)
	}
	return role
}
