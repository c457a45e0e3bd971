package users

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vaultledger/vaultledger/internal/rbac"
	"github.com/vaultledger/vaultledger/internal/shared"
)

type mockRepository struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]User
}

func newMockRepository() *mockRepository {
	return &mockRepository{users: make(map[int64]User)}
}

func (m *mockRepository) ListUsers(ctx context.Context) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []User
	for id := int64(1); id <= m.nextID; id++ {
		if u, ok := m.users[id]; ok && u.Status != StatusDeleted {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *mockRepository) GetUser(ctx context.Context, id int64) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (m *mockRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return User{}, shared.ErrNotFound
}

func (m *mockRepository) CreateUser(ctx context.Context, user User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return User{}, shared.ErrConflict
		}
	}
	m.nextID++
	user.ID = m.nextID
	m.users[user.ID] = user
	return user, nil
}

func (m *mockRepository) UpdateUser(ctx context.Context, user User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return User{}, shared.ErrNotFound
	}
	m.users[user.ID] = user
	return user, nil
}

func (m *mockRepository) SoftDeleteUser(ctx context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.Status == StatusDeleted {
		return shared.ErrNotFound
	}
	u.Status = StatusDeleted
	u.UpdatedAt = at
	m.users[id] = u
	return nil
}

func newTestService() (*Service, *mockRepository) {
	repo := newMockRepository()
	return NewService(repo).WithHashCost(bcrypt.MinCost), repo
}

func TestCreateUserHashesPassword(t *testing.T) {
	svc, _ := newTestService()
	user, err := svc.CreateUser(context.Background(), CreateInput{
		Email:    " Staff@Example.com ",
		Password: "s3cretpass",
		FullName: "Staff Member",
		Role:     "staff",
		Profile:  Profile{Phone: "+62811", Gender: "F"},
	})
	require.NoError(t, err)
	assert.Equal(t, "staff@example.com", user.Email)
	assert.Equal(t, rbac.RoleStaff, user.Role)
	assert.Equal(t, StatusActive, user.Status)
	assert.Equal(t, "+62811", user.Profile.Phone)
	assert.NotEqual(t, "s3cretpass", user.PasswordHash)
	assert.NoError(t, VerifyPassword(user, "s3cretpass"))
	assert.ErrorIs(t, VerifyPassword(user, "wrong-pass"), shared.ErrInvalidCredentials)
}

func TestCreateUserValidation(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.CreateUser(context.Background(), CreateInput{Email: "not-an-email", Password: "short", Role: "ROOT"})
	require.ErrorIs(t, err, shared.ErrValidation)
	var fields shared.FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.Contains(t, fields, "Email")
	assert.Contains(t, fields, "Password")
	assert.Contains(t, fields, "FullName")
	assert.Contains(t, fields, "Role")
}

func TestCreateUserComposesFullName(t *testing.T) {
	svc, _ := newTestService()
	user, err := svc.CreateUser(context.Background(), CreateInput{Email: "jose@example.com", Password: "password1", FullName: "Jose\u0301"})
	require.NoError(t, err)
	assert.Equal(t, "Jos\u00e9", user.FullName)
}

func TestRegisterForcesUserRole(t *testing.T) {
	svc, _ := newTestService()
	user, err := svc.Register(context.Background(), CreateInput{Email: "me@example.com", Password: "password1", FullName: "Me", Role: "ADMIN"})
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleUser, user.Role)

	_, err = svc.Register(context.Background(), CreateInput{Email: "ME@example.com", Password: "password1", FullName: "Me again"})
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestUpdateAndDeleteUser(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	user, err := svc.CreateUser(ctx, CreateInput{Email: "u@example.com", Password: "password1", FullName: "U"})
	require.NoError(t, err)

	role := "admin"
	updated, err := svc.UpdateUser(ctx, user.ID, UpdateInput{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleAdmin, updated.Role)

	bad := "ROOT"
	_, err = svc.UpdateUser(ctx, user.ID, UpdateInput{Role: &bad})
	assert.ErrorIs(t, err, shared.ErrValidation)

	require.NoError(t, svc.DeleteUser(ctx, user.ID))
	assert.ErrorIs(t, svc.DeleteUser(ctx, user.ID), shared.ErrNotFound)
	listed, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, listed)

	_, err = svc.UpdateUser(ctx, 999, UpdateInput{})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestHandlerRoutes(t *testing.T) {
	svc, _ := newTestService()
	router := chi.NewRouter()
	router.Route("/api/users", NewHandler(nil, svc).MountRoutes)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/users",
		strings.NewReader(`{"email":"new@example.com","password":"password1","fullName":"New User"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"USER"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/users/1", strings.NewReader(`{"status":"DELETED"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/abc", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/users/42", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(`{"email":"x"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
