package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultledger/vaultledger/internal/shared"
)

func TestPatternMatch(t *testing.T) {
	cases := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"/api/users/**", "/api/users", true},
		{"/api/users/**", "/api/users/5", true},
		{"/api/users/**", "/api/users/5/profile", true},
		{"/api/users/**", "/api/usersx", false},
		{"/api/users", "/api/users", true},
		{"/api/users", "/api/users/5", false},
		{"/api/transactions/secure/*", "/api/transactions/secure/encrypt", true},
		{"/api/transactions/secure/*", "/api/transactions/secure/a/b", false},
		{"/api/*/detail", "/api/orders/detail", true},
		{"/api/*/detail", "/api/orders/x/detail", false},
		{"/**", "/", true},
		{"/**", "/anything/at/all", true},
	}
	for _, tc := range cases {
		p, err := CompilePattern(tc.pattern)
		require.NoError(t, err)
		assert.Equal(t, tc.want, p.Match(tc.path), "%s ~ %s", tc.pattern, tc.path)
	}
}

func TestCompilePatternRejectsRelative(t *testing.T) {
	_, err := CompilePattern("api/users")
	assert.Error(t, err)
	_, err = CompilePattern("")
	assert.Error(t, err)
	assert.Panics(t, func() { MustCompilePattern("nope") })
}

func TestEngineDefaultTable(t *testing.T) {
	engine := DefaultEngine()
	admin := &shared.Identity{UserID: 1, Role: "ADMIN"}
	staff := &shared.Identity{UserID: 2, Role: "STAFF"}
	user := &shared.Identity{UserID: 3, Role: "USER"}

	cases := []struct {
		name     string
		identity *shared.Identity
		path     string
		method   string
		want     bool
	}{
		{"admin delete user", admin, "/api/users/5", "DELETE", true},
		{"staff delete user", staff, "/api/users/5", "DELETE", false},
		{"staff list users", staff, "/api/users", "GET", true},
		{"staff create user", staff, "/api/users", "POST", true},
		{"staff update user", staff, "/api/users/5", "PUT", false},
		{"admin update user", admin, "/api/users/5", "PUT", true},
		{"method case insensitive", admin, "/api/users/5", "delete", true},
		{"user has nothing", user, "/api/users", "GET", false},
		{"staff submits transaction", staff, "/api/transactions", "POST", true},
		{"staff reads transaction", staff, "/api/transactions/T-1", "GET", true},
		{"staff secure endpoint", staff, "/api/transactions/secure/encrypt", "POST", false},
		{"admin secure endpoint", admin, "/api/transactions/secure/decrypt", "POST", true},
		{"wrong method", admin, "/api/transactions", "PATCH", false},
		{"unknown role", &shared.Identity{UserID: 9, Role: "ROOT"}, "/api/users", "GET", false},
		{"empty role", &shared.Identity{UserID: 9}, "/api/users", "GET", false},
		{"nil identity", nil, "/api/users", "GET", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, engine.Check(tc.identity, tc.path, tc.method))
		})
	}
}

func TestEngineAnyMethod(t *testing.T) {
	engine, err := NewEngine(map[Role][]Permission{
		RoleUser: {{Name: "REPORTS", Pattern: "/api/reports/**"}},
	})
	require.NoError(t, err)
	identity := &shared.Identity{UserID: 1, Role: "user"}
	for _, method := range []string{"GET", "POST", "DELETE"} {
		assert.True(t, engine.Check(identity, "/api/reports/daily", method))
	}
	assert.False(t, engine.Check(identity, "/api/users", "GET"))
	assert.Equal(t, []Role{RoleUser}, engine.Roles())
}

func TestNilEngineDenies(t *testing.T) {
	var engine *Engine
	assert.False(t, engine.Check(&shared.Identity{Role: "ADMIN"}, "/api/users", "GET"))
}

func TestNewEngineRejectsBadPattern(t *testing.T) {
	_, err := NewEngine(map[Role][]Permission{RoleAdmin: {{Name: "BAD", Pattern: "relative"}}})
	assert.Error(t, err)
}

func TestParseRole(t *testing.T) {
	role, ok := ParseRole(" staff ")
	assert.True(t, ok)
	assert.Equal(t, RoleStaff, role)
	_, ok = ParseRole("guest")
	assert.False(t, ok)
}

func TestMiddlewareAuthorize(t *testing.T) {
	mw := Middleware{Engine: DefaultEngine()}
	handler := mw.Authorize()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodDelete, "/api/users/5", nil)
	req = req.WithContext(shared.ContextWithIdentity(req.Context(), &shared.Identity{UserID: 1, Role: "ADMIN"}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/api/users/5", nil)
	req = req.WithContext(shared.ContextWithIdentity(req.Context(), &shared.Identity{UserID: 2, Role: "STAFF"}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
