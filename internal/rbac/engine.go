package rbac

import (
	"fmt"
	"sort"

	"github.com/vaultledger/vaultledger/internal/shared"
)

// Engine decides whether an identity may call a route. The table is fixed at
// construction; Engine is safe for concurrent use.
type Engine struct {
	rules map[Role][]Rule
}

// NewEngine compiles the role table.
func NewEngine(table map[Role][]Permission) (*Engine, error) {
	rules := make(map[Role][]Rule, len(table))
	for role, perms := range table {
		compiled := make([]Rule, 0, len(perms))
		for _, perm := range perms {
			rule, err := CompileRule(perm)
			if err != nil {
				return nil, fmt.Errorf("rbac: role %s permission %s: %w", role, perm.Name, err)
			}
			compiled = append(compiled, rule)
		}
		rules[role] = compiled
	}
	return &Engine{rules: rules}, nil
}

// DefaultEngine builds the engine for DefaultRoles.
func DefaultEngine() *Engine {
	engine, err := NewEngine(DefaultRoles())
	if err != nil {
		panic(err)
	}
	return engine
}

// Check reports whether identity holds a permission matching path and
// method. A nil identity or unknown role is denied.
func (e *Engine) Check(identity *shared.Identity, path, method string) bool {
	if e == nil || identity == nil {
		return false
	}
	role, ok := ParseRole(identity.Role)
	if !ok {
		return false
	}
	for _, rule := range e.rules[role] {
		if rule.Allows(path, method) {
			return true
		}
	}
	return false
}

// Roles lists the configured roles in name order.
func (e *Engine) Roles() []Role {
	roles := make([]Role, 0, len(e.rules))
	for role := range e.rules {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}
