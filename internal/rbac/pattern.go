package rbac

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// Pattern matches request paths. "*" spans one segment, "**" spans any
// number of segments and a trailing "/**" also matches the bare prefix.
type Pattern struct {
	raw   string
	globs []glob.Glob
}

// CompilePattern parses raw into a Pattern.
func CompilePattern(raw string) (Pattern, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") {
		return Pattern{}, fmt.Errorf("rbac: pattern %q must start with /", raw)
	}
	sources := []string{raw}
	if base, ok := strings.CutSuffix(raw, "/**"); ok {
		if base == "" {
			base = "/"
		}
		sources = append(sources, base)
	}
	p := Pattern{raw: raw}
	for _, src := range sources {
		g, err := glob.Compile(src, '/')
		if err != nil {
			return Pattern{}, fmt.Errorf("rbac: compile pattern %q: %w", raw, err)
		}
		p.globs = append(p.globs, g)
	}
	return p, nil
}

// MustCompilePattern is CompilePattern for static tables.
func MustCompilePattern(raw string) Pattern {
	p, err := CompilePattern(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// Match reports whether path satisfies the pattern.
func (p Pattern) Match(path string) bool {
	for _, g := range p.globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}

func (p Pattern) String() string {
	return p.raw
}

// Rule is a compiled permission.
type Rule struct {
	Pattern Pattern
	Method  string
}

// CompileRule compiles a permission.
func CompileRule(perm Permission) (Rule, error) {
	pattern, err := CompilePattern(perm.Pattern)
	if err != nil {
		return Rule{}, err
	}
	return Rule{Pattern: pattern, Method: strings.ToUpper(strings.TrimSpace(perm.Method))}, nil
}

// Allows reports whether the rule covers method on path.
func (r Rule) Allows(path, method string) bool {
	if r.Method != "" && r.Method != "*" && !strings.EqualFold(r.Method, method) {
		return false
	}
	return r.Pattern.Match(path)
}
