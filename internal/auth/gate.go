package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vaultledger/vaultledger/internal/logmask"
	"github.com/vaultledger/vaultledger/internal/platform/httpx"
	"github.com/vaultledger/vaultledger/internal/rbac"
	"github.com/vaultledger/vaultledger/internal/shared"
	"github.com/vaultledger/vaultledger/internal/tokens"
)

// DefaultPublicEndpoints is the allow-list used when none is configured.
const DefaultPublicEndpoints = "POST /api/auth/login,POST /api/auth/register,GET /healthz,GET /readyz,GET /metrics"

// PublicEndpoint bypasses authentication. An empty Method matches any method.
type PublicEndpoint struct {
	Method  string
	Pattern rbac.Pattern
}

// ParsePublicEndpoints reads a comma separated "METHOD /pattern" list. A
// bare pattern or "*" method allows every method.
func ParsePublicEndpoints(raw string) ([]PublicEndpoint, error) {
	var endpoints []PublicEndpoint
	for _, item := range strings.Split(raw, ",") {
		fields := strings.Fields(item)
		var method, pattern string
		switch len(fields) {
		case 0:
			continue
		case 1:
			pattern = fields[0]
		case 2:
			method, pattern = strings.ToUpper(fields[0]), fields[1]
			if method == "*" {
				method = ""
			}
		default:
			return nil, fmt.Errorf("auth: malformed public endpoint %q", strings.TrimSpace(item))
		}
		compiled, err := rbac.CompilePattern(pattern)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, PublicEndpoint{Method: method, Pattern: compiled})
	}
	return endpoints, nil
}

// Matches reports whether the endpoint covers the request.
func (p PublicEndpoint) Matches(method, path string) bool {
	if p.Method != "" && !strings.EqualFold(p.Method, method) {
		return false
	}
	return p.Pattern.Match(path)
}

// Verifier validates bearer tokens.
type Verifier interface {
	Verify(token string) (*tokens.Claims, error)
}

// OutcomeRecorder counts gate outcomes.
type OutcomeRecorder interface {
	ObserveAuth(outcome, reason string)
}

// Gate authenticates every inbound request exactly once.
type Gate struct {
	verifier Verifier
	public   []PublicEndpoint
	logger   *slog.Logger
	recorder OutcomeRecorder
}

// NewGate constructs the gate. recorder and logger may be nil.
func NewGate(verifier Verifier, public []PublicEndpoint, logger *slog.Logger, recorder OutcomeRecorder) *Gate {
	return &Gate{verifier: verifier, public: public, logger: logger, recorder: recorder}
}

// Evaluate classifies the request without writing a response.
func (g *Gate) Evaluate(r *http.Request) Decision {
	for _, endpoint := range g.public {
		if endpoint.Matches(r.Method, r.URL.Path) {
			return Decision{Outcome: OutcomeBypassed}
		}
	}
	raw, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		return Decision{Outcome: OutcomeRejected, Err: shared.ErrTokenMissing}
	}
	claims, err := g.verifier.Verify(raw)
	if err != nil {
		if !errors.Is(err, shared.ErrUnauthorized) {
			err = shared.ErrTokenInvalid
		}
		return Decision{Outcome: OutcomeRejected, Err: err}
	}
	return Decision{Outcome: OutcomeAuthenticated, Identity: claims.Identity()}
}

// Middleware applies Evaluate; rejected requests receive 401 with the reason code.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision := g.Evaluate(r)
		reason := shared.AuthReason(decision.Err)
		if g.recorder != nil {
			g.recorder.ObserveAuth(decision.Outcome.String(), reason)
		}
		switch decision.Outcome {
		case OutcomeBypassed:
			next.ServeHTTP(w, r)
		case OutcomeAuthenticated:
			next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), decision.Identity)))
		default:
			if g.logger != nil {
				g.logger.Info("authentication rejected",
					slog.String("reason", reason),
					slog.String("method", r.Method),
					slog.String("path", logmask.Path(r.URL.Path)))
			}
			httpx.RespondError(w, decision.Err)
		}
	})
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}
