package rbac

import (
	"log/slog"
	"net/http"

	"github.com/vaultledger/vaultledger/internal/logmask"
	"github.com/vaultledger/vaultledger/internal/platform/httpx"
	"github.com/vaultledger/vaultledger/internal/shared"
)

// Middleware wires RBAC authorization into HTTP handlers. It must run after
// the authentication gate has attached the identity.
type Middleware struct {
	Engine *Engine
	Logger *slog.Logger
}

// Authorize rejects requests whose identity lacks a matching permission.
func (m Middleware) Authorize() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := shared.IdentityFromContext(r.Context())
			if !m.Engine.Check(identity, r.URL.Path, r.Method) {
				if m.Logger != nil {
					attrs := []any{slog.String("method", r.Method), slog.String("path", logmask.Path(r.URL.Path))}
					if identity != nil {
						attrs = append(attrs, slog.Int64("user_id", identity.UserID), slog.String("role", identity.Role))
					}
					m.Logger.Warn("rbac denied", attrs...)
				}
				httpx.RespondError(w, shared.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
