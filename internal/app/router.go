package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vaultledger/vaultledger/internal/auth"
	"github.com/vaultledger/vaultledger/internal/ledger"
	"github.com/vaultledger/vaultledger/internal/observability"
	"github.com/vaultledger/vaultledger/internal/platform/httpx"
	"github.com/vaultledger/vaultledger/internal/rbac"
	"github.com/vaultledger/vaultledger/internal/shared"
	"github.com/vaultledger/vaultledger/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger        *slog.Logger
	Config        *Config
	Gate          *auth.Gate
	Authorizer    rbac.Middleware
	AuthHandler   *auth.Handler
	UsersHandler  *users.Handler
	LedgerHandler *ledger.Handler
	Readiness     []Check
	Metrics       *observability.Metrics
}

// NewRouter constructs the chi.Router. Every request passes the gate; the
// allow-list decides which ones skip token verification.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}
	if params.Gate != nil {
		r.Use(params.Gate.Middleware)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpx.RespondError(w, shared.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "method not allowed")
	})

	r.Get("/healthz", healthHandler)
	r.Get("/readyz", readyHandler(params.Logger, params.Readiness))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		if params.AuthHandler != nil {
			r.Route("/auth", params.AuthHandler.MountRoutes)
		}
		r.Group(func(r chi.Router) {
			r.Use(params.Authorizer.Authorize())
			if params.UsersHandler != nil {
				r.Route("/users", params.UsersHandler.MountRoutes)
			}
			if params.LedgerHandler != nil {
				r.Route("/transactions", params.LedgerHandler.MountRoutes)
			}
		})
	})

	return r
}
