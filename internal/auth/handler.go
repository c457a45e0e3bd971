package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vaultledger/vaultledger/internal/platform/httpx"
	"github.com/vaultledger/vaultledger/internal/shared"
	"github.com/vaultledger/vaultledger/internal/users"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/register", h.handleRegister)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.Fail(h.logger, w, r, "auth.login", err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(h.logger, w, r, "auth.login", shared.FieldErrorsFrom(err))
		return
	}
	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		httpx.Fail(h.logger, w, r, "auth.login", err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var input users.CreateInput
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		httpx.Fail(h.logger, w, r, "auth.register", err)
		return
	}
	user, err := h.service.Register(r.Context(), input)
	if err != nil {
		httpx.Fail(h.logger, w, r, "auth.register", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}
