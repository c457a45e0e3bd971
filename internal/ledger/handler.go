package ledger

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vaultledger/vaultledger/internal/platform/httpx"
	"github.com/vaultledger/vaultledger/internal/securepayload"
	"github.com/vaultledger/vaultledger/internal/shared"
)

// Handler exposes the ledger over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers transaction routes. Authorization is applied by the caller.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.submit)
	r.Get("/{transactionId}", h.query)
	r.Post("/secure/encrypt", h.encrypt)
	r.Post("/secure/decrypt", h.decrypt)
}

type submitResponse struct {
	Reference     string          `json:"reference"`
	TransactionID string          `json:"transactionId"`
	Entries       []EntryResponse `json:"entries"`
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var in SubmitInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.Fail(h.logger, w, r, "ledger.submit", err)
		return
	}
	txn, err := h.service.Submit(r.Context(), in)
	if err != nil {
		httpx.Fail(h.logger, w, r, "ledger.submit", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, submitResponse{
		Reference:     txn.Reference.String(),
		TransactionID: txn.TransactionID,
		Entries:       toResponses(txn.Entries),
	})
}

func (h *Handler) query(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "transactionId"))
	if id == "" {
		httpx.Fail(h.logger, w, r, "ledger.query", shared.ErrNotFound)
		return
	}
	entries, err := h.service.Query(r.Context(), id)
	if err != nil {
		httpx.Fail(h.logger, w, r, "ledger.query", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponses(entries))
}

func (h *Handler) encrypt(w http.ResponseWriter, r *http.Request) {
	var in SubmitInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.Fail(h.logger, w, r, "ledger.encrypt", err)
		return
	}
	packets, err := h.service.Packets(r.Context(), in)
	if err != nil {
		httpx.Fail(h.logger, w, r, "ledger.encrypt", err)
		return
	}
	httpx.JSON(w, http.StatusOK, packets)
}

func (h *Handler) decrypt(w http.ResponseWriter, r *http.Request) {
	var packet securepayload.Packet
	if err := httpx.DecodeJSON(w, r, &packet); err != nil {
		// A malformed packet body is still rejected as secure data.
		httpx.Fail(h.logger, w, r, "ledger.decrypt", shared.Wrap(shared.ErrData, "ledger: decode packet", nil))
		return
	}
	fields, err := h.service.Decrypt(packet)
	if err != nil {
		httpx.Fail(h.logger, w, r, "ledger.decrypt", err)
		return
	}
	httpx.JSON(w, http.StatusOK, fields)
}
