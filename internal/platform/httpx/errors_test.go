package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultledger/vaultledger/internal/shared"
)

func TestRespondErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		title  string
	}{
		{"config", shared.Wrap(shared.ErrConfig, "keys: load", errors.New("keystore.p12 missing")), http.StatusInternalServerError, "Internal Error"},
		{"process", shared.Wrap(shared.ErrProcess, "cryptox: encrypt", nil), http.StatusInternalServerError, "Internal Error"},
		{"data", shared.Wrap(shared.ErrData, "cryptox: decrypt", errors.New("authentication failed")), http.StatusBadRequest, "Security Violation"},
		{"validation", shared.FieldErrors{"amount": "min=10000"}, http.StatusBadRequest, "Validation Failed"},
		{"credentials", shared.ErrInvalidCredentials, http.StatusUnauthorized, "Unauthorized"},
		{"token", shared.ErrTokenExpired, http.StatusUnauthorized, "Unauthorized"},
		{"forbidden", shared.ErrForbidden, http.StatusForbidden, "Forbidden"},
		{"not found", shared.Wrap(shared.ErrNotFound, "ledger: query", nil), http.StatusNotFound, "Not Found"},
		{"conflict", shared.Wrap(shared.ErrConflict, "ledger: submit T-1", nil), http.StatusConflict, "Conflict"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "Internal Error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondError(rec, tc.err)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.status, StatusFor(tc.err))
			var body ProblemDetail
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.title, body.Title)
			assert.Equal(t, tc.status, body.Status)
			assert.NotContains(t, rec.Body.String(), "keystore.p12")
			assert.NotContains(t, rec.Body.String(), "T-1")
			assert.NotContains(t, rec.Body.String(), "authentication failed")
		})
	}
}

func TestRespondErrorCarriesDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, shared.ErrTokenMissing)
	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, shared.ReasonTokenMissing, body.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	rec = httptest.NewRecorder()
	RespondError(rec, shared.Wrap(shared.ErrData, "securepayload: decrypt", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, SecureDataDetail, body.Detail)

	rec = httptest.NewRecorder()
	RespondError(rec, shared.FieldErrors{"amount": "min=10000"})
	body = ProblemDetail{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"amount": "min=10000"}, body.Errors)
}

func TestFailLogsServerErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	req := httptest.NewRequest(http.MethodGet, "/api/transactions/T-1", nil)

	rec := httptest.NewRecorder()
	Fail(logger, rec, req, "ledger.query", errors.New("connection reset"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), "connection reset")

	buf.Reset()
	rec = httptest.NewRecorder()
	Fail(logger, rec, req, "ledger.query", shared.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, strings.TrimSpace(buf.String()))
}

func TestDecodeJSON(t *testing.T) {
	var target struct {
		Email string `json:"email"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.io"}`))
	require.NoError(t, DecodeJSON(httptest.NewRecorder(), req, &target))
	assert.Equal(t, "a@b.io", target.Email)

	for _, body := range []string{`{"email":`, `{"unknown":1}`, ``} {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		err := DecodeJSON(httptest.NewRecorder(), req, &target)
		assert.ErrorIs(t, err, shared.ErrValidation, body)
	}
}
