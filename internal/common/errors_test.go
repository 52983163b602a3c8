package common

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatusFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"not found", fmt.Errorf("submission abc: %w", ErrNotFound), http.StatusNotFound},
		{"unauthenticated", ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", fmt.Errorf("not owner: %w", ErrForbidden), http.StatusForbidden},
		{"bad request", ErrBadRequest, http.StatusBadRequest},
		{"validation", fmt.Errorf("title: %w", ErrValidation), http.StatusBadRequest},
		{"conflict", fmt.Errorf("already voted: %w", ErrConflict), http.StatusConflict},
		{"unavailable", ErrServiceUnavailable, http.StatusServiceUnavailable},
		{"pg unique violation", fmt.Errorf("insert: %w", &pgconn.PgError{Code: PgUniqueViolation}), http.StatusConflict},
		{"pg check violation", &pgconn.PgError{Code: PgCheckViolation}, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusFromError(tt.err))
		})
	}
}

func TestIsPgError(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", &pgconn.PgError{Code: PgCheckViolation})
	assert.True(t, IsPgError(wrapped, PgCheckViolation))
	assert.False(t, IsPgError(wrapped, PgUniqueViolation))
	assert.False(t, IsPgError(errors.New("plain"), PgCheckViolation))
}

func TestRespondWithDomainError(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithDomainError(w, fmt.Errorf("you have already voted for this submission: %w", ErrConflict))
	require.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"you have already voted for this submission: resource conflict"}`, w.Body.String())

	w = httptest.NewRecorder()
	RespondWithDomainError(w, errors.New("pq: connection reset"))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
}
