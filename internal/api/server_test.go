package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"durance/internal/config"
	"durance/internal/game"
)

func apiConfig() config.APIConfig {
	return config.APIConfig{Addr: ":0", DatabaseURL: "postgres://localhost/durance"}
}

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: game.ErrNotFound, want: http.StatusNotFound},
		{err: game.ErrConflict, want: http.StatusConflict},
		{err: game.ErrAlreadyOwned, want: http.StatusConflict},
		{err: game.ErrAlreadyShielded, want: http.StatusConflict},
		{err: game.ErrAlreadyWorking, want: http.StatusConflict},
		{err: game.ErrNotOwner, want: http.StatusForbidden},
		{err: game.ErrShielded, want: http.StatusLocked},
		{err: game.ErrInsufficientFunds, want: http.StatusBadRequest},
		{err: game.ErrInvalidAmount, want: http.StatusBadRequest},
		{err: game.ErrSelfTrade, want: http.StatusBadRequest},
		{err: game.ErrNotOwned, want: http.StatusBadRequest},
		{err: game.ErrNoAssets, want: http.StatusBadRequest},
		{err: game.ErrNothingReady, want: http.StatusBadRequest},
	}
	for _, tc := range tests {
		rec := httptest.NewRecorder()
		writeDomainError(rec, tc.err)
		if rec.Code != tc.want {
			t.Fatalf("status for %v = %d, want %d", tc.err, rec.Code, tc.want)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Fatalf("content type = %q, want application/json", ct)
		}
	}
}

func TestHealthz(t *testing.T) {
	s := New(apiConfig(), nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d, want 200", rec.Code)
	}
}

func TestInvalidAccountID(t *testing.T) {
	s := New(apiConfig(), nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/accounts/notanumber", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
