package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robertrullyp/drsis-finance/pkg/enums"
)

type memoryRateLimiter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newMemoryRateLimiter() *memoryRateLimiter {
	return &memoryRateLimiter{counts: map[string]int64{}}
}

func (s *memoryRateLimiter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[scope]++
	return s.counts[scope] <= limit, s.counts[scope], nil
}

func TestWriteRateLimitBlocksAfterLimit(t *testing.T) {
	store := newMemoryRateLimiter()
	policy := NewWriteRateLimitPolicy("writes", time.Minute, 2)
	handler := WriteRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	fire := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", nil)
		req = req.WithContext(WithActor(req.Context(), "kasir-01", enums.ActorRoleCashier))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusCreated, fire())
	require.Equal(t, http.StatusCreated, fire())
	require.Equal(t, http.StatusTooManyRequests, fire())
}

func TestWriteRateLimitScopesPerActor(t *testing.T) {
	store := newMemoryRateLimiter()
	policy := NewWriteRateLimitPolicy("writes", time.Minute, 1)
	handler := WriteRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	fire := func(actorID string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", nil)
		req = req.WithContext(WithActor(req.Context(), actorID, enums.ActorRoleCashier))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusCreated, fire("kasir-01"))
	require.Equal(t, http.StatusTooManyRequests, fire("kasir-01"))
	require.Equal(t, http.StatusCreated, fire("kasir-02"))
}

func TestWriteRateLimitIgnoresReads(t *testing.T) {
	store := newMemoryRateLimiter()
	policy := NewWriteRateLimitPolicy("writes", time.Minute, 1)
	handler := WriteRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}
