package idempotency

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware_ScopeSeparatesCallers(t *testing.T) {
	guard := NewGuard(time.Minute, time.Minute)

	var calls atomic.Int32
	scope := func(r *http.Request) string { return r.Header.Get("X-Account") }
	h := Middleware(guard, scope, zerolog.Nop())(newTestHandler(&calls, http.StatusCreated))

	for _, account := range []string{"Farmer A", "Farmer B", "Farmer A"} {
		req := httptest.NewRequest(http.MethodPost, "/api/products", nil)
		req.Header.Set(HeaderKey, "k1")
		req.Header.Set("X-Account", account)
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Equal(t, int32(2), calls.Load(), "the second Farmer A request is replayed")
}
