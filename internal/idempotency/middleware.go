package idempotency

import (
	"bytes"
	"net/http"

	"github.com/rs/zerolog"
)

// HeaderKey is the request header carrying the client-chosen key.
const HeaderKey = "Idempotency-Key"

// HeaderReplayed marks a response served from the guard.
const HeaderReplayed = "Idempotent-Replayed"

// ScopeFunc returns the caller scope a key belongs to, so two callers never
// share a stored response.
type ScopeFunc func(r *http.Request) string

type recorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *recorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// Middleware applies the guard to POST requests carrying an Idempotency-Key.
// Successful and 4xx responses are stored; 5xx responses release the key so
// the client may retry.
func Middleware(guard *Guard, scope ScopeFunc, logger zerolog.Logger) func(http.Handler) http.Handler {
	logger = logger.With().Str("middleware", "idempotency").Logger()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(HeaderKey)
			if r.Method != http.MethodPost || key == "" {
				next.ServeHTTP(w, r)
				return
			}

			cacheKey := r.Method + " " + r.URL.Path + " " + key
			if scope != nil {
				cacheKey = scope(r) + " " + cacheKey
			}

			state, stored := guard.Claim(cacheKey)
			switch state {
			case StateInFlight:
				logger.Warn().Str("idempotency_key", key).Msg("request with same idempotency key in progress")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusConflict)
				_, _ = w.Write([]byte(`{"error":"REQUEST_IN_PROGRESS","message":"a request with this idempotency key is in progress"}`))
				return
			case StateDone:
				logger.Debug().Str("idempotency_key", key).Msg("replaying stored response")
				if stored.ContentType != "" {
					w.Header().Set("Content-Type", stored.ContentType)
				}
				w.Header().Set(HeaderReplayed, "true")
				w.WriteHeader(stored.StatusCode)
				_, _ = w.Write(stored.Body)
				return
			}

			rec := &recorder{ResponseWriter: w}
			completed := false
			defer func() {
				if !completed {
					guard.Release(cacheKey)
				}
			}()

			next.ServeHTTP(rec, r)

			if rec.status == 0 {
				rec.status = http.StatusOK
			}
			if rec.status >= http.StatusInternalServerError {
				return
			}

			guard.Complete(cacheKey, Response{
				StatusCode:  rec.status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        bytes.Clone(rec.body.Bytes()),
			})
			completed = true
		})
	}
}
