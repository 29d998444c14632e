// Package idempotency replays the first response of a request carrying an
// Idempotency-Key header for as long as the key is remembered.
package idempotency

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// State is the result of claiming a key.
type State int

const (
	// StateNew means the caller owns the key and must Complete or Release it.
	StateNew State = iota
	// StateInFlight means another request holding the key has not finished.
	StateInFlight
	// StateDone means a response was stored for the key and should be replayed.
	StateDone
)

// Response is a stored HTTP response.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

type entry struct {
	done     bool
	response Response
}

// Guard tracks idempotency keys in an expiring in-memory cache.
type Guard struct {
	cache *gocache.Cache
	ttl   time.Duration
}

// NewGuard creates a guard that remembers keys for ttl.
func NewGuard(ttl, cleanupInterval time.Duration) *Guard {
	return &Guard{
		cache: gocache.New(ttl, cleanupInterval),
		ttl:   ttl,
	}
}

// Claim tries to take ownership of key. On StateDone the stored response is returned.
func (g *Guard) Claim(key string) (State, Response) {
	if err := g.cache.Add(key, entry{}, g.ttl); err == nil {
		return StateNew, Response{}
	}

	value, found := g.cache.Get(key)
	if !found {
		// Expired between Add and Get; try once more.
		if err := g.cache.Add(key, entry{}, g.ttl); err == nil {
			return StateNew, Response{}
		}
		return StateInFlight, Response{}
	}

	e, ok := value.(entry)
	if !ok || !e.done {
		return StateInFlight, Response{}
	}
	return StateDone, e.response
}

// Complete stores resp as the answer for key.
func (g *Guard) Complete(key string, resp Response) {
	g.cache.Set(key, entry{done: true, response: resp}, g.ttl)
}

// Release forgets key so the request can be retried.
func (g *Guard) Release(key string) {
	g.cache.Delete(key)
}
