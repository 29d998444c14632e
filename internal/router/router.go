package router

import (
	"net/http"

	"greenzone/internal/handler"
	"greenzone/internal/idempotency"
	"greenzone/internal/middleware"

	"github.com/rs/zerolog"
)

// New creates a new HTTP router with all routes and middleware configured.
func New(
	productHandler *handler.ProductHandler,
	ownershipHandler *handler.OwnershipHandler,
	guard *idempotency.Guard,
	apiKey string,
	logger zerolog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint (no authentication required)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	// Product routes
	mux.HandleFunc("GET /api/products", productHandler.List)
	mux.HandleFunc("POST /api/products", productHandler.Register)
	mux.HandleFunc("GET /api/products/ids", productHandler.IDs)
	mux.HandleFunc("GET /api/products/stats", productHandler.Stats)
	mux.HandleFunc("GET /api/products/{id}", productHandler.Get)
	mux.HandleFunc("GET /api/products/{id}/supply-chain", productHandler.SupplyChain)

	// Ownership routes
	mux.HandleFunc("POST /api/products/{id}/purchase", ownershipHandler.Purchase)
	mux.HandleFunc("POST /api/products/{id}/verify", ownershipHandler.Verify)

	// Apply middleware in order:
	// Recovery -> RequestID -> Logging -> CORS -> APIKeyAuth -> Identity -> Idempotency
	var handler http.Handler = mux
	handler = idempotency.Middleware(guard, callerScope, logger)(handler)
	handler = middleware.Identity(handler)
	handler = middleware.APIKeyAuth(apiKey, logger)(handler)
	handler = middleware.CORS(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(logger)(handler)

	return handler
}

// callerScope keys stored responses by caller so identities never share replays.
func callerScope(r *http.Request) string {
	id, _ := middleware.IdentityFrom(r.Context())
	return id.String()
}
