package handler

import (
	"net/http"

	"greenzone/internal/model"
	"greenzone/internal/service"

	"github.com/rs/zerolog"
)

// OwnershipHandler handles purchase and verification requests.
type OwnershipHandler struct {
	registry service.RegistryService
	logger   zerolog.Logger
}

// NewOwnershipHandler creates a new ownership handler.
func NewOwnershipHandler(registry service.RegistryService, logger zerolog.Logger) *OwnershipHandler {
	return &OwnershipHandler{
		registry: registry,
		logger:   logger.With().Str("handler", "ownership").Logger(),
	}
}

// purchaseRequest is the body of POST /api/products/{id}/purchase. The buyer is the caller.
type purchaseRequest struct {
	PaidAmount    int64          `json:"paidAmount"`
	ExpectedOwner model.Identity `json:"expectedOwner,omitempty"`
}

// Purchase handles POST /api/products/{id}/purchase requests.
func (h *OwnershipHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	buyer, ok := callerIdentity(w, r, h.logger)
	if !ok {
		return
	}

	var req purchaseRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	product, err := h.registry.Transfer(r.Context(), &model.TransferRequest{
		ProductID:     r.PathValue("id"),
		Buyer:         buyer,
		PaidAmount:    req.PaidAmount,
		ExpectedOwner: req.ExpectedOwner,
	})
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// Verify handles POST /api/products/{id}/verify requests.
func (h *OwnershipHandler) Verify(w http.ResponseWriter, r *http.Request) {
	verifier, ok := callerIdentity(w, r, h.logger)
	if !ok {
		return
	}

	product, err := h.registry.SetVerified(r.Context(), r.PathValue("id"), verifier)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, product)
}
