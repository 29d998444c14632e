package handler

import (
	"net/http"
	"strconv"
	"time"

	"greenzone/internal/model"
	"greenzone/internal/service"

	"github.com/rs/zerolog"
)

// ProductHandler handles product-related HTTP requests.
type ProductHandler struct {
	registry service.RegistryService
	query    service.QueryService
	logger   zerolog.Logger
}

// NewProductHandler creates a new product handler.
func NewProductHandler(registry service.RegistryService, query service.QueryService, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		registry: registry,
		query:    query,
		logger:   logger.With().Str("handler", "product").Logger(),
	}
}

// registerRequest is the body of POST /api/products. The registrant is the caller.
type registerRequest struct {
	ProductID     string    `json:"productId"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Location      string    `json:"location"`
	HarvestDate   time.Time `json:"harvestDate"`
	Farmer        string    `json:"farmer"`
	Certification string    `json:"certification"`
	Price         int64     `json:"price"`
}

// List handles GET /api/products requests with search, status filter and pagination.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := model.ProductFilter{
		Search:       q.Get("q"),
		Verification: model.VerificationFilter(q.Get("status")),
	}

	var ok bool
	if filter.Limit, ok = h.intParam(w, r, "limit"); !ok {
		return
	}
	if filter.Offset, ok = h.intParam(w, r, "offset"); !ok {
		return
	}

	products, err := h.query.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, products)
}

// IDs handles GET /api/products/ids requests.
func (h *ProductHandler) IDs(w http.ResponseWriter, r *http.Request) {
	ids, err := h.query.ListIdentifiers(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, ids)
}

// Stats handles GET /api/products/stats requests.
func (h *ProductHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.query.Stats(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// Register handles POST /api/products requests.
func (h *ProductHandler) Register(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r, h.logger)
	if !ok {
		return
	}

	var req registerRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	product, err := h.registry.Register(r.Context(), &model.RegisterRequest{
		ID:            req.ProductID,
		Name:          req.Name,
		Description:   req.Description,
		Location:      req.Location,
		HarvestDate:   req.HarvestDate,
		Farmer:        req.Farmer,
		Certification: req.Certification,
		Price:         req.Price,
		RegisteredBy:  caller,
	})
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, product)
}

// Get handles GET /api/products/{id} requests.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.query.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// SupplyChain handles GET /api/products/{id}/supply-chain requests.
func (h *ProductHandler) SupplyChain(w http.ResponseWriter, r *http.Request) {
	seq, err := h.query.DeriveSupplyChain(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	steps := []model.SupplyChainStep{}
	for step, err := range seq {
		if err != nil {
			writeServiceError(w, r, err, h.logger)
			return
		}
		steps = append(steps, step)
	}

	writeJSON(w, http.StatusOK, steps)
}

// intParam parses an optional non-negative integer query parameter.
func (h *ProductHandler) intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeError(w, r, http.StatusBadRequest, model.ErrorResponse{
			Error:   model.ErrCodeInvalidArgument,
			Message: "invalid " + name + " parameter",
			Field:   name,
		}, h.logger)
		return 0, false
	}
	return n, true
}
