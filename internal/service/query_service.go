package service

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"greenzone/internal/metrics"
	"greenzone/internal/model"
	"greenzone/internal/repository"
	"greenzone/internal/tracing"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Listing bounds.
const (
	DefaultListLimit = 10
	MaxListLimit     = 100
)

// queryService implements QueryService.
type queryService struct {
	products repository.ProductRepository
	steps    repository.StepRepository
	pageSize int
	tracer   trace.Tracer
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewQueryService creates a query service over the product and step stores.
func NewQueryService(products repository.ProductRepository, steps repository.StepRepository, logger zerolog.Logger, opts ...Option) QueryService {
	o := buildOptions(opts)
	return &queryService{
		products: products,
		steps:    steps,
		pageSize: o.pageSize,
		tracer:   o.tracer,
		metrics:  o.metrics,
		logger:   logger.With().Str("service", "query").Logger(),
	}
}

// ListIdentifiers returns every product ID in registration order.
func (s *queryService) ListIdentifiers(ctx context.Context) (_ []string, err error) {
	ctx, span := s.tracer.Start(ctx, tracing.SpanListIdentifiers)
	defer func() { s.observe(span, "ListIdentifiers", err) }()

	ids, err := s.products.ListIDs(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list product IDs")
		return nil, fmt.Errorf("failed to list product IDs: %w", err)
	}

	return ids, nil
}

// Get retrieves a single product by ID.
func (s *queryService) Get(ctx context.Context, id string) (_ *model.Product, err error) {
	ctx, span := s.tracer.Start(ctx, tracing.SpanGet,
		trace.WithAttributes(attribute.String(tracing.AttrProductID, id)))
	defer func() { s.observe(span, "Get", err) }()

	return s.get(ctx, id)
}

func (s *queryService) get(ctx context.Context, id string) (*model.Product, error) {
	if id == "" {
		return nil, model.NotFound(id)
	}

	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", id).Msg("failed to get product by ID")
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if product == nil {
		return nil, model.NotFound(id)
	}

	return product, nil
}

// DeriveSupplyChain returns the product's steps ordered by position. The
// sequence reads the log page by page and starts from the first step every
// time it is ranged over.
func (s *queryService) DeriveSupplyChain(ctx context.Context, id string) (_ iter.Seq2[model.SupplyChainStep, error], err error) {
	ctx, span := s.tracer.Start(ctx, tracing.SpanDeriveSupplyChain,
		trace.WithAttributes(attribute.String(tracing.AttrProductID, id)))
	defer func() { s.observe(span, "DeriveSupplyChain", err) }()

	if _, err := s.get(ctx, id); err != nil {
		return nil, err
	}

	pageSize := s.pageSize
	seq := func(yield func(model.SupplyChainStep, error) bool) {
		after := int64(-1)
		for {
			page, err := s.steps.ListByProduct(ctx, id, after, pageSize)
			if err != nil {
				s.logger.Error().Err(err).Str("product_id", id).Msg("failed to read supply-chain steps")
				yield(model.SupplyChainStep{}, fmt.Errorf("failed to read supply-chain steps: %w", err))
				return
			}

			for _, step := range page {
				if !yield(step, nil) {
					return
				}
				after = step.Seq
			}

			if len(page) < pageSize {
				return
			}
		}
	}

	return seq, nil
}

// List returns a filtered page of products in registration order.
func (s *queryService) List(ctx context.Context, filter model.ProductFilter) (_ []model.Product, err error) {
	ctx, span := s.tracer.Start(ctx, tracing.SpanList)
	defer func() { s.observe(span, "List", err) }()

	filter, err = normaliseFilter(filter)
	if err != nil {
		return nil, err
	}

	products, err := s.products.List(ctx, filter)
	if err != nil {
		s.logger.Error().Err(err).
			Int("limit", filter.Limit).
			Int("offset", filter.Offset).
			Msg("failed to list products")
		return nil, fmt.Errorf("failed to get products: %w", err)
	}

	s.logger.Debug().
		Int("count", len(products)).
		Int("limit", filter.Limit).
		Int("offset", filter.Offset).
		Msg("retrieved products")

	return products, nil
}

// Stats summarises the registry.
func (s *queryService) Stats(ctx context.Context) (_ model.RegistryStats, err error) {
	ctx, span := s.tracer.Start(ctx, tracing.SpanStats)
	defer func() { s.observe(span, "Stats", err) }()

	stats, err := s.products.Stats(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to compute registry stats")
		return model.RegistryStats{}, fmt.Errorf("failed to compute registry stats: %w", err)
	}

	return stats, nil
}

func (s *queryService) observe(span trace.Span, op string, err error) {
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = model.ErrorCode(err)
	}
	s.metrics.ObserveOperation(op, outcome)
	tracing.End(span, err)
}

func normaliseFilter(f model.ProductFilter) (model.ProductFilter, error) {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	f.Search = strings.TrimSpace(f.Search)

	switch f.Verification {
	case "":
		f.Verification = model.VerificationAll
	case model.VerificationAll, model.VerificationVerified, model.VerificationUnverified:
	default:
		return f, model.InvalidArgument("status", fmt.Sprintf("unknown verification status %q", f.Verification))
	}

	return f, nil
}
