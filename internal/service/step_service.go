package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"greenzone/internal/metrics"
	"greenzone/internal/model"
	"greenzone/internal/repository"
	"greenzone/internal/tracing"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// stepService implements StepService.
type stepService struct {
	products repository.ProductRepository
	steps    repository.StepRepository
	clock    Clock
	tracer   trace.Tracer
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewStepService creates the writer side of the supply-chain log.
func NewStepService(products repository.ProductRepository, steps repository.StepRepository, logger zerolog.Logger, opts ...Option) StepService {
	o := buildOptions(opts)
	return &stepService{
		products: products,
		steps:    steps,
		clock:    o.clock,
		tracer:   o.tracer,
		metrics:  o.metrics,
		logger:   logger.With().Str("service", "steps").Logger(),
	}
}

// RecordStep appends input to its product's log. A repeated EventID returns
// the step recorded the first time.
func (s *stepService) RecordStep(ctx context.Context, input model.StepInput) (_ *model.SupplyChainStep, err error) {
	ctx, span := s.tracer.Start(ctx, tracing.SpanRecordStep,
		trace.WithAttributes(
			attribute.String(tracing.AttrProductID, input.ProductID),
			attribute.String(tracing.AttrEventID, input.EventID),
		),
	)
	defer func() {
		outcome := metrics.OutcomeSuccess
		if err != nil {
			outcome = model.ErrorCode(err)
		}
		s.metrics.ObserveOperation("RecordStep", outcome)
		tracing.End(span, err)
	}()

	if strings.TrimSpace(input.ProductID) == "" {
		return nil, model.InvalidArgument("productId", "productId is required")
	}
	if strings.TrimSpace(input.Actor.String()) == "" {
		return nil, model.InvalidArgument("actor", "actor is required")
	}

	product, err := s.products.GetByID(ctx, input.ProductID)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", input.ProductID).Msg("failed to get product by ID")
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return nil, model.NotFound(input.ProductID)
	}

	timestamp := input.Timestamp
	if timestamp.IsZero() {
		timestamp = s.clock.Now()
	}

	kind := model.ParseStepKind(input.Action)
	span.SetAttributes(attribute.String(tracing.AttrStepKind, string(kind)))

	step, err := s.steps.Append(ctx, &model.SupplyChainStep{
		ProductID: input.ProductID,
		Kind:      kind,
		Location:  input.Location,
		Timestamp: timestamp.UTC(),
		Actor:     input.Actor,
		Details:   input.Details,
		EventID:   input.EventID,
	})
	if err != nil {
		var de *model.DomainError
		if errors.As(err, &de) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("product_id", input.ProductID).Msg("failed to append step")
		return nil, fmt.Errorf("failed to record step: %w", err)
	}

	return step, nil
}
