package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"greenzone/internal/ledger"
	"greenzone/internal/metrics"
	"greenzone/internal/model"
	"greenzone/internal/repository"
	"greenzone/internal/tracing"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// errUnchanged aborts a mutation that would not change the record.
var errUnchanged = errors.New("record unchanged")

// registryService implements RegistryService.
type registryService struct {
	products  repository.ProductRepository
	committer ledger.Committer
	policy    Policy
	clock     Clock
	tracer    trace.Tracer
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// NewRegistryService creates a registry service committing through committer.
func NewRegistryService(products repository.ProductRepository, committer ledger.Committer, logger zerolog.Logger, opts ...Option) RegistryService {
	o := buildOptions(opts)
	return &registryService{
		products:  products,
		committer: committer,
		policy:    o.policy,
		clock:     o.clock,
		tracer:    o.tracer,
		metrics:   o.metrics,
		logger:    logger.With().Str("service", "registry").Logger(),
	}
}

// Register validates req and creates the product.
func (s *registryService) Register(ctx context.Context, req *model.RegisterRequest) (_ *model.Product, err error) {
	ctx, span := s.tracer.Start(ctx, tracing.SpanRegister)
	defer func() { s.observe(span, model.OpRegister, err) }()

	if req == nil {
		return nil, model.InvalidArgument("request", "request body is required")
	}
	span.SetAttributes(
		attribute.String(tracing.AttrProductID, req.ID),
		attribute.String(tracing.AttrActor, req.RegisteredBy.String()),
	)

	if err := validateRegister(req); err != nil {
		return nil, err
	}

	if err := s.policy.CanRegister(ctx, req.RegisteredBy); err != nil {
		return nil, err
	}

	record := &model.Product{
		ID:            req.ID,
		Name:          req.Name,
		Description:   req.Description,
		Location:      req.Location,
		HarvestDate:   req.HarvestDate.UTC(),
		Farmer:        req.Farmer,
		Certification: req.Certification,
		Price:         req.Price,
		IsVerified:    false,
		RegisteredBy:  req.RegisteredBy,
		Owner:         req.RegisteredBy,
		CreatedAt:     s.clock.Now().UTC(),
	}

	err = s.products.Create(ctx, record, func(ctx context.Context, p *model.Product) error {
		return s.commit(ctx, model.NewOperation(model.OpRegister, req.RegisteredBy, p, p.CreatedAt))
	})
	if err != nil {
		return nil, s.wrap(err, "failed to register product", req.ID)
	}

	s.logger.Debug().
		Str("product_id", record.ID).
		Str("owner", record.Owner.String()).
		Msg("product registered")

	return record, nil
}

// Transfer moves ownership to req.Buyer once the paid amount matches the price.
func (s *registryService) Transfer(ctx context.Context, req *model.TransferRequest) (_ *model.Product, err error) {
	ctx, span := s.tracer.Start(ctx, tracing.SpanTransfer)
	defer func() { s.observe(span, model.OpTransfer, err) }()

	if req == nil {
		return nil, model.InvalidArgument("request", "request body is required")
	}
	span.SetAttributes(
		attribute.String(tracing.AttrProductID, req.ProductID),
		attribute.String(tracing.AttrActor, req.Buyer.String()),
	)

	if strings.TrimSpace(req.ProductID) == "" {
		return nil, model.InvalidArgument("productId", "productId is required")
	}
	if strings.TrimSpace(req.Buyer.String()) == "" {
		return nil, model.InvalidArgument("buyer", "buyer is required")
	}

	updated, err := s.products.Update(ctx, req.ProductID, func(ctx context.Context, p *model.Product) error {
		if !req.ExpectedOwner.IsZero() && p.Owner != req.ExpectedOwner {
			return model.StaleOwner(p.ID)
		}
		if p.Owner == req.Buyer {
			return model.SelfTransferRejected(p.ID)
		}
		if req.PaidAmount != p.Price {
			return model.PriceMismatch(p.ID, p.Price, req.PaidAmount)
		}
		if err := s.policy.CanPurchase(ctx, req.Buyer, p); err != nil {
			return err
		}

		p.Owner = req.Buyer

		op := model.NewOperation(model.OpTransfer, req.Buyer, p.Clone(), s.clock.Now().UTC())
		op.Amount = req.PaidAmount
		return s.commit(ctx, op)
	})
	if err != nil {
		return nil, s.wrap(err, "failed to transfer product", req.ProductID)
	}

	s.logger.Debug().
		Str("product_id", updated.ID).
		Str("owner", updated.Owner.String()).
		Msg("product transferred")

	return updated, nil
}

// SetVerified marks the product verified by verifier.
func (s *registryService) SetVerified(ctx context.Context, productID string, verifier model.Identity) (_ *model.Product, err error) {
	ctx, span := s.tracer.Start(ctx, tracing.SpanSetVerified,
		trace.WithAttributes(
			attribute.String(tracing.AttrProductID, productID),
			attribute.String(tracing.AttrActor, verifier.String()),
		),
	)
	defer func() { s.observe(span, model.OpSetVerified, err) }()

	if strings.TrimSpace(productID) == "" {
		return nil, model.InvalidArgument("productId", "productId is required")
	}
	if strings.TrimSpace(verifier.String()) == "" {
		return nil, model.InvalidArgument("verifier", "verifier is required")
	}

	var unchanged *model.Product
	updated, err := s.products.Update(ctx, productID, func(ctx context.Context, p *model.Product) error {
		if err := s.policy.CanVerify(ctx, verifier, p); err != nil {
			return err
		}
		if p.IsVerified {
			unchanged = p.Clone()
			return errUnchanged
		}

		now := s.clock.Now().UTC()
		p.IsVerified = true
		p.VerifiedBy = verifier
		p.VerifiedAt = &now

		return s.commit(ctx, model.NewOperation(model.OpSetVerified, verifier, p.Clone(), now))
	})
	if errors.Is(err, errUnchanged) {
		s.logger.Debug().Str("product_id", productID).Msg("product already verified")
		return unchanged, nil
	}
	if err != nil {
		return nil, s.wrap(err, "failed to verify product", productID)
	}

	s.logger.Debug().
		Str("product_id", updated.ID).
		Str("verified_by", verifier.String()).
		Msg("product verified")

	return updated, nil
}

// commit hands op to the transport. Failures that are not already domain
// errors are reported as CommitFailed.
func (s *registryService) commit(ctx context.Context, op model.Operation) error {
	ctx, span := s.tracer.Start(ctx, tracing.SpanCommit,
		trace.WithAttributes(
			attribute.String(tracing.AttrOperation, string(op.Name)),
			attribute.String(tracing.AttrOperationID, op.ID.String()),
			attribute.String(tracing.AttrProductID, op.ProductID),
		),
	)

	start := time.Now()
	err := s.committer.Commit(ctx, op)
	s.metrics.ObserveCommit(string(op.Name), time.Since(start))

	if err != nil {
		var de *model.DomainError
		if !errors.As(err, &de) {
			err = model.CommitFailed(op.ProductID, err)
		}
	}
	tracing.End(span, err)

	return err
}

// wrap passes domain errors through and annotates everything else.
func (s *registryService) wrap(err error, msg, productID string) error {
	var de *model.DomainError
	if errors.As(err, &de) {
		return err
	}
	s.logger.Error().Err(err).Str("product_id", productID).Msg(msg)
	return fmt.Errorf("%s: %w", msg, err)
}

func (s *registryService) observe(span trace.Span, op model.OperationName, err error) {
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = model.ErrorCode(err)
	}
	span.SetAttributes(attribute.String(tracing.AttrOutcome, outcome))
	s.metrics.ObserveOperation(string(op), outcome)
	tracing.End(span, err)
}

func validateRegister(req *model.RegisterRequest) error {
	required := []struct {
		field string
		value string
	}{
		{"productId", req.ID},
		{"name", req.Name},
		{"location", req.Location},
		{"farmer", req.Farmer},
		{"registeredBy", req.RegisteredBy.String()},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return model.InvalidArgument(r.field, r.field+" is required")
		}
	}

	if req.Price <= 0 {
		return model.InvalidArgument("price", "price must be greater than zero")
	}

	return nil
}
