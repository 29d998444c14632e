package service

import (
	"context"
	"iter"

	"greenzone/internal/model"
)

// RegistryService owns every mutation of product records.
//
// Mutations on one product are applied one at a time; each either commits
// through the ledger transport and becomes visible, or fails and leaves the
// record exactly as it was.
type RegistryService interface {
	// Register creates a product owned by its registrant.
	Register(ctx context.Context, req *model.RegisterRequest) (*model.Product, error)

	// Transfer moves ownership of a product to the buyer.
	Transfer(ctx context.Context, req *model.TransferRequest) (*model.Product, error)

	// SetVerified marks a product as verified. Verifying a verified product
	// returns it unchanged.
	SetVerified(ctx context.Context, productID string, verifier model.Identity) (*model.Product, error)
}

// QueryService serves read-only projections of the registry.
type QueryService interface {
	// ListIdentifiers returns every product ID in registration order.
	ListIdentifiers(ctx context.Context) ([]string, error)

	// Get returns the latest committed state of a product.
	Get(ctx context.Context, id string) (*model.Product, error)

	// DeriveSupplyChain returns a lazy, restartable sequence over the
	// product's supply-chain steps in recorded order.
	DeriveSupplyChain(ctx context.Context, id string) (iter.Seq2[model.SupplyChainStep, error], error)

	// List returns a filtered page of products in registration order.
	List(ctx context.Context, filter model.ProductFilter) ([]model.Product, error)

	// Stats summarises the registry.
	Stats(ctx context.Context) (model.RegistryStats, error)
}

// StepService appends producer-submitted steps to the supply-chain log.
type StepService interface {
	RecordStep(ctx context.Context, input model.StepInput) (*model.SupplyChainStep, error)
}
