package repository

import (
	"context"

	"greenzone/internal/model"
)

// CommitFunc runs inside a record's critical section once the write has been
// validated against current state. Returning an error aborts the write.
type CommitFunc func(ctx context.Context, product *model.Product) error

// MutateFunc receives a private copy of the current record inside the record's
// critical section. Changes to the copy are persisted only when it returns nil.
type MutateFunc func(ctx context.Context, product *model.Product) error

// ProductRepository defines the interface for product data access operations.
//
// Mutations on the same product ID are serialised; mutations on different IDs
// never wait for each other. Reads never wait for writers.
type ProductRepository interface {
	// Create inserts a new product. It returns a DuplicateIdentifier error when
	// the ID exists. commit runs after the duplicate check and before the insert
	// becomes visible.
	Create(ctx context.Context, product *model.Product, commit CommitFunc) error

	// Update applies fn to the product with the given ID and returns the stored
	// result. It returns a NotFound error when the ID is unknown.
	Update(ctx context.Context, id string, fn MutateFunc) (*model.Product, error)

	// GetByID retrieves a single product by its ID. It returns nil when absent.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// ListIDs returns every product ID in registration order.
	ListIDs(ctx context.Context) ([]string, error)

	// List returns products matching the filter in registration order.
	List(ctx context.Context, filter model.ProductFilter) ([]model.Product, error)

	// Stats summarises the stored products.
	Stats(ctx context.Context) (model.RegistryStats, error)
}

// StepRepository defines the interface for the append-only supply-chain log.
type StepRepository interface {
	// Append assigns the next sequence number and step ID to step and stores it.
	// When step.EventID was already recorded, the existing step is returned and
	// nothing is written.
	Append(ctx context.Context, step *model.SupplyChainStep) (*model.SupplyChainStep, error)

	// ListByProduct returns at most limit steps of a product with Seq > afterSeq,
	// ordered by Seq. Pass -1 to start from the first step.
	ListByProduct(ctx context.Context, productID string, afterSeq int64, limit int) ([]model.SupplyChainStep, error)
}
