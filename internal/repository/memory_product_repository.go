package repository

import (
	"context"
	"sync"
	"sync/atomic"

	"greenzone/internal/model"

	"github.com/rs/zerolog"
)

// memoryProductRepository implements ProductRepository in process memory.
//
// Each record lives behind an atomic pointer: writers hold the record's key lock
// while they build a new version, readers load the current version without locking.
type memoryProductRepository struct {
	mu      sync.RWMutex // guards records and order
	records map[string]*atomic.Pointer[model.Product]
	order   []string
	locks   *keyLocks
	logger  zerolog.Logger
}

// NewMemoryProductRepository creates an in-memory product repository.
func NewMemoryProductRepository(logger zerolog.Logger) ProductRepository {
	return &memoryProductRepository{
		records: make(map[string]*atomic.Pointer[model.Product]),
		locks:   newKeyLocks(),
		logger:  logger.With().Str("repository", "product").Str("backend", "memory").Logger(),
	}
}

func (r *memoryProductRepository) lookup(id string) *atomic.Pointer[model.Product] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.records[id]
}

// Create inserts a new product.
func (r *memoryProductRepository) Create(ctx context.Context, product *model.Product, commit CommitFunc) error {
	unlock := r.locks.Lock(product.ID)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	if r.lookup(product.ID) != nil {
		r.logger.Debug().Str("product_id", product.ID).Msg("product already exists")
		return model.DuplicateIdentifier(product.ID)
	}

	stored := product.Clone()
	if commit != nil {
		if err := commit(ctx, stored.Clone()); err != nil {
			return err
		}
	}

	slot := &atomic.Pointer[model.Product]{}
	slot.Store(stored)

	r.mu.Lock()
	r.records[stored.ID] = slot
	r.order = append(r.order, stored.ID)
	r.mu.Unlock()

	r.logger.Debug().Str("product_id", stored.ID).Msg("product created successfully")

	return nil
}

// Update applies fn to a copy of the product and stores the copy on success.
func (r *memoryProductRepository) Update(ctx context.Context, id string, fn MutateFunc) (*model.Product, error) {
	unlock := r.locks.Lock(id)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slot := r.lookup(id)
	if slot == nil {
		return nil, model.NotFound(id)
	}

	next := slot.Load().Clone()
	if err := fn(ctx, next); err != nil {
		return nil, err
	}
	slot.Store(next)

	return next.Clone(), nil
}

// GetByID retrieves a single product by its ID.
func (r *memoryProductRepository) GetByID(_ context.Context, id string) (*model.Product, error) {
	slot := r.lookup(id)
	if slot == nil {
		return nil, nil
	}
	return slot.Load().Clone(), nil
}

// ListIDs returns every product ID in registration order.
func (r *memoryProductRepository) ListIDs(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids, nil
}

// snapshot returns the current version of every product in registration order.
func (r *memoryProductRepository) snapshot() []*model.Product {
	r.mu.RLock()
	defer r.mu.RUnlock()

	products := make([]*model.Product, 0, len(r.order))
	for _, id := range r.order {
		products = append(products, r.records[id].Load())
	}
	return products
}

// List returns products matching the filter in registration order.
func (r *memoryProductRepository) List(_ context.Context, filter model.ProductFilter) ([]model.Product, error) {
	products := []model.Product{}
	skipped := 0
	for _, p := range r.snapshot() {
		if !filter.Matches(p) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		if filter.Limit > 0 && len(products) >= filter.Limit {
			break
		}
		products = append(products, *p.Clone())
	}
	return products, nil
}

// Stats summarises the stored products.
func (r *memoryProductRepository) Stats(_ context.Context) (model.RegistryStats, error) {
	var stats model.RegistryStats
	owners := make(map[model.Identity]struct{})
	for _, p := range r.snapshot() {
		stats.Total++
		if p.IsVerified {
			stats.Verified++
		} else {
			stats.Unverified++
		}
		owners[p.Owner] = struct{}{}
	}
	stats.Owners = len(owners)
	return stats, nil
}
