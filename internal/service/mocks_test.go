package service

import (
	"context"
	"sync"
	"time"

	"greenzone/internal/ledger"
	"greenzone/internal/model"
	"greenzone/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
)

// MockProductRepository is a mock implementation of ProductRepository.
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Create(ctx context.Context, product *model.Product, commit repository.CommitFunc) error {
	args := m.Called(ctx, product, commit)
	return args.Error(0)
}

func (m *MockProductRepository) Update(ctx context.Context, id string, fn repository.MutateFunc) (*model.Product, error) {
	args := m.Called(ctx, id, fn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductRepository) ListIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockProductRepository) List(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductRepository) Stats(ctx context.Context) (model.RegistryStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(model.RegistryStats), args.Error(1)
}

// MockStepRepository is a mock implementation of StepRepository.
type MockStepRepository struct {
	mock.Mock
}

func (m *MockStepRepository) Append(ctx context.Context, step *model.SupplyChainStep) (*model.SupplyChainStep, error) {
	args := m.Called(ctx, step)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SupplyChainStep), args.Error(1)
}

func (m *MockStepRepository) ListByProduct(ctx context.Context, productID string, afterSeq int64, limit int) ([]model.SupplyChainStep, error) {
	args := m.Called(ctx, productID, afterSeq, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SupplyChainStep), args.Error(1)
}

// recordingCommitter records committed operations and fails while err is set.
type recordingCommitter struct {
	mu  sync.Mutex
	ops []model.Operation
	err error
}

func (c *recordingCommitter) Commit(_ context.Context, op model.Operation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.ops = append(c.ops, op)
	return nil
}

func (c *recordingCommitter) failWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

func (c *recordingCommitter) operations() []model.Operation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Operation(nil), c.ops...)
}

var _ ledger.Committer = (*recordingCommitter)(nil)

var testNow = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

// testRegistry bundles services over in-memory repositories.
type testRegistry struct {
	registry  RegistryService
	query     QueryService
	steps     StepService
	committer *recordingCommitter
}

// newTestRegistry accepts *testing.T and *rapid.T alike.
func newTestRegistry(t interface{ Helper() }, opts ...Option) *testRegistry {
	t.Helper()

	logger := zerolog.Nop()
	products := repository.NewMemoryProductRepository(logger)
	steps := repository.NewMemoryStepRepository(logger)
	committer := &recordingCommitter{}

	opts = append([]Option{WithClock(ClockFunc(func() time.Time { return testNow }))}, opts...)

	return &testRegistry{
		registry:  NewRegistryService(products, committer, logger, opts...),
		query:     NewQueryService(products, steps, logger, opts...),
		steps:     NewStepService(products, steps, logger, opts...),
		committer: committer,
	}
}

func riceRequest() *model.RegisterRequest {
	return &model.RegisterRequest{
		ID:            "P1",
		Name:          "Rice",
		Description:   "",
		Location:      "Mekong",
		Farmer:        "Farmer A",
		Certification: "VietGAP",
		Price:         10,
		RegisteredBy:  "Farmer A",
	}
}
