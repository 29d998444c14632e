package handler

import (
	"context"
	"iter"

	"greenzone/internal/model"

	"github.com/stretchr/testify/mock"
)

// MockRegistryService is a mock implementation of RegistryService.
type MockRegistryService struct {
	mock.Mock
}

func (m *MockRegistryService) Register(ctx context.Context, req *model.RegisterRequest) (*model.Product, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockRegistryService) Transfer(ctx context.Context, req *model.TransferRequest) (*model.Product, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockRegistryService) SetVerified(ctx context.Context, productID string, verifier model.Identity) (*model.Product, error) {
	args := m.Called(ctx, productID, verifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

// MockQueryService is a mock implementation of QueryService.
type MockQueryService struct {
	mock.Mock
}

func (m *MockQueryService) ListIdentifiers(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockQueryService) Get(ctx context.Context, id string) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockQueryService) DeriveSupplyChain(ctx context.Context, id string) (iter.Seq2[model.SupplyChainStep, error], error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(iter.Seq2[model.SupplyChainStep, error]), args.Error(1)
}

func (m *MockQueryService) List(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockQueryService) Stats(ctx context.Context) (model.RegistryStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(model.RegistryStats), args.Error(1)
}

// stepSeq yields steps and then, if non-nil, err.
func stepSeq(steps []model.SupplyChainStep, err error) iter.Seq2[model.SupplyChainStep, error] {
	return func(yield func(model.SupplyChainStep, error) bool) {
		for _, s := range steps {
			if !yield(s, nil) {
				return
			}
		}
		if err != nil {
			yield(model.SupplyChainStep{}, err)
		}
	}
}
