package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"greenzone/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The contract suites run unchanged against every backend.

type productRepoFactory func(t *testing.T) ProductRepository

type stepRepoFactory func(t *testing.T) (ProductRepository, StepRepository)

var contractNow = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func newProduct(id string, owner model.Identity, price int64) *model.Product {
	return &model.Product{
		ID:            id,
		Name:          "Product " + id,
		Location:      "Mekong",
		HarvestDate:   time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Farmer:        "Farmer " + id,
		Certification: "VietGAP",
		Price:         price,
		RegisteredBy:  owner,
		Owner:         owner,
		CreatedAt:     contractNow,
	}
}

func productIDs(products []model.Product) []string {
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	return ids
}

func runProductRepositoryContract(t *testing.T, newRepo productRepoFactory) {
	t.Run("Create and GetByID", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		want := newProduct("P1", "Farmer A", 10)
		want.Description = "Fragrant rice"
		require.NoError(t, repo.Create(ctx, want, nil))

		got, err := repo.GetByID(ctx, "P1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.Description, got.Description)
		assert.Equal(t, want.Location, got.Location)
		assert.True(t, want.HarvestDate.Equal(got.HarvestDate))
		assert.Equal(t, want.Farmer, got.Farmer)
		assert.Equal(t, want.Certification, got.Certification)
		assert.Equal(t, want.Price, got.Price)
		assert.Equal(t, want.Owner, got.Owner)
		assert.Equal(t, want.RegisteredBy, got.RegisteredBy)
		assert.False(t, got.IsVerified)
		assert.Nil(t, got.VerifiedAt)
		assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("GetByID absent returns nil", func(t *testing.T) {
		repo := newRepo(t)

		got, err := repo.GetByID(context.Background(), "missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Create duplicate", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		require.NoError(t, repo.Create(ctx, newProduct("P1", "Farmer A", 10), nil))

		var committed bool
		err := repo.Create(ctx, newProduct("P1", "Farmer B", 20), func(context.Context, *model.Product) error {
			committed = true
			return nil
		})
		assert.ErrorIs(t, err, model.ErrDuplicateIdentifier)
		assert.False(t, committed, "commit must not run for a duplicate")

		got, err := repo.GetByID(ctx, "P1")
		require.NoError(t, err)
		assert.Equal(t, model.Identity("Farmer A"), got.Owner)
	})

	t.Run("Create commit failure leaves no record", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		boom := errors.New("ledger down")
		err := repo.Create(ctx, newProduct("P1", "Farmer A", 10), func(context.Context, *model.Product) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := repo.GetByID(ctx, "P1")
		require.NoError(t, err)
		assert.Nil(t, got)

		ids, err := repo.ListIDs(ctx)
		require.NoError(t, err)
		assert.Empty(t, ids)

		// The ID is free again.
		require.NoError(t, repo.Create(ctx, newProduct("P1", "Farmer A", 10), nil))
	})

	t.Run("Create commit sees the record", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		var seen *model.Product
		err := repo.Create(ctx, newProduct("P1", "Farmer A", 10), func(_ context.Context, p *model.Product) error {
			seen = p
			return nil
		})
		require.NoError(t, err)
		require.NotNil(t, seen)
		assert.Equal(t, "P1", seen.ID)
		assert.Equal(t, model.Identity("Farmer A"), seen.Owner)
	})

	t.Run("Update", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		require.NoError(t, repo.Create(ctx, newProduct("P1", "Farmer A", 10), nil))

		verifiedAt := contractNow.Add(time.Hour)
		updated, err := repo.Update(ctx, "P1", func(_ context.Context, p *model.Product) error {
			p.Owner = "Buyer X"
			p.IsVerified = true
			p.VerifiedBy = "Inspector"
			p.VerifiedAt = &verifiedAt
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, model.Identity("Buyer X"), updated.Owner)

		got, err := repo.GetByID(ctx, "P1")
		require.NoError(t, err)
		assert.Equal(t, model.Identity("Buyer X"), got.Owner)
		assert.Equal(t, model.Identity("Farmer A"), got.RegisteredBy)
		assert.True(t, got.IsVerified)
		assert.Equal(t, model.Identity("Inspector"), got.VerifiedBy)
		require.NotNil(t, got.VerifiedAt)
		assert.True(t, verifiedAt.Equal(*got.VerifiedAt))
	})

	t.Run("Update aborted by fn keeps the record", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		require.NoError(t, repo.Create(ctx, newProduct("P1", "Farmer A", 10), nil))

		boom := errors.New("rejected")
		_, err := repo.Update(ctx, "P1", func(_ context.Context, p *model.Product) error {
			p.Owner = "Buyer X"
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := repo.GetByID(ctx, "P1")
		require.NoError(t, err)
		assert.Equal(t, model.Identity("Farmer A"), got.Owner)
	})

	t.Run("Update unknown ID", func(t *testing.T) {
		repo := newRepo(t)

		var called bool
		_, err := repo.Update(context.Background(), "missing", func(context.Context, *model.Product) error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, model.ErrNotFound)
		assert.False(t, called)
	})

	t.Run("Concurrent updates are serialised", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		require.NoError(t, repo.Create(ctx, newProduct("P1", "Owner 0", 10), nil))

		const writers = 10

		var wg sync.WaitGroup
		for i := range writers {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := repo.Update(ctx, "P1", func(_ context.Context, p *model.Product) error {
					// Each writer appends to the owner it observed; lost updates
					// would show up as a shorter chain.
					p.Owner = model.Identity(fmt.Sprintf("%s+%d", p.Owner, i))
					return nil
				})
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		got, err := repo.GetByID(ctx, "P1")
		require.NoError(t, err)

		var plus int
		for _, c := range got.Owner {
			if c == '+' {
				plus++
			}
		}
		assert.Equal(t, writers, plus)
	})

	t.Run("ListIDs in registration order", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		ids, err := repo.ListIDs(ctx)
		require.NoError(t, err)
		assert.NotNil(t, ids)
		assert.Empty(t, ids)

		for _, id := range []string{"P3", "P1", "P2"} {
			require.NoError(t, repo.Create(ctx, newProduct(id, "Farmer A", 10), nil))
		}

		ids, err = repo.ListIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"P3", "P1", "P2"}, ids)
	})

	t.Run("List", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		fixtures := []struct {
			id, name string
			verified bool
		}{
			{"P1", "Gạo ST25", false},
			{"P2", "Xoài Cát Hòa Lộc", true},
			{"P3", "Thanh Long Ruột Đỏ", false},
			{"P4", "100%_pure honey", true},
		}
		for _, f := range fixtures {
			p := newProduct(f.id, "Farmer A", 10)
			p.Name = f.name
			require.NoError(t, repo.Create(ctx, p, nil))
			if f.verified {
				_, err := repo.Update(ctx, f.id, func(_ context.Context, p *model.Product) error {
					p.IsVerified = true
					return nil
				})
				require.NoError(t, err)
			}
		}

		tests := []struct {
			name     string
			filter   model.ProductFilter
			expected []string
		}{
			{name: "All", filter: model.ProductFilter{Verification: model.VerificationAll}, expected: []string{"P1", "P2", "P3", "P4"}},
			{name: "Verified", filter: model.ProductFilter{Verification: model.VerificationVerified}, expected: []string{"P2", "P4"}},
			{name: "Unverified", filter: model.ProductFilter{Verification: model.VerificationUnverified}, expected: []string{"P1", "P3"}},
			{name: "Search by name", filter: model.ProductFilter{Search: "thanh long"}, expected: []string{"P3"}},
			{name: "Search by ID", filter: model.ProductFilter{Search: "p2"}, expected: []string{"P2"}},
			{name: "Search by farmer", filter: model.ProductFilter{Search: "farmer p1"}, expected: []string{"P1"}},
			{name: "Wildcards are literal", filter: model.ProductFilter{Search: "%_"}, expected: []string{"P4"}},
			{name: "Limit", filter: model.ProductFilter{Limit: 2}, expected: []string{"P1", "P2"}},
			{name: "Offset", filter: model.ProductFilter{Limit: 2, Offset: 3}, expected: []string{"P4"}},
			{name: "Offset past the end", filter: model.ProductFilter{Limit: 2, Offset: 10}, expected: []string{}},
			{name: "No match", filter: model.ProductFilter{Search: "durian"}, expected: []string{}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				products, err := repo.List(ctx, tt.filter)
				require.NoError(t, err)
				assert.NotNil(t, products)
				assert.Equal(t, tt.expected, productIDs(products))
			})
		}
	})

	t.Run("Stats", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		stats, err := repo.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, model.RegistryStats{}, stats)

		require.NoError(t, repo.Create(ctx, newProduct("P1", "Farmer A", 10), nil))
		require.NoError(t, repo.Create(ctx, newProduct("P2", "Farmer A", 10), nil))
		require.NoError(t, repo.Create(ctx, newProduct("P3", "Farmer B", 10), nil))
		_, err = repo.Update(ctx, "P3", func(_ context.Context, p *model.Product) error {
			p.IsVerified = true
			return nil
		})
		require.NoError(t, err)

		stats, err = repo.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, model.RegistryStats{Total: 3, Verified: 1, Unverified: 2, Owners: 2}, stats)
	})
}

func runStepRepositoryContract(t *testing.T, newRepos stepRepoFactory) {
	at := contractNow

	step := func(productID, eventID string) *model.SupplyChainStep {
		return &model.SupplyChainStep{
			ProductID: productID,
			Kind:      model.StepTransport,
			Location:  "Depot",
			Timestamp: at,
			Actor:     "Carrier",
			Details:   "truck 51C-123",
			EventID:   eventID,
		}
	}

	t.Run("Append assigns positions per product", func(t *testing.T) {
		ctx := context.Background()
		products, steps := newRepos(t)
		require.NoError(t, products.Create(ctx, newProduct("P1", "Farmer A", 10), nil))
		require.NoError(t, products.Create(ctx, newProduct("P2", "Farmer A", 10), nil))

		for i := range 3 {
			s, err := steps.Append(ctx, step("P1", ""))
			require.NoError(t, err)
			assert.Equal(t, int64(i), s.Seq)
			assert.Equal(t, model.StepID("P1", int64(i)), s.StepID)
		}

		s, err := steps.Append(ctx, step("P2", ""))
		require.NoError(t, err)
		assert.Equal(t, int64(0), s.Seq)
		assert.Equal(t, "P2-0", s.StepID)
	})

	t.Run("Append is idempotent per event", func(t *testing.T) {
		ctx := context.Background()
		products, steps := newRepos(t)
		require.NoError(t, products.Create(ctx, newProduct("P1", "Farmer A", 10), nil))

		first, err := steps.Append(ctx, step("P1", "evt-1"))
		require.NoError(t, err)

		replay := step("P1", "evt-1")
		replay.Location = "elsewhere"
		second, err := steps.Append(ctx, replay)
		require.NoError(t, err)
		assert.Equal(t, first.StepID, second.StepID)
		assert.Equal(t, "Depot", second.Location)

		page, err := steps.ListByProduct(ctx, "P1", -1, 0)
		require.NoError(t, err)
		assert.Len(t, page, 1)
	})

	t.Run("Event IDs are scoped to their product", func(t *testing.T) {
		ctx := context.Background()
		products, steps := newRepos(t)
		require.NoError(t, products.Create(ctx, newProduct("P1", "Farmer A", 10), nil))
		require.NoError(t, products.Create(ctx, newProduct("P2", "Farmer B", 20), nil))

		first, err := steps.Append(ctx, step("P1", "evt-1"))
		require.NoError(t, err)

		second, err := steps.Append(ctx, step("P2", "evt-1"))
		require.NoError(t, err)
		assert.Equal(t, "P2", second.ProductID)
		assert.Equal(t, "P2-0", second.StepID)
		assert.NotEqual(t, first.StepID, second.StepID)

		for _, id := range []string{"P1", "P2"} {
			page, err := steps.ListByProduct(ctx, id, -1, 0)
			require.NoError(t, err)
			require.Len(t, page, 1, id)
			assert.Equal(t, id, page[0].ProductID)
			assert.Equal(t, "evt-1", page[0].EventID)
		}

		replay, err := steps.Append(ctx, step("P2", "evt-1"))
		require.NoError(t, err)
		assert.Equal(t, second.StepID, replay.StepID, "replay within a product stays idempotent")
	})

	t.Run("ListByProduct pages", func(t *testing.T) {
		ctx := context.Background()
		products, steps := newRepos(t)
		require.NoError(t, products.Create(ctx, newProduct("P1", "Farmer A", 10), nil))

		for range 5 {
			_, err := steps.Append(ctx, step("P1", ""))
			require.NoError(t, err)
		}

		tests := []struct {
			name     string
			after    int64
			limit    int
			expected []int64
		}{
			{name: "From start", after: -1, limit: 2, expected: []int64{0, 1}},
			{name: "Middle page", after: 1, limit: 2, expected: []int64{2, 3}},
			{name: "Last partial page", after: 3, limit: 2, expected: []int64{4}},
			{name: "Past the end", after: 4, limit: 2, expected: []int64{}},
			{name: "No limit", after: -1, limit: 0, expected: []int64{0, 1, 2, 3, 4}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				page, err := steps.ListByProduct(ctx, "P1", tt.after, tt.limit)
				require.NoError(t, err)
				got := make([]int64, 0, len(page))
				for _, s := range page {
					got = append(got, s.Seq)
					assert.Equal(t, "P1", s.ProductID)
					assert.Equal(t, model.StepTransport, s.Kind)
					assert.Equal(t, model.Identity("Carrier"), s.Actor)
					assert.True(t, at.Equal(s.Timestamp))
				}
				assert.Equal(t, tt.expected, got)
			})
		}
	})

	t.Run("ListByProduct unknown product is empty", func(t *testing.T) {
		_, steps := newRepos(t)

		page, err := steps.ListByProduct(context.Background(), "missing", -1, 10)
		require.NoError(t, err)
		assert.NotNil(t, page)
		assert.Empty(t, page)
	})

	t.Run("Concurrent appends stay contiguous", func(t *testing.T) {
		ctx := context.Background()
		products, steps := newRepos(t)
		require.NoError(t, products.Create(ctx, newProduct("P1", "Farmer A", 10), nil))

		const writers = 20

		var wg sync.WaitGroup
		for range writers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := steps.Append(ctx, step("P1", ""))
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		page, err := steps.ListByProduct(ctx, "P1", -1, 0)
		require.NoError(t, err)
		require.Len(t, page, writers)
		for i, s := range page {
			assert.Equal(t, int64(i), s.Seq)
		}
	})
}
