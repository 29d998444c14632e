package repository

import (
	"context"
	"testing"
	"time"

	"greenzone/internal/database"
	"greenzone/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB creates a migrated PostgreSQL testcontainer and returns a connection pool.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL tests in short mode")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, database.Migrate(connStr, zerolog.Nop()))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

// truncate empties the registry tables between subtests.
func truncate(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `TRUNCATE supply_chain_steps, products RESTART IDENTITY`)
	require.NoError(t, err)
}

func TestProductRepository(t *testing.T) {
	pool := setupTestDB(t)
	logger := zerolog.Nop()

	runProductRepositoryContract(t, func(t *testing.T) ProductRepository {
		truncate(t, pool)
		return NewProductRepository(pool, logger)
	})
}

func TestStepRepository(t *testing.T) {
	pool := setupTestDB(t)
	logger := zerolog.Nop()

	runStepRepositoryContract(t, func(t *testing.T) (ProductRepository, StepRepository) {
		truncate(t, pool)
		return NewProductRepository(pool, logger), NewStepRepository(pool, logger)
	})
}

func TestProductRepository_ConcurrentCreate(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewProductRepository(pool, zerolog.Nop())
	ctx := context.Background()

	const callers = 8
	errs := make(chan error, callers)
	for range callers {
		go func() {
			errs <- repo.Create(ctx, newProduct("P1", "Farmer A", 10), nil)
		}()
	}

	var created, duplicates int
	for range callers {
		err := <-errs
		switch {
		case err == nil:
			created++
		case assert.ErrorIs(t, err, model.ErrDuplicateIdentifier):
			duplicates++
		}
	}

	assert.Equal(t, 1, created)
	assert.Equal(t, callers-1, duplicates)
}

func TestProductRepository_ErrorPaths(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewProductRepository(pool, zerolog.Nop())
	steps := NewStepRepository(pool, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	t.Run("GetByID with cancelled context", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "P1")
		assert.Error(t, err)
	})

	t.Run("ListIDs with cancelled context", func(t *testing.T) {
		_, err := repo.ListIDs(ctx)
		assert.Error(t, err)
	})

	t.Run("List with cancelled context", func(t *testing.T) {
		_, err := repo.List(ctx, model.ProductFilter{Limit: 10})
		assert.Error(t, err)
	})

	t.Run("Stats with cancelled context", func(t *testing.T) {
		_, err := repo.Stats(ctx)
		assert.Error(t, err)
	})

	t.Run("Create with cancelled context", func(t *testing.T) {
		err := repo.Create(ctx, newProduct("P1", "Farmer A", 10), nil)
		assert.Error(t, err)
	})

	t.Run("Append with cancelled context", func(t *testing.T) {
		_, err := steps.Append(ctx, &model.SupplyChainStep{ProductID: "P1"})
		assert.Error(t, err)
	})

	t.Run("Append for unknown product violates the foreign key", func(t *testing.T) {
		_, err := steps.Append(context.Background(), &model.SupplyChainStep{
			ProductID: "missing",
			Kind:      model.StepHarvest,
			Timestamp: contractNow,
			Actor:     "Farmer A",
		})
		assert.Error(t, err)
	})
}
