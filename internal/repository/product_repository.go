package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"greenzone/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const productColumns = `
	id, name, description, location, harvest_date, farmer, certification, price,
	is_verified, verified_by, verified_at, registered_by, current_owner, created_at`

// productRepository implements the ProductRepository interface using PostgreSQL.
//
// Mutations run in a transaction holding the product's row lock
// (SELECT ... FOR UPDATE), so writers on one product are serialised while
// readers keep reading the last committed version.
type productRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool *pgxpool.Pool, logger zerolog.Logger) ProductRepository {
	return &productRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "product").Str("backend", "postgres").Logger(),
	}
}

// Create inserts a new product within a transaction.
func (r *productRepository) Create(ctx context.Context, product *model.Product, commit CommitFunc) (err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer r.rollback(ctx, tx, &err)

	query := `
		INSERT INTO products (
			id, name, description, location, harvest_date, farmer, certification, price,
			is_verified, verified_by, verified_at, registered_by, current_owner, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO NOTHING
	`

	tag, err := tx.Exec(ctx, query,
		product.ID,
		product.Name,
		product.Description,
		product.Location,
		nullableTime(product.HarvestDate),
		product.Farmer,
		product.Certification,
		product.Price,
		product.IsVerified,
		string(product.VerifiedBy),
		product.VerifiedAt,
		string(product.RegisteredBy),
		string(product.Owner),
		product.CreatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("product_id", product.ID).Msg("failed to insert product")
		return fmt.Errorf("failed to insert product: %w", err)
	}

	if tag.RowsAffected() == 0 {
		r.logger.Debug().Str("product_id", product.ID).Msg("product already exists")
		return model.DuplicateIdentifier(product.ID)
	}

	if commit != nil {
		if err = commit(ctx, product.Clone()); err != nil {
			return err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		r.logger.Error().Err(err).Str("product_id", product.ID).Msg("failed to commit transaction")
		return fmt.Errorf("failed to commit product: %w", err)
	}

	r.logger.Debug().Str("product_id", product.ID).Msg("product created successfully")

	return nil
}

// Update applies fn to the locked product row and writes back its mutable columns.
func (r *productRepository) Update(ctx context.Context, id string, fn MutateFunc) (_ *model.Product, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer r.rollback(ctx, tx, &err)

	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE`

	current, err := scanProduct(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.NotFound(id)
		}
		r.logger.Error().Err(err).Str("product_id", id).Msg("failed to lock product")
		return nil, fmt.Errorf("failed to lock product: %w", err)
	}

	next := current.Clone()
	if err = fn(ctx, next); err != nil {
		return nil, err
	}

	update := `
		UPDATE products
		SET is_verified = $2, verified_by = $3, verified_at = $4, current_owner = $5
		WHERE id = $1
	`
	if _, err = tx.Exec(ctx, update, id, next.IsVerified, string(next.VerifiedBy), next.VerifiedAt, string(next.Owner)); err != nil {
		r.logger.Error().Err(err).Str("product_id", id).Msg("failed to update product")
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		r.logger.Error().Err(err).Str("product_id", id).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to commit product: %w", err)
	}

	return next, nil
}

// GetByID retrieves a single product by its ID.
func (r *productRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("product_id", id).Msg("product not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("product_id", id).Msg("failed to query product")
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return p, nil
}

// ListIDs returns every product ID in registration order.
func (r *productRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM products ORDER BY seq`)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query product IDs")
		return nil, fmt.Errorf("failed to query product IDs: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		r.logger.Error().Err(err).Msg("error iterating product ID rows")
		return nil, fmt.Errorf("error iterating product IDs: %w", err)
	}

	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// List returns products matching the filter in registration order.
func (r *productRepository) List(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE ($1 = '' OR name ILIKE $1 OR id ILIKE $1 OR farmer ILIKE $1)
		  AND ($2::boolean IS NULL OR is_verified = $2)
		ORDER BY seq
		LIMIT $3 OFFSET $4
	`

	var pattern string
	if filter.Search != "" {
		pattern = "%" + likeEscaper.Replace(filter.Search) + "%"
	}

	var verified *bool
	switch filter.Verification {
	case model.VerificationVerified:
		v := true
		verified = &v
	case model.VerificationUnverified:
		v := false
		verified = &v
	}

	var limit *int
	if filter.Limit > 0 {
		limit = &filter.Limit
	}

	rows, err := r.pool.Query(ctx, query, pattern, verified, limit, filter.Offset)
	if err != nil {
		r.logger.Error().Err(err).
			Int("limit", filter.Limit).
			Int("offset", filter.Offset).
			Msg("failed to query products")
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product rows")
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// Stats summarises the stored products.
func (r *productRepository) Stats(ctx context.Context) (model.RegistryStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE is_verified),
			COUNT(DISTINCT current_owner)
		FROM products
	`

	var stats model.RegistryStats
	if err := r.pool.QueryRow(ctx, query).Scan(&stats.Total, &stats.Verified, &stats.Owners); err != nil {
		r.logger.Error().Err(err).Msg("failed to query registry stats")
		return model.RegistryStats{}, fmt.Errorf("failed to query registry stats: %w", err)
	}
	stats.Unverified = stats.Total - stats.Verified

	return stats, nil
}

// rollback aborts tx when the surrounding function returns an error.
func (r *productRepository) rollback(ctx context.Context, tx pgx.Tx, err *error) {
	if *err == nil {
		return
	}
	if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
		r.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func scanProduct(row pgx.Row) (*model.Product, error) {
	var (
		p                               model.Product
		harvestDate, verifiedAt         *time.Time
		verifiedBy, registeredBy, owner string
	)

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Location,
		&harvestDate,
		&p.Farmer,
		&p.Certification,
		&p.Price,
		&p.IsVerified,
		&verifiedBy,
		&verifiedAt,
		&registeredBy,
		&owner,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if harvestDate != nil {
		p.HarvestDate = harvestDate.UTC()
	}
	if verifiedAt != nil {
		at := verifiedAt.UTC()
		p.VerifiedAt = &at
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.VerifiedBy = model.Identity(verifiedBy)
	p.RegisteredBy = model.Identity(registeredBy)
	p.Owner = model.Identity(owner)

	return &p, nil
}
