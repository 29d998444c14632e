package repository

import (
	"context"
	"errors"
	"fmt"

	"greenzone/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const stepColumns = `step_id, product_id, seq, kind, location, occurred_at, actor, details, event_id`

// stepRepository implements StepRepository using PostgreSQL.
//
// Appends for one product are serialised with a transaction-scoped advisory
// lock keyed on the product ID, so they never contend with registry mutations
// on the product row itself.
type stepRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewStepRepository creates a new PostgreSQL-backed supply-chain step log.
func NewStepRepository(pool *pgxpool.Pool, logger zerolog.Logger) StepRepository {
	return &stepRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "step").Str("backend", "postgres").Logger(),
	}
}

// Append stores step at the end of its product's log.
func (r *stepRepository) Append(ctx context.Context, step *model.SupplyChainStep) (_ *model.SupplyChainStep, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			r.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
		}
	}()

	if _, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, step.ProductID); err != nil {
		r.logger.Error().Err(err).Str("product_id", step.ProductID).Msg("failed to lock step log")
		return nil, fmt.Errorf("failed to lock step log: %w", err)
	}

	if step.EventID != "" {
		existing, err := scanStep(tx.QueryRow(ctx, `SELECT `+stepColumns+` FROM supply_chain_steps WHERE product_id = $1 AND event_id = $2`, step.ProductID, step.EventID))
		switch {
		case err == nil:
			r.logger.Debug().Str("event_id", step.EventID).Msg("step event already recorded")
			return existing, tx.Commit(ctx)
		case !errors.Is(err, pgx.ErrNoRows):
			r.logger.Error().Err(err).Str("event_id", step.EventID).Msg("failed to query step event")
			return nil, fmt.Errorf("failed to query step event: %w", err)
		}
	}

	stored := *step
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(seq) + 1, 0) FROM supply_chain_steps WHERE product_id = $1`,
		step.ProductID,
	).Scan(&stored.Seq)
	if err != nil {
		r.logger.Error().Err(err).Str("product_id", step.ProductID).Msg("failed to compute step sequence")
		return nil, fmt.Errorf("failed to compute step sequence: %w", err)
	}
	stored.StepID = model.StepID(stored.ProductID, stored.Seq)

	var eventID *string
	if stored.EventID != "" {
		eventID = &stored.EventID
	}

	query := `
		INSERT INTO supply_chain_steps (` + stepColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = tx.Exec(ctx, query,
		stored.StepID,
		stored.ProductID,
		stored.Seq,
		string(stored.Kind),
		stored.Location,
		stored.Timestamp,
		string(stored.Actor),
		stored.Details,
		eventID,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("product_id", stored.ProductID).Msg("failed to insert step")
		return nil, fmt.Errorf("failed to insert step: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		r.logger.Error().Err(err).Str("product_id", stored.ProductID).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to commit step: %w", err)
	}

	return &stored, nil
}

// ListByProduct returns a page of steps ordered by Seq.
func (r *stepRepository) ListByProduct(ctx context.Context, productID string, afterSeq int64, limit int) ([]model.SupplyChainStep, error) {
	query := `
		SELECT ` + stepColumns + `
		FROM supply_chain_steps
		WHERE product_id = $1 AND seq > $2
		ORDER BY seq
		LIMIT $3
	`

	var lim *int
	if limit > 0 {
		lim = &limit
	}

	rows, err := r.pool.Query(ctx, query, productID, afterSeq, lim)
	if err != nil {
		r.logger.Error().Err(err).Str("product_id", productID).Msg("failed to query steps")
		return nil, fmt.Errorf("failed to query steps: %w", err)
	}
	defer rows.Close()

	steps := []model.SupplyChainStep{}
	for rows.Next() {
		s, err := scanStep(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan step row")
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		steps = append(steps, *s)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating step rows")
		return nil, fmt.Errorf("error iterating steps: %w", err)
	}

	return steps, nil
}

func scanStep(row pgx.Row) (*model.SupplyChainStep, error) {
	var (
		s           model.SupplyChainStep
		kind, actor string
		eventID     *string
	)

	err := row.Scan(
		&s.StepID,
		&s.ProductID,
		&s.Seq,
		&kind,
		&s.Location,
		&s.Timestamp,
		&actor,
		&s.Details,
		&eventID,
	)
	if err != nil {
		return nil, err
	}

	s.Kind = model.StepKind(kind)
	s.Actor = model.Identity(actor)
	s.Timestamp = s.Timestamp.UTC()
	if eventID != nil {
		s.EventID = *eventID
	}

	return &s, nil
}
