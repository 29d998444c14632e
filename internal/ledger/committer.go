// Package ledger carries registry operations to the system of record and
// feeds supply-chain steps back into the registry.
package ledger

import (
	"context"
	"time"

	"greenzone/internal/model"

	"github.com/rs/zerolog"
)

// Committer hands an operation to the commit transport. A nil error means the
// operation is durable; any error leaves the registry unchanged.
type Committer interface {
	Commit(ctx context.Context, op model.Operation) error
}

// LocalCommitter treats the registry store itself as the ledger of record.
type LocalCommitter struct {
	logger zerolog.Logger
}

// NewLocalCommitter creates a committer that accepts every operation.
func NewLocalCommitter(logger zerolog.Logger) *LocalCommitter {
	return &LocalCommitter{
		logger: logger.With().Str("committer", "local").Logger(),
	}
}

// Commit logs op and returns ctx's error, if any.
func (c *LocalCommitter) Commit(ctx context.Context, op model.Operation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.logger.Debug().
		Str("operation_id", op.ID.String()).
		Str("operation", string(op.Name)).
		Str("product_id", op.ProductID).
		Msg("operation committed locally")

	return nil
}

type timeoutCommitter struct {
	next    Committer
	timeout time.Duration
}

// WithTimeout bounds every Commit call on next by d.
func WithTimeout(next Committer, d time.Duration) Committer {
	if d <= 0 {
		return next
	}
	return &timeoutCommitter{next: next, timeout: d}
}

func (c *timeoutCommitter) Commit(ctx context.Context, op model.Operation) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.next.Commit(ctx, op)
}

// CommitterFunc adapts a function to Committer.
type CommitterFunc func(ctx context.Context, op model.Operation) error

// Commit calls f.
func (f CommitterFunc) Commit(ctx context.Context, op model.Operation) error {
	return f(ctx, op)
}
