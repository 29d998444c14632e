package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"greenzone/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOperation() model.Operation {
	record := &model.Product{ID: "GZ-001", Name: "Gạo ST25", Price: 50000, Owner: "0xfarmer"}
	return model.NewOperation(model.OpRegister, "0xfarmer", record, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
}

func TestLocalCommitter(t *testing.T) {
	c := NewLocalCommitter(zerolog.Nop())

	require.NoError(t, c.Commit(context.Background(), testOperation()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Commit(ctx, testOperation()), context.Canceled)
}

func TestWithTimeout(t *testing.T) {
	slow := CommitterFunc(func(ctx context.Context, _ model.Operation) error {
		<-ctx.Done()
		return ctx.Err()
	})

	c := WithTimeout(slow, 10*time.Millisecond)

	start := time.Now()
	err := c.Commit(context.Background(), testOperation())

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWithTimeout_ZeroDisables(t *testing.T) {
	inner := CommitterFunc(func(context.Context, model.Operation) error { return errors.New("inner") })

	c := WithTimeout(inner, 0)

	assert.EqualError(t, c.Commit(context.Background(), testOperation()), "inner")
}
