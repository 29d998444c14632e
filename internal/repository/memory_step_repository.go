package repository

import (
	"context"
	"sort"
	"sync"

	"greenzone/internal/model"

	"github.com/rs/zerolog"
)

// memoryStepRepository implements StepRepository in process memory.
type memoryStepRepository struct {
	mu      sync.RWMutex
	steps   map[string][]model.SupplyChainStep
	byEvent map[string]model.SupplyChainStep // keyed by eventKey
	logger  zerolog.Logger
}

// NewMemoryStepRepository creates an in-memory supply-chain step log.
func NewMemoryStepRepository(logger zerolog.Logger) StepRepository {
	return &memoryStepRepository{
		steps:   make(map[string][]model.SupplyChainStep),
		byEvent: make(map[string]model.SupplyChainStep),
		logger:  logger.With().Str("repository", "step").Str("backend", "memory").Logger(),
	}
}

// Append stores step at the end of its product's log.
func (r *memoryStepRepository) Append(ctx context.Context, step *model.SupplyChainStep) (*model.SupplyChainStep, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if step.EventID != "" {
		if existing, ok := r.byEvent[eventKey(step.ProductID, step.EventID)]; ok {
			r.logger.Debug().Str("event_id", step.EventID).Msg("step event already recorded")
			return &existing, nil
		}
	}

	stored := *step
	stored.Seq = int64(len(r.steps[step.ProductID]))
	stored.StepID = model.StepID(stored.ProductID, stored.Seq)
	r.steps[stored.ProductID] = append(r.steps[stored.ProductID], stored)
	if stored.EventID != "" {
		r.byEvent[eventKey(stored.ProductID, stored.EventID)] = stored
	}

	return &stored, nil
}

// eventKey scopes a producer event ID to its product's log.
func eventKey(productID, eventID string) string {
	return productID + "\x00" + eventID
}

// ListByProduct returns a page of steps ordered by Seq.
func (r *memoryStepRepository) ListByProduct(_ context.Context, productID string, afterSeq int64, limit int) ([]model.SupplyChainStep, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.steps[productID]
	start := sort.Search(len(all), func(i int) bool { return all[i].Seq > afterSeq })

	end := len(all)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	page := make([]model.SupplyChainStep, end-start)
	copy(page, all[start:end])
	return page, nil
}
