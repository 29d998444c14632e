package seed

import (
	"context"
	"errors"
	"fmt"

	"greenzone/internal/model"
	"greenzone/internal/service"

	"github.com/rs/zerolog"
)

// Report summarises one Apply run.
type Report struct {
	Registered int `json:"registered"`
	Skipped    int `json:"skipped"`
	Verified   int `json:"verified"`
	Steps      int `json:"steps"`
}

// Seeder feeds a catalogue through the registry.
type Seeder struct {
	registry service.RegistryService
	query    service.QueryService
	steps    service.StepService
	logger   zerolog.Logger
}

// NewSeeder creates a seeder writing through registry and steps. query reads
// back products that were registered by an earlier run.
func NewSeeder(registry service.RegistryService, query service.QueryService, steps service.StepService, logger zerolog.Logger) *Seeder {
	return &Seeder{
		registry: registry,
		query:    query,
		steps:    steps,
		logger:   logger.With().Str("component", "seeder").Logger(),
	}
}

// Apply registers every product of c, then records its steps. Products whose
// ID is already registered are skipped but still verified when the catalogue
// names a verifier, and steps without an event ID get one derived from their
// position, so a partly applied catalogue can be applied again.
func (s *Seeder) Apply(ctx context.Context, c *Catalogue) (Report, error) {
	var report Report

	for _, entry := range c.Products {
		_, err := s.registry.Register(ctx, entry.RegisterRequest())
		switch {
		case err == nil:
			report.Registered++
		case errors.Is(err, model.ErrDuplicateIdentifier):
			s.logger.Debug().Str("product_id", entry.ID).Msg("product already registered, skipping")
			report.Skipped++
		default:
			return report, fmt.Errorf("failed to register %s: %w", entry.ID, err)
		}

		if entry.VerifiedBy.IsZero() {
			continue
		}
		if err != nil {
			existing, err := s.query.Get(ctx, entry.ID)
			if err != nil {
				return report, fmt.Errorf("failed to read %s: %w", entry.ID, err)
			}
			if existing.IsVerified {
				continue
			}
		}
		if _, err := s.registry.SetVerified(ctx, entry.ID, entry.VerifiedBy); err != nil {
			return report, fmt.Errorf("failed to verify %s: %w", entry.ID, err)
		}
		report.Verified++
	}

	for i, step := range c.Steps {
		if step.EventID == "" {
			step.EventID = fmt.Sprintf("seed:%s:%d", step.ProductID, i)
		}
		if _, err := s.steps.RecordStep(ctx, step); err != nil {
			return report, fmt.Errorf("failed to record step %d for %s: %w", i, step.ProductID, err)
		}
		report.Steps++
	}

	s.logger.Info().
		Int("registered", report.Registered).
		Int("skipped", report.Skipped).
		Int("verified", report.Verified).
		Int("steps", report.Steps).
		Msg("seed catalogue applied")

	return report, nil
}
