package main

import (
	"context"
	"fmt"
	"time"

	"greenzone/internal/config"
	"greenzone/internal/database"
	"greenzone/internal/ledger"
	"greenzone/internal/metrics"
	"greenzone/internal/model"
	"greenzone/internal/repository"
	"greenzone/internal/service"
	"greenzone/internal/tracing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

// app holds the wired registry components shared by every command.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	registry service.RegistryService
	query    service.QueryService
	steps    service.StepService
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	tracer   *tracing.Provider

	closers []func(context.Context) error
}

// newApp wires storage, the commit transport, policy and instrumentation.
func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.close(context.Background())
		}
	}()

	// Initialize metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(reg)
	a.gatherer = reg

	// Initialize tracing
	a.tracer, err = tracing.NewProvider(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.closers = append(a.closers, a.tracer.Shutdown)

	// Initialize repositories
	products, steps, err := a.newRepositories(ctx)
	if err != nil {
		return nil, err
	}

	// Initialize commit transport
	committer, err := a.newCommitter(ctx)
	if err != nil {
		return nil, err
	}

	opts := []service.Option{
		service.WithPolicy(newPolicy(cfg.Auth)),
		service.WithMetrics(a.metrics),
		service.WithTracer(a.tracer.Tracer()),
	}

	// Initialize services
	a.registry = service.NewRegistryService(products, committer, logger, opts...)
	a.query = service.NewQueryService(products, steps, logger, opts...)
	a.steps = service.NewStepService(products, steps, logger, opts...)

	return a, nil
}

func (a *app) newRepositories(ctx context.Context) (repository.ProductRepository, repository.StepRepository, error) {
	if a.cfg.Store.Backend == config.BackendMemory {
		a.logger.Info().Msg("using in-memory registry store")
		return repository.NewMemoryProductRepository(a.logger), repository.NewMemoryStepRepository(a.logger), nil
	}

	if a.cfg.Store.MigrateOnStart {
		if err := database.Migrate(a.cfg.Database.ConnectionString(), a.logger); err != nil {
			return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, a.cfg.Database, a.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error {
		pool.Close()
		return nil
	})

	return repository.NewProductRepository(pool, a.logger), repository.NewStepRepository(pool, a.logger), nil
}

func (a *app) newCommitter(ctx context.Context) (ledger.Committer, error) {
	var committer ledger.Committer

	switch a.cfg.Ledger.Transport {
	case config.TransportSQS:
		client, err := ledger.NewSQSClient(ctx, a.cfg.AWS.Region, a.cfg.AWS.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ledger transport: %w", err)
		}
		committer = ledger.NewSQSCommitter(client, a.cfg.Ledger.QueueURL, a.logger)
		a.logger.Info().Str("queue_url", a.cfg.Ledger.QueueURL).Msg("committing operations to SQS")
	default:
		committer = ledger.NewLocalCommitter(a.logger)
		a.logger.Info().Msg("committing operations locally")
	}

	return ledger.WithTimeout(committer, a.cfg.Ledger.CommitTimeout), nil
}

func newPolicy(cfg config.AuthConfig) service.Policy {
	if cfg.Policy != config.PolicyVerifierAllowlist {
		return service.AllowAll{}
	}

	verifiers := make([]model.Identity, 0, len(cfg.Verifiers))
	for _, v := range cfg.Verifiers {
		verifiers = append(verifiers, model.Identity(v))
	}
	return service.NewVerifierAllowlist(verifiers...)
}

// close releases resources in reverse order of acquisition.
func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Error().Err(err).Msg("failed to release resource")
		}
	}
	a.closers = nil
}

// shutdownContext bounds cleanup after the command context is cancelled.
func shutdownContext(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}
