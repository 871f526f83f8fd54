package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/incident-risk-service/internal/cluster"
	"github.com/couchcryptid/incident-risk-service/internal/domain"
	"github.com/couchcryptid/incident-risk-service/internal/observability"
	"github.com/couchcryptid/incident-risk-service/internal/risk"
	"github.com/couchcryptid/incident-risk-service/internal/spatial"
)

// Extractor reads raw incident rows from the source.
type Extractor interface {
	Extract(ctx context.Context) ([]domain.RawIncident, error)
}

// Publisher makes a finished snapshot visible to queries.
type Publisher interface {
	Publish(idx *risk.Index)
}

// Builder orchestrates the extract-cluster-publish cycle. Builds are
// serialised; a failed build publishes nothing.
type Builder struct {
	extractor Extractor
	clusterer *cluster.Clusterer
	strategy  spatial.Strategy
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics

	mu sync.Mutex
}

// New creates a Builder with the given stages and observability.
func New(e Extractor, c *cluster.Clusterer, strategy spatial.Strategy, p Publisher, logger *slog.Logger, metrics *observability.Metrics) *Builder {
	return &Builder{
		extractor: e,
		clusterer: c,
		strategy:  strategy,
		publisher: p,
		logger:    logger,
		metrics:   metrics,
	}
}

// Build runs one full cycle and publishes the resulting snapshot.
func (b *Builder) Build(ctx context.Context) (*risk.Index, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := time.Now()
	idx, err := b.build(ctx)
	if err != nil {
		b.metrics.BuildFailures.Inc()
		return nil, err
	}

	b.publisher.Publish(idx)

	b.metrics.IncidentsLoaded.Set(float64(idx.Incidents()))
	b.metrics.Clusters.Set(float64(len(idx.Clusters())))
	b.metrics.NoiseIncidents.Set(float64(idx.Noise()))
	b.metrics.IndexReady.Set(1)
	b.metrics.BuildDuration.Observe(time.Since(start).Seconds())

	params := idx.Params()
	b.logger.Info("cluster snapshot published",
		"snapshot_id", idx.ID(),
		"incidents", idx.Incidents(),
		"clustered", idx.Clustered(),
		"noise", idx.Noise(),
		"clusters", len(idx.Clusters()),
		"epsilon_km", params.EpsilonKM,
		"epsilon_rad", domain.KMToRadians(params.EpsilonKM),
		"min_samples", params.MinSamples,
		"index", b.strategy,
		"duration", time.Since(start),
	)
	return idx, nil
}

func (b *Builder) build(ctx context.Context) (*risk.Index, error) {
	raws, err := b.extractor.Extract(ctx)
	if err != nil {
		return nil, fmt.Errorf("extract incidents: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := b.transform(raws)
	store, err := domain.NewIncidentStore(records)
	if err != nil {
		return nil, fmt.Errorf("build incident store: %w", err)
	}

	labelled, _, err := b.clusterer.LabelStore(store)
	if err != nil {
		return nil, fmt.Errorf("cluster incidents: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx, err := risk.NewIndex(labelled, b.clusterer.Params(), b.strategy)
	if err != nil {
		return nil, fmt.Errorf("build cluster index: %w", err)
	}
	return idx, nil
}

// BuildWithRetry retries transient build failures with exponential backoff.
// Empty input and invalid parameters are permanent and returned at once.
func (b *Builder) BuildWithRetry(ctx context.Context, maxAttempts int) (*risk.Index, error) {
	// Start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var idx *risk.Index
		idx, err = b.Build(ctx)
		if err == nil {
			return idx, nil
		}
		if permanent(err) || ctx.Err() != nil {
			return nil, err
		}

		b.logger.Warn("snapshot build failed", "attempt", attempt, "max_attempts", maxAttempts, "error", err)
		if attempt == maxAttempts {
			break
		}
		if !retry.SleepWithContext(ctx, backoff) {
			return nil, ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
	return nil, fmt.Errorf("build failed after %d attempts: %w", maxAttempts, err)
}

func permanent(err error) bool {
	return errors.Is(err, domain.ErrEmptyInput) ||
		errors.Is(err, domain.ErrInvalidParameter)
}
