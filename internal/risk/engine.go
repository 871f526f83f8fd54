package risk

import (
	"context"
	"sync/atomic"

	"github.com/couchcryptid/incident-risk-service/internal/domain"
)

// Assessor answers proximity queries against the current snapshot.
type Assessor interface {
	Assess(location domain.Geo, thresholdKM float64) (Assessment, error)
}

// Engine holds the published snapshot. Readers never block: Publish swaps
// a pointer, so a query sees either the old or the new snapshot in full.
type Engine struct {
	current atomic.Pointer[Index]
}

// NewEngine returns an Engine with no snapshot published.
func NewEngine() *Engine {
	return &Engine{}
}

// Publish makes idx the current snapshot. A nil idx is ignored so a failed
// build can never unpublish a good snapshot.
func (e *Engine) Publish(idx *Index) {
	if idx == nil {
		return
	}
	e.current.Store(idx)
}

// Current returns the published snapshot or ErrNotReady.
func (e *Engine) Current() (*Index, error) {
	idx := e.current.Load()
	if idx == nil {
		return nil, domain.ErrNotReady
	}
	return idx, nil
}

// Ready reports whether a snapshot has been published.
func (e *Engine) Ready() bool {
	return e.current.Load() != nil
}

// CheckReadiness returns ErrNotReady until the first snapshot is published.
func (e *Engine) CheckReadiness(_ context.Context) error {
	if !e.Ready() {
		return domain.ErrNotReady
	}
	return nil
}

// Assess queries the current snapshot. Arguments are validated before
// readiness, so a bad request is reported as such even before startup
// completes.
func (e *Engine) Assess(location domain.Geo, thresholdKM float64) (Assessment, error) {
	return Query(location, thresholdKM, e.current.Load())
}
