package ruleset

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/haukened/rr-callguard/internal/callguard/common/metrics"
	"github.com/haukened/rr-callguard/internal/callguard/repos/rules"
)

// repository implements Repository over a rules.Store. Reads load the current
// snapshot without locking; refreshes are serialized so versions stay ordered.
type repository struct {
	mu      sync.Mutex
	store   rules.Store
	factory BloomFactory
	fpRate  float64
	metrics *metrics.Metrics

	current atomic.Pointer[Snapshot]
	version uint64 // guarded by mu
}

// Options configures NewRepository. Factory may be nil to disable the prefilter.
type Options struct {
	Store   rules.Store
	Factory BloomFactory
	FPRate  float64
	Metrics *metrics.Metrics
}

// NewRepository constructs a Repository. The first Snapshot call loads from the store.
func NewRepository(opts Options) Repository {
	return &repository{
		store:   opts.Store,
		factory: opts.Factory,
		fpRate:  opts.FPRate,
		metrics: opts.Metrics,
	}
}

func (r *repository) Snapshot() (Snapshot, error) {
	if s := r.current.Load(); s != nil {
		return *s, nil
	}
	if err := r.Refresh(); err != nil {
		return Snapshot{}, err
	}
	return *r.current.Load(), nil
}

// Refresh reloads the enabled rules. On failure the previous snapshot stays in place.
func (r *repository) Refresh() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.store == nil {
		return fmt.Errorf("ruleset: no rule store configured")
	}
	enabled, err := r.store.ListEnabled()
	if err != nil {
		return fmt.Errorf("load enabled rules: %w", err)
	}
	r.version++
	s := newSnapshot(r.version, enabled, r.factory, r.fpRate)
	r.current.Store(&s)
	r.metrics.SetEnabledRules(len(enabled))
	return nil
}

var _ Repository = (*repository)(nil)
