package history

import (
	"context"
	"time"

	"github.com/haukened/rr-callguard/internal/callguard/common/log"
	"github.com/haukened/rr-callguard/internal/callguard/common/metrics"
	"github.com/haukened/rr-callguard/internal/callguard/domain"
)

// SettingsReader exposes the current user toggles.
type SettingsReader interface {
	Get() domain.Settings
}

// Pruner periodically applies the retention policy while auto-cleanup is on.
type Pruner struct {
	svc      *Service
	settings SettingsReader
	days     int
	interval time.Duration
	logger   log.Logger
	metrics  *metrics.Metrics
}

// PrunerOptions configures NewPruner.
type PrunerOptions struct {
	Service  *Service
	Settings SettingsReader
	Days     int
	Interval time.Duration
	Logger   log.Logger
	Metrics  *metrics.Metrics
}

func NewPruner(opts PrunerOptions) *Pruner {
	p := &Pruner{
		svc:      opts.Service,
		settings: opts.Settings,
		days:     opts.Days,
		interval: opts.Interval,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}
	if p.interval <= 0 {
		p.interval = time.Hour
	}
	if p.logger == nil {
		p.logger = log.NewNoopLogger()
	}
	return p
}

// Run sweeps once immediately and then every interval until ctx is done.
func (p *Pruner) Run(ctx context.Context) {
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		p.Sweep()
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// Sweep runs one cleanup pass if auto-cleanup is enabled and returns how many
// records were removed.
func (p *Pruner) Sweep() int {
	if p.settings != nil && !p.settings.Get().AutoCleanupEnabled {
		return 0
	}
	n, err := p.svc.Cleanup(p.days)
	if err != nil {
		p.logger.Error(map[string]any{"error": err, "days": p.days}, "retention sweep failed")
		return 0
	}
	p.metrics.RecordsPruned(n)
	return n
}
