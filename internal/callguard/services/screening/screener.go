package screening

import (
	"context"
	"strconv"
	"time"

	"github.com/haukened/rr-callguard/internal/callguard/common/clock"
	"github.com/haukened/rr-callguard/internal/callguard/common/log"
	"github.com/haukened/rr-callguard/internal/callguard/common/metrics"
	"github.com/haukened/rr-callguard/internal/callguard/domain"
	"github.com/haukened/rr-callguard/internal/callguard/repos/ruleset"
)

// Fail-open reasons reported to metrics.
const (
	reasonNoRules  = "no_rules"
	reasonStore    = "store"
	reasonDeadline = "deadline"
	reasonPanic    = "panic"
)

// Screener is the decision path handed to the call-control surface.
// ScreenCall never fails: every internal problem degrades to Allow.
type Screener struct {
	rules    RuleSnapshots
	settings SettingsReader
	cache    ruleset.DecisionCache
	recorder Recorder
	clock    clock.Clock
	logger   log.Logger
	metrics  *metrics.Metrics
}

// ScreenerOptions configures NewScreener. Settings, Cache, Recorder and
// Metrics are optional.
type ScreenerOptions struct {
	Rules    RuleSnapshots
	Settings SettingsReader
	Cache    ruleset.DecisionCache
	Recorder Recorder
	Clock    clock.Clock
	Logger   log.Logger
	Metrics  *metrics.Metrics
}

func NewScreener(opts ScreenerOptions) *Screener {
	s := &Screener{
		rules:    opts.Rules,
		settings: opts.Settings,
		cache:    opts.Cache,
		recorder: opts.Recorder,
		clock:    opts.Clock,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}
	if s.clock == nil {
		s.clock = clock.RealClock{}
	}
	if s.logger == nil {
		s.logger = log.NewNoopLogger()
	}
	return s
}

// ScreenCall decides the fate of one incoming call. On Block, a
// BlockedCallRecord stamped with the decision time is handed to the recorder;
// the decision does not wait for it to be written.
func (s *Screener) ScreenCall(ctx context.Context, raw string) (d domain.Decision) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(map[string]any{"number": raw, "panic": r}, "screening panicked, allowing call")
			s.metrics.FailOpen(reasonPanic)
			d = domain.Allow()
		}
		s.metrics.ObserveDecision(d.Blocked, time.Since(start))
	}()

	if s.settings != nil && !s.settings.Get().BlockingEnabled {
		return domain.Allow()
	}
	if raw == "" {
		return domain.Allow()
	}
	if s.rules == nil {
		s.logger.Error(map[string]any{"number": raw}, "no rule source configured, allowing call")
		s.metrics.FailOpen(reasonNoRules)
		return domain.Allow()
	}
	if ctx.Err() != nil {
		return s.deadline(ctx, raw)
	}

	snap, err := s.rules.Snapshot()
	if err != nil {
		s.logger.Error(map[string]any{"number": raw, "error": err}, "failed to load rules, allowing call")
		s.metrics.FailOpen(reasonStore)
		return domain.Allow()
	}
	if snap.Empty() {
		return domain.Allow()
	}
	if ctx.Err() != nil {
		return s.deadline(ctx, raw)
	}

	normalized := domain.Normalize(raw)
	if !snap.MightMatch(raw, normalized) {
		return domain.Allow()
	}

	d = s.lookup(snap, raw, normalized)
	if d.Blocked {
		s.logger.Info(map[string]any{"number": raw, "pattern": d.Rule.Pattern}, "call blocked")
		s.record(raw, d.Rule)
	}
	return d
}

func (s *Screener) deadline(ctx context.Context, raw string) domain.Decision {
	s.logger.Warn(map[string]any{"number": raw, "error": ctx.Err()}, "screening deadline exceeded, allowing call")
	s.metrics.FailOpen(reasonDeadline)
	return domain.Allow()
}

// lookup consults the decision cache. Keys carry the snapshot version so a
// refresh never serves decisions made against older rules.
func (s *Screener) lookup(snap ruleset.Snapshot, raw, normalized string) domain.Decision {
	if s.cache == nil {
		return decide(raw, normalized, snap.Rules)
	}
	key := strconv.FormatUint(snap.Version, 10) + "|" + raw
	if d, ok := s.cache.Get(key); ok {
		return d
	}
	d := decide(raw, normalized, snap.Rules)
	s.cache.Put(key, d)
	return d
}

func (s *Screener) record(raw string, rule domain.PrefixRule) {
	rec := domain.NewBlockedCallRecord(raw, rule, clock.UnixMilli(s.clock))
	if s.recorder == nil {
		s.logger.Warn(map[string]any{"number": raw}, "no recorder configured, block not logged")
		return
	}
	s.recorder.Submit(rec)
}
