// Package history reports on and prunes the blocked-call log.
package history

import (
	"fmt"
	"math"
	"time"

	"github.com/haukened/rr-callguard/internal/callguard/common/clock"
	"github.com/haukened/rr-callguard/internal/callguard/common/log"
	"github.com/haukened/rr-callguard/internal/callguard/domain"
	"github.com/haukened/rr-callguard/internal/callguard/repos/calllog"
)

const (
	day       = 24 * time.Hour
	dayMillis = int64(day / time.Millisecond)
)

// Service exposes the Call Log Store to management clients.
type Service struct {
	store    calllog.Store
	clock    clock.Clock
	logger   log.Logger
	firstDay time.Weekday
	loc      *time.Location
}

// Options configures NewService. FirstDay defaults to Monday and Location to
// time.Local.
type Options struct {
	Store    calllog.Store
	Clock    clock.Clock
	Logger   log.Logger
	FirstDay *time.Weekday
	Location *time.Location
}

func NewService(opts Options) *Service {
	s := &Service{
		store:    opts.Store,
		clock:    opts.Clock,
		logger:   opts.Logger,
		firstDay: time.Monday,
		loc:      opts.Location,
	}
	if opts.FirstDay != nil {
		s.firstDay = *opts.FirstDay
	}
	if s.clock == nil {
		s.clock = clock.RealClock{}
	}
	if s.logger == nil {
		s.logger = log.NewNoopLogger()
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	return s
}

// List returns every record, newest first.
func (s *Service) List() ([]domain.BlockedCallRecord, error) {
	return s.store.ListAll()
}

// Recent returns at most limit records, newest first.
func (s *Service) Recent(limit int) ([]domain.BlockedCallRecord, error) {
	return s.store.ListRecent(limit)
}

// Get returns the record with id or calllog.ErrNotFound.
func (s *Service) Get(id uint64) (domain.BlockedCallRecord, error) {
	rec, ok, err := s.store.Get(id)
	if err != nil {
		return domain.BlockedCallRecord{}, err
	}
	if !ok {
		return domain.BlockedCallRecord{}, fmt.Errorf("%w: id %d", calllog.ErrNotFound, id)
	}
	return rec, nil
}

// Count returns the total number of records.
func (s *Service) Count() (int, error) {
	return s.store.Count()
}

// Delete removes one record. A missing id is not an error.
func (s *Service) Delete(id uint64) error {
	return s.store.Delete(id)
}

// DeleteAll clears the log.
func (s *Service) DeleteAll() error {
	if err := s.store.DeleteAll(); err != nil {
		return err
	}
	s.logger.Warn(nil, "call history cleared")
	return nil
}

// Stats counts blocked calls in the windows containing the current time.
func (s *Service) Stats() (domain.BlockStats, error) {
	return s.StatsAt(s.clock.Now())
}

// StatsAt counts blocked calls since the start of today, of the current week
// and of the current month, in the service's location.
func (s *Service) StatsAt(now time.Time) (domain.BlockStats, error) {
	w := domain.WindowsAt(now.In(s.loc), s.firstDay)
	var (
		out domain.BlockStats
		err error
	)
	if out.Today, err = s.store.CountSince(w.Today.UnixMilli()); err != nil {
		return domain.BlockStats{}, fmt.Errorf("count today: %w", err)
	}
	if out.Week, err = s.store.CountSince(w.Week.UnixMilli()); err != nil {
		return domain.BlockStats{}, fmt.Errorf("count week: %w", err)
	}
	if out.Month, err = s.store.CountSince(w.Month.UnixMilli()); err != nil {
		return domain.BlockStats{}, fmt.Errorf("count month: %w", err)
	}
	return out, nil
}

// Cleanup removes records older than daysToKeep days and returns how many.
// The cutoff is computed once, so records inserted during the sweep survive.
func (s *Service) Cleanup(daysToKeep int) (int, error) {
	if daysToKeep < 0 {
		return 0, fmt.Errorf("days to keep must not be negative, got %d", daysToKeep)
	}
	cutoff := retentionCutoff(clock.UnixMilli(s.clock), daysToKeep)
	n, err := s.store.DeleteOlderThan(cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune call history: %w", err)
	}
	if n > 0 {
		s.logger.Info(map[string]any{"removed": n, "days": daysToKeep}, "call history pruned")
	}
	return n, nil
}

// retentionCutoff returns nowMillis minus daysToKeep days, saturating at
// math.MinInt64 so a huge window keeps everything instead of wrapping.
func retentionCutoff(nowMillis int64, daysToKeep int) int64 {
	if int64(daysToKeep) > math.MaxInt64/dayMillis {
		return math.MinInt64
	}
	span := int64(daysToKeep) * dayMillis
	if nowMillis < math.MinInt64+span {
		return math.MinInt64
	}
	return nowMillis - span
}
