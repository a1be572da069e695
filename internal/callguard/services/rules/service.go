// Package rules implements rule management on top of the Rule Store. Every
// successful mutation refreshes the snapshot read by the decision path.
package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/haukened/rr-callguard/internal/callguard/common/clock"
	"github.com/haukened/rr-callguard/internal/callguard/common/log"
	"github.com/haukened/rr-callguard/internal/callguard/domain"
	rulestore "github.com/haukened/rr-callguard/internal/callguard/repos/rules"
	"github.com/haukened/rr-callguard/internal/callguard/repos/ruleset"
)

var (
	// ErrDuplicatePattern is returned when a rule with the same pattern already exists.
	ErrDuplicatePattern = errors.New("pattern already exists")
	// ErrNotFound aliases the store sentinel so callers need only this package.
	ErrNotFound = rulestore.ErrNotFound
)

// Refresher rebuilds the enabled-rule snapshot.
type Refresher interface {
	Refresh() error
}

// Service manages prefix rules.
type Service struct {
	store     rulestore.Store
	refresher Refresher
	cache     ruleset.DecisionCache
	clock     clock.Clock
	logger    log.Logger
}

// Options configures NewService. Refresher and Cache are optional.
type Options struct {
	Store     rulestore.Store
	Refresher Refresher
	Cache     ruleset.DecisionCache
	Clock     clock.Clock
	Logger    log.Logger
}

func NewService(opts Options) *Service {
	s := &Service{
		store:     opts.Store,
		refresher: opts.Refresher,
		cache:     opts.Cache,
		clock:     opts.Clock,
		logger:    opts.Logger,
	}
	if s.clock == nil {
		s.clock = clock.RealClock{}
	}
	if s.logger == nil {
		s.logger = log.NewNoopLogger()
	}
	return s
}

// List returns every rule, newest first.
func (s *Service) List() ([]domain.PrefixRule, error) {
	return s.store.ListAll()
}

// ListEnabled returns the enabled rules, newest first.
func (s *Service) ListEnabled() ([]domain.PrefixRule, error) {
	return s.store.ListEnabled()
}

// Get returns the rule with id or ErrNotFound.
func (s *Service) Get(id uint64) (domain.PrefixRule, error) {
	r, ok, err := s.store.Get(id)
	if err != nil {
		return domain.PrefixRule{}, err
	}
	if !ok {
		return domain.PrefixRule{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return r, nil
}

// Stats reports total and enabled rule counts.
func (s *Service) Stats() (rulestore.StoreStats, error) {
	return s.store.Stats()
}

// Add creates an enabled rule. The existence check and the insert are not
// atomic, so two concurrent Adds of one pattern may both succeed.
func (s *Service) Add(pattern, label string) (domain.PrefixRule, error) {
	return s.AddRule(pattern, label, true)
}

// AddRule creates a rule with the given enabled flag in a single insert.
func (s *Service) AddRule(pattern, label string, enabled bool) (domain.PrefixRule, error) {
	r, err := domain.NewPrefixRule(pattern, label, clock.UnixMilli(s.clock))
	if err != nil {
		return domain.PrefixRule{}, err
	}
	r.Enabled = enabled
	exists, err := s.store.Exists(r.Pattern)
	if err != nil {
		return domain.PrefixRule{}, err
	}
	if exists {
		return domain.PrefixRule{}, fmt.Errorf("%w: %q", ErrDuplicatePattern, r.Pattern)
	}
	id, err := s.store.Insert(r)
	if err != nil {
		return domain.PrefixRule{}, fmt.Errorf("insert rule: %w", err)
	}
	r.ID = id
	s.logger.Info(map[string]any{"id": id, "pattern": r.Pattern, "enabled": r.Enabled}, "rule added")
	return r, s.refresh()
}

// Update replaces the pattern, label and enabled flag of an existing rule.
// CreatedAt is kept from the stored rule.
func (s *Service) Update(r domain.PrefixRule) (domain.PrefixRule, error) {
	r.Pattern = strings.TrimSpace(r.Pattern)
	r.Label = strings.TrimSpace(r.Label)
	if err := r.Validate(); err != nil {
		return domain.PrefixRule{}, err
	}
	cur, err := s.Get(r.ID)
	if err != nil {
		return domain.PrefixRule{}, err
	}
	if r.Pattern != cur.Pattern {
		exists, err := s.store.Exists(r.Pattern)
		if err != nil {
			return domain.PrefixRule{}, err
		}
		if exists {
			return domain.PrefixRule{}, fmt.Errorf("%w: %q", ErrDuplicatePattern, r.Pattern)
		}
	}
	r.CreatedAt = cur.CreatedAt
	if err := s.store.Update(r); err != nil {
		return domain.PrefixRule{}, err
	}
	return r, s.refresh()
}

// Toggle flips the enabled flag of the rule with id.
func (s *Service) Toggle(id uint64) (domain.PrefixRule, error) {
	cur, err := s.Get(id)
	if err != nil {
		return domain.PrefixRule{}, err
	}
	next := cur.Toggled()
	if err := s.store.Update(next); err != nil {
		return domain.PrefixRule{}, err
	}
	s.logger.Info(map[string]any{"id": id, "pattern": next.Pattern, "enabled": next.Enabled}, "rule toggled")
	return next, s.refresh()
}

// Delete removes the rule with id. Deleting a missing rule is not an error.
func (s *Service) Delete(id uint64) error {
	if err := s.store.Delete(id); err != nil {
		return err
	}
	return s.refresh()
}

// DeleteAll removes every rule.
func (s *Service) DeleteAll() error {
	if err := s.store.DeleteAll(); err != nil {
		return err
	}
	s.logger.Warn(nil, "all rules deleted")
	return s.refresh()
}

// LoadDefaults inserts the built-in rules whose pattern is not stored yet and
// returns how many were inserted.
func (s *Service) LoadDefaults() (int, error) {
	var missing []domain.PrefixRule
	for _, r := range domain.DefaultRules(clock.UnixMilli(s.clock)) {
		exists, err := s.store.Exists(r.Pattern)
		if err != nil {
			return 0, err
		}
		if !exists {
			missing = append(missing, r)
		}
	}
	if len(missing) == 0 {
		return 0, nil
	}
	if _, err := s.store.InsertBatch(missing); err != nil {
		return 0, fmt.Errorf("insert default rules: %w", err)
	}
	s.logger.Info(map[string]any{"count": len(missing)}, "default rules loaded")
	return len(missing), s.refresh()
}

// refresh rebuilds the decision snapshot and drops cached decisions. The
// mutation has already been persisted when this fails.
func (s *Service) refresh() error {
	if s.refresher != nil {
		if err := s.refresher.Refresh(); err != nil {
			s.logger.Error(map[string]any{"error": err}, "failed to refresh rule snapshot")
			return fmt.Errorf("refresh rule snapshot: %w", err)
		}
	}
	if s.cache != nil {
		s.cache.Purge()
	}
	return nil
}
