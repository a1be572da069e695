// Package settings keeps the user toggles in memory for the decision path and
// writes every change through to the Settings Store.
package settings

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/haukened/rr-callguard/internal/callguard/common/log"
	"github.com/haukened/rr-callguard/internal/callguard/domain"
	settingsstore "github.com/haukened/rr-callguard/internal/callguard/repos/settings"
)

// Service serves the current settings without touching storage.
type Service struct {
	store  settingsstore.Store
	logger log.Logger

	mu      sync.Mutex // serializes writers
	current atomic.Pointer[domain.Settings]
}

// NewService loads the persisted settings from store.
func NewService(store settingsstore.Store, logger log.Logger) (*Service, error) {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	s, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	svc := &Service{store: store, logger: logger}
	svc.current.Store(&s)
	return svc, nil
}

// Get returns the current settings.
func (s *Service) Get() domain.Settings {
	return *s.current.Load()
}

// Update applies fn to a copy of the current settings, persists the result and
// then publishes it. On a store error the in-memory settings are unchanged.
func (s *Service) Update(fn func(*domain.Settings)) (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := *s.current.Load()
	fn(&next)
	if err := s.store.Save(next); err != nil {
		return s.Get(), fmt.Errorf("save settings: %w", err)
	}
	s.current.Store(&next)
	s.logger.Info(map[string]any{
		"blocking":      next.BlockingEnabled,
		"notifications": next.NotificationsEnabled,
		"auto_cleanup":  next.AutoCleanupEnabled,
	}, "settings updated")
	return next, nil
}

// Replace persists v wholesale.
func (s *Service) Replace(v domain.Settings) (domain.Settings, error) {
	return s.Update(func(cur *domain.Settings) { *cur = v })
}

// CompleteFirstLaunch clears the first-launch flag.
func (s *Service) CompleteFirstLaunch() error {
	_, err := s.Update(func(cur *domain.Settings) { cur.FirstLaunch = false })
	return err
}
