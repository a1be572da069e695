// Package rules defines the persistent Rule Store contract.
package rules

import (
	"errors"

	"github.com/haukened/rr-callguard/internal/callguard/domain"
)

// ErrNotFound is returned by Update when no rule has the given id.
var ErrNotFound = errors.New("rule not found")

// Store owns the set of prefix rules.
//
// Listings are ordered by CreatedAt descending, ties broken by id descending,
// so the most recently created rule comes first. The store performs no
// validation; callers reject empty patterns and check Exists before Insert.
type Store interface {
	ListAll() ([]domain.PrefixRule, error)
	ListEnabled() ([]domain.PrefixRule, error)
	Get(id uint64) (domain.PrefixRule, bool, error)
	// Exists reports whether any stored rule has exactly this pattern.
	Exists(pattern string) (bool, error)
	// Insert assigns a fresh id when rule.ID is domain.UnassignedID, otherwise
	// replaces whatever is stored under rule.ID. Returns the effective id.
	Insert(rule domain.PrefixRule) (uint64, error)
	// InsertBatch inserts every rule in one transaction.
	InsertBatch(rules []domain.PrefixRule) ([]uint64, error)
	// Update replaces the rule stored under rule.ID or returns ErrNotFound.
	Update(rule domain.PrefixRule) error
	// Delete removes the rule with id; a missing id is not an error.
	Delete(id uint64) error
	DeleteAll() error
	Stats() (StoreStats, error)
}

// StoreStats reports rule counts.
type StoreStats struct {
	Total   int
	Enabled int
}
