// Package calllog defines the append/delete-only store of blocked calls.
package calllog

import (
	"errors"

	"github.com/haukened/rr-callguard/internal/callguard/domain"
)

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("blocked-call record not found")

// Store owns blocked-call records. Records are never mutated after insert.
// Listings are ordered by Timestamp descending, ties broken by id descending.
type Store interface {
	ListAll() ([]domain.BlockedCallRecord, error)
	// ListRecent returns at most limit records; limit <= 0 yields none.
	ListRecent(limit int) ([]domain.BlockedCallRecord, error)
	Get(id uint64) (domain.BlockedCallRecord, bool, error)
	// CountSince counts records with Timestamp >= start.
	CountSince(start int64) (int, error)
	Count() (int, error)
	// Insert assigns a fresh id when rec.ID is domain.UnassignedID, otherwise
	// replaces whatever is stored under rec.ID.
	Insert(rec domain.BlockedCallRecord) (uint64, error)
	// Delete removes the record with id; a missing id is not an error.
	Delete(id uint64) error
	DeleteAll() error
	// DeleteOlderThan removes records with Timestamp < before and returns how many.
	DeleteOlderThan(before int64) (int, error)
}
