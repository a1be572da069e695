package domain

import (
	"errors"
	"fmt"
	"strings"
)

// UnassignedID marks a rule or record whose id has not been assigned by a store yet.
const UnassignedID uint64 = 0

var (
	// ErrEmptyPattern is returned when a rule pattern is blank.
	ErrEmptyPattern = errors.New("pattern must not be empty")
	// ErrInvalidPattern is returned when a pattern carries no digits. Such a
	// pattern normalizes to "" or "+" and would match far too many numbers.
	ErrInvalidPattern = errors.New("pattern must contain at least one digit")
)

// PrefixRule is a user-maintained number prefix. An enabled rule blocks every
// incoming number it matches.
//
// Notes:
//   - Pattern is stored as entered; matching normalizes it on the fly.
//   - CreatedAt is epoch milliseconds and never changes after creation.
//   - Uniqueness of Pattern is checked by callers, not enforced by the store.
type PrefixRule struct {
	ID        uint64 `json:"id" yaml:"id"`
	Pattern   string `json:"pattern" yaml:"pattern"`
	Label     string `json:"label" yaml:"label"`
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	CreatedAt int64  `json:"createdAt" yaml:"createdAt"`
}

// NewPrefixRule constructs an enabled, unassigned rule and validates it.
func NewPrefixRule(pattern, label string, createdAt int64) (PrefixRule, error) {
	r := PrefixRule{
		ID:        UnassignedID,
		Pattern:   strings.TrimSpace(pattern),
		Label:     strings.TrimSpace(label),
		Enabled:   true,
		CreatedAt: createdAt,
	}
	if err := r.Validate(); err != nil {
		return PrefixRule{}, err
	}
	return r, nil
}

// Validate checks the fields a caller must guarantee before handing a rule to a store.
func (r PrefixRule) Validate() error {
	if strings.TrimSpace(r.Pattern) == "" {
		return ErrEmptyPattern
	}
	if !strings.ContainsAny(Normalize(r.Pattern), "0123456789") {
		return fmt.Errorf("%w: %q", ErrInvalidPattern, r.Pattern)
	}
	return nil
}

// HasID reports whether a store has assigned an id to the rule.
func (r PrefixRule) HasID() bool { return r.ID != UnassignedID }

// Toggled returns a copy of the rule with Enabled flipped.
func (r PrefixRule) Toggled() PrefixRule {
	r.Enabled = !r.Enabled
	return r
}

// WithoutID returns a copy of the rule with the id reset to UnassignedID.
func (r PrefixRule) WithoutID() PrefixRule {
	r.ID = UnassignedID
	return r
}
