package bloom

import (
	bitsbloom "github.com/bits-and-blooms/bloom/v3"

	"github.com/haukened/rr-callguard/internal/callguard/repos/ruleset"
)

// factory implements ruleset.BloomFactory, taking filter dimensions from a BloomSizer.
type factory struct {
	sizer ruleset.BloomSizer
}

// NewFactory returns a BloomFactory that asks s for the filter dimensions.
// A nil s selects the standard formulas of NewSizer.
func NewFactory(s ruleset.BloomSizer) ruleset.BloomFactory {
	if s == nil {
		s = NewSizer()
	}
	return factory{sizer: s}
}

// New constructs a BloomFilter sized for capacity keys at the target false-positive rate.
func (f factory) New(capacity uint64, fpRate float64) ruleset.BloomFilter {
	m, k := f.sizer.Size(capacity, fpRate)
	return &filter{bf: bitsbloom.New(uint(m), uint(k))}
}
