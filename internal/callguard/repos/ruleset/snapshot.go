package ruleset

import "github.com/haukened/rr-callguard/internal/callguard/domain"

// Snapshot is an immutable view of the enabled rules, ordered newest first.
// Version increases with every refresh.
type Snapshot struct {
	Version uint64
	Rules   []domain.PrefixRule

	filter   BloomFilter
	matchAll bool
}

// newSnapshot indexes every pattern in both raw and normalized form. A pattern
// whose normalized form is empty would match any number, so its presence
// disables the filter.
func newSnapshot(version uint64, rs []domain.PrefixRule, factory BloomFactory, fpRate float64) Snapshot {
	s := Snapshot{Version: version, Rules: rs}
	if factory == nil || len(rs) == 0 {
		return s
	}
	bf := factory.New(uint64(2*len(rs)), fpRate)
	for _, r := range rs {
		n := domain.Normalize(r.Pattern)
		if r.Pattern == "" || n == "" {
			s.matchAll = true
			return s
		}
		bf.Add([]byte(r.Pattern))
		bf.Add([]byte(n))
	}
	s.filter = bf
	return s
}

// Empty reports whether no rule is enabled.
func (s Snapshot) Empty() bool { return len(s.Rules) == 0 }

// MightMatch returns false only when no rule can match the number: a number
// starts with a pattern exactly when one of its prefixes equals that pattern,
// so testing every prefix against the filter yields no false negatives.
func (s Snapshot) MightMatch(raw, normalized string) bool {
	if s.Empty() {
		return false
	}
	if s.filter == nil || s.matchAll {
		return true
	}
	return anyPrefix(s.filter, raw) || anyPrefix(s.filter, normalized)
}

func anyPrefix(bf BloomFilter, v string) bool {
	b := []byte(v)
	for i := 1; i <= len(b); i++ {
		if bf.MightContain(b[:i]) {
			return true
		}
	}
	return false
}
