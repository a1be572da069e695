package domain

import "strings"

// Matches reports whether the rule applies to a number, either verbatim on the
// raw form or after normalizing the pattern against the normalized number.
func (r PrefixRule) Matches(raw, normalized string) bool {
	return strings.HasPrefix(raw, r.Pattern) ||
		strings.HasPrefix(normalized, Normalize(r.Pattern))
}

// Match returns the first rule in rules that applies to the number.
// Order is the only tie-break: an earlier, shorter prefix wins over a later,
// longer one.
func Match(raw, normalized string, rules []PrefixRule) (PrefixRule, bool) {
	for _, r := range rules {
		if r.Matches(raw, normalized) {
			return r, true
		}
	}
	return PrefixRule{}, false
}
