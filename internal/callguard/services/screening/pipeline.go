package screening

import "github.com/haukened/rr-callguard/internal/callguard/domain"

// Screen decides whether the call from raw is blocked by the first matching
// rule in enabled. It is pure: nothing is persisted and no I/O happens. An
// empty number or an empty rule set is allowed without normalizing.
func Screen(raw string, enabled []domain.PrefixRule) domain.Decision {
	if raw == "" || len(enabled) == 0 {
		return domain.Allow()
	}
	return decide(raw, domain.Normalize(raw), enabled)
}

func decide(raw, normalized string, enabled []domain.PrefixRule) domain.Decision {
	if r, ok := domain.Match(raw, normalized, enabled); ok {
		return domain.Block(r)
	}
	return domain.Allow()
}
