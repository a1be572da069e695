package domain

// Decision is the outcome of screening one incoming call.
// Pure value type, no external dependencies.
type Decision struct {
	Blocked bool       // true if a rule matched
	Rule    PrefixRule // the matching rule; zero value when allowed
}

// Allow returns a not-blocked decision.
func Allow() Decision { return Decision{} }

// Block returns a decision blocked by rule.
func Block(rule PrefixRule) Decision { return Decision{Blocked: true, Rule: rule} }

// IsBlocked is a convenience accessor.
func (d Decision) IsBlocked() bool { return d.Blocked }

// String returns "block" or "allow".
func (d Decision) String() string {
	if d.Blocked {
		return "block"
	}
	return "allow"
}
