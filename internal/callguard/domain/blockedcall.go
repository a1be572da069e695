package domain

// BlockedCallRecord is the audit entry written for every block decision.
// MatchedPattern is a copy of the rule's pattern at decision time, so history
// survives later edits or deletion of the rule.
type BlockedCallRecord struct {
	ID             uint64 `json:"id"`
	Number         string `json:"number"`         // raw identifier as received
	MatchedPattern string `json:"matchedPattern"` // snapshot, not a reference
	Timestamp      int64  `json:"timestamp"`      // epoch milliseconds
}

// NewBlockedCallRecord builds an unassigned record for a block on rule.
func NewBlockedCallRecord(number string, rule PrefixRule, timestamp int64) BlockedCallRecord {
	return BlockedCallRecord{
		ID:             UnassignedID,
		Number:         number,
		MatchedPattern: rule.Pattern,
		Timestamp:      timestamp,
	}
}
