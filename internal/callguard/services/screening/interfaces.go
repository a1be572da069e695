package screening

import (
	"github.com/haukened/rr-callguard/internal/callguard/domain"
	"github.com/haukened/rr-callguard/internal/callguard/repos/ruleset"
)

// RuleSnapshots supplies the enabled rules currently in force.
type RuleSnapshots interface {
	Snapshot() (ruleset.Snapshot, error)
}

// SettingsReader exposes the in-memory user toggles.
type SettingsReader interface {
	Get() domain.Settings
}

// RecordWriter persists blocked-call records. calllog.Store satisfies it.
type RecordWriter interface {
	Insert(rec domain.BlockedCallRecord) (uint64, error)
}

// Recorder accepts records for persistence without blocking the caller.
// Submit reports whether the record was accepted.
type Recorder interface {
	Submit(rec domain.BlockedCallRecord) bool
}
