package httpapi

import (
	"context"
	"io"

	"github.com/haukened/rr-callguard/internal/callguard/domain"
	rulestore "github.com/haukened/rr-callguard/internal/callguard/repos/rules"
	"github.com/haukened/rr-callguard/internal/callguard/services/rules"
)

// CallScreener decides incoming calls. It must never fail.
type CallScreener interface {
	ScreenCall(ctx context.Context, raw string) domain.Decision
}

// RuleManager is the rule administration surface.
type RuleManager interface {
	List() ([]domain.PrefixRule, error)
	ListEnabled() ([]domain.PrefixRule, error)
	Get(id uint64) (domain.PrefixRule, error)
	AddRule(pattern, label string, enabled bool) (domain.PrefixRule, error)
	Update(r domain.PrefixRule) (domain.PrefixRule, error)
	Toggle(id uint64) (domain.PrefixRule, error)
	Delete(id uint64) error
	DeleteAll() error
	LoadDefaults() (int, error)
	Stats() (rulestore.StoreStats, error)
	Export(w io.Writer, f rules.Format) error
	Import(r io.Reader, f rules.Format) (rules.ImportResult, error)
}

// History is the blocked-call log surface.
type History interface {
	List() ([]domain.BlockedCallRecord, error)
	Recent(limit int) ([]domain.BlockedCallRecord, error)
	Delete(id uint64) error
	DeleteAll() error
	Stats() (domain.BlockStats, error)
	Cleanup(daysToKeep int) (int, error)
}

// SettingsManager reads and writes the user toggles.
type SettingsManager interface {
	Get() domain.Settings
	Update(fn func(*domain.Settings)) (domain.Settings, error)
}
