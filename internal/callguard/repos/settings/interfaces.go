// Package settings defines the persistent key-value store for user toggles.
package settings

import "github.com/haukened/rr-callguard/internal/callguard/domain"

// Store persists domain.Settings. Keys never written read as their defaults.
type Store interface {
	Load() (domain.Settings, error)
	Save(s domain.Settings) error
}
