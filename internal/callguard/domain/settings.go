package domain

// Settings are the user toggles gating the decision path and housekeeping.
type Settings struct {
	BlockingEnabled      bool `json:"blockingEnabled"`
	NotificationsEnabled bool `json:"notificationsEnabled"`
	AutoCleanupEnabled   bool `json:"autoCleanupEnabled"`
	FirstLaunch          bool `json:"firstLaunch"`
}

// DefaultSettings returns the toggles in effect before the user changes anything.
func DefaultSettings() Settings {
	return Settings{
		BlockingEnabled:      true,
		NotificationsEnabled: false,
		AutoCleanupEnabled:   true,
		FirstLaunch:          true,
	}
}
