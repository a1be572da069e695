package httpapi

import (
	"net/http"

	"github.com/haukened/rr-callguard/internal/callguard/domain"
)

// settingsPatch carries the toggles to change; absent fields keep their value.
type settingsPatch struct {
	BlockingEnabled      *bool `json:"blockingEnabled"`
	NotificationsEnabled *bool `json:"notificationsEnabled"`
	AutoCleanupEnabled   *bool `json:"autoCleanupEnabled"`
	FirstLaunch          *bool `json:"firstLaunch"`
}

func (p settingsPatch) apply(s *domain.Settings) {
	set := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	set(&s.BlockingEnabled, p.BlockingEnabled)
	set(&s.NotificationsEnabled, p.NotificationsEnabled)
	set(&s.AutoCleanupEnabled, p.AutoCleanupEnabled)
	set(&s.FirstLaunch, p.FirstLaunch)
}

func (h *handlers) getSettings(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.settings.Get())
}

func (h *handlers) putSettings(w http.ResponseWriter, r *http.Request) {
	var p settingsPatch
	if err := decodeBody(w, r, &p); err != nil {
		respondError(w, http.StatusBadRequest, "invalid settings")
		return
	}
	s, err := h.settings.Update(p.apply)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, s)
}
