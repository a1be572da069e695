package httpapi

import (
	"context"
	"net/http"
)

type screenRequest struct {
	Number string `json:"number"`
}

type screenResponse struct {
	Decision       string `json:"decision"`
	MatchedPattern string `json:"matched_pattern,omitempty"`
	Label          string `json:"label,omitempty"`
	Notify         bool   `json:"notify"`
}

// screen answers the call-control collaborator. A malformed request is the
// only non-200 answer; every internal problem surfaces as allow.
func (h *handlers) screen(w http.ResponseWriter, r *http.Request) {
	var req screenRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid screen request")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.screenTimeout)
	defer cancel()
	d := h.screener.ScreenCall(ctx, req.Number)

	resp := screenResponse{Decision: d.String()}
	if d.Blocked {
		resp.MatchedPattern = d.Rule.Pattern
		resp.Label = d.Rule.Label
		resp.Notify = h.settings != nil && h.settings.Get().NotificationsEnabled
	}
	respondJSON(w, http.StatusOK, resp)
}
