package httpapi

import (
	"net/http"

	"github.com/haukened/rr-callguard/internal/callguard/domain"
)

type statsResponse struct {
	domain.BlockStats
	RulesTotal   int `json:"rulesTotal"`
	RulesEnabled int `json:"rulesEnabled"`
}

func (h *handlers) listCalls(w http.ResponseWriter, r *http.Request) {
	recs, err := h.history.List()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, recs)
}

func (h *handlers) recentCalls(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", defaultRecentLimit)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	recs, err := h.history.Recent(limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, recs)
}

func (h *handlers) deleteCall(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.history.Delete(id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) deleteAllCalls(w http.ResponseWriter, r *http.Request) {
	if err := h.history.DeleteAll(); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) cleanupCalls(w http.ResponseWriter, r *http.Request) {
	days, err := intQuery(r, "days", h.retentionDays)
	if err != nil || days < 0 {
		respondError(w, http.StatusBadRequest, "invalid days")
		return
	}
	n, err := h.history.Cleanup(days)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"removed": n})
}

func (h *handlers) stats(w http.ResponseWriter, r *http.Request) {
	bs, err := h.history.Stats()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := statsResponse{BlockStats: bs}
	if h.rules != nil {
		rs, err := h.rules.Stats()
		if err != nil {
			h.fail(w, r, err)
			return
		}
		resp.RulesTotal, resp.RulesEnabled = rs.Total, rs.Enabled
	}
	respondJSON(w, http.StatusOK, resp)
}
