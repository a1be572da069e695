package httpapi

import (
	"bytes"
	"net/http"

	"github.com/haukened/rr-callguard/internal/callguard/domain"
	"github.com/haukened/rr-callguard/internal/callguard/services/rules"
)

type ruleRequest struct {
	Pattern string `json:"pattern"`
	Label   string `json:"label"`
	Enabled *bool  `json:"enabled,omitempty"`
}

func (h *handlers) listRules(w http.ResponseWriter, r *http.Request) {
	list := h.rules.List
	if r.URL.Query().Get("enabled") == "true" {
		list = h.rules.ListEnabled
	}
	rs, err := list()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rs)
}

func (h *handlers) addRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid rule")
		return
	}
	enabled := req.Enabled == nil || *req.Enabled
	rule, err := h.rules.AddRule(req.Pattern, req.Label, enabled)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, rule)
}

func (h *handlers) getRule(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rule, err := h.rules.Get(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rule)
}

func (h *handlers) updateRule(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req ruleRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid rule")
		return
	}
	cur, err := h.rules.Get(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	next := domain.PrefixRule{ID: id, Pattern: req.Pattern, Label: req.Label, Enabled: cur.Enabled}
	if req.Enabled != nil {
		next.Enabled = *req.Enabled
	}
	rule, err := h.rules.Update(next)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rule)
}

func (h *handlers) toggleRule(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rule, err := h.rules.Toggle(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rule)
}

func (h *handlers) deleteRule(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.rules.Delete(id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) deleteAllRules(w http.ResponseWriter, r *http.Request) {
	if err := h.rules.DeleteAll(); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) loadDefaults(w http.ResponseWriter, r *http.Request) {
	n, err := h.rules.LoadDefaults()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"inserted": n})
}

func (h *handlers) exportRules(w http.ResponseWriter, r *http.Request) {
	f, err := rules.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	// Buffer so a store error can still produce a proper status.
	var buf bytes.Buffer
	if err := h.rules.Export(&buf, f); err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="callguard_rules.`+string(f)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *handlers) importRules(w http.ResponseWriter, r *http.Request) {
	f, err := rules.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.rules.Import(http.MaxBytesReader(w, r.Body, maxBodyBytes), f)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.fail(w, r, err)
			return
		}
		respondJSON(w, status, res)
		return
	}
	respondJSON(w, http.StatusOK, res)
}
