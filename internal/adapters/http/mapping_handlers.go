package httpadapter

import (
	"encoding/json"
	"net/http"

	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/core/domain"
)

func (rt *Router) mapFields(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req domain.MappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if len(req.TargetFields) == 0 {
		req.TargetFields = rt.catalog
	}

	outcome, err := rt.mappings.MapFields(r.Context(), req)
	if err != nil {
		rt.metrics.RecordMappingRequest("", "error")
		writeError(w, err)
		return
	}

	rt.metrics.RecordMappingRequest(string(outcome.Strategy), "ok")
	rt.metrics.RecordRepairOutcome(outcome.RepairStage)
	writeJSON(w, http.StatusOK, outcome)
}

func (rt *Router) overrideMapping(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Results        []domain.MappingResult `json:"results"`
		SourceField    string                 `json:"source_field"`
		NewTargetField string                 `json:"new_target_field"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	results, err := rt.mappings.Override(req.Results, req.SourceField, req.NewTargetField)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]domain.MappingResult{"results": results})
}

func (rt *Router) normalizeRows(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Rows []domain.RawRow `json:"rows"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if len(req.Rows) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "rows are required"})
		return
	}

	sheet := rt.normalizer.Normalize(req.Rows)
	rt.metrics.RecordNormalizeLayout(sheet.Layout)
	writeJSON(w, http.StatusOK, sheet)
}
