package api

import (
	"encoding/json"
	"net/http"
)

// agencyRequest is the JSON body shared by the trigger endpoints.
type agencyRequest struct {
	AgencyID string `json:"agency_id"`
}

func decodeAgencyID(r *http.Request) (string, bool) {
	var req agencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", false
	}
	if req.AgencyID == "" {
		return "", false
	}
	return req.AgencyID, true
}

// handleRunIngest runs one ingestion pass for an agency and returns the
// aggregate run result. Concurrent requests for the same agency serialize
// behind the coordinator.
func (h *Handler) handleRunIngest(w http.ResponseWriter, r *http.Request) {
	if h.coordinator == nil {
		writeError(w, http.StatusServiceUnavailable, "ingestion coordinator not configured")
		return
	}

	agencyID, ok := decodeAgencyID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid agency_id")
		return
	}

	run, err := h.coordinator.Run(r.Context(), agencyID)
	if err != nil {
		writeIngestError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleFetchStatic fetches and registers an agency's static schedule.
func (h *Handler) handleFetchStatic(w http.ResponseWriter, r *http.Request) {
	if h.versioner == nil {
		writeError(w, http.StatusServiceUnavailable, "versioner not configured")
		return
	}

	agencyID, ok := decodeAgencyID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid agency_id")
		return
	}

	res, err := h.versioner.IngestStatic(r.Context(), agencyID)
	if err != nil {
		writeIngestError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleTick triggers one scheduling pass across all enabled agencies.
func (h *Handler) handleTick(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "scheduler not configured")
		return
	}

	h.scheduler.Tick(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}
