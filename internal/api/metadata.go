package api

import (
	"net/http"
	"strconv"

	"github.com/transitarchive/transitarchive/internal/catalog"
)

func (h *Handler) handleListAgencies(w http.ResponseWriter, r *http.Request) {
	agencies, err := h.catalog.ListEnabledAgencies(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if agencies == nil {
		agencies = []catalog.Agency{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"agencies": agencies})
}

func (h *Handler) handleListFeeds(w http.ResponseWriter, r *http.Request) {
	agencyID := r.PathValue("agencyID")
	feeds, err := h.catalog.ListFeeds(r.Context(), agencyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if feeds == nil {
		feeds = []catalog.Feed{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"feeds": feeds})
}

func (h *Handler) handleListVersions(w http.ResponseWriter, r *http.Request) {
	agencyID := r.PathValue("agencyID")
	versions, err := h.catalog.ListVersions(r.Context(), agencyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if versions == nil {
		versions = []catalog.ScheduleVersion{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"versions": versions})
}

// handleVersionAt resolves the schedule version effective at ts_ms.
func (h *Handler) handleVersionAt(w http.ResponseWriter, r *http.Request) {
	agencyID := r.PathValue("agencyID")

	tsMs, err := strconv.ParseInt(r.URL.Query().Get("ts_ms"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ts_ms")
		return
	}

	ev, err := h.catalog.EffectiveVersionAt(r.Context(), agencyID, tsMs)
	if err == catalog.ErrNotFound {
		writeError(w, http.StatusNotFound, "no effective version")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ev)
}
