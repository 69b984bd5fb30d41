package api

import (
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/transitarchive/transitarchive/internal/catalog"
)

var dateRe = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)

// parseExportDate converts a YYYY-MM-DD date into the UTC day's
// [startMs, endMs) window.
func parseExportDate(date string) (startMs, endMs int64, ok bool) {
	m := dateRe.FindStringSubmatch(date)
	if m == nil {
		return 0, 0, false
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])

	start := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return start.UnixMilli(), start.Add(24 * time.Hour).UnixMilli(), true
}

// expandFeedTypes resolves the feed_type query value: a concrete type maps
// to itself, "all" to the whole set.
func expandFeedTypes(feedType string) ([]string, bool) {
	if feedType == "all" {
		return catalog.FeedTypes, true
	}
	if catalog.ValidFeedType(feedType) {
		return []string{feedType}, true
	}
	return nil, false
}

// handleManifest lists (storage key, timestamp, feed type) for one UTC day,
// ordered by timestamp, for export tooling.
func (h *Handler) handleManifest(w http.ResponseWriter, r *http.Request) {
	agencyID := r.PathValue("agencyID")
	q := r.URL.Query()

	startMs, endMs, ok := parseExportDate(q.Get("date"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}

	feedTypes, ok := expandFeedTypes(q.Get("feed_type"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid feed_type")
		return
	}

	format := q.Get("format")
	if format == "" {
		format = "pb"
	}
	if format != "pb" {
		writeError(w, http.StatusBadRequest, "unsupported format")
		return
	}

	objects, err := h.catalog.ListManifest(r.Context(), agencyID, startMs, endMs, feedTypes)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if objects == nil {
		objects = []catalog.ManifestObject{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"agency_id": agencyID,
		"date":      q.Get("date"),
		"feed_type": q.Get("feed_type"),
		"format":    format,
		"objects":   objects,
	})
}

// handleListSnapshots lists snapshot rows newest first with optional
// feed type and time-range filters.
func (h *Handler) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	agencyID := r.PathValue("agencyID")
	q := r.URL.Query()

	var filter catalog.SnapshotFilter
	if ft := q.Get("feed_type"); ft != "" {
		if !catalog.ValidFeedType(ft) {
			writeError(w, http.StatusBadRequest, "invalid feed_type")
			return
		}
		filter.FeedType = ft
	}

	if v := q.Get("start_ms"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start_ms")
			return
		}
		filter.StartMs = &parsed
	}
	if v := q.Get("end_ms"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end_ms")
			return
		}
		filter.EndMs = &parsed
	}

	if v := q.Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = parsed
	}

	snaps, err := h.catalog.ListSnapshots(r.Context(), agencyID, filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if snaps == nil {
		snaps = []catalog.Snapshot{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"snapshots": snaps})
}
