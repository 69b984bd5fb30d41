// Package api implements the transitarchive REST surface: thin trigger
// endpoints over the ingestion core and read-only listings over the
// catalog. Request parsing and dispatch only; all semantics live in the
// ingest and catalog packages.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/transitarchive/transitarchive/internal/catalog"
	"github.com/transitarchive/transitarchive/internal/ingest"
)

// Handler is the top-level API handler.
type Handler struct {
	catalog     catalog.Store
	coordinator *ingest.Coordinator
	versioner   *ingest.Versioner
	scheduler   *ingest.Scheduler
}

// NewHandler creates a new API handler.
func NewHandler(cat catalog.Store, coordinator *ingest.Coordinator, versioner *ingest.Versioner, scheduler *ingest.Scheduler) *Handler {
	return &Handler{
		catalog:     cat,
		coordinator: coordinator,
		versioner:   versioner,
		scheduler:   scheduler,
	}
}

// RegisterRoutes registers all API routes on the given ServeMux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Trigger endpoints
	mux.HandleFunc("POST /api/v1/ingest/run", h.handleRunIngest)
	mux.HandleFunc("POST /api/v1/gtfs/static/fetch", h.handleFetchStatic)
	mux.HandleFunc("POST /api/v1/scheduler/tick", h.handleTick)

	// Read endpoints
	mux.HandleFunc("GET /api/v1/agencies", h.handleListAgencies)
	mux.HandleFunc("GET /api/v1/agencies/{agencyID}/feeds", h.handleListFeeds)
	mux.HandleFunc("GET /api/v1/agencies/{agencyID}/gtfs/versions", h.handleListVersions)
	mux.HandleFunc("GET /api/v1/agencies/{agencyID}/gtfs/versions/at", h.handleVersionAt)
	mux.HandleFunc("GET /api/v1/agencies/{agencyID}/exports/manifest", h.handleManifest)
	mux.HandleFunc("GET /api/v1/agencies/{agencyID}/snapshots", h.handleListSnapshots)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeIngestError maps the ingestion error taxonomy onto HTTP statuses.
func writeIngestError(w http.ResponseWriter, err error) {
	var upstream *ingest.UpstreamError
	switch {
	case errors.Is(err, ingest.ErrUnknownAgency):
		writeError(w, http.StatusNotFound, "unknown agency")
	case errors.Is(err, ingest.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &upstream):
		writeError(w, http.StatusBadGateway, upstream.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
