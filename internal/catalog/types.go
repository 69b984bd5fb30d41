// Package catalog manages the relational record of ingested data: agencies,
// their feeds, content-addressed schedule versions, the time-ordered
// effective-version mappings, and realtime snapshot rows.
package catalog

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("catalog: not found")

// Feed types form a closed set matching the upstream GTFS-RT feeds.
const (
	FeedVehiclePositions = "vehicle-positions"
	FeedTripUpdates      = "trip-updates"
	FeedAlerts           = "alerts"
)

// FeedTypes lists all valid feed types in canonical order.
var FeedTypes = []string{FeedVehiclePositions, FeedTripUpdates, FeedAlerts}

// ValidFeedType reports whether s is a member of the feed-type set.
func ValidFeedType(s string) bool {
	switch s {
	case FeedVehiclePositions, FeedTripUpdates, FeedAlerts:
		return true
	}
	return false
}

// Agency is a transit operator whose feeds are ingested. Rows are written
// by administrative seeding and read-only to the ingestion core.
type Agency struct {
	AgencyID    string  `json:"agency_id"`
	DisplayName string  `json:"display_name"`
	Timezone    string  `json:"timezone"`
	StaticURL   string  `json:"static_url"`
	FeedAPIKey  *string `json:"-"`
	Enabled     bool    `json:"enabled"`
}

// Feed is one upstream realtime data source for an agency.
type Feed struct {
	FeedID   string `json:"feed_id"`
	AgencyID string `json:"agency_id"`
	FeedType string `json:"feed_type"`
	URL      string `json:"url"`
	Enabled  bool   `json:"enabled"`
}

// ScheduleVersion is one content-addressed static schedule archive. The
// version id is the sha256 hex digest of the archive bytes, so identical
// content always maps to the same row.
type ScheduleVersion struct {
	VersionID   string `json:"version_id"`
	AgencyID    string `json:"agency_id"`
	FetchedAtMs int64  `json:"fetched_at_ms"`
	StorageKey  string `json:"storage_key"`
}

// EffectiveVersion maps an agency and effective-from instant to the
// schedule version observed valid from that instant onward.
type EffectiveVersion struct {
	AgencyID        string `json:"agency_id"`
	EffectiveFromMs int64  `json:"effective_from_ms"`
	VersionID       string `json:"version_id"`
}

// Snapshot is one immutable archived fetch of a realtime feed.
type Snapshot struct {
	SnapshotID       string  `json:"snapshot_id"`
	AgencyID         string  `json:"agency_id"`
	FeedType         string  `json:"feed_type"`
	TsMs             int64   `json:"ts_ms"`
	VersionID        *string `json:"version_id"`
	StorageKey       string  `json:"storage_key"`
	ByteSize         int64   `json:"byte_size"`
	HTTPETag         *string `json:"http_etag"`
	HTTPLastModified *string `json:"http_last_modified"`
}

// ManifestObject is one entry of an export manifest listing.
type ManifestObject struct {
	StorageKey string `json:"storage_key"`
	TsMs       int64  `json:"ts_ms"`
	FeedType   string `json:"feed_type"`
}

// SnapshotFilter narrows a snapshot listing. Zero values mean unbounded;
// Limit is clamped by the store.
type SnapshotFilter struct {
	FeedType string
	StartMs  *int64
	EndMs    *int64
	Limit    int
}

// Store is the catalog contract consumed by the ingestion core and the
// read API. Implementations must give insert-if-absent semantics for
// version, effective-mapping, and snapshot writes.
type Store interface {
	GetAgency(ctx context.Context, agencyID string) (*Agency, error)
	ListEnabledAgencies(ctx context.Context) ([]Agency, error)
	ListFeeds(ctx context.Context, agencyID string) ([]Feed, error)

	UpsertAgency(ctx context.Context, a Agency) error
	UpsertFeed(ctx context.Context, f Feed) error

	InsertVersion(ctx context.Context, v ScheduleVersion, effectiveFromMs int64) error
	ListVersions(ctx context.Context, agencyID string) ([]ScheduleVersion, error)
	EffectiveVersionAt(ctx context.Context, agencyID string, tsMs int64) (*EffectiveVersion, error)

	InsertSnapshot(ctx context.Context, s Snapshot) (string, error)
	ListSnapshots(ctx context.Context, agencyID string, f SnapshotFilter) ([]Snapshot, error)
	ListManifest(ctx context.Context, agencyID string, startMs, endMs int64, feedTypes []string) ([]ManifestObject, error)
}
