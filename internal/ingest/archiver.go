package ingest

import (
	"context"
	"fmt"
	"strconv"

	"github.com/transitarchive/transitarchive/internal/blob"
	"github.com/transitarchive/transitarchive/internal/catalog"
)

// Archiver writes one raw realtime payload to the blob store and records a
// catalog row referencing it and the schedule version effective at fetch
// time. All writes are idempotent.
type Archiver struct {
	catalog catalog.Store
	blobs   blob.Store
}

// NewArchiver creates an Archiver.
func NewArchiver(cat catalog.Store, blobs blob.Store) *Archiver {
	return &Archiver{catalog: cat, blobs: blobs}
}

// ArchiveResult is the outcome of archiving one snapshot.
type ArchiveResult struct {
	SnapshotID string `json:"snapshot_id"`
	StorageKey string `json:"storage_key"`
	ByteSize   int64  `json:"byte_size"`
}

// Archive resolves the effective schedule version for (agencyID, tsMs) and
// archives the payload. A snapshot may precede any known static schedule;
// the version reference is then null.
func (a *Archiver) Archive(ctx context.Context, agencyID, feedType string, tsMs int64, body []byte, etag, lastModified string) (*ArchiveResult, error) {
	versionID, err := a.effectiveVersionID(ctx, agencyID, tsMs)
	if err != nil {
		return nil, err
	}
	return a.ArchiveWithVersion(ctx, agencyID, feedType, tsMs, versionID, body, etag, lastModified)
}

// ArchiveWithVersion archives a payload against a pre-resolved schedule
// version. The coordinator resolves the version once per run and reuses it
// for every feed fetched in that run.
func (a *Archiver) ArchiveWithVersion(ctx context.Context, agencyID, feedType string, tsMs int64, versionID *string, body []byte, etag, lastModified string) (*ArchiveResult, error) {
	if !catalog.ValidFeedType(feedType) {
		return nil, fmt.Errorf("%w: feed type %q", ErrInvalidInput, feedType)
	}

	key := SnapshotKey(agencyID, feedType, tsMs)
	metadata := map[string]string{
		"agency_id": agencyID,
		"feed_type": feedType,
		"ts_ms":     strconv.FormatInt(tsMs, 10),
	}
	if versionID != nil {
		metadata["version_id"] = *versionID
	}
	if err := a.blobs.Put(ctx, key, body, "application/x-protobuf", metadata); err != nil {
		return nil, fmt.Errorf("store snapshot payload: %w", err)
	}

	snapshotID, err := a.catalog.InsertSnapshot(ctx, catalog.Snapshot{
		AgencyID:         agencyID,
		FeedType:         feedType,
		TsMs:             tsMs,
		VersionID:        versionID,
		StorageKey:       key,
		ByteSize:         int64(len(body)),
		HTTPETag:         nilIfEmpty(etag),
		HTTPLastModified: nilIfEmpty(lastModified),
	})
	if err != nil {
		return nil, fmt.Errorf("record snapshot: %w", err)
	}

	return &ArchiveResult{SnapshotID: snapshotID, StorageKey: key, ByteSize: int64(len(body))}, nil
}

func (a *Archiver) effectiveVersionID(ctx context.Context, agencyID string, tsMs int64) (*string, error) {
	ev, err := a.catalog.EffectiveVersionAt(ctx, agencyID, tsMs)
	if err == catalog.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve effective version: %w", err)
	}
	return &ev.VersionID, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
