package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/transitarchive/transitarchive/internal/blob"
	"github.com/transitarchive/transitarchive/internal/catalog"
)

func TestArchiveStampsEffectiveVersion(t *testing.T) {
	ctx := context.Background()
	cat := catalog.NewMemory()
	a := NewArchiver(cat, blob.NewLocalStore(t.TempDir()))

	err := cat.InsertVersion(ctx, catalog.ScheduleVersion{VersionID: "v1", AgencyID: "demo", FetchedAtMs: 1000, StorageKey: "k"}, 1000)
	if err != nil {
		t.Fatalf("InsertVersion: %v", err)
	}

	res, err := a.Archive(ctx, "demo", catalog.FeedVehiclePositions, 2000, []byte("payload"), `"e1"`, "")
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if res.ByteSize != 7 {
		t.Errorf("ByteSize = %d, want 7", res.ByteSize)
	}

	snaps, err := cat.ListSnapshots(ctx, "demo", catalog.SnapshotFilter{})
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("got %d snapshots, want 1", len(snaps))
	}
	if snaps[0].VersionID == nil || *snaps[0].VersionID != "v1" {
		t.Errorf("VersionID = %v, want v1", snaps[0].VersionID)
	}
	if snaps[0].HTTPETag == nil || *snaps[0].HTTPETag != `"e1"` {
		t.Errorf("HTTPETag = %v", snaps[0].HTTPETag)
	}
	if snaps[0].HTTPLastModified != nil {
		t.Errorf("HTTPLastModified = %v, want nil for empty header", snaps[0].HTTPLastModified)
	}
}

func TestArchiveBeforeAnyScheduleVersion(t *testing.T) {
	ctx := context.Background()
	cat := catalog.NewMemory()
	a := NewArchiver(cat, blob.NewLocalStore(t.TempDir()))

	// No schedule version exists yet; the snapshot still archives with a
	// null version reference.
	if _, err := a.Archive(ctx, "demo", catalog.FeedAlerts, 500, []byte("x"), "", ""); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	snaps, _ := cat.ListSnapshots(ctx, "demo", catalog.SnapshotFilter{})
	if len(snaps) != 1 {
		t.Fatalf("got %d snapshots, want 1", len(snaps))
	}
	if snaps[0].VersionID != nil {
		t.Errorf("VersionID = %v, want nil", snaps[0].VersionID)
	}
}

func TestArchiveIdempotent(t *testing.T) {
	ctx := context.Background()
	cat := catalog.NewMemory()
	a := NewArchiver(cat, blob.NewLocalStore(t.TempDir()))

	first, err := a.Archive(ctx, "demo", catalog.FeedTripUpdates, 3000, []byte("x"), "", "")
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	second, err := a.Archive(ctx, "demo", catalog.FeedTripUpdates, 3000, []byte("x"), "", "")
	if err != nil {
		t.Fatalf("Archive again: %v", err)
	}
	if first.SnapshotID != second.SnapshotID {
		t.Errorf("duplicate archive produced new snapshot: %s vs %s", first.SnapshotID, second.SnapshotID)
	}

	snaps, _ := cat.ListSnapshots(ctx, "demo", catalog.SnapshotFilter{})
	if len(snaps) != 1 {
		t.Errorf("got %d snapshots, want 1", len(snaps))
	}
}

func TestArchiveRejectsUnknownFeedType(t *testing.T) {
	a := NewArchiver(catalog.NewMemory(), blob.NewLocalStore(t.TempDir()))
	_, err := a.Archive(context.Background(), "demo", "weather", 1, []byte("x"), "", "")
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("got %v, want ErrInvalidInput", err)
	}
}
