package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/transitarchive/transitarchive/internal/blob"
	"github.com/transitarchive/transitarchive/internal/catalog"
	"github.com/transitarchive/transitarchive/internal/fetch"
)

// sha256 of the 4 bytes "test".
const testDigest = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"

func seedAgency(t *testing.T, cat catalog.Store, agencyID, staticURL string) {
	t.Helper()
	err := cat.UpsertAgency(context.Background(), catalog.Agency{
		AgencyID:    agencyID,
		DisplayName: "Demo Agency",
		Timezone:    "America/Los_Angeles",
		StaticURL:   staticURL,
		Enabled:     true,
	})
	if err != nil {
		t.Fatalf("seed agency: %v", err)
	}
}

func TestIngestStaticContentAddressing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("test"))
	}))
	defer srv.Close()

	cat := catalog.NewMemory()
	blobs := blob.NewLocalStore(t.TempDir())
	seedAgency(t, cat, "demo-agency", srv.URL)

	now := time.UnixMilli(1700000000000)
	v := NewVersioner(cat, blobs, fetch.NewClient(0), func() time.Time { return now })

	res, err := v.IngestStatic(context.Background(), "demo-agency")
	if err != nil {
		t.Fatalf("IngestStatic: %v", err)
	}
	if res.VersionID != testDigest {
		t.Errorf("VersionID = %s, want %s", res.VersionID, testDigest)
	}
	want := "gtfs-static/demo-agency/hash=" + testDigest + "/fetched_at=1700000000000.zip"
	if res.StorageKey != want {
		t.Errorf("StorageKey = %q, want %q", res.StorageKey, want)
	}

	// Archive bytes must be retrievable under the returned key.
	data, err := blobs.Get(context.Background(), res.StorageKey)
	if err != nil {
		t.Fatalf("Get archive: %v", err)
	}
	if string(data) != "test" {
		t.Errorf("archive bytes = %q", data)
	}
}

func TestIngestStaticIdempotentVersionFreshMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("test"))
	}))
	defer srv.Close()

	cat := catalog.NewMemory()
	blobs := blob.NewLocalStore(t.TempDir())
	seedAgency(t, cat, "demo-agency", srv.URL)

	now := time.UnixMilli(1000)
	v := NewVersioner(cat, blobs, fetch.NewClient(0), func() time.Time { return now })

	ctx := context.Background()
	first, err := v.IngestStatic(ctx, "demo-agency")
	if err != nil {
		t.Fatalf("first IngestStatic: %v", err)
	}

	now = time.UnixMilli(2000)
	second, err := v.IngestStatic(ctx, "demo-agency")
	if err != nil {
		t.Fatalf("second IngestStatic: %v", err)
	}
	if first.VersionID != second.VersionID {
		t.Errorf("same content produced different versions: %s vs %s", first.VersionID, second.VersionID)
	}

	versions, err := cat.ListVersions(ctx, "demo-agency")
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 1 {
		t.Fatalf("got %d version rows, want 1", len(versions))
	}

	// Unchanged content at a later time still marks "still effective now".
	ev, err := cat.EffectiveVersionAt(ctx, "demo-agency", 2500)
	if err != nil {
		t.Fatalf("EffectiveVersionAt: %v", err)
	}
	if ev.EffectiveFromMs != 2000 {
		t.Errorf("EffectiveFromMs = %d, want 2000", ev.EffectiveFromMs)
	}
}

func TestIngestStaticUnknownAgency(t *testing.T) {
	cat := catalog.NewMemory()
	v := NewVersioner(cat, blob.NewLocalStore(t.TempDir()), fetch.NewClient(0), nil)

	if _, err := v.IngestStatic(context.Background(), "nope"); !errors.Is(err, ErrUnknownAgency) {
		t.Errorf("got %v, want ErrUnknownAgency", err)
	}
}

func TestIngestStaticDisabledAgency(t *testing.T) {
	cat := catalog.NewMemory()
	_ = cat.UpsertAgency(context.Background(), catalog.Agency{AgencyID: "off", StaticURL: "http://example.invalid", Enabled: false})
	v := NewVersioner(cat, blob.NewLocalStore(t.TempDir()), fetch.NewClient(0), nil)

	if _, err := v.IngestStatic(context.Background(), "off"); !errors.Is(err, ErrUnknownAgency) {
		t.Errorf("got %v, want ErrUnknownAgency", err)
	}
}

func TestIngestStaticUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	cat := catalog.NewMemory()
	seedAgency(t, cat, "demo-agency", srv.URL)
	v := NewVersioner(cat, blob.NewLocalStore(t.TempDir()), fetch.NewClient(0), nil)

	_, err := v.IngestStatic(context.Background(), "demo-agency")
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("got %v, want UpstreamError", err)
	}
	if upstream.Status != http.StatusInternalServerError {
		t.Errorf("Status = %d, want 500", upstream.Status)
	}

	// Nothing recorded on failure.
	if versions, _ := cat.ListVersions(context.Background(), "demo-agency"); len(versions) != 0 {
		t.Errorf("got %d version rows after failed fetch, want 0", len(versions))
	}
}
