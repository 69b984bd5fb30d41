// Package ingest is the ingestion and versioning core: static schedule
// registration, realtime snapshot archiving, the per-agency run
// coordinator, and the periodic scheduler.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/transitarchive/transitarchive/internal/blob"
	"github.com/transitarchive/transitarchive/internal/catalog"
	"github.com/transitarchive/transitarchive/internal/fetch"
)

// Fetcher abstracts the upstream HTTP fetcher.
type Fetcher interface {
	Fetch(ctx context.Context, url, apiKey string) (*fetch.Result, error)
}

// Versioner registers content-addressed static schedule versions and their
// effective-from mappings.
type Versioner struct {
	catalog catalog.Store
	blobs   blob.Store
	fetcher Fetcher
	now     func() time.Time
}

// NewVersioner creates a Versioner. now may be nil to use time.Now.
func NewVersioner(cat catalog.Store, blobs blob.Store, fetcher Fetcher, now func() time.Time) *Versioner {
	if now == nil {
		now = time.Now
	}
	return &Versioner{catalog: cat, blobs: blobs, fetcher: fetcher, now: now}
}

// StaticResult is the outcome of one static schedule ingestion.
type StaticResult struct {
	VersionID  string `json:"version_id"`
	StorageKey string `json:"storage_key"`
}

// IngestStatic fetches an agency's static schedule archive, registers it
// under its content digest, and appends an effective mapping at the
// current instant. Identical content fetched twice yields one version row;
// the fresh effective mapping is still recorded, because effective-dating
// tracks observed validity, not content novelty.
func (v *Versioner) IngestStatic(ctx context.Context, agencyID string) (*StaticResult, error) {
	agency, err := v.catalog.GetAgency(ctx, agencyID)
	if err == catalog.ErrNotFound {
		return nil, ErrUnknownAgency
	}
	if err != nil {
		return nil, fmt.Errorf("load agency: %w", err)
	}
	if !agency.Enabled {
		return nil, ErrUnknownAgency
	}

	res, err := v.fetcher.Fetch(ctx, agency.StaticURL, "")
	if err != nil {
		return nil, fmt.Errorf("fetch static schedule: %w", err)
	}
	if !res.OK() {
		return nil, &UpstreamError{URL: agency.StaticURL, Status: res.StatusCode}
	}

	digest := sha256.Sum256(res.Body)
	versionID := hex.EncodeToString(digest[:])
	tsMs := v.now().UnixMilli()
	key := StaticKey(agencyID, versionID, tsMs)

	err = v.blobs.Put(ctx, key, res.Body, "application/zip", map[string]string{
		"agency_id":     agencyID,
		"version_id":    versionID,
		"fetched_at_ms": strconv.FormatInt(tsMs, 10),
	})
	if err != nil {
		return nil, fmt.Errorf("store static archive: %w", err)
	}

	err = v.catalog.InsertVersion(ctx, catalog.ScheduleVersion{
		VersionID:   versionID,
		AgencyID:    agencyID,
		FetchedAtMs: tsMs,
		StorageKey:  key,
	}, tsMs)
	if err != nil {
		return nil, fmt.Errorf("record version: %w", err)
	}

	return &StaticResult{VersionID: versionID, StorageKey: key}, nil
}
