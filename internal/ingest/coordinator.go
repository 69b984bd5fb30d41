package ingest

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/transitarchive/transitarchive/internal/catalog"
)

// Coordinator serializes ingestion runs per agency. Each agency id maps to
// one mutex, so at most one run per agency is in flight at any time;
// concurrent Run calls for the same agency queue behind each other while
// different agencies proceed fully independently.
type Coordinator struct {
	catalog    catalog.Store
	archiver   *Archiver
	fetcher    Fetcher
	feedAPIKey string
	now        func() time.Time

	mu     sync.Mutex
	locked map[string]*sync.Mutex
}

// NewCoordinator creates a Coordinator. feedAPIKey is the default upstream
// key, overridden by a per-agency key when one is configured. now may be
// nil to use time.Now.
func NewCoordinator(cat catalog.Store, archiver *Archiver, fetcher Fetcher, feedAPIKey string, now func() time.Time) *Coordinator {
	if now == nil {
		now = time.Now
	}
	return &Coordinator{
		catalog:    cat,
		archiver:   archiver,
		fetcher:    fetcher,
		feedAPIKey: feedAPIKey,
		now:        now,
		locked:     make(map[string]*sync.Mutex),
	}
}

// FeedResult is the per-feed outcome of one ingestion run. Status is the
// upstream HTTP status, or 0 for a transport-level failure described by
// Error.
type FeedResult struct {
	FeedType   string `json:"feed_type"`
	Status     int    `json:"status"`
	SnapshotID string `json:"snapshot_id,omitempty"`
	StorageKey string `json:"storage_key,omitempty"`
	ByteSize   int64  `json:"byte_size,omitempty"`
	Error      string `json:"error,omitempty"`
}

// RunResult aggregates one ingestion run. Ok is true when every enabled
// feed produced a snapshot.
type RunResult struct {
	Ok       bool         `json:"ok"`
	AgencyID string       `json:"agency_id"`
	TsMs     int64        `json:"ts_ms"`
	Results  []FeedResult `json:"results"`
}

func (c *Coordinator) lockFor(agencyID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.locked[agencyID]
	if !ok {
		m = &sync.Mutex{}
		c.locked[agencyID] = m
	}
	return m
}

// Run executes one ingestion pass for an agency: fetch every enabled feed
// concurrently, archive each success, and record each failure as a
// per-feed outcome. One feed's failure never aborts its siblings. Whole-run
// errors (unknown agency) fail before any fetch begins.
func (c *Coordinator) Run(ctx context.Context, agencyID string) (*RunResult, error) {
	lock := c.lockFor(agencyID)
	lock.Lock()
	defer lock.Unlock()

	agency, err := c.catalog.GetAgency(ctx, agencyID)
	if err == catalog.ErrNotFound {
		return nil, ErrUnknownAgency
	}
	if err != nil {
		return nil, fmt.Errorf("load agency: %w", err)
	}
	if !agency.Enabled {
		return nil, ErrUnknownAgency
	}

	feeds, err := c.catalog.ListFeeds(ctx, agencyID)
	if err != nil {
		return nil, fmt.Errorf("load feeds: %w", err)
	}
	enabled := feeds[:0]
	for _, f := range feeds {
		if f.Enabled {
			enabled = append(enabled, f)
		}
	}

	tsMs := c.now().UnixMilli()

	// Resolve the effective schedule version once; every feed in this run
	// is stamped with the same version.
	var versionID *string
	if ev, err := c.catalog.EffectiveVersionAt(ctx, agencyID, tsMs); err == nil {
		versionID = &ev.VersionID
	} else if err != catalog.ErrNotFound {
		return nil, fmt.Errorf("resolve effective version: %w", err)
	}

	apiKey := c.feedAPIKey
	if agency.FeedAPIKey != nil && *agency.FeedAPIKey != "" {
		apiKey = *agency.FeedAPIKey
	}

	results := make([]FeedResult, len(enabled))
	var wg sync.WaitGroup
	for i, feed := range enabled {
		wg.Add(1)
		go func(i int, feed catalog.Feed) {
			defer wg.Done()
			results[i] = c.runFeed(ctx, agencyID, feed, tsMs, versionID, apiKey)
		}(i, feed)
	}
	wg.Wait()

	run := &RunResult{Ok: true, AgencyID: agencyID, TsMs: tsMs, Results: results}
	for _, r := range results {
		if r.SnapshotID == "" {
			run.Ok = false
		}
	}
	return run, nil
}

func (c *Coordinator) runFeed(ctx context.Context, agencyID string, feed catalog.Feed, tsMs int64, versionID *string, apiKey string) FeedResult {
	res, err := c.fetcher.Fetch(ctx, feed.URL, apiKey)
	if err != nil {
		log.Printf("ingest %s/%s: fetch failed: %v", agencyID, feed.FeedType, err)
		return FeedResult{FeedType: feed.FeedType, Error: err.Error()}
	}
	if !res.OK() {
		log.Printf("ingest %s/%s: upstream HTTP %d", agencyID, feed.FeedType, res.StatusCode)
		return FeedResult{FeedType: feed.FeedType, Status: res.StatusCode}
	}

	archived, err := c.archiver.ArchiveWithVersion(ctx, agencyID, feed.FeedType, tsMs, versionID, res.Body, res.ETag, res.LastModified)
	if err != nil {
		log.Printf("ingest %s/%s: archive failed: %v", agencyID, feed.FeedType, err)
		return FeedResult{FeedType: feed.FeedType, Status: res.StatusCode, Error: err.Error()}
	}

	return FeedResult{
		FeedType:   feed.FeedType,
		Status:     res.StatusCode,
		SnapshotID: archived.SnapshotID,
		StorageKey: archived.StorageKey,
		ByteSize:   archived.ByteSize,
	}
}
