package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// SQLStore is the Postgres-backed catalog.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a catalog store over an open database handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// GetAgency retrieves an agency by id, enabled or not.
func (s *SQLStore) GetAgency(ctx context.Context, agencyID string) (*Agency, error) {
	a := &Agency{}
	err := s.db.QueryRowContext(ctx,
		`SELECT agency_id, display_name, timezone, static_url, feed_api_key, enabled
		 FROM agencies WHERE agency_id = $1`,
		agencyID,
	).Scan(&a.AgencyID, &a.DisplayName, &a.Timezone, &a.StaticURL, &a.FeedAPIKey, &a.Enabled)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get agency %s: %w", agencyID, err)
	}
	return a, nil
}

// ListEnabledAgencies returns all enabled agencies ordered by id.
func (s *SQLStore) ListEnabledAgencies(ctx context.Context) ([]Agency, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT agency_id, display_name, timezone, static_url, feed_api_key, enabled
		 FROM agencies WHERE enabled ORDER BY agency_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list agencies: %w", err)
	}
	defer rows.Close()

	var agencies []Agency
	for rows.Next() {
		var a Agency
		if err := rows.Scan(&a.AgencyID, &a.DisplayName, &a.Timezone, &a.StaticURL, &a.FeedAPIKey, &a.Enabled); err != nil {
			return nil, fmt.Errorf("scan agency: %w", err)
		}
		agencies = append(agencies, a)
	}
	return agencies, rows.Err()
}

// ListFeeds returns all feeds for an agency ordered by feed type.
func (s *SQLStore) ListFeeds(ctx context.Context, agencyID string) ([]Feed, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT feed_id, agency_id, feed_type, url, enabled
		 FROM feeds WHERE agency_id = $1 ORDER BY feed_type`,
		agencyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list feeds: %w", err)
	}
	defer rows.Close()

	var feeds []Feed
	for rows.Next() {
		var f Feed
		if err := rows.Scan(&f.FeedID, &f.AgencyID, &f.FeedType, &f.URL, &f.Enabled); err != nil {
			return nil, fmt.Errorf("scan feed: %w", err)
		}
		feeds = append(feeds, f)
	}
	return feeds, rows.Err()
}

// UpsertAgency creates or updates an agency record.
func (s *SQLStore) UpsertAgency(ctx context.Context, a Agency) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO agencies (agency_id, display_name, timezone, static_url, feed_api_key, enabled)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (agency_id) DO UPDATE
		   SET display_name = EXCLUDED.display_name,
		       timezone = EXCLUDED.timezone,
		       static_url = EXCLUDED.static_url,
		       feed_api_key = EXCLUDED.feed_api_key,
		       enabled = EXCLUDED.enabled`,
		a.AgencyID, a.DisplayName, a.Timezone, a.StaticURL, a.FeedAPIKey, a.Enabled,
	)
	if err != nil {
		return fmt.Errorf("upsert agency %s: %w", a.AgencyID, err)
	}
	return nil
}

// UpsertFeed creates or updates a feed record. A missing feed id is
// assigned a random UUID.
func (s *SQLStore) UpsertFeed(ctx context.Context, f Feed) error {
	if f.FeedID == "" {
		f.FeedID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feeds (feed_id, agency_id, feed_type, url, enabled)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (feed_id) DO UPDATE
		   SET agency_id = EXCLUDED.agency_id,
		       feed_type = EXCLUDED.feed_type,
		       url = EXCLUDED.url,
		       enabled = EXCLUDED.enabled`,
		f.FeedID, f.AgencyID, f.FeedType, f.URL, f.Enabled,
	)
	if err != nil {
		return fmt.Errorf("upsert feed %s: %w", f.FeedID, err)
	}
	return nil
}

// InsertVersion conditionally inserts a schedule version row and an
// effective mapping at effectiveFromMs, in one transaction. Both inserts
// are no-ops when the row already exists: re-registering unchanged content
// at a later instant still appends a fresh effective mapping, recording
// that the content was observed still valid then.
func (s *SQLStore) InsertVersion(ctx context.Context, v ScheduleVersion, effectiveFromMs int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin version insert: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schedule_versions (version_id, agency_id, fetched_at_ms, storage_key)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (version_id) DO NOTHING`,
		v.VersionID, v.AgencyID, v.FetchedAtMs, v.StorageKey,
	); err != nil {
		return fmt.Errorf("insert version %s: %w", v.VersionID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schedule_version_effective (agency_id, effective_from_ms, version_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (agency_id, effective_from_ms) DO NOTHING`,
		v.AgencyID, effectiveFromMs, v.VersionID,
	); err != nil {
		return fmt.Errorf("insert effective mapping: %w", err)
	}

	return tx.Commit()
}

// ListVersions returns an agency's schedule versions, newest fetch first.
func (s *SQLStore) ListVersions(ctx context.Context, agencyID string) ([]ScheduleVersion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT version_id, agency_id, fetched_at_ms, storage_key
		 FROM schedule_versions WHERE agency_id = $1 ORDER BY fetched_at_ms DESC`,
		agencyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var versions []ScheduleVersion
	for rows.Next() {
		var v ScheduleVersion
		if err := rows.Scan(&v.VersionID, &v.AgencyID, &v.FetchedAtMs, &v.StorageKey); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// EffectiveVersionAt resolves the schedule version effective at tsMs: the
// mapping with the greatest effective_from_ms not after tsMs. One ordered
// query with limit 1, never a scan.
func (s *SQLStore) EffectiveVersionAt(ctx context.Context, agencyID string, tsMs int64) (*EffectiveVersion, error) {
	ev := &EffectiveVersion{}
	err := s.db.QueryRowContext(ctx,
		`SELECT agency_id, effective_from_ms, version_id
		 FROM schedule_version_effective
		 WHERE agency_id = $1 AND effective_from_ms <= $2
		 ORDER BY effective_from_ms DESC LIMIT 1`,
		agencyID, tsMs,
	).Scan(&ev.AgencyID, &ev.EffectiveFromMs, &ev.VersionID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("effective version at %d: %w", tsMs, err)
	}
	return ev, nil
}

// InsertSnapshot conditionally inserts a snapshot row keyed by
// (agency_id, feed_type, ts_ms) and returns the snapshot id. A duplicate
// archive attempt is an idempotent no-op returning the existing row's id.
func (s *SQLStore) InsertSnapshot(ctx context.Context, snap Snapshot) (string, error) {
	if snap.SnapshotID == "" {
		snap.SnapshotID = uuid.New().String()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (snapshot_id, agency_id, feed_type, ts_ms, version_id, storage_key, byte_size, http_etag, http_last_modified)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (agency_id, feed_type, ts_ms) DO NOTHING`,
		snap.SnapshotID, snap.AgencyID, snap.FeedType, snap.TsMs,
		snap.VersionID, snap.StorageKey, snap.ByteSize, snap.HTTPETag, snap.HTTPLastModified,
	)
	if err != nil {
		return "", fmt.Errorf("insert snapshot: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return snap.SnapshotID, nil
	}

	var existing string
	err = s.db.QueryRowContext(ctx,
		`SELECT snapshot_id FROM snapshots WHERE agency_id = $1 AND feed_type = $2 AND ts_ms = $3`,
		snap.AgencyID, snap.FeedType, snap.TsMs,
	).Scan(&existing)
	if err != nil {
		return "", fmt.Errorf("lookup existing snapshot: %w", err)
	}
	return existing, nil
}

// ListSnapshots returns snapshots for an agency newest first, narrowed by
// the filter. Limit defaults to 100 and is clamped to 1000.
func (s *SQLStore) ListSnapshots(ctx context.Context, agencyID string, f SnapshotFilter) ([]Snapshot, error) {
	sb := strings.Builder{}
	sb.WriteString(
		`SELECT snapshot_id, agency_id, feed_type, ts_ms, version_id, storage_key, byte_size, http_etag, http_last_modified
		 FROM snapshots WHERE agency_id = $1`)
	args := []any{agencyID}

	if f.FeedType != "" {
		args = append(args, f.FeedType)
		fmt.Fprintf(&sb, " AND feed_type = $%d", len(args))
	}
	if f.StartMs != nil {
		args = append(args, *f.StartMs)
		fmt.Fprintf(&sb, " AND ts_ms >= $%d", len(args))
	}
	if f.EndMs != nil {
		args = append(args, *f.EndMs)
		fmt.Fprintf(&sb, " AND ts_ms <= $%d", len(args))
	}

	args = append(args, clampLimit(f.Limit))
	fmt.Fprintf(&sb, " ORDER BY ts_ms DESC LIMIT $%d", len(args))

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		var sn Snapshot
		if err := rows.Scan(&sn.SnapshotID, &sn.AgencyID, &sn.FeedType, &sn.TsMs,
			&sn.VersionID, &sn.StorageKey, &sn.ByteSize, &sn.HTTPETag, &sn.HTTPLastModified); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snaps = append(snaps, sn)
	}
	return snaps, rows.Err()
}

// ListManifest returns (storage_key, ts_ms, feed_type) tuples for snapshots
// in [startMs, endMs) restricted to feedTypes, ordered by timestamp.
func (s *SQLStore) ListManifest(ctx context.Context, agencyID string, startMs, endMs int64, feedTypes []string) ([]ManifestObject, error) {
	args := []any{agencyID, startMs, endMs}
	placeholders := make([]string, len(feedTypes))
	for i, ft := range feedTypes {
		args = append(args, ft)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}

	query := fmt.Sprintf(
		`SELECT storage_key, ts_ms, feed_type FROM snapshots
		 WHERE agency_id = $1 AND ts_ms >= $2 AND ts_ms < $3 AND feed_type IN (%s)
		 ORDER BY ts_ms ASC`,
		strings.Join(placeholders, ", "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list manifest: %w", err)
	}
	defer rows.Close()

	var objects []ManifestObject
	for rows.Next() {
		var o ManifestObject
		if err := rows.Scan(&o.StorageKey, &o.TsMs, &o.FeedType); err != nil {
			return nil, fmt.Errorf("scan manifest object: %w", err)
		}
		objects = append(objects, o)
	}
	return objects, rows.Err()
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
