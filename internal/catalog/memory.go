package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Memory implements Store entirely in memory with the same conditional
// insert and ordered-query semantics as the SQL store.
// Useful for development and testing.
type Memory struct {
	mu        sync.Mutex
	agencies  map[string]Agency
	feeds     map[string]Feed
	versions  map[string]ScheduleVersion
	effective map[string][]EffectiveVersion // agency -> sorted by effective_from_ms
	snapshots []Snapshot
}

// NewMemory creates an empty in-memory catalog.
func NewMemory() *Memory {
	return &Memory{
		agencies:  make(map[string]Agency),
		feeds:     make(map[string]Feed),
		versions:  make(map[string]ScheduleVersion),
		effective: make(map[string][]EffectiveVersion),
	}
}

func (m *Memory) GetAgency(ctx context.Context, agencyID string) (*Agency, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agencies[agencyID]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (m *Memory) ListEnabledAgencies(ctx context.Context) ([]Agency, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var agencies []Agency
	for _, a := range m.agencies {
		if a.Enabled {
			agencies = append(agencies, a)
		}
	}
	sort.Slice(agencies, func(i, j int) bool { return agencies[i].AgencyID < agencies[j].AgencyID })
	return agencies, nil
}

func (m *Memory) ListFeeds(ctx context.Context, agencyID string) ([]Feed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var feeds []Feed
	for _, f := range m.feeds {
		if f.AgencyID == agencyID {
			feeds = append(feeds, f)
		}
	}
	sort.Slice(feeds, func(i, j int) bool { return feeds[i].FeedType < feeds[j].FeedType })
	return feeds, nil
}

func (m *Memory) UpsertAgency(ctx context.Context, a Agency) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agencies[a.AgencyID] = a
	return nil
}

func (m *Memory) UpsertFeed(ctx context.Context, f Feed) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f.FeedID == "" {
		f.FeedID = uuid.New().String()
	}
	m.feeds[f.FeedID] = f
	return nil
}

func (m *Memory) InsertVersion(ctx context.Context, v ScheduleVersion, effectiveFromMs int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.versions[v.VersionID]; !exists {
		m.versions[v.VersionID] = v
	}

	mappings := m.effective[v.AgencyID]
	for _, ev := range mappings {
		if ev.EffectiveFromMs == effectiveFromMs {
			return nil // insert-if-absent: mapping for this instant already exists
		}
	}
	mappings = append(mappings, EffectiveVersion{
		AgencyID:        v.AgencyID,
		EffectiveFromMs: effectiveFromMs,
		VersionID:       v.VersionID,
	})
	sort.Slice(mappings, func(i, j int) bool { return mappings[i].EffectiveFromMs < mappings[j].EffectiveFromMs })
	m.effective[v.AgencyID] = mappings
	return nil
}

func (m *Memory) ListVersions(ctx context.Context, agencyID string) ([]ScheduleVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var versions []ScheduleVersion
	for _, v := range m.versions {
		if v.AgencyID == agencyID {
			versions = append(versions, v)
		}
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].FetchedAtMs > versions[j].FetchedAtMs })
	return versions, nil
}

func (m *Memory) EffectiveVersionAt(ctx context.Context, agencyID string, tsMs int64) (*EffectiveVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mappings := m.effective[agencyID]
	for i := len(mappings) - 1; i >= 0; i-- {
		if mappings[i].EffectiveFromMs <= tsMs {
			ev := mappings[i]
			return &ev, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) InsertSnapshot(ctx context.Context, snap Snapshot) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.snapshots {
		if existing.AgencyID == snap.AgencyID && existing.FeedType == snap.FeedType && existing.TsMs == snap.TsMs {
			return existing.SnapshotID, nil
		}
	}
	if snap.SnapshotID == "" {
		snap.SnapshotID = uuid.New().String()
	}
	m.snapshots = append(m.snapshots, snap)
	return snap.SnapshotID, nil
}

func (m *Memory) ListSnapshots(ctx context.Context, agencyID string, f SnapshotFilter) ([]Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var snaps []Snapshot
	for _, s := range m.snapshots {
		if s.AgencyID != agencyID {
			continue
		}
		if f.FeedType != "" && s.FeedType != f.FeedType {
			continue
		}
		if f.StartMs != nil && s.TsMs < *f.StartMs {
			continue
		}
		if f.EndMs != nil && s.TsMs > *f.EndMs {
			continue
		}
		snaps = append(snaps, s)
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].TsMs > snaps[j].TsMs })

	limit := clampLimit(f.Limit)
	if len(snaps) > limit {
		snaps = snaps[:limit]
	}
	return snaps, nil
}

func (m *Memory) ListManifest(ctx context.Context, agencyID string, startMs, endMs int64, feedTypes []string) ([]ManifestObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wanted := make(map[string]bool, len(feedTypes))
	for _, ft := range feedTypes {
		wanted[ft] = true
	}

	var objects []ManifestObject
	for _, s := range m.snapshots {
		if s.AgencyID != agencyID || s.TsMs < startMs || s.TsMs >= endMs || !wanted[s.FeedType] {
			continue
		}
		objects = append(objects, ManifestObject{StorageKey: s.StorageKey, TsMs: s.TsMs, FeedType: s.FeedType})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].TsMs < objects[j].TsMs })
	return objects, nil
}
