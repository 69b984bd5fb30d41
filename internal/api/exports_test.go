package api

import (
	"testing"

	"github.com/transitarchive/transitarchive/internal/catalog"
)

func TestParseExportDate(t *testing.T) {
	startMs, endMs, ok := parseExportDate("2025-01-02")
	if !ok {
		t.Fatal("parseExportDate rejected valid date")
	}
	if startMs != 1735776000000 {
		t.Errorf("startMs = %d, want 1735776000000", startMs)
	}
	if endMs-startMs != 24*60*60*1000 {
		t.Errorf("window = %d ms, want one day", endMs-startMs)
	}

	for _, bad := range []string{"", "2025-1-2", "01-02-2025", "2025/01/02", "20250102", "not-a-date"} {
		if _, _, ok := parseExportDate(bad); ok {
			t.Errorf("parseExportDate(%q) accepted", bad)
		}
	}
}

func TestExpandFeedTypes(t *testing.T) {
	got, ok := expandFeedTypes("vehicle-positions")
	if !ok || len(got) != 1 || got[0] != catalog.FeedVehiclePositions {
		t.Errorf("expandFeedTypes(vehicle-positions) = %v, %t", got, ok)
	}

	got, ok = expandFeedTypes("all")
	if !ok || len(got) != 3 {
		t.Errorf("expandFeedTypes(all) = %v, %t", got, ok)
	}

	for _, bad := range []string{"", "weather", "ALL"} {
		if _, ok := expandFeedTypes(bad); ok {
			t.Errorf("expandFeedTypes(%q) accepted", bad)
		}
	}
}
