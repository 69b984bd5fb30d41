package ingest

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/transitarchive/transitarchive/internal/catalog"
)

// Scheduler periodically triggers an ingestion run for every enabled
// agency. Agencies are independent failure domains: one agency's error is
// logged and swallowed, never propagated to its siblings. Missed ticks are
// not retried; the next tick is a fresh attempt.
type Scheduler struct {
	catalog     catalog.Store
	coordinator *Coordinator
	interval    time.Duration
}

// NewScheduler creates a Scheduler.
func NewScheduler(cat catalog.Store, coordinator *Coordinator, interval time.Duration) *Scheduler {
	return &Scheduler{catalog: cat, coordinator: coordinator, interval: interval}
}

// Tick runs one scheduling pass: every enabled agency gets a concurrent
// ingestion run. Tick joins all runs before returning so callers observe a
// quiesced pass, but collects outcomes instead of propagating the first
// failure.
func (s *Scheduler) Tick(ctx context.Context) {
	agencies, err := s.catalog.ListEnabledAgencies(ctx)
	if err != nil {
		log.Printf("scheduler: list agencies: %v", err)
		return
	}

	var wg sync.WaitGroup
	for _, agency := range agencies {
		wg.Add(1)
		go func(agencyID string) {
			defer wg.Done()
			run, err := s.coordinator.Run(ctx, agencyID)
			if err != nil {
				log.Printf("scheduler: run %s: %v", agencyID, err)
				return
			}
			log.Printf("scheduler: run %s at %d: ok=%t feeds=%d", agencyID, run.TsMs, run.Ok, len(run.Results))
		}(agency.AgencyID)
	}
	wg.Wait()
}

// Start ticks on the configured interval until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("scheduler: started, interval %s", s.interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("scheduler: stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}
