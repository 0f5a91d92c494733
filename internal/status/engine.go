// Package status owns the engine state and serves the memoized status
// view: one refresh cycle classifies, aggregates, accumulates, records,
// persists, and projects, and the result is cached for a short TTL.
package status

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/michaelpyon/subway-shame/internal/classify"
	"github.com/michaelpyon/subway-shame/internal/daily"
	"github.com/michaelpyon/subway-shame/internal/feed"
	"github.com/michaelpyon/subway-shame/internal/history"
	"github.com/michaelpyon/subway-shame/internal/lines"
	"github.com/michaelpyon/subway-shame/internal/snapshot"
	"github.com/michaelpyon/subway-shame/internal/state"
	"github.com/michaelpyon/subway-shame/internal/timeseries"
)

// Source fetches the upstream feeds for one refresh cycle.
type Source interface {
	Fetch(ctx context.Context) feed.Result
}

// Engine holds all mutable engine state: the daily accumulator, the
// time-series recorder, and the single cached response. Mutation
// happens under mu, one refresh cycle at a time; cache reads take the
// read lock only. Concurrent callers that miss the cache are
// single-flighted so only one of them runs the refresh.
type Engine struct {
	source  Source
	store   *state.Store
	archive *history.Archive
	ttl     time.Duration
	now     func() time.Time

	mu       sync.RWMutex
	acc      *daily.Accumulator
	rec      *timeseries.Recorder
	cached   *Response
	cachedAt time.Time

	group singleflight.Group
}

// NewEngine creates the engine and restores persisted state for the
// current local day, if any. store and archive may be nil, in which
// case persistence and archiving are skipped.
func NewEngine(source Source, store *state.Store, archive *history.Archive, ttl time.Duration) *Engine {
	e := &Engine{
		source:  source,
		store:   store,
		archive: archive,
		ttl:     ttl,
		now:     time.Now,
		acc:     daily.New(),
		rec:     timeseries.New(),
	}
	if store != nil {
		store.Restore(e.now(), e.acc, e.rec)
	}
	return e
}

// Status returns the current status view, refreshing it if the cached
// one has expired. It always returns a full response: upstream
// failures degrade to zero scores rather than propagate.
func (e *Engine) Status(ctx context.Context) *Response {
	if resp := e.cachedResponse(); resp != nil {
		return resp
	}

	v, _, _ := e.group.Do("status", func() (interface{}, error) {
		// A caller that queued behind an in-flight refresh may get
		// here just after it finished; serve its result.
		if resp := e.cachedResponse(); resp != nil {
			return resp, nil
		}
		// The refresh serves every caller waiting on this flight, so
		// it must not die with whichever request happened to trigger
		// it. Per-fetch timeouts still bound the upstream calls.
		return e.refresh(context.WithoutCancel(ctx)), nil
	})
	return v.(*Response)
}

// cachedResponse returns the cached response if it is still fresh.
func (e *Engine) cachedResponse() *Response {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.cached != nil && e.now().Sub(e.cachedAt) < e.ttl {
		return e.cached
	}
	return nil
}

// refresh runs one full cycle: fetch, classify, aggregate, accumulate,
// record, persist, project, cache.
func (e *Engine) refresh(ctx context.Context) *Response {
	result := e.source.Fetch(ctx)
	now := e.now()

	agg := snapshot.NewAggregator()
	for _, raw := range result.Alerts {
		if classify.IsNoise(raw.Header) {
			continue
		}
		if !classify.Active(raw.Periods, now) {
			continue
		}
		cl := classify.Classify(raw.Header)

		var affected []string
		for _, rid := range raw.RouteIDs {
			if line, ok := lines.Normalize(rid); ok {
				affected = append(affected, line)
			}
		}
		agg.Add(cl, affected)
	}
	snap := agg.Build()

	tripCounts := make(map[string]int)
	for rid, n := range result.TripCounts {
		if line, ok := lines.Normalize(rid); ok {
			tripCounts[line] += n
		}
	}

	e.mu.Lock()
	e.acc.Accumulate(now, snap)
	e.rec.Record(now, snap)
	if e.store != nil {
		if err := e.store.Save(e.acc, e.rec); err != nil {
			log.Printf("State: save failed: %v", err)
		}
	}
	resp := project(now, snap, tripCounts, e.acc, e.rec.Points())
	e.cached = resp
	e.cachedAt = now
	e.mu.Unlock()

	if e.archive != nil {
		if err := e.archive.RecordCycle(ctx, now, snap); err != nil {
			log.Printf("History: archive failed: %v", err)
		}
	}

	return resp
}
