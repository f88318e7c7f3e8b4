package mesh

import (
	"context"
	"log"
	"sync"
	"time"
)

// ResultStore holds the latest solved report for HTTP endpoints
type ResultStore struct {
	mu        sync.RWMutex
	result    *Result
	scanners  []*Scanner
	failure   error
	failedAt  time.Time
	cache     *PoseCache
	cachePath string // path to the pose cache file; empty disables persistence
}

// NewResultStore creates an empty store
func NewResultStore() *ResultStore {
	return &ResultStore{}
}

// NewResultStoreWithCache creates a store that persists solved poses to
// cachePath. If the file exists and is younger than PoseCacheMaxAge, the
// cached poses seed later solves.
func NewResultStoreWithCache(cachePath string) *ResultStore {
	st := &ResultStore{cachePath: cachePath}
	if cachePath != "" {
		cache, err := LoadPoseCache(cachePath)
		if err != nil {
			log.Printf("warning: ignoring pose cache: %v", err)
		}
		if cache != nil && cache.NeedsRefresh(PoseCacheMaxAge) {
			log.Printf("Ignoring stale pose cache %s", cachePath)
			cache = nil
		}
		st.cache = cache
	}
	return st
}

// Solve converges scanners, seeding from the pose cache when it was built
// from the same report, and stores the outcome.
func (st *ResultStore) Solve(ctx context.Context, scanners []*Scanner, config AlignmentConfig) (*Result, error) {
	st.mu.RLock()
	seed := st.cache.PosesFor(scanners)
	st.mu.RUnlock()

	result, err := ConvergeFrom(ctx, scanners, config, seed)
	if err != nil {
		st.RecordFailure(err)
		return nil, err
	}
	st.Update(scanners, result)
	return result, nil
}

// Update stores a solved report and persists its poses when a cache path is set
func (st *ResultStore) Update(scanners []*Scanner, result *Result) {
	cache := NewPoseCache(scanners, result.RunID)

	st.mu.Lock()
	st.result = result
	st.scanners = append([]*Scanner(nil), scanners...)
	st.failure = nil
	st.cache = cache
	cachePath := st.cachePath
	st.mu.Unlock()

	if cachePath != "" {
		if err := SavePoseCache(cachePath, cache); err != nil {
			log.Printf("warning: failed to save pose cache: %v", err)
		}
	}
}

// RecordFailure remembers the latest solve error. The previous result stays available.
func (st *ResultStore) RecordFailure(err error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.failure = err
	st.failedAt = time.Now()
}

// LastFailure returns when the latest solve failed and why. The error is
// nil when the latest solve succeeded.
func (st *ResultStore) LastFailure() (time.Time, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.failedAt, st.failure
}

// Latest returns the latest result and the scanners it was solved from, or nil
func (st *ResultStore) Latest() (*Result, []*Scanner) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.result, st.scanners
}

// HasResult returns true once a report has been solved
func (st *ResultStore) HasResult() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.result != nil
}

// Cache returns the current pose cache, or nil
func (st *ResultStore) Cache() *PoseCache {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.cache
}
