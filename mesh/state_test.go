package mesh

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResultStore(t *testing.T) {
	st := NewResultStore()
	assert.False(t, st.HasResult())

	result, scanners := st.Latest()
	assert.Nil(t, result)
	assert.Nil(t, scanners)

	_, err := st.LastFailure()
	assert.NoError(t, err)
}

func TestResultStore_Solve(t *testing.T) {
	st := NewResultStore()
	scanners := loadFixture(t, "chain.txt")

	result, err := st.Solve(context.Background(), scanners, DefaultAlignmentConfig())
	require.NoError(t, err)
	assert.Equal(t, 27, result.BeaconCount)

	assert.True(t, st.HasResult())
	latest, stored := st.Latest()
	assert.Same(t, result, latest)
	assert.Len(t, stored, 3)
	assert.NotNil(t, st.Cache())
}

func TestResultStore_FailureKeepsPreviousResult(t *testing.T) {
	st := NewResultStore()
	first, err := st.Solve(context.Background(), loadFixture(t, "chain.txt"), DefaultAlignmentConfig())
	require.NoError(t, err)

	_, err = st.Solve(context.Background(), loadFixture(t, "disconnected.txt"), DefaultAlignmentConfig())
	require.ErrorIs(t, err, ErrDisconnected)

	latest, _ := st.Latest()
	assert.Same(t, first, latest)

	failedAt, lastErr := st.LastFailure()
	assert.ErrorIs(t, lastErr, ErrDisconnected)
	assert.False(t, failedAt.IsZero())

	// A later success clears the failure
	_, err = st.Solve(context.Background(), loadFixture(t, "chain.txt"), DefaultAlignmentConfig())
	require.NoError(t, err)
	_, lastErr = st.LastFailure()
	assert.NoError(t, lastErr)
}

func TestResultStore_PersistsAndSeedsFromCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "poses.json")

	st := NewResultStoreWithCache(path)
	_, err := st.Solve(context.Background(), loadFixture(t, "chain.txt"), DefaultAlignmentConfig())
	require.NoError(t, err)

	cache, err := LoadPoseCache(path)
	require.NoError(t, err)
	require.NotNil(t, cache)
	assert.Len(t, cache.Scanners, 3)

	// A new store picks the cache up and skips the search
	restarted := NewResultStoreWithCache(path)
	require.NotNil(t, restarted.Cache())
	result, err := restarted.Solve(context.Background(), loadFixture(t, "chain.txt"), DefaultAlignmentConfig())
	require.NoError(t, err)
	assert.Empty(t, result.Placements)
	assert.Equal(t, 3539, result.MaxManhattan)
}

func TestResultStore_Concurrency(t *testing.T) {
	st := NewResultStore()
	scanners, result := solvedChain(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			st.Update(scanners, result)
		}()
		go func() {
			defer wg.Done()
			st.HasResult()
			st.Latest()
			st.LastFailure()
		}()
	}
	wg.Wait()

	assert.True(t, st.HasResult())
}

func TestResultStore_IgnoresStaleCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "poses.json")
	scanners, result := solvedChain(t)

	cache := NewPoseCache(scanners, result.RunID)
	cache.LastUpdated = time.Now().Add(-2 * PoseCacheMaxAge).Unix()
	data, err := json.Marshal(cache)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))

	st := NewResultStoreWithCache(path)
	assert.Nil(t, st.Cache())

	solved, err := st.Solve(context.Background(), loadFixture(t, "chain.txt"), DefaultAlignmentConfig())
	require.NoError(t, err)
	assert.Len(t, solved.Placements, 2, "a stale cache must not seed the solve")

	// The fresh solve rewrote the cache
	assert.NotNil(t, NewResultStoreWithCache(path).Cache())
}
