package core

import (
	"database/sql"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/huangsam/cgmlens/internal/iocache"
	"github.com/huangsam/cgmlens/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testSeries(samples []schema.Sample) schema.Series {
	return schema.Series{SeriesID: "s1", Unit: schema.UnitMgDL, Samples: samples}
}

func TestCachedAnalyzeSignalWithoutStore(t *testing.T) {
	series := testSeries(mealResponseSamples())
	cfg := testEngineConfig()

	got, err := cachedAnalyzeSignal(nil, series, cfg)
	require.NoError(t, err)
	assert.Equal(t, 44, got.ValidSamples)

	mgr := &iocache.MockCacheManager{}
	mgr.On("GetQualityStore").Return(nil)
	got, err = cachedAnalyzeSignal(mgr, series, cfg)
	require.NoError(t, err)
	assert.Equal(t, 44, got.ValidSamples)
	mgr.AssertExpectations(t)
}

func TestCachedAnalyzeSignal(t *testing.T) {
	series := testSeries(mealResponseSamples())
	cfg := testEngineConfig()
	key := generateCacheKey(series.Samples, cfg)

	cached := schema.SignalQuality{Unit: schema.UnitMgDL, TotalSamples: 999, ValidSamples: 999}
	cachedData, err := json.Marshal(cached)
	require.NoError(t, err)

	fresh := time.Now().Unix()
	stale := time.Now().Add(-cacheTTL - time.Hour).Unix()
	cachedEntry := func(payload []byte, version int, ts int64) schema.QualityCacheEntry {
		return schema.QualityCacheEntry{Key: key, SeriesID: "s1", Payload: payload, Version: version, CachedAt: ts}
	}
	miss := schema.QualityCacheEntry{}
	stored := mock.MatchedBy(func(e schema.QualityCacheEntry) bool {
		return e.Key == key && e.SeriesID == "s1" && e.SampleCount == len(series.Samples) &&
			e.Version == currentCacheVersion && e.CachedAt > 0 && len(e.Payload) > 0
	})

	tests := []struct {
		name      string
		setup     func(store *iocache.MockCacheStore)
		wantValid int
	}{
		{
			name: "hit",
			setup: func(store *iocache.MockCacheStore) {
				store.On("Get", key).Return(cachedEntry(cachedData, currentCacheVersion, fresh), nil)
			},
			wantValid: 999,
		},
		{
			name: "miss stores the result",
			setup: func(store *iocache.MockCacheStore) {
				store.On("Get", key).Return(miss, sql.ErrNoRows)
				store.On("Put", stored).Return(nil)
			},
			wantValid: 44,
		},
		{
			name: "stale entry is recomputed",
			setup: func(store *iocache.MockCacheStore) {
				store.On("Get", key).Return(cachedEntry(cachedData, currentCacheVersion, stale), nil)
				store.On("Put", stored).Return(nil)
			},
			wantValid: 44,
		},
		{
			name: "version mismatch is recomputed",
			setup: func(store *iocache.MockCacheStore) {
				store.On("Get", key).Return(cachedEntry(cachedData, currentCacheVersion+1, fresh), nil)
				store.On("Put", stored).Return(nil)
			},
			wantValid: 44,
		},
		{
			name: "corrupt entry is recomputed",
			setup: func(store *iocache.MockCacheStore) {
				store.On("Get", key).Return(cachedEntry([]byte("{"), currentCacheVersion, fresh), nil)
				store.On("Put", stored).Return(nil)
			},
			wantValid: 44,
		},
		{
			name: "put failure still returns the result",
			setup: func(store *iocache.MockCacheStore) {
				store.On("Get", key).Return(miss, sql.ErrNoRows)
				store.On("Put", stored).Return(errors.New("disk full"))
			},
			wantValid: 44,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &iocache.MockCacheStore{}
			tt.setup(store)
			mgr := &iocache.MockCacheManager{}
			mgr.On("GetQualityStore").Return(store)

			got, err := cachedAnalyzeSignal(mgr, series, cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, got.ValidSamples)
			store.AssertExpectations(t)
		})
	}
}

func TestCachedAnalyzeSignalInvalidInput(t *testing.T) {
	store := &iocache.MockCacheStore{}
	store.On("Get", mock.Anything).Return(schema.QualityCacheEntry{}, sql.ErrNoRows)
	mgr := &iocache.MockCacheManager{}
	mgr.On("GetQualityStore").Return(store)

	unordered := gridSamples(0, 5, 100, 101)
	unordered[0], unordered[1] = unordered[1], unordered[0]

	_, err := cachedAnalyzeSignal(mgr, testSeries(unordered), testEngineConfig())
	assert.Error(t, err)
	store.AssertNotCalled(t, "Put", mock.Anything)
}

func TestGenerateCacheKey(t *testing.T) {
	cfg := testEngineConfig()
	samples := mealResponseSamples()
	base := generateCacheKey(samples, cfg)

	assert.Len(t, base, 64)
	assert.Equal(t, base, generateCacheKey(mealResponseSamples(), cfg), "key is deterministic")

	changedValue := mealResponseSamples()
	changedValue[3].Value++
	assert.NotEqual(t, base, generateCacheKey(changedValue, cfg))

	flagged := mealResponseSamples()
	flagged[3].Flags = []schema.QualityFlag{schema.FlagSensorError}
	assert.NotEqual(t, base, generateCacheKey(flagged, cfg))

	threshold := cfg
	threshold.JumpArtifactThreshold++
	assert.NotEqual(t, base, generateCacheKey(samples, threshold))

	// engine settings the analyzer never reads leave the key alone
	windows := cfg
	windows.ResponseWindow.EndOffsetMinutes += 30
	assert.Equal(t, base, generateCacheKey(samples, windows))

	withNaN := gridSamples(0, 5, 100, math.NaN(), 102)
	assert.Equal(t, generateCacheKey(withNaN, cfg), generateCacheKey(gridSamples(0, 5, 100, math.NaN(), 102), cfg))
}
