package core

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"hash"
	"strconv"
	"time"

	"github.com/huangsam/cgmlens/internal/contract"
	"github.com/huangsam/cgmlens/schema"
)

// currentCacheVersion defines the version of the cache schema
const currentCacheVersion = 1

// cacheTTL bounds how long a cached quality report stays valid
const cacheTTL = 7 * 24 * time.Hour

// cachedAnalyzeSignal returns the quality report for the series, reusing a cached report
// when the same samples were analyzed with the same thresholds.
func cachedAnalyzeSignal(mgr contract.CacheManager, series schema.Series, cfg schema.EngineConfig) (schema.SignalQuality, error) {
	var store contract.CacheStore
	if mgr != nil {
		store = mgr.GetQualityStore()
	}
	if store == nil {
		return AnalyzeSignal(series.Samples, cfg)
	}

	key := generateCacheKey(series.Samples, cfg)
	if result := checkCacheHit(store, key); result != nil {
		return *result, nil
	}
	return computeAndStore(store, key, series, cfg)
}

// checkCacheHit attempts to retrieve and validate a cached result
func checkCacheHit(store contract.CacheStore, key string) *schema.SignalQuality {
	entry, err := store.Get(key)
	if err != nil {
		return nil // Cache miss
	}

	// Validate version and staleness
	if entry.Version == currentCacheVersion && time.Since(time.Unix(entry.CachedAt, 0)) <= cacheTTL {
		var result schema.SignalQuality
		if err := json.Unmarshal(entry.Payload, &result); err == nil {
			return &result // Cache hit
		}
	}

	return nil // Cache miss (stale or version mismatch)
}

// computeAndStore computes the result and stores it in cache
func computeAndStore(store contract.CacheStore, key string, series schema.Series, cfg schema.EngineConfig) (schema.SignalQuality, error) {
	result, err := AnalyzeSignal(series.Samples, cfg)
	if err != nil {
		return schema.SignalQuality{}, err
	}

	if data, err := json.Marshal(result); err == nil {
		entry := schema.QualityCacheEntry{
			Key:         key,
			SeriesID:    series.SeriesID,
			SampleCount: len(series.Samples),
			Payload:     data,
			Version:     currentCacheVersion,
			CachedAt:    time.Now().Unix(),
		}
		if err := store.Put(entry); err != nil {
			contract.LogWarn("Failed to cache quality report", err)
		}
	}

	return result, nil
}

// generateCacheKey hashes the samples and every threshold the analyzer reads.
// Values are formatted with strconv so NaN sensor errors hash deterministically.
func generateCacheKey(samples []schema.Sample, cfg schema.EngineConfig) string {
	h := sha256.New()
	_, _ = fmt.Fprintf(h, "%s:%g:%g:%g:%d:%g:%g:%g:%g:%g:%g\n",
		cfg.Unit,
		cfg.JumpArtifactThreshold,
		cfg.ReversalFraction,
		cfg.IntervalTolerance,
		cfg.FlatlineRunLength,
		cfg.RegularityCV,
		cfg.MissingIntervalFactor,
		cfg.LargeGapMinutes,
		cfg.ExtremeLow,
		cfg.ExtremeHigh,
		cfg.CoverageWarnThreshold,
	)
	for _, s := range samples {
		writeSample(h, s)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

func writeSample(h hash.Hash, s schema.Sample) {
	_, _ = h.Write([]byte(strconv.FormatInt(s.Timestamp.UnixNano(), 10)))
	_, _ = h.Write([]byte{':'})
	_, _ = h.Write([]byte(strconv.FormatFloat(s.Value, 'g', -1, 64)))
	for _, f := range s.Flags {
		_, _ = h.Write([]byte{','})
		_, _ = h.Write([]byte(f))
	}
	_, _ = h.Write([]byte{'\n'})
}
