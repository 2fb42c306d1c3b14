package iocache

import (
	"time"

	"github.com/huangsam/cgmlens/internal/contract"
	"github.com/huangsam/cgmlens/schema"
	"github.com/stretchr/testify/mock"
)

// MockCacheManager is a mock implementation of CacheManager for testing.
type MockCacheManager struct {
	mock.Mock
}

var _ contract.CacheManager = &MockCacheManager{} // Compile-time check

// GetQualityStore implements the CacheManager interface.
func (m *MockCacheManager) GetQualityStore() contract.CacheStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.CacheStore)
	return store
}

// GetHistoryStore implements the CacheManager interface.
func (m *MockCacheManager) GetHistoryStore() contract.HistoryStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.HistoryStore)
	return store
}

// MockCacheStore is a mock implementation of CacheStore for testing.
type MockCacheStore struct {
	mock.Mock
}

var _ contract.CacheStore = &MockCacheStore{} // Compile-time check

// Get implements the CacheStore interface.
func (m *MockCacheStore) Get(key string) (schema.QualityCacheEntry, error) {
	args := m.Called(key)
	return args.Get(0).(schema.QualityCacheEntry), args.Error(1)
}

// Put implements the CacheStore interface.
func (m *MockCacheStore) Put(entry schema.QualityCacheEntry) error {
	args := m.Called(entry)
	return args.Error(0)
}

// Close implements the CacheStore interface.
func (m *MockCacheStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// GetStatus implements the CacheStore interface.
func (m *MockCacheStore) GetStatus() (schema.CacheStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.CacheStatus), args.Error(1)
}

// MockHistoryStore is a mock implementation of HistoryStore for testing.
type MockHistoryStore struct {
	mock.Mock
}

var _ contract.HistoryStore = &MockHistoryStore{} // Compile-time check

// BeginRun implements the HistoryStore interface.
func (m *MockHistoryStore) BeginRun(runUUID, seriesID string, startTime time.Time, configParams map[string]any) (int64, error) {
	args := m.Called(runUUID, seriesID, startTime, configParams)
	return args.Get(0).(int64), args.Error(1)
}

// EndRun implements the HistoryStore interface.
func (m *MockHistoryStore) EndRun(runID int64, endTime time.Time, totalEvents, totalQuestions int) error {
	args := m.Called(runID, endTime, totalEvents, totalQuestions)
	return args.Error(0)
}

// RecordMetric implements the HistoryStore interface.
func (m *MockHistoryStore) RecordMetric(runID int64, metric schema.Metric) error {
	args := m.Called(runID, metric)
	return args.Error(0)
}

// RecordVerdict implements the HistoryStore interface.
func (m *MockHistoryStore) RecordVerdict(runID int64, verdict schema.Verdict) error {
	args := m.Called(runID, verdict)
	return args.Error(0)
}

// GetStatus implements the HistoryStore interface.
func (m *MockHistoryStore) GetStatus() (schema.HistoryStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.HistoryStatus), args.Error(1)
}

// GetAllRuns implements the HistoryStore interface.
func (m *MockHistoryStore) GetAllRuns() ([]schema.RunRecord, error) {
	args := m.Called()
	records, _ := args.Get(0).([]schema.RunRecord)
	return records, args.Error(1)
}

// GetAllMetrics implements the HistoryStore interface.
func (m *MockHistoryStore) GetAllMetrics() ([]schema.MetricRecord, error) {
	args := m.Called()
	records, _ := args.Get(0).([]schema.MetricRecord)
	return records, args.Error(1)
}

// GetAllVerdicts implements the HistoryStore interface.
func (m *MockHistoryStore) GetAllVerdicts() ([]schema.VerdictRecord, error) {
	args := m.Called()
	records, _ := args.Get(0).([]schema.VerdictRecord)
	return records, args.Error(1)
}

// Close implements the HistoryStore interface.
func (m *MockHistoryStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
