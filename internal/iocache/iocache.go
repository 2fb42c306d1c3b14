// Package iocache persists quality reports and evaluation history.
package iocache

import (
	"sync"

	"github.com/huangsam/cgmlens/internal/contract"
)

// CacheStoreManager manages the quality cache and the history store.
type CacheStoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	quality      contract.CacheStore
	history      contract.HistoryStore
}

var _ contract.CacheManager = &CacheStoreManager{} // Compile-time check

// GetQualityStore returns the quality report CacheStore.
func (mgr *CacheStoreManager) GetQualityStore() contract.CacheStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.quality
}

// GetHistoryStore returns the evaluation HistoryStore.
func (mgr *CacheStoreManager) GetHistoryStore() contract.HistoryStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.history
}
