package iocache

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/huangsam/cgmlens/internal/contract"
	"github.com/huangsam/cgmlens/schema"
)

// CacheStoreImpl keeps serialized quality reports, one row per series content hash.
type CacheStoreImpl struct {
	db        *sql.DB
	tableName string
	backend   schema.DatabaseBackend
	connStr   string
}

var _ contract.CacheStore = &CacheStoreImpl{} // Compile-time check

// cacheColumns are selected and inserted in this order.
const cacheColumns = "cache_key, series_id, sample_count, payload, cache_version, cached_at"

// NewCacheStore opens the quality cache table for the backend, creating it when needed.
// The none backend yields a store that never hits and discards writes.
func NewCacheStore(tableName string, backend schema.DatabaseBackend, connStr string) (contract.CacheStore, error) {
	if err := validateTableName(tableName); err != nil {
		return nil, err
	}

	if backend == schema.NoneBackend {
		return &CacheStoreImpl{tableName: tableName, backend: backend, connStr: connStr}, nil
	}

	db, err := openDB(backend, connStr, GetDBFilePath())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	if _, err := db.Exec(qualityCacheDDL(tableName, backend)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", tableName, err)
	}

	return &CacheStoreImpl{db: db, tableName: tableName, backend: backend, connStr: connStr}, nil
}

// qualityCacheDDL returns the CREATE TABLE statement for the backend.
func qualityCacheDDL(tableName string, backend schema.DatabaseBackend) string {
	keyType, textType, blobType, intType := "TEXT", "TEXT", "BLOB", "INTEGER"
	switch backend {
	case schema.MySQLBackend:
		keyType, textType, blobType, intType = "VARCHAR(64)", "VARCHAR(255)", "LONGBLOB", "BIGINT"
	case schema.PostgreSQLBackend:
		blobType, intType = "BYTEA", "BIGINT"
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		cache_key %s PRIMARY KEY,
		series_id %s NOT NULL,
		sample_count %s NOT NULL,
		payload %s NOT NULL,
		cache_version %s NOT NULL,
		cached_at %s NOT NULL
	)`, quoteTableName(tableName, backend), keyType, textType, intType, blobType, intType, intType)
}

// Get returns the entry for key, or sql.ErrNoRows.
func (ps *CacheStoreImpl) Get(key string) (schema.QualityCacheEntry, error) {
	var entry schema.QualityCacheEntry
	if ps.db == nil {
		return entry, sql.ErrNoRows
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE cache_key = %s",
		cacheColumns, quoteTableName(ps.tableName, ps.backend), placeholder(ps.backend, 1))
	err := ps.db.QueryRow(query, key).Scan(
		&entry.Key, &entry.SeriesID, &entry.SampleCount, &entry.Payload, &entry.Version, &entry.CachedAt)
	return entry, err
}

// Put inserts the entry or replaces the one stored under the same key.
func (ps *CacheStoreImpl) Put(entry schema.QualityCacheEntry) error {
	if ps.db == nil {
		return nil
	}
	_, err := ps.db.Exec(ps.upsertQuery(),
		entry.Key, entry.SeriesID, entry.SampleCount, entry.Payload, entry.Version, entry.CachedAt)
	return err
}

// upsertQuery returns the backend's insert-or-replace statement.
func (ps *CacheStoreImpl) upsertQuery() string {
	table := quoteTableName(ps.tableName, ps.backend)
	values := placeholders(ps.backend, 6)
	switch ps.backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) AS new
			ON DUPLICATE KEY UPDATE series_id = new.series_id, sample_count = new.sample_count,
			payload = new.payload, cache_version = new.cache_version, cached_at = new.cached_at`,
			table, cacheColumns, values)
	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)
			ON CONFLICT (cache_key) DO UPDATE SET series_id = EXCLUDED.series_id, sample_count = EXCLUDED.sample_count,
			payload = EXCLUDED.payload, cache_version = EXCLUDED.cache_version, cached_at = EXCLUDED.cached_at`,
			table, cacheColumns, values)
	default:
		return fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)", table, cacheColumns, values)
	}
}

// Close closes the underlying DB connection.
func (ps *CacheStoreImpl) Close() error {
	if ps.db != nil {
		return ps.db.Close()
	}
	return nil
}

// GetStatus summarizes the cached reports.
func (ps *CacheStoreImpl) GetStatus() (schema.CacheStatus, error) {
	status := schema.CacheStatus{
		Backend:   string(ps.backend),
		Connected: ps.db != nil,
	}
	if ps.db == nil {
		return status, nil
	}

	table := quoteTableName(ps.tableName, ps.backend)
	countQuery := fmt.Sprintf("SELECT COUNT(*), COUNT(DISTINCT series_id) FROM %s", table)
	if err := ps.db.QueryRow(countQuery).Scan(&status.TotalEntries, &status.DistinctSeries); err != nil {
		return status, fmt.Errorf("failed to count cached reports: %w", err)
	}
	if status.TotalEntries == 0 {
		return status, nil
	}

	var newest, oldest int64
	rangeQuery := fmt.Sprintf("SELECT MAX(cached_at), MIN(cached_at) FROM %s", table)
	if err := ps.db.QueryRow(rangeQuery).Scan(&newest, &oldest); err != nil {
		return status, fmt.Errorf("failed to get entry time range: %w", err)
	}
	status.LastEntryTime = time.Unix(newest, 0)
	status.OldestEntryTime = time.Unix(oldest, 0)
	status.TableSizeBytes = ps.tableSize(status.TotalEntries)
	return status, nil
}

// tableSize asks the backend for the on-disk size, falling back to a rough estimate.
func (ps *CacheStoreImpl) tableSize(entries int) int64 {
	estimate := int64(entries) * 4096
	var size int64

	switch ps.backend {
	case schema.SQLiteBackend:
		row := ps.db.QueryRow("SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()")
		if err := row.Scan(&size); err != nil {
			return estimate
		}
		return size

	case schema.MySQLBackend:
		cfg, err := mysql.ParseDSN(ps.connStr)
		if err != nil || cfg.DBName == "" {
			return estimate
		}
		row := ps.db.QueryRow("SELECT data_length + index_length FROM information_schema.tables WHERE table_schema = ? AND table_name = ?", cfg.DBName, ps.tableName)
		if err := row.Scan(&size); err != nil {
			return estimate
		}
		return size

	case schema.PostgreSQLBackend:
		if err := ps.db.QueryRow("SELECT pg_total_relation_size($1)", ps.tableName).Scan(&size); err != nil {
			return estimate
		}
		return size
	}
	return estimate
}
