package iocache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/cgmlens/internal/contract"
	"github.com/huangsam/cgmlens/schema"
)

// Table names for evaluation history.
const (
	runsTable     = "cgmlens_runs"
	metricsTable  = "cgmlens_metrics"
	verdictsTable = "cgmlens_verdicts"
)

// historyTables lists the history tables in creation order.
var historyTables = []string{runsTable, metricsTable, verdictsTable}

// HistoryStoreImpl implements the HistoryStore interface.
type HistoryStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.HistoryStore = &HistoryStoreImpl{} // Compile-time check

// NewHistoryStore creates a new HistoryStore with the specified backend.
func NewHistoryStore(backend schema.DatabaseBackend, connStr string) (contract.HistoryStore, error) {
	if backend == schema.NoneBackend {
		return &HistoryStoreImpl{backend: backend}, nil
	}

	db, err := openDB(backend, connStr, GetHistoryDBFilePath())
	if err != nil {
		return nil, err
	}

	if err := createHistoryTables(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history tables: %w", err)
	}

	return &HistoryStoreImpl{db: db, backend: backend}, nil
}

// createHistoryTables creates the history tables when they do not exist yet.
func createHistoryTables(db *sql.DB, backend schema.DatabaseBackend) error {
	for _, table := range historyTables {
		if _, err := db.Exec(getCreateHistoryQuery(table, backend)); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table, err)
		}
	}
	return nil
}

// getCreateHistoryQuery returns the CREATE TABLE query for a history table.
func getCreateHistoryQuery(table string, backend schema.DatabaseBackend) string {
	quoted := quoteTableName(table, backend)

	switch table {
	case runsTable:
		switch backend {
		case schema.MySQLBackend:
			return fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					run_id BIGINT AUTO_INCREMENT PRIMARY KEY,
					run_uuid VARCHAR(36) NOT NULL,
					series_id VARCHAR(255) NOT NULL,
					start_time DATETIME(6) NOT NULL,
					end_time DATETIME(6),
					run_duration_ms INT,
					total_events INT NOT NULL DEFAULT 0,
					total_questions INT NOT NULL DEFAULT 0,
					config_params TEXT
				);
			`, quoted)
		case schema.PostgreSQLBackend:
			return fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					run_id BIGSERIAL PRIMARY KEY,
					run_uuid TEXT NOT NULL,
					series_id TEXT NOT NULL,
					start_time TIMESTAMPTZ NOT NULL,
					end_time TIMESTAMPTZ,
					run_duration_ms INT,
					total_events INT NOT NULL DEFAULT 0,
					total_questions INT NOT NULL DEFAULT 0,
					config_params TEXT
				);
			`, quoted)
		default:
			return fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					run_id INTEGER PRIMARY KEY AUTOINCREMENT,
					run_uuid TEXT NOT NULL,
					series_id TEXT NOT NULL,
					start_time TEXT NOT NULL,
					end_time TEXT,
					run_duration_ms INTEGER,
					total_events INTEGER NOT NULL DEFAULT 0,
					total_questions INTEGER NOT NULL DEFAULT 0,
					config_params TEXT
				);
			`, quoted)
		}

	case metricsTable:
		switch backend {
		case schema.MySQLBackend:
			return fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					run_id BIGINT NOT NULL,
					event_id VARCHAR(255) NOT NULL,
					metric_name VARCHAR(64) NOT NULL,
					value DOUBLE NOT NULL,
					unit VARCHAR(32) NOT NULL,
					coverage_ratio DOUBLE,
					quality_flags VARCHAR(255) NOT NULL,
					recorded_at DATETIME(6) NOT NULL,
					PRIMARY KEY (run_id, event_id, metric_name)
				);
			`, quoted)
		case schema.PostgreSQLBackend:
			return fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					run_id BIGINT NOT NULL,
					event_id TEXT NOT NULL,
					metric_name TEXT NOT NULL,
					value DOUBLE PRECISION NOT NULL,
					unit TEXT NOT NULL,
					coverage_ratio DOUBLE PRECISION,
					quality_flags TEXT NOT NULL,
					recorded_at TIMESTAMPTZ NOT NULL,
					PRIMARY KEY (run_id, event_id, metric_name)
				);
			`, quoted)
		default:
			return fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					run_id INTEGER NOT NULL,
					event_id TEXT NOT NULL,
					metric_name TEXT NOT NULL,
					value REAL NOT NULL,
					unit TEXT NOT NULL,
					coverage_ratio REAL,
					quality_flags TEXT NOT NULL,
					recorded_at TEXT NOT NULL,
					PRIMARY KEY (run_id, event_id, metric_name)
				);
			`, quoted)
		}

	default: // verdictsTable
		switch backend {
		case schema.MySQLBackend:
			return fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					run_id BIGINT NOT NULL,
					question_id VARCHAR(255) NOT NULL,
					status VARCHAR(32) NOT NULL,
					confidence DOUBLE NOT NULL,
					failed_checks TEXT NOT NULL,
					payload MEDIUMTEXT NOT NULL,
					recorded_at DATETIME(6) NOT NULL,
					PRIMARY KEY (run_id, question_id)
				);
			`, quoted)
		case schema.PostgreSQLBackend:
			return fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					run_id BIGINT NOT NULL,
					question_id TEXT NOT NULL,
					status TEXT NOT NULL,
					confidence DOUBLE PRECISION NOT NULL,
					failed_checks TEXT NOT NULL,
					payload TEXT NOT NULL,
					recorded_at TIMESTAMPTZ NOT NULL,
					PRIMARY KEY (run_id, question_id)
				);
			`, quoted)
		default:
			return fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					run_id INTEGER NOT NULL,
					question_id TEXT NOT NULL,
					status TEXT NOT NULL,
					confidence REAL NOT NULL,
					failed_checks TEXT NOT NULL,
					payload TEXT NOT NULL,
					recorded_at TEXT NOT NULL,
					PRIMARY KEY (run_id, question_id)
				);
			`, quoted)
		}
	}
}

// BeginRun creates a new run and returns its numeric ID.
func (hs *HistoryStoreImpl) BeginRun(runUUID, seriesID string, startTime time.Time, configParams map[string]any) (int64, error) {
	if hs.db == nil {
		return 0, nil
	}

	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config params: %w", err)
	}

	quoted := quoteTableName(runsTable, hs.backend)
	args := []any{runUUID, seriesID, formatTime(startTime, hs.backend), string(configJSON)}

	var runID int64
	if hs.backend == schema.PostgreSQLBackend {
		query := fmt.Sprintf(`INSERT INTO %s (run_uuid, series_id, start_time, config_params) VALUES ($1, $2, $3, $4) RETURNING run_id`, quoted)
		err = hs.db.QueryRow(query, args...).Scan(&runID)
	} else {
		query := fmt.Sprintf(`INSERT INTO %s (run_uuid, series_id, start_time, config_params) VALUES (?, ?, ?, ?)`, quoted)
		var result sql.Result
		result, err = hs.db.Exec(query, args...)
		if err == nil {
			runID, err = result.LastInsertId()
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	return runID, nil
}

// EndRun updates the run with completion data.
func (hs *HistoryStoreImpl) EndRun(runID int64, endTime time.Time, totalEvents, totalQuestions int) error {
	if hs.db == nil {
		return nil
	}

	quoted := quoteTableName(runsTable, hs.backend)
	query := fmt.Sprintf(`SELECT start_time FROM %s WHERE run_id = %s`, quoted, placeholder(hs.backend, 1))
	start := timeScanner{backend: hs.backend}
	if err := hs.db.QueryRow(query, runID).Scan(start.dest()); err != nil {
		return fmt.Errorf("failed to get start_time for run %d: %w", runID, err)
	}
	startTime, err := start.required()
	if err != nil {
		return fmt.Errorf("failed to read start_time for run %d: %w", runID, err)
	}

	durationMs := endTime.Sub(startTime).Milliseconds()

	var update string
	if hs.backend == schema.PostgreSQLBackend {
		update = fmt.Sprintf(`UPDATE %s SET end_time = $1, run_duration_ms = $2, total_events = $3, total_questions = $4 WHERE run_id = $5`, quoted)
	} else {
		update = fmt.Sprintf(`UPDATE %s SET end_time = ?, run_duration_ms = ?, total_events = ?, total_questions = ? WHERE run_id = ?`, quoted)
	}
	if _, err := hs.db.Exec(update, formatTime(endTime, hs.backend), durationMs, totalEvents, totalQuestions, runID); err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}

// RecordMetric stores one computed metric for the run.
func (hs *HistoryStoreImpl) RecordMetric(runID int64, metric schema.Metric) error {
	if hs.db == nil {
		return nil
	}

	query := fmt.Sprintf(`INSERT INTO %s (run_id, event_id, metric_name, value, unit, coverage_ratio, quality_flags, recorded_at) VALUES (%s)`,
		quoteTableName(metricsTable, hs.backend), placeholders(hs.backend, 8))
	_, err := hs.db.Exec(query,
		runID, metric.EventID, string(metric.Name), metric.Value, metric.Unit,
		metric.CoverageRatio, strings.Join(schema.FlagStrings(metric.QualityFlags), ","), formatTime(time.Now(), hs.backend))
	if err != nil {
		return fmt.Errorf("failed to insert metric: %w", err)
	}
	return nil
}

// RecordVerdict stores one answerability verdict for the run. The full
// verdict is kept as a JSON payload next to its summary columns.
func (hs *HistoryStoreImpl) RecordVerdict(runID int64, verdict schema.Verdict) error {
	if hs.db == nil {
		return nil
	}

	payload, err := json.Marshal(verdict)
	if err != nil {
		return fmt.Errorf("failed to marshal verdict: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO %s (run_id, question_id, status, confidence, failed_checks, payload, recorded_at) VALUES (%s)`,
		quoteTableName(verdictsTable, hs.backend), placeholders(hs.backend, 7))
	_, err = hs.db.Exec(query,
		runID, verdict.QuestionID, string(verdict.Status), verdict.Confidence,
		strings.Join(verdict.FailedChecks, ","), string(payload), formatTime(time.Now(), hs.backend))
	if err != nil {
		return fmt.Errorf("failed to insert verdict: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (hs *HistoryStoreImpl) Close() error {
	if hs.db != nil {
		return hs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the history store.
func (hs *HistoryStoreImpl) GetStatus() (schema.HistoryStatus, error) {
	status := schema.HistoryStatus{
		Backend:    string(hs.backend),
		Connected:  hs.db != nil,
		TableSizes: make(map[string]int64),
	}
	if hs.db == nil {
		return status, nil
	}

	quoted := quoteTableName(runsTable, hs.backend)
	totalsQuery := fmt.Sprintf("SELECT COUNT(*), COALESCE(SUM(total_events), 0), COALESCE(SUM(total_questions), 0) FROM %s", quoted)
	if err := hs.db.QueryRow(totalsQuery).Scan(&status.TotalRuns, &status.TotalEvents, &status.TotalQuestions); err != nil {
		return status, fmt.Errorf("failed to get run totals: %w", err)
	}

	if status.TotalRuns > 0 {
		last := timeScanner{backend: hs.backend}
		lastQuery := fmt.Sprintf("SELECT run_id, start_time FROM %s ORDER BY run_id DESC LIMIT 1", quoted)
		if err := hs.db.QueryRow(lastQuery).Scan(&status.LastRunID, last.dest()); err != nil {
			return status, fmt.Errorf("failed to get last run info: %w", err)
		}
		lastTime, err := last.required()
		if err != nil {
			return status, fmt.Errorf("failed to parse last run time: %w", err)
		}
		status.LastRunTime = lastTime

		oldest := timeScanner{backend: hs.backend}
		oldestQuery := fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id ASC LIMIT 1", quoted)
		if err := hs.db.QueryRow(oldestQuery).Scan(oldest.dest()); err != nil {
			return status, fmt.Errorf("failed to get oldest run time: %w", err)
		}
		oldestTime, err := oldest.required()
		if err != nil {
			return status, fmt.Errorf("failed to parse oldest run time: %w", err)
		}
		status.OldestRunTime = oldestTime
	}

	for _, table := range historyTables {
		var count int64
		countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, hs.backend))
		if err := hs.db.QueryRow(countQuery).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}

	return status, nil
}

// GetAllRuns retrieves all runs from the store, oldest first.
func (hs *HistoryStoreImpl) GetAllRuns() ([]schema.RunRecord, error) {
	if hs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, run_uuid, series_id, start_time, end_time, run_duration_ms, total_events, total_questions, config_params
		FROM %s ORDER BY run_id`, quoteTableName(runsTable, hs.backend))
	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.RunRecord
	for rows.Next() {
		var record schema.RunRecord
		start := timeScanner{backend: hs.backend}
		end := timeScanner{backend: hs.backend}
		if err := rows.Scan(&record.RunID, &record.RunUUID, &record.SeriesID, start.dest(), end.dest(),
			&record.RunDurationMs, &record.TotalEvents, &record.TotalQuestions, &record.ConfigParams); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if record.StartTime, err = start.required(); err != nil {
			return nil, fmt.Errorf("failed to parse start_time: %w", err)
		}
		if record.EndTime, err = end.value(); err != nil {
			return nil, fmt.Errorf("failed to parse end_time: %w", err)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return results, nil
}

// GetAllMetrics retrieves every recorded metric.
func (hs *HistoryStoreImpl) GetAllMetrics() ([]schema.MetricRecord, error) {
	if hs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, event_id, metric_name, value, unit, coverage_ratio, quality_flags, recorded_at
		FROM %s ORDER BY run_id, event_id, metric_name`, quoteTableName(metricsTable, hs.backend))
	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.MetricRecord
	for rows.Next() {
		var record schema.MetricRecord
		recorded := timeScanner{backend: hs.backend}
		if err := rows.Scan(&record.RunID, &record.EventID, &record.MetricName, &record.Value, &record.Unit,
			&record.CoverageRatio, &record.QualityFlags, recorded.dest()); err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}
		if record.RecordedAt, err = recorded.required(); err != nil {
			return nil, fmt.Errorf("failed to parse recorded_at: %w", err)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating metrics: %w", err)
	}
	return results, nil
}

// GetAllVerdicts retrieves every recorded verdict.
func (hs *HistoryStoreImpl) GetAllVerdicts() ([]schema.VerdictRecord, error) {
	if hs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, question_id, status, confidence, failed_checks, payload, recorded_at
		FROM %s ORDER BY run_id, question_id`, quoteTableName(verdictsTable, hs.backend))
	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query verdicts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.VerdictRecord
	for rows.Next() {
		var record schema.VerdictRecord
		recorded := timeScanner{backend: hs.backend}
		if err := rows.Scan(&record.RunID, &record.QuestionID, &record.Status, &record.Confidence,
			&record.FailedChecks, &record.Payload, recorded.dest()); err != nil {
			return nil, fmt.Errorf("failed to scan verdict: %w", err)
		}
		if record.RecordedAt, err = recorded.required(); err != nil {
			return nil, fmt.Errorf("failed to parse recorded_at: %w", err)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating verdicts: %w", err)
	}
	return results, nil
}
