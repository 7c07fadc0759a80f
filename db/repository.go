// Package db provides database utilities including repository methods for CRUD operations.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DecodeHistoryRecord represents a record in the decode_history table.
// This tracks one beam-search decode call, whether issued from the CLI
// or the serve-mode HTTP handler.
type DecodeHistoryRecord struct {
	ID              int64     // Auto-incremented primary key
	CorrelationID   string    // Unique identifier for tracing related operations
	MatrixPath      string    // Path or label of the frame-matrix input, if known
	LMKind          string    // "none", "callback", "ngram", or "remote"
	BeamSize        int       // Configured beam width
	BeamSizeToken   int       // Configured per-frame token candidate cap
	LMWeight        float64   // Configured language-model weight
	FramesProcessed int       // Number of input frames decoded
	SurvivingBeams  int       // Number of beams active at the final frame
	Transcript      string    // Winning transcript text
	Score           float64   // Winning beam's combined log-probability score
	DurationMS      int       // Decode duration in milliseconds
	Status          string    // Status: "success", "error"
	ErrorMessage    string    // Error message if status is "error"
	CreatedAt       time.Time // Timestamp when record was created
}

// VocabularyCacheEntry represents a record in the vocabulary_cache table.
// This persists the token-to-word mapping an n-gram language model adapter
// resolves for a given vocabulary, so repeated decodes against the same
// vocabulary and ARPA file don't pay the mapping cost again.
type VocabularyCacheEntry struct {
	ID        int64     // Auto-incremented primary key
	VocabHash string    // Hash of the vocabulary file contents
	LMPath    string    // Path to the ARPA language-model file
	Token     string    // Vocabulary token (decoder-side symbol)
	Word      string    // Resolved language-model word
	CreatedAt time.Time // Timestamp when entry was cached
}

// ErrorLogEntry represents a record in the error_log table.
// This captures errors with context for debugging.
type ErrorLogEntry struct {
	ID            int64     // Auto-incremented primary key
	CorrelationID string    // Optional correlation ID linking to a decode record
	ErrorType     string    // Category of error (e.g., "config_error", "decode_error")
	ErrorMessage  string    // Error description
	StackTrace    string    // Stack trace if available
	Context       string    // JSON-encoded additional context
	CreatedAt     time.Time // Timestamp when error was logged
}

// BenchResult represents a record in the bench_results table.
// This captures one aggregate measurement from the "bench" CLI subcommand,
// letting repeated benchmark runs be compared over time.
type BenchResult struct {
	ID              int64     // Auto-incremented primary key
	RunLabel        string    // Caller-supplied label for this benchmark run
	BeamSize        int       // Beam width used for this run
	LMKind          string    // Language-model kind used for this run
	AvgLatencyMS    float64   // Average decode latency across the run, in milliseconds
	FramesPerSecond float64   // Throughput across the run
	CreatedAt       time.Time // Timestamp when the run completed
}

// Repository provides CRUD operations for the database tables.
// It wraps a Database instance and provides type-safe methods
// for inserting and querying records.
//
// The Repository is designed to work with both synchronous and
// asynchronous writes via the AsyncWriter.
type Repository struct {
	db          *Database
	asyncWriter *AsyncWriter
}

// NewRepository creates a new Repository instance.
// The asyncWriter parameter is optional; if nil, all writes will be synchronous.
func NewRepository(db *Database, asyncWriter *AsyncWriter) *Repository {
	return &Repository{
		db:          db,
		asyncWriter: asyncWriter,
	}
}

// InsertDecodeHistory inserts a decode history record.
// If an asyncWriter is configured, the write is queued asynchronously.
// Returns the inserted record ID (0 for async writes).
func (r *Repository) InsertDecodeHistory(ctx context.Context, record DecodeHistoryRecord) (int64, error) {
	if r.db == nil {
		return 0, fmt.Errorf("database connection is nil")
	}

	query := `
		INSERT INTO decode_history (
			correlation_id, matrix_path, lm_kind, beam_size, beam_size_token,
			lm_weight, frames_processed, surviving_beams, transcript, score,
			duration_ms, status, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	args := []interface{}{
		record.CorrelationID,
		record.MatrixPath,
		record.LMKind,
		record.BeamSize,
		record.BeamSizeToken,
		record.LMWeight,
		record.FramesProcessed,
		record.SurvivingBeams,
		record.Transcript,
		record.Score,
		record.DurationMS,
		record.Status,
		record.ErrorMessage,
	}

	// Use async writer if available
	if r.asyncWriter != nil && r.asyncWriter.IsStarted() {
		op := asyncInsertOp{
			query: query,
			args:  args,
		}
		if r.asyncWriter.Write(op) {
			return 0, nil // Async write queued successfully
		}
		// Fall through to sync write if channel is full
	}

	// Synchronous write
	result, err := r.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert decode history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return id, nil
}

// QueryRecentDecodeHistory retrieves the most recent decode history records.
// Results are ordered by created_at DESC.
func (r *Repository) QueryRecentDecodeHistory(ctx context.Context, limit int) ([]DecodeHistoryRecord, error) {
	if r.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	if limit <= 0 {
		limit = 10 // Default limit
	}

	query := `
		SELECT id, correlation_id, COALESCE(matrix_path, ''), lm_kind,
			   beam_size, beam_size_token, lm_weight,
			   frames_processed, surviving_beams,
			   COALESCE(transcript, ''), COALESCE(score, 0),
			   duration_ms, status, COALESCE(error_message, ''),
			   created_at
		FROM decode_history
		ORDER BY created_at DESC
		LIMIT ?`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query decode history: %w", err)
	}
	defer rows.Close()

	return scanDecodeHistoryRows(rows)
}

// QueryDecodeHistoryByCorrelationID retrieves decode history for a specific correlation ID.
func (r *Repository) QueryDecodeHistoryByCorrelationID(ctx context.Context, correlationID string) ([]DecodeHistoryRecord, error) {
	if r.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	query := `
		SELECT id, correlation_id, COALESCE(matrix_path, ''), lm_kind,
			   beam_size, beam_size_token, lm_weight,
			   frames_processed, surviving_beams,
			   COALESCE(transcript, ''), COALESCE(score, 0),
			   duration_ms, status, COALESCE(error_message, ''),
			   created_at
		FROM decode_history
		WHERE correlation_id = ?
		ORDER BY created_at DESC`

	rows, err := r.db.Query(query, correlationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query decode history: %w", err)
	}
	defer rows.Close()

	return scanDecodeHistoryRows(rows)
}

func scanDecodeHistoryRows(rows *sql.Rows) ([]DecodeHistoryRecord, error) {
	var records []DecodeHistoryRecord
	for rows.Next() {
		var rec DecodeHistoryRecord
		var createdAt string

		err := rows.Scan(
			&rec.ID,
			&rec.CorrelationID,
			&rec.MatrixPath,
			&rec.LMKind,
			&rec.BeamSize,
			&rec.BeamSizeToken,
			&rec.LMWeight,
			&rec.FramesProcessed,
			&rec.SurvivingBeams,
			&rec.Transcript,
			&rec.Score,
			&rec.DurationMS,
			&rec.Status,
			&rec.ErrorMessage,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decode history row: %w", err)
		}

		rec.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdAt)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating decode history rows: %w", err)
	}

	return records, nil
}

// UpsertVocabularyCacheEntry inserts or replaces a cached token-to-word mapping.
func (r *Repository) UpsertVocabularyCacheEntry(ctx context.Context, entry VocabularyCacheEntry) error {
	if r.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	query := `
		INSERT INTO vocabulary_cache (vocab_hash, lm_path, token, word)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(vocab_hash, lm_path, token) DO UPDATE SET word = excluded.word`

	_, err := r.db.Exec(query, entry.VocabHash, entry.LMPath, entry.Token, entry.Word)
	if err != nil {
		return fmt.Errorf("failed to upsert vocabulary cache entry: %w", err)
	}

	return nil
}

// QueryVocabularyCache retrieves every cached mapping for a given vocabulary and LM file.
func (r *Repository) QueryVocabularyCache(ctx context.Context, vocabHash, lmPath string) ([]VocabularyCacheEntry, error) {
	if r.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	query := `
		SELECT id, vocab_hash, lm_path, token, word, created_at
		FROM vocabulary_cache
		WHERE vocab_hash = ? AND lm_path = ?`

	rows, err := r.db.Query(query, vocabHash, lmPath)
	if err != nil {
		return nil, fmt.Errorf("failed to query vocabulary cache: %w", err)
	}
	defer rows.Close()

	var entries []VocabularyCacheEntry
	for rows.Next() {
		var entry VocabularyCacheEntry
		var createdAt string

		err := rows.Scan(&entry.ID, &entry.VocabHash, &entry.LMPath, &entry.Token, &entry.Word, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vocabulary cache row: %w", err)
		}

		entry.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdAt)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vocabulary cache rows: %w", err)
	}

	return entries, nil
}

// InsertErrorLog inserts an error log entry.
// If an asyncWriter is configured, the write is queued asynchronously.
func (r *Repository) InsertErrorLog(ctx context.Context, entry ErrorLogEntry) (int64, error) {
	if r.db == nil {
		return 0, fmt.Errorf("database connection is nil")
	}

	query := `
		INSERT INTO error_log (
			correlation_id, error_type, error_message, stack_trace, context
		) VALUES (?, ?, ?, ?, ?)`

	args := []interface{}{
		nullString(entry.CorrelationID),
		entry.ErrorType,
		entry.ErrorMessage,
		nullString(entry.StackTrace),
		nullString(entry.Context),
	}

	// Use async writer if available
	if r.asyncWriter != nil && r.asyncWriter.IsStarted() {
		op := asyncInsertOp{
			query: query,
			args:  args,
		}
		if r.asyncWriter.Write(op) {
			return 0, nil // Async write queued successfully
		}
		// Fall through to sync write if channel is full
	}

	// Synchronous write
	result, err := r.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert error log: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return id, nil
}

// QueryRecentErrorLogs retrieves the most recent error log entries.
// Results are ordered by created_at DESC.
func (r *Repository) QueryRecentErrorLogs(ctx context.Context, limit int) ([]ErrorLogEntry, error) {
	if r.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, COALESCE(correlation_id, ''), error_type, error_message,
			   COALESCE(stack_trace, ''), COALESCE(context, ''), created_at
		FROM error_log
		ORDER BY created_at DESC
		LIMIT ?`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query error logs: %w", err)
	}
	defer rows.Close()

	return scanErrorLogRows(rows)
}

// QueryErrorLogsByType retrieves error logs filtered by error type.
func (r *Repository) QueryErrorLogsByType(ctx context.Context, errorType string, limit int) ([]ErrorLogEntry, error) {
	if r.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, COALESCE(correlation_id, ''), error_type, error_message,
			   COALESCE(stack_trace, ''), COALESCE(context, ''), created_at
		FROM error_log
		WHERE error_type = ?
		ORDER BY created_at DESC
		LIMIT ?`

	rows, err := r.db.Query(query, errorType, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query error logs: %w", err)
	}
	defer rows.Close()

	return scanErrorLogRows(rows)
}

func scanErrorLogRows(rows *sql.Rows) ([]ErrorLogEntry, error) {
	var entries []ErrorLogEntry
	for rows.Next() {
		var entry ErrorLogEntry
		var createdAt string

		err := rows.Scan(
			&entry.ID,
			&entry.CorrelationID,
			&entry.ErrorType,
			&entry.ErrorMessage,
			&entry.StackTrace,
			&entry.Context,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan error log row: %w", err)
		}

		entry.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdAt)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating error log rows: %w", err)
	}

	return entries, nil
}

// InsertBenchResult inserts a benchmark result record.
// If an asyncWriter is configured, the write is queued asynchronously.
func (r *Repository) InsertBenchResult(ctx context.Context, result BenchResult) (int64, error) {
	if r.db == nil {
		return 0, fmt.Errorf("database connection is nil")
	}

	query := `
		INSERT INTO bench_results (
			run_label, beam_size, lm_kind, avg_latency_ms, frames_per_second
		) VALUES (?, ?, ?, ?, ?)`

	args := []interface{}{
		result.RunLabel,
		result.BeamSize,
		result.LMKind,
		result.AvgLatencyMS,
		result.FramesPerSecond,
	}

	if r.asyncWriter != nil && r.asyncWriter.IsStarted() {
		op := asyncInsertOp{
			query: query,
			args:  args,
		}
		if r.asyncWriter.Write(op) {
			return 0, nil
		}
	}

	res, err := r.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert bench result: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return id, nil
}

// QueryRecentBenchResults retrieves the most recent benchmark results.
// Results are ordered by created_at DESC.
func (r *Repository) QueryRecentBenchResults(ctx context.Context, limit int) ([]BenchResult, error) {
	if r.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, run_label, beam_size, lm_kind, avg_latency_ms, frames_per_second, created_at
		FROM bench_results
		ORDER BY created_at DESC
		LIMIT ?`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query bench results: %w", err)
	}
	defer rows.Close()

	var results []BenchResult
	for rows.Next() {
		var res BenchResult
		var createdAt string

		err := rows.Scan(&res.ID, &res.RunLabel, &res.BeamSize, &res.LMKind, &res.AvgLatencyMS, &res.FramesPerSecond, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bench result row: %w", err)
		}

		res.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdAt)
		results = append(results, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bench result rows: %w", err)
	}

	return results, nil
}

// asyncInsertOp is an internal type for async insert operations.
type asyncInsertOp struct {
	query string
	args  []interface{}
}

// CreateAsyncWriteHandler creates a WriteHandler for the Repository.
// This handler processes asyncInsertOp operations.
func (r *Repository) CreateAsyncWriteHandler() WriteHandler {
	return func(op WriteOperation) error {
		insertOp, ok := op.Data.(asyncInsertOp)
		if !ok {
			return fmt.Errorf("invalid operation type: expected asyncInsertOp")
		}

		_, err := r.db.Exec(insertOp.query, insertOp.args...)
		return err
	}
}

// nullString converts an empty string to sql.NullString for NULL storage.
func nullString(s string) interface{} {
	if s == "" {
		return sql.NullString{String: "", Valid: false}
	}
	return s
}

// CountDecodeHistory returns the total count of decode history records.
func (r *Repository) CountDecodeHistory(ctx context.Context) (int64, error) {
	if r.db == nil {
		return 0, fmt.Errorf("database connection is nil")
	}

	var count int64
	err := r.db.QueryRow("SELECT COUNT(*) FROM decode_history").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count decode history: %w", err)
	}

	return count, nil
}

// CountErrorLogs returns the total count of error log entries.
func (r *Repository) CountErrorLogs(ctx context.Context) (int64, error) {
	if r.db == nil {
		return 0, fmt.Errorf("database connection is nil")
	}

	var count int64
	err := r.db.QueryRow("SELECT COUNT(*) FROM error_log").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count error logs: %w", err)
	}

	return count, nil
}
