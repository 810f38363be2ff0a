/**
 * PostgreSQL Client for the LayoutOCR Worker
 *
 * Handles job status persistence and capture result storage.
 */

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/lib/pq"
)

// PostgresClient handles database operations
type PostgresClient struct {
	db *sql.DB
}

// JobUpdate represents a job status update
type JobUpdate struct {
	JobID            string
	Status           string
	Mode             string
	Language         string
	ScaleFactor      float64
	Confidence       float64
	ProcessingTimeMs int64
	ResultID         string
	ErrorCode        string
	ErrorMessage     string
	Metadata         map[string]interface{}
}

// CaptureResultRow is one row of layoutocr.capture_results
type CaptureResultRow struct {
	ID            string
	JobID         string
	QdrantPointID string
	Text          string
	Mode          string
	Language      string
	IsTabular     bool
	ScaleFactor   float64
	RowCount      int
	AtomCount     int
	BandLefts     []float64
	Layout        map[string]interface{}
	CreatedAt     time.Time
}

// sanitizeConfidence clamps to [0, 1] and rounds to 4 decimals to match
// the NUMERIC(5,4) column.
func sanitizeConfidence(confidence float64) float64 {
	if confidence < 0.0 || math.IsNaN(confidence) {
		return 0.0
	}
	if confidence > 1.0 {
		return 1.0
	}
	return math.Round(confidence*10000) / 10000
}

// sanitizeScale rounds a scale factor to 4 decimals; non-finite or
// non-positive factors become 0 so the column stores NULL.
func sanitizeScale(scale float64) float64 {
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return 0
	}
	return math.Round(scale*10000) / 10000
}

// NewPostgresClient creates a new PostgreSQL client
func NewPostgresClient(databaseURL string) (*PostgresClient, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresClient{db: db}, nil
}

// Migrate creates the layoutocr schema and tables when missing
func (p *PostgresClient) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

var schemaStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS layoutocr`,
	`CREATE TABLE IF NOT EXISTS layoutocr.capture_jobs (
		id UUID PRIMARY KEY,
		status TEXT NOT NULL,
		mode TEXT,
		language TEXT,
		scale_factor NUMERIC(8,4),
		confidence NUMERIC(5,4),
		processing_time_ms BIGINT,
		result_id UUID,
		error_code TEXT,
		error_message TEXT,
		metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS layoutocr.capture_results (
		id UUID PRIMARY KEY,
		job_id UUID NOT NULL,
		qdrant_point_id UUID,
		text TEXT NOT NULL,
		mode TEXT NOT NULL,
		language TEXT,
		is_tabular BOOLEAN NOT NULL DEFAULT FALSE,
		scale_factor NUMERIC(8,4),
		row_count INTEGER NOT NULL DEFAULT 0,
		atom_count INTEGER NOT NULL DEFAULT 0,
		band_lefts DOUBLE PRECISION[],
		layout JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS capture_results_job_id_idx ON layoutocr.capture_results (job_id)`,
}

// UpdateJobStatus upserts the job row; empty fields keep their stored value
func (p *PostgresClient) UpdateJobStatus(ctx context.Context, update *JobUpdate) error {
	if update == nil || update.JobID == "" {
		return fmt.Errorf("job ID is required")
	}

	if update.Status == "" {
		return fmt.Errorf("status is required")
	}

	confidence := sanitizeConfidence(update.Confidence)

	metadataJSON, err := json.Marshal(update.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	metadataJSON = sanitizeJSONForPostgres(metadataJSON)

	query := `
		INSERT INTO layoutocr.capture_jobs (
			id, status, mode, language, scale_factor, confidence,
			processing_time_ms, result_id, error_code, error_message,
			metadata, created_at, updated_at
		) VALUES (
			$1::uuid, $2, NULLIF($3, ''), NULLIF($4, ''),
			NULLIF($5::NUMERIC(8,4), 0), NULLIF($6::NUMERIC(5,4), 0),
			NULLIF($7, 0),
			CASE WHEN $8 = '' THEN NULL ELSE $8::uuid END,
			NULLIF($9, ''), NULLIF($10, ''),
			COALESCE($11::jsonb, '{}'::jsonb),
			NOW(), NOW()
		)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			mode = COALESCE(EXCLUDED.mode, layoutocr.capture_jobs.mode),
			language = COALESCE(EXCLUDED.language, layoutocr.capture_jobs.language),
			scale_factor = COALESCE(EXCLUDED.scale_factor, layoutocr.capture_jobs.scale_factor),
			confidence = COALESCE(EXCLUDED.confidence, layoutocr.capture_jobs.confidence),
			processing_time_ms = COALESCE(EXCLUDED.processing_time_ms, layoutocr.capture_jobs.processing_time_ms),
			result_id = COALESCE(EXCLUDED.result_id, layoutocr.capture_jobs.result_id),
			error_code = EXCLUDED.error_code,
			error_message = EXCLUDED.error_message,
			metadata = layoutocr.capture_jobs.metadata || EXCLUDED.metadata,
			updated_at = NOW()
		RETURNING id
	`

	var returnedID string
	err = p.db.QueryRowContext(
		ctx,
		query,
		update.JobID,                     // $1
		update.Status,                    // $2
		update.Mode,                      // $3
		update.Language,                  // $4
		sanitizeScale(update.ScaleFactor), // $5
		confidence,                       // $6
		update.ProcessingTimeMs,          // $7
		update.ResultID,                  // $8
		update.ErrorCode,                 // $9
		update.ErrorMessage,              // $10
		metadataJSON,                     // $11
	).Scan(&returnedID)

	if err == sql.ErrNoRows {
		return fmt.Errorf("job not found: %s", update.JobID)
	}

	if err != nil {
		return fmt.Errorf("failed to update job status (job=%s, status=%s): %w",
			update.JobID, update.Status, err)
	}

	return nil
}

// InsertCaptureResult stores a rendered capture and returns its creation time
func (p *PostgresClient) InsertCaptureResult(ctx context.Context, row *CaptureResultRow) (time.Time, error) {
	if row == nil || row.ID == "" || row.JobID == "" {
		return time.Time{}, fmt.Errorf("result ID and job ID are required")
	}

	layoutJSON, err := json.Marshal(row.Layout)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to marshal layout: %w", err)
	}
	layoutJSON = sanitizeJSONForPostgres(layoutJSON)

	query := `
		INSERT INTO layoutocr.capture_results (
			id, job_id, qdrant_point_id, text, mode, language,
			is_tabular, scale_factor, row_count, atom_count, band_lefts,
			layout, created_at
		) VALUES (
			$1::uuid, $2::uuid,
			CASE WHEN $3 = '' THEN NULL ELSE $3::uuid END,
			$4, $5, NULLIF($6, ''), $7, NULLIF($8::NUMERIC(8,4), 0), $9, $10, $11,
			COALESCE($12::jsonb, '{}'::jsonb), NOW()
		)
		RETURNING created_at
	`

	var createdAt time.Time
	err = p.db.QueryRowContext(
		ctx,
		query,
		row.ID,
		row.JobID,
		row.QdrantPointID,
		stripNulls(row.Text),
		row.Mode,
		row.Language,
		row.IsTabular,
		sanitizeScale(row.ScaleFactor),
		row.RowCount,
		row.AtomCount,
		pq.Array(row.BandLefts),
		layoutJSON,
	).Scan(&createdAt)

	if err != nil {
		return time.Time{}, fmt.Errorf("failed to store capture result: %w", err)
	}

	return createdAt, nil
}

// GetCaptureResult retrieves a capture result by ID
func (p *PostgresClient) GetCaptureResult(ctx context.Context, resultID string) (*CaptureResultRow, error) {
	if resultID == "" {
		return nil, fmt.Errorf("result ID is required")
	}

	query := `
		SELECT
			id, job_id, qdrant_point_id, text, mode, language,
			is_tabular, scale_factor, row_count, atom_count, band_lefts,
			layout, created_at
		FROM layoutocr.capture_results
		WHERE id = $1::uuid
	`

	var (
		row            CaptureResultRow
		qdrantPointID  sql.NullString
		language       sql.NullString
		scaleFactor    sql.NullFloat64
		bandLefts      pq.Float64Array
		layoutJSON     []byte
	)

	err := p.db.QueryRowContext(ctx, query, resultID).Scan(
		&row.ID, &row.JobID, &qdrantPointID, &row.Text, &row.Mode, &language,
		&row.IsTabular, &scaleFactor, &row.RowCount, &row.AtomCount, &bandLefts, &layoutJSON, &row.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("capture result not found: %s", resultID)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get capture result: %w", err)
	}

	row.QdrantPointID = qdrantPointID.String
	row.Language = language.String
	row.ScaleFactor = scaleFactor.Float64
	row.BandLefts = []float64(bandLefts)

	if len(layoutJSON) > 0 {
		if err := json.Unmarshal(layoutJSON, &row.Layout); err != nil {
			return nil, fmt.Errorf("failed to unmarshal layout: %w", err)
		}
	}

	return &row, nil
}

// DeleteCaptureResult removes a capture result row
func (p *PostgresClient) DeleteCaptureResult(ctx context.Context, resultID string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM layoutocr.capture_results WHERE id = $1::uuid`, resultID); err != nil {
		return fmt.Errorf("failed to delete capture result: %w", err)
	}
	return nil
}

// GetJobByID retrieves a job by ID
func (p *PostgresClient) GetJobByID(ctx context.Context, jobID string) (map[string]interface{}, error) {
	if jobID == "" {
		return nil, fmt.Errorf("job ID is required")
	}

	query := `
		SELECT
			id, status, mode, language, scale_factor, confidence,
			processing_time_ms, result_id, error_code, error_message,
			metadata, created_at, updated_at
		FROM layoutocr.capture_jobs
		WHERE id = $1::uuid
	`

	var (
		id, status                          string
		mode, language                      sql.NullString
		scaleFactor, confidence             sql.NullFloat64
		processingTimeMs                    sql.NullInt64
		resultID, errorCode, errorMessage   sql.NullString
		metadataJSON                        []byte
		createdAt, updatedAt                time.Time
	)

	err := p.db.QueryRowContext(ctx, query, jobID).Scan(
		&id, &status, &mode, &language, &scaleFactor, &confidence,
		&processingTimeMs, &resultID, &errorCode, &errorMessage,
		&metadataJSON, &createdAt, &updatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	var metadata map[string]interface{}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	result := map[string]interface{}{
		"id":        id,
		"status":    status,
		"createdAt": createdAt,
		"updatedAt": updatedAt,
		"metadata":  metadata,
	}

	if mode.Valid {
		result["mode"] = mode.String
	}
	if language.Valid {
		result["language"] = language.String
	}
	if scaleFactor.Valid {
		result["scaleFactor"] = scaleFactor.Float64
	}
	if confidence.Valid {
		result["confidence"] = confidence.Float64
	}
	if processingTimeMs.Valid {
		result["processingTimeMs"] = processingTimeMs.Int64
	}
	if resultID.Valid {
		result["resultId"] = resultID.String
	}
	if errorCode.Valid {
		result["errorCode"] = errorCode.String
	}
	if errorMessage.Valid {
		result["errorMessage"] = errorMessage.String
	}

	return result, nil
}

// Ping checks database connectivity
func (p *PostgresClient) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the database connection
func (p *PostgresClient) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

// GetStats returns connection pool statistics
func (p *PostgresClient) GetStats() sql.DBStats {
	return p.db.Stats()
}
