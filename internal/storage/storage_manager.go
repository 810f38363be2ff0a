/**
 * Storage Manager for the LayoutOCR Worker
 *
 * Coordinates storage operations across PostgreSQL (jobs, rendered text,
 * layout) and Qdrant (layout signatures). A capture result is written to
 * both or to neither.
 */

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type resultRows interface {
	UpdateJobStatus(ctx context.Context, update *JobUpdate) error
	InsertCaptureResult(ctx context.Context, row *CaptureResultRow) (time.Time, error)
	GetCaptureResult(ctx context.Context, resultID string) (*CaptureResultRow, error)
	GetJobByID(ctx context.Context, jobID string) (map[string]interface{}, error)
	Close() error
}

type vectorIndex interface {
	UpsertVector(ctx context.Context, point *VectorPoint) error
	SearchVectors(ctx context.Context, queryVector []float32, limit int) ([]*VectorPoint, error)
	DeleteVector(ctx context.Context, id string) error
	GetCollectionInfo(ctx context.Context) (map[string]interface{}, error)
	Close() error
}

// StorageManager coordinates PostgreSQL and Qdrant operations
type StorageManager struct {
	postgres resultRows
	qdrant   vectorIndex
}

// CaptureResultInput is what the processor stores for one finished capture
type CaptureResultInput struct {
	JobID       string
	Text        string
	Mode        string
	Language    string
	IsTabular   bool
	ScaleFactor float64
	RowCount    int
	AtomCount   int
	BandLefts   []float64
	Layout      map[string]interface{}

	// Signature is indexed in Qdrant when set
	Signature []float32
}

// CaptureResultOutput carries the ids assigned to a stored result
type CaptureResultOutput struct {
	ID            string
	JobID         string
	QdrantPointID string
	CreatedAt     time.Time
}

// SimilarLayout is a stored capture whose signature is close to a query
type SimilarLayout struct {
	ResultID        string
	JobID           string
	Text            string
	Mode            string
	IsTabular       bool
	SimilarityScore float64
	CreatedAt       time.Time
}

// NewStorageManager connects to PostgreSQL and, when qdrantAddress is set,
// to Qdrant. Without Qdrant, signatures are not indexed.
func NewStorageManager(postgresURL string, qdrantAddress string, qdrantCollection string) (*StorageManager, error) {
	postgres, err := NewPostgresClient(postgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := postgres.Migrate(ctx); err != nil {
		postgres.Close()
		return nil, err
	}

	sm := &StorageManager{postgres: postgres}
	if qdrantAddress == "" {
		return sm, nil
	}

	qdrant, err := NewQdrantClient(qdrantAddress, qdrantCollection, SignatureDimensions)
	if err != nil {
		postgres.Close()
		return nil, fmt.Errorf("failed to initialize Qdrant client: %w", err)
	}
	sm.qdrant = qdrant

	return sm, nil
}

// StoreCaptureResult stores the signature in Qdrant first, then the row in
// PostgreSQL; if the row cannot be written the vector is deleted again.
func (sm *StorageManager) StoreCaptureResult(ctx context.Context, input *CaptureResultInput) (*CaptureResultOutput, error) {
	if input == nil {
		return nil, fmt.Errorf("input is required")
	}

	if input.JobID == "" {
		return nil, fmt.Errorf("job ID is required")
	}

	if len(input.Signature) > 0 && len(input.Signature) != SignatureDimensions {
		return nil, fmt.Errorf("invalid signature dimensions: expected %d, got %d", SignatureDimensions, len(input.Signature))
	}

	resultID := uuid.New().String()
	qdrantPointID := ""

	if len(input.Signature) > 0 && sm.qdrant != nil {
		qdrantPointID = uuid.New().String()
		point := &VectorPoint{
			ID:     qdrantPointID,
			Vector: input.Signature,
			Metadata: map[string]interface{}{
				"job_id":     input.JobID,
				"result_id":  resultID,
				"is_tabular": input.IsTabular,
				"mode":       input.Mode,
			},
			Timestamp: time.Now().Unix(),
		}
		if err := sm.qdrant.UpsertVector(ctx, point); err != nil {
			return nil, fmt.Errorf("failed to store signature in Qdrant: %w", err)
		}
	}

	createdAt, err := sm.postgres.InsertCaptureResult(ctx, &CaptureResultRow{
		ID:            resultID,
		JobID:         input.JobID,
		QdrantPointID: qdrantPointID,
		Text:          input.Text,
		Mode:          input.Mode,
		Language:      input.Language,
		IsTabular:     input.IsTabular,
		ScaleFactor:   input.ScaleFactor,
		RowCount:      input.RowCount,
		AtomCount:     input.AtomCount,
		BandLefts:     input.BandLefts,
		Layout:        input.Layout,
	})
	if err != nil {
		if qdrantPointID != "" {
			// Rollback: Delete Qdrant point
			sm.qdrant.DeleteVector(ctx, qdrantPointID)
		}
		return nil, fmt.Errorf("failed to store result in PostgreSQL: %w", err)
	}

	return &CaptureResultOutput{
		ID:            resultID,
		JobID:         input.JobID,
		QdrantPointID: qdrantPointID,
		CreatedAt:     createdAt,
	}, nil
}

// GetCaptureResult retrieves a stored capture result
func (sm *StorageManager) GetCaptureResult(ctx context.Context, resultID string) (*CaptureResultRow, error) {
	return sm.postgres.GetCaptureResult(ctx, resultID)
}

// FindSimilarLayouts returns stored captures ordered by signature similarity.
// Hits whose result row is gone are skipped.
func (sm *StorageManager) FindSimilarLayouts(ctx context.Context, signature []float32, limit int) ([]*SimilarLayout, error) {
	if sm.qdrant == nil {
		return nil, fmt.Errorf("layout search requires Qdrant")
	}

	if len(signature) != SignatureDimensions {
		return nil, fmt.Errorf("invalid signature dimensions: expected %d, got %d", SignatureDimensions, len(signature))
	}

	points, err := sm.qdrant.SearchVectors(ctx, signature, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search signatures: %w", err)
	}

	results := make([]*SimilarLayout, 0, len(points))
	for _, point := range points {
		resultID, ok := point.Metadata["result_id"].(string)
		if !ok || resultID == "" {
			continue
		}

		row, err := sm.postgres.GetCaptureResult(ctx, resultID)
		if err != nil {
			continue
		}

		results = append(results, &SimilarLayout{
			ResultID:        row.ID,
			JobID:           row.JobID,
			Text:            row.Text,
			Mode:            row.Mode,
			IsTabular:       row.IsTabular,
			SimilarityScore: point.Score,
			CreatedAt:       row.CreatedAt,
		})
	}

	return results, nil
}

// UpdateJobStatus updates job status in PostgreSQL
func (sm *StorageManager) UpdateJobStatus(ctx context.Context, update *JobUpdate) error {
	return sm.postgres.UpdateJobStatus(ctx, update)
}

// GetJobByID retrieves job by ID
func (sm *StorageManager) GetJobByID(ctx context.Context, jobID string) (map[string]interface{}, error) {
	return sm.postgres.GetJobByID(ctx, jobID)
}

// GetStats returns statistics from both systems
func (sm *StorageManager) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := map[string]interface{}{}

	if pg, ok := sm.postgres.(*PostgresClient); ok {
		pgStats := pg.GetStats()
		stats["postgres"] = map[string]interface{}{
			"max_open_connections": pgStats.MaxOpenConnections,
			"open_connections":     pgStats.OpenConnections,
			"in_use":               pgStats.InUse,
			"idle":                 pgStats.Idle,
			"wait_count":           pgStats.WaitCount,
			"wait_duration":        pgStats.WaitDuration.String(),
		}
	}

	if sm.qdrant != nil {
		qdrantStats, err := sm.qdrant.GetCollectionInfo(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get Qdrant stats: %w", err)
		}
		stats["qdrant"] = qdrantStats
	}

	return stats, nil
}

// Close closes all connections
func (sm *StorageManager) Close() error {
	var pgErr, qdErr error

	if sm.postgres != nil {
		pgErr = sm.postgres.Close()
	}

	if sm.qdrant != nil {
		qdErr = sm.qdrant.Close()
	}

	if pgErr != nil {
		return fmt.Errorf("failed to close PostgreSQL: %w", pgErr)
	}

	if qdErr != nil {
		return fmt.Errorf("failed to close Qdrant: %w", qdErr)
	}

	return nil
}
