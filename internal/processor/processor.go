/**
 * Capture Processor for the LayoutOCR Worker
 *
 * Runs the capture pipeline for queued jobs and persists the rendered text,
 * the analysed layout and its signature.
 */

package processor

import (
	"context"
	"fmt"

	"github.com/adverant/nexus/layoutocr-worker/internal/errors"
	"github.com/adverant/nexus/layoutocr-worker/internal/layout"
	"github.com/adverant/nexus/layoutocr-worker/internal/logging"
	"github.com/adverant/nexus/layoutocr-worker/internal/storage"
)

// CaptureProcessorInterface defines the interface for capture processing
type CaptureProcessorInterface interface {
	ProcessCapture(ctx context.Context, req *CaptureRequest) (*CaptureResult, error)
	UpdateJobStatus(ctx context.Context, jobID string, status string, progress int, metadata map[string]interface{}) error
}

// ResultStore persists capture results and job status
type ResultStore interface {
	StoreCaptureResult(ctx context.Context, input *storage.CaptureResultInput) (*storage.CaptureResultOutput, error)
	UpdateJobStatus(ctx context.Context, update *storage.JobUpdate) error
}

// CaptureProcessor handles capture processing
type CaptureProcessor struct {
	pipeline *Pipeline
	store    ResultStore
	logger   *logging.Logger
}

// NewCaptureProcessor creates a new capture processor
func NewCaptureProcessor(pipeline *Pipeline, store ResultStore, logger *logging.Logger) (*CaptureProcessor, error) {
	if pipeline == nil {
		return nil, fmt.Errorf("pipeline is required")
	}

	if store == nil {
		return nil, fmt.Errorf("result store is required")
	}

	if logger == nil {
		logger = logging.NewLogger("processor")
	}

	return &CaptureProcessor{
		pipeline: pipeline,
		store:    store,
		logger:   logger,
	}, nil
}

// ProcessCapture runs the pipeline and stores its result
func (p *CaptureProcessor) ProcessCapture(ctx context.Context, req *CaptureRequest) (*CaptureResult, error) {
	p.logger.Info("starting capture pipeline", "job", req.JobID, "mode", req.Mode)

	result, err := p.pipeline.Run(ctx, req)
	if err != nil {
		return nil, err
	}

	input := &storage.CaptureResultInput{
		JobID:       req.JobID,
		Text:        result.Text,
		Mode:        string(result.Mode),
		Language:    result.Language,
		IsTabular:   result.Layout.IsTabular,
		ScaleFactor: result.ScaleFactor,
		RowCount:    len(result.Layout.Rows),
		AtomCount:   result.Layout.AtomCount(),
		BandLefts:   bandLefts(result.Layout.Bands),
		Layout:      layoutDocument(result.Layout),
	}
	if !result.Layout.Empty() {
		input.Signature = result.Signature
	}

	stored, err := p.store.StoreCaptureResult(ctx, input)
	if err != nil {
		return nil, errors.NewStorageFailedError(req.JobID, err)
	}
	result.ResultID = stored.ID

	p.logger.Info("capture stored", "job", req.JobID, "result", stored.ID, "point", stored.QdrantPointID)
	return result, nil
}

// UpdateJobStatus updates job status in the database
func (p *CaptureProcessor) UpdateJobStatus(ctx context.Context, jobID string, status string, progress int, metadata map[string]interface{}) error {
	update := &storage.JobUpdate{
		JobID:    jobID,
		Status:   status,
		Metadata: metadata,
	}

	if metadata != nil {
		if mode, ok := metadata["mode"].(string); ok {
			update.Mode = mode
		}
		if lang, ok := metadata["language"].(string); ok {
			update.Language = lang
		}
		if scale, ok := metadata["scaleFactor"].(float64); ok {
			update.ScaleFactor = scale
		}
		if confidence, ok := metadata["confidence"].(float64); ok {
			update.Confidence = confidence
		}
		if processingTime, ok := metadata["processingTime"].(int64); ok {
			update.ProcessingTimeMs = processingTime
		}
		if resultID, ok := metadata["resultId"].(string); ok {
			update.ResultID = resultID
		}
		if errorMsg, ok := metadata["error"].(string); ok {
			update.ErrorCode = "PROCESSING_ERROR"
			update.ErrorMessage = errorMsg
		}
		if code, ok := metadata["error_code"].(string); ok {
			update.ErrorCode = code
			if msg, ok := metadata["message"].(string); ok {
				update.ErrorMessage = msg
			}
		}
	}

	return p.store.UpdateJobStatus(ctx, update)
}

// CompletionMetadata is the status metadata written for a finished job
func CompletionMetadata(result *CaptureResult) map[string]interface{} {
	return map[string]interface{}{
		"mode":           string(result.Mode),
		"language":       result.Language,
		"scaleFactor":    result.ScaleFactor,
		"confidence":     result.Confidence,
		"processingTime": result.ProcessingTimeMs,
		"resultId":       result.ResultID,
		"isTabular":      result.Layout.IsTabular,
		"rows":           len(result.Layout.Rows),
		"words":          result.WordCount,
	}
}

// FailureMetadata is the status metadata written for a failed job. Coded
// errors keep their code.
func FailureMetadata(err error) map[string]interface{} {
	if pe, ok := err.(*errors.ProcessingError); ok {
		return pe.ToMap()
	}
	return map[string]interface{}{"error": err.Error()}
}

func bandLefts(bands []layout.Band) []float64 {
	if len(bands) == 0 {
		return nil
	}
	lefts := make([]float64, len(bands))
	for i, b := range bands {
		lefts[i] = b.Left
	}
	return lefts
}

// layoutDocument is the JSONB form of a layout: row texts and bands
func layoutDocument(result *layout.LayoutResult) map[string]interface{} {
	rows := make([][]map[string]interface{}, len(result.Rows))
	for i, row := range result.Rows {
		cells := make([]map[string]interface{}, len(row))
		for j, atom := range row {
			cells[j] = map[string]interface{}{
				"text":   atom.Text,
				"left":   atom.Bounds.Left,
				"top":    atom.Bounds.Top,
				"width":  atom.Bounds.Width,
				"height": atom.Bounds.Height,
				"band":   atom.Band,
			}
		}
		rows[i] = cells
	}

	bands := make([]map[string]interface{}, len(result.Bands))
	for i, b := range result.Bands {
		bands[i] = map[string]interface{}{"left": b.Left, "right": b.Right}
	}

	return map[string]interface{}{
		"isTabular": result.IsTabular,
		"rows":      rows,
		"bands":     bands,
	}
}
