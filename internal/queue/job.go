package queue

import (
	"context"
	"time"

	"github.com/adverant/nexus/layoutocr-worker/internal/errors"
	"github.com/adverant/nexus/layoutocr-worker/internal/logging"
	"github.com/adverant/nexus/layoutocr-worker/internal/processor"
)

const defaultProcessingTimeout = 2 * time.Minute

// runCapture processes one request under a timeout. A request that runs
// out of time fails with a PROCESSING_TIMEOUT error wrapping the cause.
func runCapture(ctx context.Context, proc processor.CaptureProcessorInterface, req *processor.CaptureRequest,
	timeout time.Duration, logger *logging.Logger) (*processor.CaptureResult, error) {
	if timeout <= 0 {
		timeout = defaultProcessingTimeout
	}

	processCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	result, err := proc.ProcessCapture(processCtx, req)
	duration := time.Since(start)

	if err != nil {
		if processCtx.Err() == context.DeadlineExceeded && errors.CodeOf(err) != errors.ErrorRecognitionTimedOut {
			logger.Warn("processing timed out", "job", req.JobID, "elapsed", duration, "timeout", timeout)
			return nil, errors.NewProcessingTimeoutError(req.JobID, timeout, err)
		}
		logger.Error("processing failed", "job", req.JobID, "elapsed", duration, "error", err)
		return nil, err
	}

	logger.Info("processing completed", "job", req.JobID, "elapsed", duration,
		"mode", result.Mode, "result", result.ResultID)
	return result, nil
}
