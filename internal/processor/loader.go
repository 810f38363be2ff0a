package processor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/adverant/nexus/layoutocr-worker/internal/errors"
	"github.com/adverant/nexus/layoutocr-worker/internal/logging"
)

const defaultMaxImageSize = 50 * 1024 * 1024

// imageLoader fetches capture bytes from the request buffer or a URL
type imageLoader struct {
	client  *http.Client
	maxSize int64
	logger  *logging.Logger

	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

func newImageLoader(maxSize int64, logger *logging.Logger) *imageLoader {
	if maxSize <= 0 {
		maxSize = defaultMaxImageSize
	}
	return &imageLoader{
		client:         &http.Client{Timeout: 2 * time.Minute},
		maxSize:        maxSize,
		logger:         logger,
		maxRetries:     3,
		initialBackoff: time.Second,
		maxBackoff:     8 * time.Second,
	}
}

// load returns the request's image bytes
func (l *imageLoader) load(ctx context.Context, req *CaptureRequest) ([]byte, error) {
	if len(req.ImageBuffer) > 0 {
		if int64(len(req.ImageBuffer)) > l.maxSize {
			return nil, errors.NewInvalidImageError(req.JobID,
				fmt.Errorf("image size exceeds maximum: %d > %d bytes", len(req.ImageBuffer), l.maxSize))
		}
		return req.ImageBuffer, nil
	}

	if req.ImageURL != "" {
		data, err := l.download(ctx, req.JobID, req.ImageURL)
		if err != nil {
			return nil, fmt.Errorf("failed to download image: %w", err)
		}
		return data, nil
	}

	return nil, errors.NewInvalidImageError(req.JobID, fmt.Errorf("no image source provided (buffer or URL)"))
}

// download fetches url with exponential backoff between attempts
func (l *imageLoader) download(ctx context.Context, jobID, url string) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= l.maxRetries; attempt++ {
		data, retry, err := l.fetch(ctx, url)
		if err == nil {
			l.logger.Debug("image downloaded", "job", jobID, "bytes", len(data), "attempt", attempt)
			return data, nil
		}
		lastErr = err
		l.logger.Warn("download attempt failed", "job", jobID, "attempt", attempt, "error", err)

		if !retry || attempt == l.maxRetries {
			break
		}

		backoff := time.Duration(float64(l.initialBackoff) * math.Pow(2, float64(attempt-1)))
		if backoff > l.maxBackoff {
			backoff = l.maxBackoff
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during retry backoff: %w", ctx.Err())
		}
	}

	return nil, fmt.Errorf("failed to download image after %d attempts: %w", l.maxRetries, lastErr)
}

// fetch performs one GET. retry is false for errors another attempt cannot fix.
func (l *imageLoader) fetch(ctx context.Context, url string) (data []byte, retry bool, err error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}

	resp, err := l.client.Do(httpReq)
	if err != nil {
		return nil, ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
			fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	if resp.ContentLength > l.maxSize {
		return nil, false, fmt.Errorf("image size exceeds maximum: %d > %d bytes", resp.ContentLength, l.maxSize)
	}

	data, err = io.ReadAll(io.LimitReader(resp.Body, l.maxSize+1))
	if err != nil {
		return nil, true, err
	}
	if int64(len(data)) > l.maxSize {
		return nil, false, fmt.Errorf("image size exceeds maximum of %d bytes", l.maxSize)
	}

	return data, false, nil
}

// detectImageMimeType detects the image MIME type from magic bytes
func detectImageMimeType(data []byte) string {
	switch {
	case len(data) >= 8 && bytes.HasPrefix(data, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}):
		return "image/png"
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return "image/jpeg"
	case bytes.HasPrefix(data, []byte("GIF87a")) || bytes.HasPrefix(data, []byte("GIF89a")):
		return "image/gif"
	case bytes.HasPrefix(data, []byte{0x49, 0x49, 0x2A, 0x00}) || bytes.HasPrefix(data, []byte{0x4D, 0x4D, 0x00, 0x2A}):
		return "image/tiff"
	case bytes.HasPrefix(data, []byte("BM")):
		return "image/bmp"
	case len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return "image/webp"
	default:
		return ""
	}
}
