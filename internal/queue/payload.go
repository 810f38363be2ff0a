package queue

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/adverant/nexus/layoutocr-worker/internal/layout"
	"github.com/adverant/nexus/layoutocr-worker/internal/processor"
)

// TaskTypeCapture is the asynq task type for capture jobs
const TaskTypeCapture = "capture:process"

// RedisJobData represents a job from the Redis queue
type RedisJobData struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Payload    JobPayload `json:"payload"`
	CreatedAt  time.Time  `json:"createdAt"`
	Attempts   int        `json:"attempts"`
	MaxRetries int        `json:"maxRetries"`
}

// JobPayload contains the capture job data
type JobPayload struct {
	JobID       string                 `json:"jobId"`
	ImageURL    string                 `json:"imageUrl,omitempty"`
	ImageBuffer []byte                 `json:"-"`
	Language    string                 `json:"language,omitempty"`
	Mode        string                 `json:"mode,omitempty"`
	Region      *processor.Region      `json:"region,omitempty"`
	Point       *processor.Point       `json:"point,omitempty"`
	DeviceScale float64                `json:"deviceScale,omitempty"`
	Calibrate   *bool                  `json:"calibrate,omitempty"`
	Selection   []layout.AtomKey       `json:"selection,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// MarshalJSON writes imageBuffer as a base64 string
func (p JobPayload) MarshalJSON() ([]byte, error) {
	type Alias JobPayload
	aux := struct {
		ImageBuffer string `json:"imageBuffer,omitempty"`
		Alias
	}{
		Alias: Alias(p),
	}
	if len(p.ImageBuffer) > 0 {
		aux.ImageBuffer = base64.StdEncoding.EncodeToString(p.ImageBuffer)
	}
	return json.Marshal(aux)
}

// UnmarshalJSON accepts imageBuffer as a base64 string or as a Node.js
// Buffer object ({"type":"Buffer","data":[...]}).
func (p *JobPayload) UnmarshalJSON(data []byte) error {
	type Alias JobPayload
	aux := &struct {
		ImageBuffer interface{} `json:"imageBuffer,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(p),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("failed to unmarshal JobPayload: %w", err)
	}

	if aux.ImageBuffer == nil {
		return nil
	}

	switch v := aux.ImageBuffer.(type) {
	case string:
		decoded, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return fmt.Errorf("failed to decode base64 imageBuffer: %w", err)
		}
		p.ImageBuffer = decoded

	case map[string]interface{}:
		bufferType, ok := v["type"].(string)
		if !ok || bufferType != "Buffer" {
			return fmt.Errorf("invalid Buffer object format (missing or incorrect 'type' field)")
		}
		dataArray, ok := v["data"].([]interface{})
		if !ok {
			return fmt.Errorf("Buffer object missing 'data' array")
		}
		p.ImageBuffer = make([]byte, len(dataArray))
		for i, val := range dataArray {
			byteVal, ok := val.(float64)
			if !ok || byteVal < 0 || byteVal > 255 {
				return fmt.Errorf("invalid byte value in Buffer data array at index %d", i)
			}
			p.ImageBuffer[i] = byte(byteVal)
		}

	default:
		return fmt.Errorf("imageBuffer must be either base64 string or Buffer object, got %T", v)
	}

	return nil
}

// ToRequest converts the payload to a processor request
func (p *JobPayload) ToRequest() (*processor.CaptureRequest, error) {
	if p.JobID == "" {
		return nil, fmt.Errorf("jobId is required")
	}

	mode, err := processor.ParseMode(p.Mode)
	if err != nil {
		return nil, err
	}

	return &processor.CaptureRequest{
		JobID:       p.JobID,
		ImageURL:    p.ImageURL,
		ImageBuffer: p.ImageBuffer,
		Language:    p.Language,
		Mode:        mode,
		Region:      p.Region,
		Point:       p.Point,
		DeviceScale: p.DeviceScale,
		Calibrate:   p.Calibrate,
		Selection:   p.Selection,
		Metadata:    p.Metadata,
	}, nil
}
