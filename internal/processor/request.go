package processor

import (
	"fmt"
	"image"
	"strings"

	"github.com/adverant/nexus/layoutocr-worker/internal/layout"
)

// Mode selects how a capture is serialized
type Mode string

const (
	// ModeAuto renders a table when one is detected, spaced text otherwise
	ModeAuto Mode = "auto"
	// ModeTable is ModeAuto requested explicitly
	ModeTable Mode = "table"
	// ModeSpaced always renders proportional spacing
	ModeSpaced Mode = "spaced"
	// ModeLines renders the recognizer's lines without layout
	ModeLines Mode = "lines"
)

// ParseMode accepts the mode names case-insensitively; empty means auto
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModeTable, ModeSpaced, ModeLines:
		return m, nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

// Region is a pixel rectangle of the source image
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rectangle converts the region to an image.Rectangle
func (r Region) Rectangle() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Point is a position in capture coordinates: relative to Region when one
// is set, divided by DeviceScale.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CaptureRequest represents a capture processing request
type CaptureRequest struct {
	JobID       string
	ImageURL    string
	ImageBuffer []byte
	Language    string
	Mode        Mode
	Region      *Region
	Point       *Point
	DeviceScale float64

	// Calibrate overrides the pipeline default when set
	Calibrate *bool

	// Selection limits the rendered text to these atoms
	Selection []layout.AtomKey

	Metadata map[string]interface{}
}

// CaptureResult represents the processing result
type CaptureResult struct {
	ResultID         string               `json:"resultId,omitempty"`
	Text             string               `json:"text"`
	Mode             Mode                 `json:"mode"`
	Language         string               `json:"language"`
	Layout           *layout.LayoutResult `json:"layout"`
	ScaleFactor      float64              `json:"scaleFactor"`
	WordCount        int                  `json:"wordCount"`
	Confidence       float64              `json:"confidence"`
	ClickedWord      string               `json:"clickedWord,omitempty"`
	Signature        []float32            `json:"-"`
	ProcessingTimeMs int64                `json:"processingTimeMs"`
}
