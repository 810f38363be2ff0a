/**
 * OCR Types - Shared data structures for recognition output
 *
 * All geometry is in source-image pixels with the origin at the top-left.
 */

package ocr

import "math"

// Rect is an axis-aligned box in pixel space
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Right returns the right edge X coordinate
func (r Rect) Right() float64 {
	return r.Left + r.Width
}

// Bottom returns the bottom edge Y coordinate
func (r Rect) Bottom() float64 {
	return r.Top + r.Height
}

// Empty reports a box with no area
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Contains reports whether the point lies inside the box (edges inclusive)
func (r Rect) Contains(x, y float64) bool {
	return x >= r.Left && x <= r.Right() && y >= r.Top && y <= r.Bottom()
}

// Union returns the smallest box covering both boxes. An empty receiver
// is ignored so Union can be folded from the zero value.
func (r Rect) Union(other Rect) Rect {
	if r.Empty() {
		return other
	}
	if other.Empty() {
		return r
	}
	left := math.Min(r.Left, other.Left)
	top := math.Min(r.Top, other.Top)
	right := math.Max(r.Right(), other.Right())
	bottom := math.Max(r.Bottom(), other.Bottom())
	return Rect{Left: left, Top: top, Width: right - left, Height: bottom - top}
}

// Scale multiplies every coordinate by f
func (r Rect) Scale(f float64) Rect {
	return Rect{Left: r.Left * f, Top: r.Top * f, Width: r.Width * f, Height: r.Height * f}
}

// RecognizedWord is a single word reported by the recognizer
type RecognizedWord struct {
	Text       string  `json:"text"`
	Bounds     Rect    `json:"bounds"`
	Confidence float64 `json:"confidence"`
}

// RecognizedLine is one recognizer baseline; words are in reading order
type RecognizedLine struct {
	Words []RecognizedWord `json:"words"`
}

// Bounds returns the union of the line's word boxes
func (l RecognizedLine) Bounds() Rect {
	var r Rect
	for _, w := range l.Words {
		r = r.Union(w.Bounds)
	}
	return r
}

// Top returns the smallest top edge of the line's words
func (l RecognizedLine) Top() float64 {
	if len(l.Words) == 0 {
		return 0
	}
	top := l.Words[0].Bounds.Top
	for _, w := range l.Words[1:] {
		top = math.Min(top, w.Bounds.Top)
	}
	return top
}

// Result is what an Engine returns for one image
type Result struct {
	Lines     []RecognizedLine `json:"lines"`
	TextAngle float64          `json:"textAngle"`
}

// WordCount returns the number of words across all lines
func (r *Result) WordCount() int {
	n := 0
	for _, l := range r.Lines {
		n += len(l.Words)
	}
	return n
}

// CalibrationResult holds the upscale factor chosen for an image
type CalibrationResult struct {
	ScaleFactor   float64
	ProbeWords    int
	AverageHeight float64
}
