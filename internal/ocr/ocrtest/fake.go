// Package ocrtest provides an in-memory ocr.Engine for tests.
package ocrtest

import (
	"context"
	"image"
	"sync"

	"golang.org/x/text/language"

	"github.com/adverant/nexus/layoutocr-worker/internal/ocr"
)

// FakeEngine returns canned lines. When BaseWidth is set, boxes are scaled
// by img.Dx()/BaseWidth so an upscaled image yields proportionally larger
// boxes, the way a real recognizer would.
type FakeEngine struct {
	Lines     []ocr.RecognizedLine
	BaseWidth int
	MaxDim    int
	Err       error

	// Languages limits LanguageAvailable; nil accepts every language.
	Languages []language.Tag

	// Block, when non-nil, makes Recognize wait until it is closed,
	// ignoring ctx like a blocking native call would.
	Block chan struct{}

	mu     sync.Mutex
	calls  int
	widths []int
}

func (f *FakeEngine) Recognize(ctx context.Context, img image.Image, lang language.Tag) (*ocr.Result, error) {
	f.mu.Lock()
	f.calls++
	f.widths = append(f.widths, img.Bounds().Dx())
	f.mu.Unlock()

	if f.Block != nil {
		<-f.Block
	}
	if f.Err != nil {
		return nil, f.Err
	}

	factor := 1.0
	if f.BaseWidth > 0 {
		factor = float64(img.Bounds().Dx()) / float64(f.BaseWidth)
	}
	lines := make([]ocr.RecognizedLine, len(f.Lines))
	for i, l := range f.Lines {
		words := make([]ocr.RecognizedWord, len(l.Words))
		for j, w := range l.Words {
			words[j] = w
			words[j].Bounds = w.Bounds.Scale(factor)
		}
		lines[i] = ocr.RecognizedLine{Words: words}
	}
	return &ocr.Result{Lines: lines}, nil
}

func (f *FakeEngine) MaxImageDimension() int {
	if f.MaxDim == 0 {
		return 10000
	}
	return f.MaxDim
}

func (f *FakeEngine) LanguageAvailable(lang language.Tag) bool {
	if f.Languages == nil {
		return true
	}
	for _, l := range f.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// Calls returns how many times Recognize ran
func (f *FakeEngine) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Widths returns the image widths Recognize was called with, in order
func (f *FakeEngine) Widths() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.widths...)
}

// Word builds a recognized word
func Word(text string, left, top, width, height float64) ocr.RecognizedWord {
	return ocr.RecognizedWord{
		Text:       text,
		Bounds:     ocr.Rect{Left: left, Top: top, Width: width, Height: height},
		Confidence: 0.9,
	}
}

// Line builds a recognized line from words
func Line(words ...ocr.RecognizedWord) ocr.RecognizedLine {
	return ocr.RecognizedLine{Words: words}
}

// Blank returns a white image of the given size
func Blank(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return img
}
