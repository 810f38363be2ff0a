/**
 * Tesseract OCR - offline recognizer behind the ocr.Engine interface
 *
 * Every call opens its own gosseract client, so the engine keeps no handle
 * between requests and concurrent captures never share native state.
 */

package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/otiai10/gosseract/v2"
	"golang.org/x/text/language"

	"github.com/adverant/nexus/layoutocr-worker/internal/errors"
	"github.com/adverant/nexus/layoutocr-worker/internal/ocr"
)

// DefaultMaxImageDimension bounds the larger side of images handed to tesseract
const DefaultMaxImageDimension = 10000

// Engine recognizes text with Tesseract
type Engine struct {
	maxDimension int
	pageSegMode  gosseract.PageSegMode

	languagesOnce sync.Once
	languages     map[string]bool
	languagesErr  error
}

// Config holds Tesseract configuration
type Config struct {
	MaxImageDimension int
	PageSegMode       gosseract.PageSegMode
}

// New creates a Tesseract engine
func New(cfg *Config) *Engine {
	e := &Engine{
		maxDimension: DefaultMaxImageDimension,
		pageSegMode:  gosseract.PSM_AUTO,
	}
	if cfg != nil {
		if cfg.MaxImageDimension > 0 {
			e.maxDimension = cfg.MaxImageDimension
		}
		if cfg.PageSegMode != 0 {
			e.pageSegMode = cfg.PageSegMode
		}
	}
	return e
}

// MaxImageDimension implements ocr.Engine
func (e *Engine) MaxImageDimension() int {
	return e.maxDimension
}

// LanguageAvailable implements ocr.Engine. The installed traineddata list
// is read once per engine.
func (e *Engine) LanguageAvailable(lang language.Tag) bool {
	e.languagesOnce.Do(func() {
		langs, err := gosseract.GetAvailableLanguages()
		if err != nil {
			e.languagesErr = err
			return
		}
		e.languages = make(map[string]bool, len(langs))
		for _, l := range langs {
			e.languages[l] = true
		}
	})
	if e.languagesErr != nil {
		return false
	}
	return e.languages[LanguageCode(lang)]
}

// Recognize implements ocr.Engine
func (e *Engine) Recognize(ctx context.Context, img image.Image, lang language.Tag) (*ocr.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	code := LanguageCode(lang)
	if err := client.SetLanguage(code); err != nil {
		return nil, errors.NewRecognitionUnavailableError(lang.String(), err)
	}
	if err := client.SetPageSegMode(e.pageSegMode); err != nil {
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	lineBoxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, errors.NewRecognitionUnavailableError(lang.String(), err)
	}
	wordBoxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, errors.NewRecognitionUnavailableError(lang.String(), err)
	}

	lines := make([]ocr.Rect, 0, len(lineBoxes))
	for _, b := range lineBoxes {
		lines = append(lines, toRect(b.Box))
	}
	words := make([]ocr.RecognizedWord, 0, len(wordBoxes))
	for _, b := range wordBoxes {
		if b.Word == "" {
			continue
		}
		words = append(words, ocr.RecognizedWord{
			Text:       b.Word,
			Bounds:     toRect(b.Box),
			Confidence: float64(b.Confidence) / 100.0,
		})
	}

	return &ocr.Result{Lines: ocr.GroupWordsIntoLines(lines, words)}, nil
}

func toRect(r image.Rectangle) ocr.Rect {
	return ocr.Rect{
		Left:   float64(r.Min.X),
		Top:    float64(r.Min.Y),
		Width:  float64(r.Dx()),
		Height: float64(r.Dy()),
	}
}
