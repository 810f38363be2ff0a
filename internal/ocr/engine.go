package ocr

import (
	"context"
	"image"

	"golang.org/x/text/language"
)

// Engine is the external recognition capability. Implementations hold no
// state the pipeline depends on; each call is independent.
type Engine interface {
	// Recognize runs text recognition on img.
	Recognize(ctx context.Context, img image.Image, lang language.Tag) (*Result, error)

	// MaxImageDimension is the largest width or height the engine accepts.
	MaxImageDimension() int

	// LanguageAvailable is consulted before every Recognize call.
	LanguageAvailable(lang language.Tag) bool
}
