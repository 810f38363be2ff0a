package ocr

import (
	"context"
	"image"

	"golang.org/x/text/language"
)

const (
	// IdealLineHeight is the word height in pixels the recognizer handles best.
	IdealLineHeight = 40.0

	// defaultProbeHeight stands in when the probe pass finds no words.
	defaultProbeHeight = 10.0
)

// Calibrate runs one recognition pass on the unscaled image and returns the
// factor that brings the average word height to IdealLineHeight, capped so
// the scaled image never exceeds the engine's maximum dimension. The probe
// result is discarded.
func Calibrate(ctx context.Context, engine Engine, img image.Image, lang language.Tag) (*CalibrationResult, error) {
	probe, err := runEngine(ctx, engine, img, lang)
	if err != nil {
		return nil, err
	}

	var total float64
	count := 0
	for _, line := range probe.Lines {
		for _, w := range line.Words {
			total += w.Bounds.Height
			count++
		}
	}

	avg := defaultProbeHeight
	if count > 0 && total > 0 {
		avg = total / float64(count)
	}

	b := img.Bounds()
	factor := ClampScaleFactor(IdealLineHeight/avg, b.Dx(), b.Dy(), engine.MaxImageDimension())

	return &CalibrationResult{
		ScaleFactor:   factor,
		ProbeWords:    count,
		AverageHeight: avg,
	}, nil
}

// ClampScaleFactor returns factor, or maxDim/max(width, height) when the
// factor would push the larger side past maxDim. maxDim <= 0 disables it.
func ClampScaleFactor(factor float64, width, height, maxDim int) float64 {
	larger := width
	if height > larger {
		larger = height
	}
	if maxDim <= 0 || larger <= 0 {
		return factor
	}
	if float64(larger)*factor > float64(maxDim) {
		return float64(maxDim) / float64(larger)
	}
	return factor
}
