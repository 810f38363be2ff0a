package ocr

import (
	"context"
	"image"
	"time"

	"golang.org/x/text/language"

	"github.com/adverant/nexus/layoutocr-worker/internal/errors"
)

type engineReply struct {
	result *Result
	err    error
}

// runEngine performs one guarded engine call. The engine runs in its own
// goroutine so a caller whose context ends can walk away from it; the
// abandoned call finishes into a buffered channel nobody reads.
func runEngine(ctx context.Context, engine Engine, img image.Image, lang language.Tag) (*Result, error) {
	if !engine.LanguageAvailable(lang) {
		return nil, errors.NewRecognitionUnavailableError(lang.String(), nil)
	}

	started := time.Now()
	reply := make(chan engineReply, 1)
	go func() {
		res, err := engine.Recognize(ctx, img, lang)
		reply <- engineReply{result: res, err: err}
	}()

	select {
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.NewRecognitionTimedOutError(time.Since(started), ctx.Err())
		}
		return nil, ctx.Err()
	case r := <-reply:
		if r.err != nil {
			if _, ok := r.err.(*errors.ProcessingError); ok {
				return nil, r.err
			}
			if ctx.Err() == context.DeadlineExceeded {
				return nil, errors.NewRecognitionTimedOutError(time.Since(started), r.err)
			}
			return nil, errors.NewRecognitionUnavailableError(lang.String(), r.err)
		}
		if r.result == nil {
			return &Result{}, nil
		}
		return r.result, nil
	}
}

// Recognize invokes the engine on an image that was upscaled by scaleFactor
// and returns lines whose boxes are back in the original pixel space, with
// both scaleFactor and deviceScale divided out. Values <= 0 count as 1.
// Failures are terminal for the request and never retried here.
func Recognize(ctx context.Context, engine Engine, img image.Image, lang language.Tag, scaleFactor, deviceScale float64) ([]RecognizedLine, error) {
	res, err := runEngine(ctx, engine, img, lang)
	if err != nil {
		return nil, err
	}
	return unscaleLines(res.Lines, scaleFactor, deviceScale), nil
}

func unscaleLines(lines []RecognizedLine, scaleFactor, deviceScale float64) []RecognizedLine {
	if scaleFactor <= 0 {
		scaleFactor = 1
	}
	if deviceScale <= 0 {
		deviceScale = 1
	}
	inv := 1 / (scaleFactor * deviceScale)

	out := make([]RecognizedLine, len(lines))
	for i, line := range lines {
		words := make([]RecognizedWord, len(line.Words))
		for j, w := range line.Words {
			words[j] = RecognizedWord{
				Text:       w.Text,
				Bounds:     w.Bounds.Scale(inv),
				Confidence: w.Confidence,
			}
		}
		out[i] = RecognizedLine{Words: words}
	}
	return out
}
