package ocr_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"golang.org/x/text/language"

	"github.com/adverant/nexus/layoutocr-worker/internal/errors"
	"github.com/adverant/nexus/layoutocr-worker/internal/ocr"
	"github.com/adverant/nexus/layoutocr-worker/internal/ocr/ocrtest"
)

func TestRecognize_DividesOutScale(t *testing.T) {
	engine := &ocrtest.FakeEngine{
		Lines: []ocr.RecognizedLine{
			ocrtest.Line(ocrtest.Word("Month", 80, 40, 200, 60)),
		},
	}

	lines, err := ocr.Recognize(context.Background(), engine, ocrtest.Blank(10, 10), language.English, 2, 2)
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}

	got := lines[0].Words[0].Bounds
	want := ocr.Rect{Left: 20, Top: 10, Width: 50, Height: 15}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
	if lines[0].Words[0].Confidence != 0.9 {
		t.Errorf("confidence should pass through unchanged")
	}
	// engine output must not be mutated
	if engine.Lines[0].Words[0].Bounds.Left != 80 {
		t.Errorf("engine lines were modified in place")
	}
}

func TestRecognize_NonPositiveScalesTreatedAsOne(t *testing.T) {
	engine := &ocrtest.FakeEngine{
		Lines: []ocr.RecognizedLine{ocrtest.Line(ocrtest.Word("x", 5, 6, 7, 8))},
	}

	lines, err := ocr.Recognize(context.Background(), engine, ocrtest.Blank(10, 10), language.English, 0, -1)
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if got := lines[0].Words[0].Bounds; got != (ocr.Rect{Left: 5, Top: 6, Width: 7, Height: 8}) {
		t.Errorf("unexpected bounds %+v", got)
	}
}

func TestRecognize_TimesOut(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	engine := &ocrtest.FakeEngine{Block: block}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := ocr.Recognize(ctx, engine, ocrtest.Blank(10, 10), language.English, 1, 1)
	if !stderrors.Is(err, errors.ErrRecognitionTimedOut) {
		t.Fatalf("expected RecognitionTimedOut, got %v", err)
	}
}

func TestRecognize_CancelledReturnsContextError(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	engine := &ocrtest.FakeEngine{Block: block}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ocr.Recognize(ctx, engine, ocrtest.Blank(10, 10), language.English, 1, 1)
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRecognize_EngineFailureIsUnavailable(t *testing.T) {
	engine := &ocrtest.FakeEngine{Err: fmt.Errorf("tessdata missing")}

	_, err := ocr.Recognize(context.Background(), engine, ocrtest.Blank(10, 10), language.English, 1, 1)
	if !stderrors.Is(err, errors.ErrRecognitionUnavailable) {
		t.Fatalf("expected RecognitionUnavailable, got %v", err)
	}
}

func TestRecognize_ProcessingErrorPassesThroughUnchanged(t *testing.T) {
	original := errors.NewRecognitionTimedOutError(time.Second, nil)
	engine := &ocrtest.FakeEngine{Err: original}

	_, err := ocr.Recognize(context.Background(), engine, ocrtest.Blank(10, 10), language.English, 1, 1)
	if err != original {
		t.Fatalf("expected the engine's error value unchanged, got %v", err)
	}
}
