package processor

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"image/png"
	"math"
	"strings"
	"testing"

	"golang.org/x/text/language"

	"github.com/adverant/nexus/layoutocr-worker/internal/errors"
	"github.com/adverant/nexus/layoutocr-worker/internal/layout"
	"github.com/adverant/nexus/layoutocr-worker/internal/logging"
	"github.com/adverant/nexus/layoutocr-worker/internal/ocr"
	"github.com/adverant/nexus/layoutocr-worker/internal/ocr/ocrtest"
)

const monthTableText = "Month\tInt\tSeason\nJanuary\t1\tWinter\nFebruary\t2\tWinter"

func monthEngine() *ocrtest.FakeEngine {
	return &ocrtest.FakeEngine{
		BaseWidth: 400,
		Lines: []ocr.RecognizedLine{
			ocrtest.Line(
				ocrtest.Word("Month", 0, 0, 50, 10),
				ocrtest.Word("Int", 100, 0, 30, 10),
				ocrtest.Word("Season", 200, 0, 60, 10),
			),
			ocrtest.Line(
				ocrtest.Word("January", 0, 20, 70, 10),
				ocrtest.Word("1", 100, 20, 10, 10),
				ocrtest.Word("Winter", 200, 20, 60, 10),
			),
			ocrtest.Line(
				ocrtest.Word("February", 0, 40, 80, 10),
				ocrtest.Word("2", 102, 40, 10, 10),
				ocrtest.Word("Winter", 201, 40, 60, 10),
			),
		},
	}
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, ocrtest.Blank(width, height)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func quietLogger() *logging.Logger {
	return logging.NewLoggerWithOutput("test", logging.LevelError, &bytes.Buffer{})
}

func newTestPipeline(engine ocr.Engine, cfg PipelineConfig) *Pipeline {
	return NewPipeline(engine, cfg, quietLogger())
}

func TestPipelineMonthTable(t *testing.T) {
	engine := monthEngine()
	p := newTestPipeline(engine, PipelineConfig{Calibrate: true, TrailingNewline: true})

	result, err := p.Run(context.Background(), &CaptureRequest{
		JobID:       "job-1",
		ImageBuffer: pngBytes(t, 400, 100),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Text != monthTableText {
		t.Errorf("Text = %q, want %q", result.Text, monthTableText)
	}
	if result.Mode != ModeTable || !result.Layout.IsTabular {
		t.Errorf("expected tabular rendering, got mode %s", result.Mode)
	}
	if result.ScaleFactor != 4 {
		t.Errorf("ScaleFactor = %v, want 4", result.ScaleFactor)
	}
	if widths := engine.Widths(); len(widths) != 2 || widths[0] != 400 || widths[1] != 1600 {
		t.Errorf("expected a probe pass at 400px and a real pass at 1600px, got %v", widths)
	}
	if result.WordCount != 9 || math.Abs(result.Confidence-0.9) > 1e-9 {
		t.Errorf("WordCount=%d Confidence=%v", result.WordCount, result.Confidence)
	}
	if len(result.Signature) != 32 {
		t.Errorf("signature length %d", len(result.Signature))
	}
	if result.Language != "en" {
		t.Errorf("Language = %q", result.Language)
	}
}

func TestPipelineWithoutCalibration(t *testing.T) {
	engine := monthEngine()
	p := newTestPipeline(engine, PipelineConfig{Calibrate: true})
	off := false

	result, err := p.Run(context.Background(), &CaptureRequest{
		ImageBuffer: pngBytes(t, 400, 100),
		Calibrate:   &off,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if engine.Calls() != 1 || result.ScaleFactor != 1 {
		t.Errorf("calibration should be skipped: calls=%d scale=%v", engine.Calls(), result.ScaleFactor)
	}
	if result.Text != monthTableText {
		t.Errorf("Text = %q", result.Text)
	}
}

func TestPipelineModes(t *testing.T) {
	cases := []struct {
		mode     Mode
		wantMode Mode
		want     string
	}{
		{ModeSpaced, ModeSpaced, "Month\tInt\tSeason\nJanuary   1\t\tWinter\nFebruary  2\t\tWinter\n"},
		{ModeLines, ModeLines, "Month Int Season\nJanuary 1 Winter\nFebruary 2 Winter\n"},
		{ModeAuto, ModeTable, monthTableText},
	}

	for _, tc := range cases {
		t.Run(string(tc.mode), func(t *testing.T) {
			p := newTestPipeline(monthEngine(), PipelineConfig{TrailingNewline: true})
			result, err := p.Run(context.Background(), &CaptureRequest{
				ImageBuffer: pngBytes(t, 400, 100),
				Mode:        tc.mode,
			})
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if result.Mode != tc.wantMode {
				t.Errorf("Mode = %s, want %s", result.Mode, tc.wantMode)
			}
			if result.Text != tc.want {
				t.Errorf("Text = %q, want %q", result.Text, tc.want)
			}
		})
	}
}

func TestPipelineTableFallsBackToSpaced(t *testing.T) {
	engine := &ocrtest.FakeEngine{Lines: []ocr.RecognizedLine{
		ocrtest.Line(ocrtest.Word("Contents", 0, 0, 80, 10)),
		ocrtest.Line(ocrtest.Word("Intro", 20, 20, 50, 10), ocrtest.Word("1", 250, 20, 10, 10)),
	}}
	p := newTestPipeline(engine, PipelineConfig{TrailingNewline: false})

	result, err := p.Run(context.Background(), &CaptureRequest{
		ImageBuffer: pngBytes(t, 300, 40),
		Mode:        ModeTable,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Mode != ModeSpaced {
		t.Errorf("non-tabular layout should render spaced, got %s", result.Mode)
	}
	if result.Text != "Contents\n  Intro\t\t\t\t1" {
		t.Errorf("Text = %q", result.Text)
	}
}

func TestPipelineRightToLeftLines(t *testing.T) {
	engine := &ocrtest.FakeEngine{Lines: []ocr.RecognizedLine{
		ocrtest.Line(ocrtest.Word("alpha", 0, 0, 50, 10), ocrtest.Word("beta", 60, 0, 40, 10)),
	}}
	p := newTestPipeline(engine, PipelineConfig{})

	result, err := p.Run(context.Background(), &CaptureRequest{
		ImageBuffer: pngBytes(t, 200, 20),
		Language:    "ar",
		Mode:        ModeLines,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Text != "beta alpha\n" {
		t.Errorf("Text = %q", result.Text)
	}
}

func TestPipelineClickedWord(t *testing.T) {
	p := newTestPipeline(monthEngine(), PipelineConfig{})

	result, err := p.Run(context.Background(), &CaptureRequest{
		ImageBuffer: pngBytes(t, 400, 100),
		Point:       &Point{X: 105, Y: 25},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.ClickedWord != "1" {
		t.Errorf("ClickedWord = %q, want %q", result.ClickedWord, "1")
	}
}

func TestPipelineSelection(t *testing.T) {
	p := newTestPipeline(monthEngine(), PipelineConfig{})

	result, err := p.Run(context.Background(), &CaptureRequest{
		ImageBuffer: pngBytes(t, 400, 100),
		Selection: []layout.AtomKey{
			{Row: 1, Column: 0},
			{Row: 1, Column: 2},
			{Row: 2, Column: 0},
		},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Text != "January\tWinter\nFebruary" {
		t.Errorf("Text = %q", result.Text)
	}
	if len(result.Layout.Rows) != 3 {
		t.Errorf("the stored layout keeps every row")
	}
}

func TestPipelineRegionCrop(t *testing.T) {
	engine := &ocrtest.FakeEngine{}
	p := newTestPipeline(engine, PipelineConfig{})

	_, err := p.Run(context.Background(), &CaptureRequest{
		ImageBuffer: pngBytes(t, 400, 100),
		Region:      &Region{X: 100, Y: 10, Width: 200, Height: 50},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if widths := engine.Widths(); len(widths) != 1 || widths[0] != 200 {
		t.Errorf("engine should see the cropped image, got widths %v", widths)
	}
}

func TestPipelineEmptyCapture(t *testing.T) {
	p := newTestPipeline(&ocrtest.FakeEngine{}, PipelineConfig{Calibrate: true, TrailingNewline: true})

	result, err := p.Run(context.Background(), &CaptureRequest{ImageBuffer: pngBytes(t, 50, 50)})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Text != "" || result.Layout.IsTabular || !result.Layout.Empty() {
		t.Errorf("unexpected result for blank capture: %+v", result)
	}
}

func TestPipelineErrors(t *testing.T) {
	t.Run("invalid image", func(t *testing.T) {
		p := newTestPipeline(monthEngine(), PipelineConfig{})
		_, err := p.Run(context.Background(), &CaptureRequest{JobID: "j", ImageBuffer: []byte("not an image")})
		if !stderrors.Is(err, errors.ErrInvalidImage) {
			t.Errorf("expected invalid image error, got %v", err)
		}
	})

	t.Run("no source", func(t *testing.T) {
		p := newTestPipeline(monthEngine(), PipelineConfig{})
		_, err := p.Run(context.Background(), &CaptureRequest{JobID: "j"})
		if !stderrors.Is(err, errors.ErrInvalidImage) {
			t.Errorf("expected invalid image error, got %v", err)
		}
	})

	t.Run("language unavailable", func(t *testing.T) {
		engine := monthEngine()
		engine.Languages = []language.Tag{language.English}
		p := newTestPipeline(engine, PipelineConfig{})
		_, err := p.Run(context.Background(), &CaptureRequest{ImageBuffer: pngBytes(t, 400, 100), Language: "fr"})
		if !stderrors.Is(err, errors.ErrRecognitionUnavailable) {
			t.Errorf("expected unavailable error, got %v", err)
		}
	})

	t.Run("engine failure surfaces unchanged", func(t *testing.T) {
		engine := monthEngine()
		engine.Err = errors.NewRecognitionTimedOutError(0, fmt.Errorf("stuck"))
		p := newTestPipeline(engine, PipelineConfig{Calibrate: true})
		_, err := p.Run(context.Background(), &CaptureRequest{ImageBuffer: pngBytes(t, 400, 100)})
		if err != engine.Err {
			t.Errorf("expected the engine's error unchanged, got %v", err)
		}
	})
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeAuto, "TABLE": ModeTable, " spaced ": ModeSpaced, "lines": ModeLines} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseMode("grid"); err == nil || !strings.Contains(err.Error(), "grid") {
		t.Errorf("unknown modes should be rejected, got %v", err)
	}
}
