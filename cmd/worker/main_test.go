package main

import (
	"bytes"
	"context"
	"image/png"
	"strings"
	"testing"

	"github.com/adverant/nexus/layoutocr-worker/internal/config"
	"github.com/adverant/nexus/layoutocr-worker/internal/logging"
	"github.com/adverant/nexus/layoutocr-worker/internal/ocr"
	"github.com/adverant/nexus/layoutocr-worker/internal/ocr/ocrtest"
	"github.com/adverant/nexus/layoutocr-worker/internal/processor"
)

func raggedEngine() *ocrtest.FakeEngine {
	return &ocrtest.FakeEngine{
		Lines: []ocr.RecognizedLine{
			ocrtest.Line(ocrtest.Word("A", 0, 0, 10, 10), ocrtest.Word("B", 100, 0, 10, 10), ocrtest.Word("C", 200, 0, 10, 10)),
			ocrtest.Line(ocrtest.Word("D", 0, 20, 10, 10), ocrtest.Word("E", 100, 20, 10, 10), ocrtest.Word("F", 200, 20, 10, 10)),
			ocrtest.Line(ocrtest.Word("300", 0, 40, 30, 10), ocrtest.Word("Brown", 200, 40, 50, 10)),
		},
	}
}

func runWithEnv(t *testing.T, pad string) string {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/layoutocr")
	t.Setenv("CALIBRATE", "false")
	t.Setenv("PAD_SKIPPED_COLUMNS", pad)
	t.Setenv("MIN_BAND_GAP_CHARS", "")

	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, ocrtest.Blank(300, 60)); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	logger := logging.NewLoggerWithOutput("test", logging.LevelError, &bytes.Buffer{})
	pipeline := processor.NewPipeline(raggedEngine(), pipelineConfig(cfg), logger)
	result, err := pipeline.Run(context.Background(), &processor.CaptureRequest{JobID: "j", ImageBuffer: buf.Bytes()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Mode != processor.ModeTable {
		t.Fatalf("Mode = %q, want table", result.Mode)
	}
	return result.Text
}

func TestPipelineConfigPadsSkippedColumns(t *testing.T) {
	if got := runWithEnv(t, "true"); !strings.HasSuffix(strings.TrimRight(got, "\n"), "300\t\tBrown") {
		t.Errorf("padded output = %q", got)
	}
	if got := runWithEnv(t, "false"); !strings.HasSuffix(strings.TrimRight(got, "\n"), "300\tBrown") ||
		strings.Contains(got, "\t\t") {
		t.Errorf("unpadded output = %q", got)
	}
}

func TestPipelineConfigCarriesBandGap(t *testing.T) {
	cfg := &config.Config{MinBandGapChars: 3.5, PadSkippedColumns: true, OCRLanguage: "de"}

	pc := pipelineConfig(cfg)
	if pc.Analyzer.MinBandGapChars != 3.5 || !pc.PadSkippedColumns || pc.Language != "de" {
		t.Errorf("unexpected pipeline config %+v", pc)
	}
}
