package ocr_test

import (
	"testing"

	"github.com/adverant/nexus/layoutocr-worker/internal/ocr"
	"github.com/adverant/nexus/layoutocr-worker/internal/ocr/ocrtest"
)

func TestGroupWordsIntoLines(t *testing.T) {
	lineBoxes := []ocr.Rect{
		{Left: 0, Top: 0, Width: 300, Height: 20},
		{Left: 0, Top: 30, Width: 300, Height: 20},
		{Left: 0, Top: 60, Width: 300, Height: 20},
	}
	words := []ocr.RecognizedWord{
		ocrtest.Word("Season", 200, 2, 60, 16),
		ocrtest.Word("Month", 0, 2, 60, 16),
		ocrtest.Word("January", 0, 32, 70, 16),
		ocrtest.Word("stray", 10, 52, 30, 5), // between lines, nearer the second
		ocrtest.Word("Int", 100, 2, 30, 16),
	}

	lines := ocr.GroupWordsIntoLines(lineBoxes, words)

	if len(lines) != 2 {
		t.Fatalf("expected empty third line to be dropped, got %d lines", len(lines))
	}
	var first []string
	for _, w := range lines[0].Words {
		first = append(first, w.Text)
	}
	if len(first) != 3 || first[0] != "Month" || first[1] != "Int" || first[2] != "Season" {
		t.Errorf("first line not sorted by left edge: %v", first)
	}
	if len(lines[1].Words) != 2 || lines[1].Words[1].Text != "stray" {
		t.Errorf("stray word should join the nearest line: %+v", lines[1].Words)
	}
}

func TestGroupWordsIntoLines_NoLineBoxes(t *testing.T) {
	words := []ocr.RecognizedWord{
		ocrtest.Word("b", 50, 0, 10, 10),
		ocrtest.Word("a", 0, 0, 10, 10),
	}
	lines := ocr.GroupWordsIntoLines(nil, words)
	if len(lines) != 1 || lines[0].Words[0].Text != "a" {
		t.Errorf("expected a single sorted line, got %+v", lines)
	}
	if got := ocr.GroupWordsIntoLines(nil, nil); got != nil {
		t.Errorf("expected nil for no words, got %+v", got)
	}
}

func TestRectUnionAndBounds(t *testing.T) {
	line := ocrtest.Line(
		ocrtest.Word("a", 10, 5, 20, 10),
		ocrtest.Word("b", 40, 3, 10, 20),
	)
	want := ocr.Rect{Left: 10, Top: 3, Width: 40, Height: 20}
	if got := line.Bounds(); got != want {
		t.Errorf("Bounds() = %+v, want %+v", got, want)
	}
	if line.Top() != 3 {
		t.Errorf("Top() = %v, want 3", line.Top())
	}
}
