package render

import (
	"strings"
	"testing"

	"github.com/adverant/nexus/layoutocr-worker/internal/layout"
	"github.com/adverant/nexus/layoutocr-worker/internal/ocr"
	"github.com/adverant/nexus/layoutocr-worker/internal/ocr/ocrtest"
)

func analyse(lines ...ocr.RecognizedLine) *layout.LayoutResult {
	return layout.NewAnalyzer().Analyze(layout.Extract(lines, true))
}

func TestTabularMonthTable(t *testing.T) {
	result := analyse(
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
	)

	if len(result.Bands) != 3 {
		t.Fatalf("expected three bands, got %d", len(result.Bands))
	}
	want := "Month\tInt\tSeason\nJanuary\t1\tWinter\nFebruary\t2\tWinter"
	if got := Tabular(result.Rows, TabularOptions{}); got != want {
		t.Errorf("Tabular = %q, want %q", got, want)
	}
}

func TestTabularRaggedRows(t *testing.T) {
	result := analyse(
		ocrtest.Line(ocrtest.Word("15", 0, 0, 20, 10)),
		ocrtest.Line(
			ocrtest.Word("300", 0, 20, 30, 10),
			ocrtest.Word("Brown", 200, 20, 50, 10),
		),
	)

	lines := strings.Split(Tabular(result.Rows, TabularOptions{}), "\n")
	if len(lines) != 2 || lines[0] != "15" || lines[1] != "300\tBrown" {
		t.Errorf("unexpected ragged output %q", lines)
	}
}

func TestTabularTabCount(t *testing.T) {
	for k := 1; k <= 5; k++ {
		row := make([]layout.TextAtom, k)
		for i := range row {
			row[i] = layout.TextAtom{Text: "cell", Band: layout.Unassigned}
		}
		got := Tabular([][]layout.TextAtom{row}, TabularOptions{PadSkippedColumns: true})
		if n := strings.Count(got, "\t"); n != k-1 {
			t.Errorf("k=%d: %d tabs, want %d", k, n, k-1)
		}
		if strings.Contains(got, "\n") {
			t.Errorf("k=%d: a single row must not contain line breaks", k)
		}
	}
}

func TestTabularPadSkippedColumns(t *testing.T) {
	row := []layout.TextAtom{
		{Text: "300", Band: 0},
		{Text: "Brown", Band: 2},
	}

	if got := Tabular([][]layout.TextAtom{row}, TabularOptions{}); got != "300\tBrown" {
		t.Errorf("default policy: %q", got)
	}
	if got := Tabular([][]layout.TextAtom{row}, TabularOptions{PadSkippedColumns: true}); got != "300\t\tBrown" {
		t.Errorf("padded policy: %q", got)
	}
}

func TestProportionalScenario(t *testing.T) {
	result := analyse(ocrtest.Line(
		ocrtest.Word("AAAAA", 0, 0, 50, 10),
		ocrtest.Word("BBB", 90, 0, 30, 10),
	))

	if got := Proportional(result, DefaultProportionalOptions()); got != "AAAAA\tBBB\n" {
		t.Errorf("Proportional = %q", got)
	}
	if got := Proportional(result, ProportionalOptions{}); got != "AAAAA\tBBB" {
		t.Errorf("without trailing newline = %q", got)
	}
}

func TestProportionalIndentation(t *testing.T) {
	result := analyse(
		ocrtest.Line(ocrtest.Word("Chapter", 0, 0, 70, 10)),
		ocrtest.Line(
			ocrtest.Word("Intro", 20, 20, 50, 10),
			ocrtest.Word("1", 250, 20, 10, 10),
		),
		ocrtest.Line(
			ocrtest.Word("Setup", 20, 40, 50, 10),
			ocrtest.Word("12", 240, 40, 20, 10),
		),
	)

	want := "Chapter\n  Intro\t\t\t\t1\n  Setup\t\t\t\t12\n"
	if got := Proportional(result, DefaultProportionalOptions()); got != want {
		t.Errorf("Proportional = %q, want %q", got, want)
	}
}

func TestProportionalOverlapClampsToZero(t *testing.T) {
	result := analyse(ocrtest.Line(
		ocrtest.Word("abcde", 0, 0, 50, 10),
		ocrtest.Word("fg", 40, 0, 20, 10),
	))

	if got := Proportional(result, ProportionalOptions{}); got != "abcdefg" {
		t.Errorf("overlapping atoms should abut, got %q", got)
	}
}

func TestEmptyInputs(t *testing.T) {
	if got := Tabular(nil, TabularOptions{}); got != "" {
		t.Errorf("Tabular(nil) = %q", got)
	}
	if got := Proportional(&layout.LayoutResult{}, DefaultProportionalOptions()); got != "" {
		t.Errorf("Proportional(empty) = %q", got)
	}
	if got := Proportional(nil, DefaultProportionalOptions()); got != "" {
		t.Errorf("Proportional(nil) = %q", got)
	}
	if got := Lines(nil, true, false); got != "" {
		t.Errorf("Lines(nil) = %q", got)
	}
}

func TestLines(t *testing.T) {
	lines := []ocr.RecognizedLine{
		ocrtest.Line(ocrtest.Word("Hello", 0, 0, 50, 10), ocrtest.Word("world", 60, 0, 50, 10)),
		ocrtest.Line(),
		ocrtest.Line(ocrtest.Word("again", 0, 20, 50, 10)),
	}

	if got := Lines(lines, true, false); got != "Hello world\nagain\n" {
		t.Errorf("Lines = %q", got)
	}
	if got := Lines(lines, true, true); got != "world Hello\nagain\n" {
		t.Errorf("Lines rtl = %q", got)
	}
}
