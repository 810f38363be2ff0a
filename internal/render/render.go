// Package render serializes analysed layouts back to plain text.
package render

import (
	"math"
	"strings"

	"github.com/adverant/nexus/layoutocr-worker/internal/layout"
	"github.com/adverant/nexus/layoutocr-worker/internal/ocr"
)

// tabStop is the number of character widths a tab stands for
const tabStop = 4

// TabularOptions controls Tabular
type TabularOptions struct {
	// PadSkippedColumns writes one tab per band crossed between two atoms,
	// so a missing middle cell becomes an empty field. Atoms without a band
	// fall back to a single tab.
	PadSkippedColumns bool
}

// Tabular joins each row's atoms with tabs and rows with line breaks.
// There is no trailing line break.
func Tabular(rows [][]layout.TextAtom, opts TabularOptions) string {
	var b strings.Builder
	for r, row := range rows {
		if r > 0 {
			b.WriteByte('\n')
		}
		for i, atom := range row {
			if i > 0 {
				b.WriteString(strings.Repeat("\t", tabsBetween(row[i-1], atom, opts)))
			}
			b.WriteString(atom.Text)
		}
	}
	return b.String()
}

func tabsBetween(prev, next layout.TextAtom, opts TabularOptions) int {
	if !opts.PadSkippedColumns || prev.Band == layout.Unassigned || next.Band == layout.Unassigned {
		return 1
	}
	if n := next.Band - prev.Band; n > 1 {
		return n
	}
	return 1
}

// ProportionalOptions controls Proportional
type ProportionalOptions struct {
	// TrailingNewline keeps the line break after the last row
	TrailingNewline bool
}

// DefaultProportionalOptions ends every row, the last one included, with a
// line break
func DefaultProportionalOptions() ProportionalOptions {
	return ProportionalOptions{TrailingNewline: true}
}

// Proportional approximates the horizontal gaps of the source image with
// spaces and tabs. Indentation is measured from the leftmost atom of the
// whole result in units of the average character width; gaps of four or
// more characters become one tab per four.
func Proportional(result *layout.LayoutResult, opts ProportionalOptions) string {
	if result.Empty() {
		return ""
	}

	margin := result.LeftMargin()
	charWidth := layout.AverageCharWidth(result.Atoms())

	var b strings.Builder
	for r, row := range result.Rows {
		if r > 0 {
			b.WriteByte('\n')
		}
		cursor := margin
		for _, atom := range row {
			b.WriteString(gapText(atom.Bounds.Left-cursor, charWidth))
			b.WriteString(atom.Text)
			cursor = atom.Bounds.Right()
		}
	}
	if opts.TrailingNewline {
		b.WriteByte('\n')
	}
	return b.String()
}

func gapText(gap, charWidth float64) string {
	if charWidth <= 0 {
		return ""
	}
	chars := int(math.Floor(gap / charWidth))
	switch {
	case chars <= 0:
		return ""
	case chars < tabStop:
		return strings.Repeat(" ", chars)
	default:
		return strings.Repeat("\t", chars/tabStop)
	}
}

// Lines renders each recognizer line as plain text followed by a line
// break. Word order of every line is reversed for right-to-left scripts.
func Lines(lines []ocr.RecognizedLine, isSpaceJoining, rightToLeft bool) string {
	var b strings.Builder
	for _, line := range lines {
		text := layout.JoinLineText(line, isSpaceJoining)
		if text == "" {
			continue
		}
		if rightToLeft {
			text = reverseLine(text)
		}
		b.WriteString(text)
		b.WriteByte('\n')
	}
	return b.String()
}

// reverseLine reverses the order of space separated words
func reverseLine(line string) string {
	words := strings.Fields(line)
	for i, j := 0, len(words)-1; i < j; i, j = i+1, j-1 {
		words[i], words[j] = words[j], words[i]
	}
	return strings.Join(words, " ")
}
