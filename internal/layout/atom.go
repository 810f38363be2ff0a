package layout

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/adverant/nexus/layoutocr-worker/internal/ocr"
)

// Unassigned marks a RowID, ColumnIndex or Band not yet set by the analyzer
const Unassigned = -1

// TextAtom is one recognized word placed at a pixel box
type TextAtom struct {
	Text   string   `json:"text"`
	Bounds ocr.Rect `json:"bounds"`

	// Line is the ordinal of the recognizer line the atom came from
	Line int `json:"line"`

	// Seq is the extraction order, used as a tiebreak for equal geometry
	Seq int `json:"seq"`

	RowID       int `json:"rowId"`
	ColumnIndex int `json:"columnIndex"`
	Band        int `json:"band"`
}

// CharWidth is the atom's width divided by its rune count (at least 1)
func (a TextAtom) CharWidth() float64 {
	n := utf8.RuneCountInString(a.Text)
	if n < 1 {
		n = 1
	}
	return a.Bounds.Width / float64(n)
}

// Extract flattens recognizer output into atoms, one per word, in line
// order and left to right within a line. Words with an empty box or blank
// text are dropped.
//
// For languages that are not space joining, consecutive words that are
// not space joining themselves (single logographic glyphs or single
// punctuation) and touch each other are fused into one atom, so a run of
// CJK glyphs becomes a single word.
func Extract(lines []ocr.RecognizedLine, isSpaceJoining bool) []TextAtom {
	var atoms []TextAtom
	seq := 0

	for li, line := range lines {
		words := orderedWords(line.Words)

		prevJoins := true
		fusable := false
		for _, w := range words {
			if w.Bounds.Empty() || strings.TrimSpace(w.Text) == "" {
				continue
			}
			thisJoins := isSpaceJoiningWord(w.Text)

			if !isSpaceJoining && fusable && !prevJoins && !thisJoins {
				last := &atoms[len(atoms)-1]
				if touches(last.Bounds, w.Bounds) {
					last.Text += w.Text
					last.Bounds = last.Bounds.Union(w.Bounds)
					prevJoins = thisJoins
					continue
				}
			}

			atoms = append(atoms, TextAtom{
				Text:        w.Text,
				Bounds:      w.Bounds,
				Line:        li,
				Seq:         seq,
				RowID:       Unassigned,
				ColumnIndex: Unassigned,
				Band:        Unassigned,
			})
			seq++
			fusable = true
			prevJoins = thisJoins
		}
	}

	return atoms
}

// JoinLineText renders one line as plain text. Space-joining languages get
// a single space between words. Otherwise a space is only placed next to
// words that are themselves space joining (latin words, numbers).
func JoinLineText(line ocr.RecognizedLine, isSpaceJoining bool) string {
	var b strings.Builder
	first := true
	prevJoins := false

	for _, w := range orderedWords(line.Words) {
		if strings.TrimSpace(w.Text) == "" {
			continue
		}
		thisJoins := isSpaceJoiningWord(w.Text)
		switch {
		case first:
		case isSpaceJoining, thisJoins, prevJoins:
			b.WriteByte(' ')
		}
		b.WriteString(w.Text)
		first = false
		prevJoins = thisJoins
	}
	return b.String()
}

// isSpaceJoiningWord: two or more characters, or a single letter that is
// not an "other letter" (CJK glyphs are), or a single decimal digit.
func isSpaceJoiningWord(word string) bool {
	if utf8.RuneCountInString(word) >= 2 {
		return true
	}
	r, _ := utf8.DecodeRuneInString(word)
	if r == utf8.RuneError {
		return false
	}
	if unicode.IsLetter(r) && !unicode.Is(unicode.Lo, r) {
		return true
	}
	return unicode.Is(unicode.Nd, r)
}

// touches reports whether b starts within one glyph height after a ends
func touches(a, b ocr.Rect) bool {
	gap := b.Left - a.Right()
	glyph := a.Height
	if b.Height > glyph {
		glyph = b.Height
	}
	return gap <= glyph
}

func orderedWords(words []ocr.RecognizedWord) []ocr.RecognizedWord {
	out := append([]ocr.RecognizedWord(nil), words...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Bounds.Left < out[j-1].Bounds.Left; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
