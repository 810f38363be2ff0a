package ocr

import (
	"math"
	"sort"
)

// GroupWordsIntoLines assigns flat word boxes to line boxes for engines
// that report the two levels separately. A word joins the line containing
// its centre, otherwise the line whose vertical centre is nearest. Lines
// keep the order of lineBoxes; words within a line are sorted by left edge.
// Lines that receive no words are dropped.
func GroupWordsIntoLines(lineBoxes []Rect, words []RecognizedWord) []RecognizedLine {
	if len(words) == 0 {
		return nil
	}
	if len(lineBoxes) == 0 {
		return []RecognizedLine{{Words: sortedByLeft(words)}}
	}

	buckets := make([][]RecognizedWord, len(lineBoxes))
	for _, w := range words {
		cx := w.Bounds.Left + w.Bounds.Width/2
		cy := w.Bounds.Top + w.Bounds.Height/2

		best := -1
		for i, lb := range lineBoxes {
			if lb.Contains(cx, cy) {
				best = i
				break
			}
		}
		if best < 0 {
			bestDist := math.Inf(1)
			for i, lb := range lineBoxes {
				d := math.Abs(lb.Top + lb.Height/2 - cy)
				if d < bestDist {
					best, bestDist = i, d
				}
			}
		}
		buckets[best] = append(buckets[best], w)
	}

	lines := make([]RecognizedLine, 0, len(lineBoxes))
	for _, b := range buckets {
		if len(b) == 0 {
			continue
		}
		lines = append(lines, RecognizedLine{Words: sortedByLeft(b)})
	}
	return lines
}

func sortedByLeft(words []RecognizedWord) []RecognizedWord {
	out := append([]RecognizedWord(nil), words...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Bounds.Left < out[j].Bounds.Left
	})
	return out
}
