// Package layout turns recognized words into positioned text atoms and
// recovers their row and column structure.
//
// Rows come straight from the recognizer's line segmentation. Within a row,
// atoms are ranked by left edge. A result is classified tabular when at
// least two multi-atom rows share two or more column bands, a band being a
// horizontal interval where a majority of those rows start an atom.
//
//	atoms := layout.Extract(lines, ocr.IsSpaceJoining(lang))
//	result := layout.NewAnalyzer().Analyze(atoms)
//	if result.IsTabular {
//		text = render.Tabular(result.Rows, render.TabularOptions{})
//	}
package layout
