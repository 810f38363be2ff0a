/**
 * Layout Analyzer
 *
 * Assigns every atom a row and a column rank, then decides whether the
 * page is a table by clustering the left edges of multi-atom rows into
 * column bands.
 */

package layout

import (
	"math"
	"sort"
)

// Band is a column interval shared by a majority of multi-atom rows
type Band struct {
	Index int     `json:"index"`
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
}

// Width of the band
func (b Band) Width() float64 {
	return b.Right - b.Left
}

// LayoutResult is the analyzer output. Rows are top to bottom and each row
// is left to right.
type LayoutResult struct {
	Rows      [][]TextAtom `json:"rows"`
	IsTabular bool         `json:"isTabular"`
	Bands     []Band       `json:"bands,omitempty"`
}

// Empty reports a result with no atoms
func (r *LayoutResult) Empty() bool {
	return r == nil || len(r.Rows) == 0
}

// Atoms flattens the rows in reading order
func (r *LayoutResult) Atoms() []TextAtom {
	if r == nil {
		return nil
	}
	var out []TextAtom
	for _, row := range r.Rows {
		out = append(out, row...)
	}
	return out
}

// AtomCount returns the number of atoms across all rows
func (r *LayoutResult) AtomCount() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, row := range r.Rows {
		n += len(row)
	}
	return n
}

// LeftMargin returns the smallest left edge of any atom
func (r *LayoutResult) LeftMargin() float64 {
	atoms := r.Atoms()
	if len(atoms) == 0 {
		return 0
	}
	left := atoms[0].Bounds.Left
	for _, a := range atoms[1:] {
		left = math.Min(left, a.Bounds.Left)
	}
	return left
}

// AverageCharWidth is the mean of per-atom character widths, 0 for no atoms
func AverageCharWidth(atoms []TextAtom) float64 {
	if len(atoms) == 0 {
		return 0
	}
	var sum float64
	for _, a := range atoms {
		sum += a.CharWidth()
	}
	return sum / float64(len(atoms))
}

// AnalyzerConfig tunes band detection
type AnalyzerConfig struct {
	// MinBandGapChars is the gap between two left edges, in average
	// character widths, above which they start different bands.
	MinBandGapChars float64

	// MinTableRows is how many multi-atom rows a table needs.
	MinTableRows int

	// MinBands is how many majority bands a table needs.
	MinBands int
}

// DefaultAnalyzerConfig returns the settings used by the worker
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		MinBandGapChars: 2,
		MinTableRows:    2,
		MinBands:        2,
	}
}

// Analyzer groups atoms into rows and columns
type Analyzer struct {
	config AnalyzerConfig
}

// NewAnalyzer creates an analyzer with the default config
func NewAnalyzer() *Analyzer {
	return NewAnalyzerWithConfig(DefaultAnalyzerConfig())
}

// NewAnalyzerWithConfig creates an analyzer; zero fields take defaults
func NewAnalyzerWithConfig(config AnalyzerConfig) *Analyzer {
	def := DefaultAnalyzerConfig()
	if config.MinBandGapChars <= 0 {
		config.MinBandGapChars = def.MinBandGapChars
	}
	if config.MinTableRows < 1 {
		config.MinTableRows = def.MinTableRows
	}
	if config.MinBands < 1 {
		config.MinBands = def.MinBands
	}
	return &Analyzer{config: config}
}

// Analyze is a pure function of its input: the caller's slice is not
// modified and the result does not depend on input order.
func (a *Analyzer) Analyze(atoms []TextAtom) *LayoutResult {
	result := &LayoutResult{}

	rows := groupRows(atoms)
	if len(rows) == 0 {
		return result
	}
	result.Rows = rows

	bands := a.detectBands(rows)
	if len(bands) >= a.config.MinBands {
		result.IsTabular = true
		result.Bands = bands
		assignBands(rows, bands, a.minGap(rows))
	}

	return result
}

// groupRows buckets atoms by source line, orders rows by the top of their
// line and ranks atoms by left edge.
func groupRows(atoms []TextAtom) [][]TextAtom {
	byLine := make(map[int][]TextAtom)
	for _, atom := range atoms {
		if atom.Bounds.Empty() {
			continue
		}
		atom.RowID, atom.ColumnIndex, atom.Band = Unassigned, Unassigned, Unassigned
		byLine[atom.Line] = append(byLine[atom.Line], atom)
	}
	if len(byLine) == 0 {
		return nil
	}

	type lineKey struct {
		line int
		top  float64
	}
	keys := make([]lineKey, 0, len(byLine))
	for line, members := range byLine {
		top := members[0].Bounds.Top
		for _, m := range members[1:] {
			top = math.Min(top, m.Bounds.Top)
		}
		keys = append(keys, lineKey{line: line, top: top})
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].top != keys[j].top {
			return keys[i].top < keys[j].top
		}
		return keys[i].line < keys[j].line
	})

	rows := make([][]TextAtom, len(keys))
	for rowID, key := range keys {
		row := byLine[key.line]
		sort.Slice(row, func(i, j int) bool {
			if row[i].Bounds.Left != row[j].Bounds.Left {
				return row[i].Bounds.Left < row[j].Bounds.Left
			}
			return row[i].Seq < row[j].Seq
		})
		for col := range row {
			row[col].RowID = rowID
			row[col].ColumnIndex = col
		}
		rows[rowID] = row
	}
	return rows
}

type edge struct {
	left  float64
	right float64
	row   int
	col   int
}

// detectBands clusters left edges of multi-atom rows (single linkage) and
// keeps clusters that a strict majority of those rows reach.
func (a *Analyzer) detectBands(rows [][]TextAtom) []Band {
	var edges []edge
	qualifying := 0
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		qualifying++
		for _, atom := range row {
			edges = append(edges, edge{
				left:  atom.Bounds.Left,
				right: atom.Bounds.Right(),
				row:   atom.RowID,
				col:   atom.ColumnIndex,
			})
		}
	}
	if qualifying < a.config.MinTableRows {
		return nil
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].left != edges[j].left {
			return edges[i].left < edges[j].left
		}
		if edges[i].row != edges[j].row {
			return edges[i].row < edges[j].row
		}
		return edges[i].col < edges[j].col
	})

	gap := a.minGap(rows)
	var clusters [][]edge
	for i, e := range edges {
		if i == 0 || e.left-edges[i-1].left > gap {
			clusters = append(clusters, nil)
		}
		clusters[len(clusters)-1] = append(clusters[len(clusters)-1], e)
	}

	var bands []Band
	for _, cluster := range clusters {
		reached := make(map[int]bool)
		for _, e := range cluster {
			reached[e.row] = true
		}
		if 2*len(reached) <= qualifying {
			continue
		}
		band := Band{Index: len(bands), Left: cluster[0].left, Right: cluster[0].right}
		for _, e := range cluster[1:] {
			band.Right = math.Max(band.Right, e.right)
		}
		bands = append(bands, band)
	}
	return bands
}

// minGap converts MinBandGapChars to pixels using the average glyph width
func (a *Analyzer) minGap(rows [][]TextAtom) float64 {
	var atoms []TextAtom
	for _, row := range rows {
		atoms = append(atoms, row...)
	}
	gap := a.config.MinBandGapChars * AverageCharWidth(atoms)
	if gap < 1 {
		gap = 1
	}
	return gap
}

// assignBands tags each atom with the band its left edge falls into. An
// edge within gap before a band's left still counts for that band.
func assignBands(rows [][]TextAtom, bands []Band, gap float64) {
	for _, row := range rows {
		for i := range row {
			left := row[i].Bounds.Left
			for _, b := range bands {
				if left >= b.Left-gap && left <= b.Right {
					row[i].Band = b.Index
					break
				}
			}
		}
	}
}
