package layout

// AtomAt returns the atom whose box contains the point. When boxes overlap
// the first in reading order wins.
func AtomAt(result *LayoutResult, x, y float64) (TextAtom, bool) {
	for _, atom := range result.Atoms() {
		if atom.Bounds.Contains(x, y) {
			return atom, true
		}
	}
	return TextAtom{}, false
}

// AtomKey identifies an atom inside one LayoutResult
type AtomKey struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

// KeyOf returns the atom's position key
func KeyOf(a TextAtom) AtomKey {
	return AtomKey{Row: a.RowID, Column: a.ColumnIndex}
}

// Selection tracks which atoms of a result a user picked. It is kept next
// to the result rather than on the atoms so analysis stays pure.
type Selection map[AtomKey]bool

// NewSelection builds a selection from keys
func NewSelection(keys ...AtomKey) Selection {
	s := make(Selection, len(keys))
	for _, k := range keys {
		s[k] = true
	}
	return s
}

// Toggle flips the atom's selected state and returns the new state
func (s Selection) Toggle(a TextAtom) bool {
	k := KeyOf(a)
	if s[k] {
		delete(s, k)
		return false
	}
	s[k] = true
	return true
}

// IsSelected reports whether the atom is selected
func (s Selection) IsSelected(a TextAtom) bool {
	return s[KeyOf(a)]
}

// Filter returns a copy of result holding only selected atoms. Rows left
// empty are dropped; atoms keep their row, column and band ids.
func (s Selection) Filter(result *LayoutResult) *LayoutResult {
	if result == nil {
		return &LayoutResult{}
	}
	out := &LayoutResult{IsTabular: result.IsTabular, Bands: result.Bands}
	for _, row := range result.Rows {
		var kept []TextAtom
		for _, atom := range row {
			if s.IsSelected(atom) {
				kept = append(kept, atom)
			}
		}
		if len(kept) > 0 {
			out.Rows = append(out.Rows, kept)
		}
	}
	return out
}
