package processor

import (
	"math"

	"github.com/adverant/nexus/layoutocr-worker/internal/layout"
)

const signatureBins = 16

// LayoutSignature summarises the shape of a layout as a 32 float vector:
// a histogram of atom left edges normalised to the layout width, followed
// by a histogram of atoms per row (the last bin collects 16 and more).
// Both halves are scaled to unit length, so captures of the same form at
// different sizes produce nearly the same vector.
func LayoutSignature(result *layout.LayoutResult) []float32 {
	sig := make([]float32, 2*signatureBins)
	atoms := result.Atoms()
	if len(atoms) == 0 {
		return sig
	}

	minLeft, maxRight := math.Inf(1), math.Inf(-1)
	for _, a := range atoms {
		minLeft = math.Min(minLeft, a.Bounds.Left)
		maxRight = math.Max(maxRight, a.Bounds.Right())
	}
	width := maxRight - minLeft

	edges := make([]float64, signatureBins)
	for _, a := range atoms {
		bin := 0
		if width > 0 {
			bin = int((a.Bounds.Left - minLeft) / width * signatureBins)
		}
		if bin >= signatureBins {
			bin = signatureBins - 1
		}
		edges[bin]++
	}

	counts := make([]float64, signatureBins)
	for _, row := range result.Rows {
		bin := len(row) - 1
		if bin >= signatureBins {
			bin = signatureBins - 1
		}
		counts[bin]++
	}

	normalise(edges)
	normalise(counts)
	for i := 0; i < signatureBins; i++ {
		sig[i] = float32(edges[i])
		sig[signatureBins+i] = float32(counts[i])
	}
	return sig
}

func normalise(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	n := math.Sqrt(sum)
	for i := range v {
		v[i] /= n
	}
}
