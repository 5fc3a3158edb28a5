package charts

import (
	"fmt"
	"math"
)

// DefaultBinCount is used when a histogram suggestion does not ask for one.
const DefaultBinCount = 10

// Bins is the result of equal-width binning.
type Bins struct {
	Labels []string
	Counts []int
}

// Bin splits values into binCount equal-width bins between their min and max.
// Labels read "<start> - <end>" with one decimal. The maximum lands in the
// last bin. A constant input puts everything in bin 0. Non-finite values are
// ignored and a non-positive binCount falls back to DefaultBinCount.
func Bin(values []float64, binCount int) Bins {
	if binCount <= 0 {
		binCount = DefaultBinCount
	}

	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}

	var lo, hi float64
	if len(finite) > 0 {
		lo, hi = finite[0], finite[0]
		for _, v := range finite[1:] {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}

	binSize := (hi - lo) / float64(binCount)
	if math.IsInf(binSize, 0) {
		return binWide(finite, lo, hi, binCount)
	}
	labels := make([]string, binCount)
	for i := range labels {
		start := lo + float64(i)*binSize
		labels[i] = binLabel(start, start+binSize)
	}

	counts := make([]int, binCount)
	for _, v := range finite {
		idx := 0
		if binSize > 0 {
			idx = int(math.Floor((v - lo) / binSize))
		}
		counts[clampBin(idx, binCount)]++
	}

	return Bins{Labels: labels, Counts: counts}
}

// binWide bins values whose range hi-lo overflows float64. Positions are
// computed on halved values and edges by interpolation, both of which stay
// finite.
func binWide(values []float64, lo, hi float64, binCount int) Bins {
	n := float64(binCount)
	edge := func(i int) float64 {
		t := float64(i) / n
		return lo*(1-t) + hi*t
	}
	labels := make([]string, binCount)
	for i := range labels {
		labels[i] = binLabel(edge(i), edge(i+1))
	}

	span := hi/2 - lo/2
	counts := make([]int, binCount)
	for _, v := range values {
		idx := int(math.Floor((v/2 - lo/2) / span * n))
		counts[clampBin(idx, binCount)]++
	}
	return Bins{Labels: labels, Counts: counts}
}

func binLabel(start, end float64) string {
	return fmt.Sprintf("%.1f - %.1f", start, end)
}

func clampBin(idx, binCount int) int {
	if idx >= binCount {
		return binCount - 1
	}
	if idx < 0 {
		return 0
	}
	return idx
}
