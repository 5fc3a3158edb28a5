package charts

import "math"

// Percentages returns each value's share of the total, in percent rounded
// to one decimal. Slices are rounded independently, so the sum is within
// rounding of 100. Negative and non-finite values count as zero. A zero
// total yields all zeros.
func Percentages(values []float64) []float64 {
	out := make([]float64, len(values))

	// Shares are divided by the largest one first so the total cannot
	// overflow for values near MaxFloat64.
	var peak float64
	for _, v := range values {
		peak = math.Max(peak, share(v))
	}
	if peak == 0 {
		return out
	}
	var total float64
	for _, v := range values {
		total += share(v) / peak
	}

	for i, v := range values {
		out[i] = math.Round(share(v)/peak/total*1000) / 10
	}
	return out
}

// SlicePercentages returns the tooltip percentages for the first series of
// a spec. Gaps count as zero.
func (s Spec) SlicePercentages() []float64 {
	if len(s.Datasets) == 0 {
		return nil
	}
	values := make([]float64, len(s.Datasets[0].Values))
	for i, d := range s.Datasets[0].Values {
		if !d.Missing {
			values[i] = d.Y
		}
	}
	return Percentages(values)
}

func share(v float64) float64 {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
