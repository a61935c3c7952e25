package incident

import "slices"

// Median finds the middle value of the set (mean of the two middle values for
// even counts). Works on a copy to avoid mutating the caller's slice.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	temp := make([]float64, len(values))
	copy(temp, values)
	slices.Sort(temp)

	n := len(temp)
	if n%2 == 1 {
		return temp[n/2]
	}
	return (temp[n/2-1] + temp[n/2]) / 2.0
}

// Percentile returns the p-quantile (0 < p < 1) of the set by sorted index.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}

	temp := make([]float64, len(values))
	copy(temp, values)
	slices.Sort(temp)

	idx := int(float64(len(temp)) * p)
	if idx >= len(temp) {
		idx = len(temp) - 1
	}
	return temp[idx]
}
