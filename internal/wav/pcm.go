package wav

import "math"

const (
	// negativeScale maps -1.0 onto math.MinInt16
	negativeScale = 32768
	// positiveScale maps +1.0 onto math.MaxInt16
	positiveScale = 32767
)

// EncodePCM16 converts float samples in [-1, 1] to signed 16-bit PCM.
// Out-of-range values are clamped and NaN becomes silence. Negative values are
// scaled by 32768 and non-negative values by 32767 so that neither end
// overflows.
func EncodePCM16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		out[i] = sampleToInt16(s)
	}
	return out
}

func sampleToInt16(s float32) int16 {
	if math.IsNaN(float64(s)) {
		return 0
	}
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	if s < 0 {
		return int16(s * negativeScale)
	}
	return int16(s * positiveScale)
}
