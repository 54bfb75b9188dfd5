// Package capture provides single-pass time-domain statistics for
// oscilloscope capture buffers: mean (DC), RMS about the mean, and peak.
// The sweep runner logs these per step and the extractor uses the RMS as
// its noise-floor gate.
package capture

import "math"

// Stats holds time-domain statistics of one capture buffer.
type Stats struct {
	Length int
	DC     float64 // mean
	RMS    float64 // root mean square about the mean
	RMSdB  float64
	Max    float64
	Min    float64
	Peak   float64 // max(|Max-DC|, |Min-DC|)
	Energy float64 // sum of squares
}

// Calculate computes all statistics in a single pass.
func Calculate(buf []float64) Stats {
	n := len(buf)
	if n == 0 {
		return Stats{RMSdB: math.Inf(-1)}
	}

	var (
		sum    float64
		sumSq  float64
		maxVal = buf[0]
		minVal = buf[0]
	)

	for _, x := range buf {
		sum += x
		sumSq += x * x

		if x > maxVal {
			maxVal = x
		}

		if x < minVal {
			minVal = x
		}
	}

	mean := sum / float64(n)

	// RMS about the mean: E[x^2] - mean^2, clamped against rounding.
	msq := sumSq/float64(n) - mean*mean
	if msq < 0 {
		msq = 0
	}

	rms := math.Sqrt(msq)

	rmsDB := math.Inf(-1)
	if rms > 0 {
		rmsDB = 20 * math.Log10(rms)
	}

	return Stats{
		Length: n,
		DC:     mean,
		RMS:    rms,
		RMSdB:  rmsDB,
		Max:    maxVal,
		Min:    minVal,
		Peak:   math.Max(math.Abs(maxVal-mean), math.Abs(minVal-mean)),
		Energy: sumSq,
	}
}

// RMS returns the root mean square of buf about its mean.
func RMS(buf []float64) float64 {
	return Calculate(buf).RMS
}

// DC returns the mean of buf.
func DC(buf []float64) float64 {
	if len(buf) == 0 {
		return 0
	}

	var sum float64
	for _, x := range buf {
		sum += x
	}

	return sum / float64(len(buf))
}

// Peak returns the largest absolute excursion of buf from its mean.
func Peak(buf []float64) float64 {
	return Calculate(buf).Peak
}
