package hantek

import "math"

// supportedRates lists the sample rates the 6022 accepts, in Hz, ascending.
var supportedRates = []float64{
	20e3, 32e3, 50e3, 64e3, 100e3, 128e3, 200e3, 500e3,
	1e6, 2e6, 4e6, 8e6, 10e6,
}

// MinSampleRate and MaxSampleRate bound the supported span.
var (
	MinSampleRate = supportedRates[0]
	MaxSampleRate = supportedRates[len(supportedRates)-1]
)

// pickSampleRate returns the smallest supported rate at or above want,
// clamping to the bounds of the supported set.
func pickSampleRate(want float64) float64 {
	for _, r := range supportedRates {
		if r >= want {
			return r
		}
	}

	return MaxSampleRate
}

// sampleRateID encodes a supported rate into the device's rate identifier:
// rates below 1 MS/s map to round(100 + kS/10) (20k..500k -> 102..150, with
// 128k -> 113), the rest to their MS/s value.
func sampleRateID(rateHz float64) uint8 {
	kS := rateHz / 1e3
	if kS < 1000 {
		return uint8(math.Round(100 + kS/10))
	}

	return uint8(kS / 1000)
}

// deinterleave splits the scope's alternating CH1/CH2 byte stream.
func deinterleave(raw []byte) (ch1, ch2 []byte) {
	n := len(raw) / 2
	ch1 = make([]byte, n)
	ch2 = make([]byte, n)

	for i := 0; i < n; i++ {
		ch1[i] = raw[2*i]
		ch2[i] = raw[2*i+1]
	}

	return ch1, ch2
}

// scaleSamples converts raw unsigned samples centered at 128 into volts for
// the given voltage range setting (1, 2, 5 or 10; full scale is +-5V/range).
func scaleSamples(raw []byte, rangeSetting int) []float64 {
	fullScale := 5.0 / float64(rangeSetting)

	out := make([]float64, len(raw))
	for i, b := range raw {
		out[i] = (float64(b) - 128) / 128 * fullScale
	}

	return out
}
