package response

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/bodeplot/stats/capture"
)

// Errors returned by extraction. ErrSilentReference and ErrShortCapture
// wrap ErrMeasurement: they describe a single unusable capture, not a
// device fault, and callers are expected to skip the step and continue.
var (
	ErrMeasurement     = errors.New("response: measurement failed")
	ErrSilentReference = fmt.Errorf("%w: reference channel below noise floor", ErrMeasurement)
	ErrShortCapture    = fmt.Errorf("%w: capture shorter than one drive cycle", ErrMeasurement)

	ErrLengthMismatch    = errors.New("response: capture channels differ in length")
	ErrEmptyCapture      = errors.New("response: capture is empty")
	ErrInvalidSampleRate = errors.New("response: sample rate must be positive")
)

// defaultNoiseFloor is the minimum reference RMS, in volts, below which the
// gain ratio is considered undefined.
const defaultNoiseFloor = 1e-6

// Capture holds a pair of synchronized sample buffers sharing one sample
// rate and start time. Out is the filter output (scope channel 1), Ref the
// filter input driven by the generator (scope channel 2).
type Capture struct {
	Out        []float64
	Ref        []float64
	SampleRate float64 // Hz
}

// Point is one measured frequency response sample. PhaseDeg is the phase
// of Out relative to Ref, wrapped into (-180, 180].
type Point struct {
	Frequency float64 // Hz
	GainDB    float64
	PhaseDeg  float64
}

// Extractor computes gain and phase at a single drive frequency.
//
// The zero value is ready to use with a conservative noise floor.
type Extractor struct {
	// NoiseFloor is the minimum reference RMS in volts. A reference below
	// this level yields ErrSilentReference. Zero selects the default.
	NoiseFloor float64
}

// Extract is a one-shot extraction with default settings.
func Extract(capt Capture, driveFreq float64) (Point, error) {
	return Extractor{}.Extract(capt, driveFreq)
}

// Extract computes the gain (dB) and relative phase (degrees) of capt.Out
// with respect to capt.Ref at driveFreq.
//
// Both buffers are correlated against a complex oscillator at the drive
// frequency over the largest whole number of drive periods that fits in
// the capture, which suppresses spectral leakage without windowing. The
// channel means are removed first so generator offset does not bleed into
// the correlation on short captures.
func (e Extractor) Extract(capt Capture, driveFreq float64) (Point, error) {
	if err := validateCapture(capt, driveFreq); err != nil {
		return Point{}, err
	}

	n := wholePeriods(len(capt.Ref), driveFreq, capt.SampleRate)
	if n < 2 {
		return Point{}, ErrShortCapture
	}

	floor := e.NoiseFloor
	if floor <= 0 {
		floor = defaultNoiseFloor
	}

	if capture.RMS(capt.Ref) <= floor {
		return Point{}, ErrSilentReference
	}

	out := correlate(capt.Out[:n], driveFreq, capt.SampleRate)
	ref := correlate(capt.Ref[:n], driveFreq, capt.SampleRate)

	magOut := math.Hypot(real(out), imag(out))
	magRef := math.Hypot(real(ref), imag(ref))

	if magRef <= floor {
		return Point{}, ErrSilentReference
	}

	phase := math.Atan2(imag(out), real(out)) - math.Atan2(imag(ref), real(ref))

	return Point{
		Frequency: driveFreq,
		GainDB:    20 * math.Log10(magOut/magRef),
		PhaseDeg:  wrapDegrees(phase * 180 / math.Pi),
	}, nil
}

func validateCapture(capt Capture, driveFreq float64) error {
	if len(capt.Out) == 0 || len(capt.Ref) == 0 {
		return ErrEmptyCapture
	}

	if len(capt.Out) != len(capt.Ref) {
		return ErrLengthMismatch
	}

	if capt.SampleRate <= 0 || math.IsNaN(capt.SampleRate) || math.IsInf(capt.SampleRate, 0) {
		return ErrInvalidSampleRate
	}

	if driveFreq <= 0 || driveFreq > capt.SampleRate/2 {
		return ErrInvalidFrequency
	}

	return nil
}

// wholePeriods returns the sample count covering the largest whole number
// of drive periods within length samples, or 0 if not even one period fits.
func wholePeriods(length int, freq, sampleRate float64) int {
	periods := math.Floor(float64(length) * freq / sampleRate)
	if periods < 1 {
		return 0
	}

	n := int(math.Floor(periods * sampleRate / freq))
	if n > length {
		n = length
	}

	return n
}

// correlate computes the complex inner product of buf against a complex
// oscillator exp(-j*2*pi*freq*i/sampleRate), normalized so that a pure
// sinusoid of amplitude A yields magnitude A. The channel mean is removed
// before correlating.
func correlate(buf []float64, freq, sampleRate float64) complex128 {
	mean := capture.DC(buf)
	w := 2 * math.Pi * freq / sampleRate

	var sumRe, sumIm float64

	for i, x := range buf {
		ph := w * float64(i)
		v := x - mean
		sumRe += v * math.Cos(ph)
		sumIm -= v * math.Sin(ph)
	}

	scale := 2 / float64(len(buf))

	return complex(scale*sumRe, scale*sumIm)
}

// wrapDegrees wraps an angle in degrees into (-180, 180].
func wrapDegrees(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d <= -180 {
		d += 360
	} else if d > 180 {
		d -= 360
	}

	return d
}
