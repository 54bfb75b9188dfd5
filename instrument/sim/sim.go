// Package sim provides in-memory stand-ins for the function generator and
// the oscilloscope, sharing a filter model. A Bench implements both the
// response.SignalSource and response.WaveformCapturer interfaces, so a full
// sweep can run with no hardware attached. Tests use it for end-to-end
// coverage; the CLI exposes it behind the -sim flag.
package sim

import (
	"errors"
	"math"
	"math/rand"
)

// ErrFault is returned once the armed fault trips (see Bench.FailAfter).
var ErrFault = errors.New("sim: injected device fault")

// Filter models the device under test: its gain (linear) and phase shift
// (degrees) at a given frequency.
type Filter interface {
	Response(freq float64) (gain, phaseDeg float64)
}

// Unity is an ideal pass-through filter: unit gain, zero phase.
type Unity struct{}

// Response returns gain 1 and phase 0 at every frequency.
func (Unity) Response(float64) (float64, float64) { return 1, 0 }

// SinglePoleLowPass models H(f) = 1 / (1 + j f/fc): -3 dB and -45 degrees
// at the cutoff, -20 dB/decade roll-off above it.
type SinglePoleLowPass struct {
	Cutoff float64 // Hz
}

// Response returns the low-pass gain and phase at freq.
func (f SinglePoleLowPass) Response(freq float64) (float64, float64) {
	x := freq / f.Cutoff

	return 1 / math.Sqrt(1+x*x), -math.Atan(x) * 180 / math.Pi
}

// Static is a frequency-independent gain/phase model, handy for exercising
// specific extraction values.
type Static struct {
	Gain     float64
	PhaseDeg float64
}

// Response returns the fixed gain and phase.
func (s Static) Response(float64) (float64, float64) { return s.Gain, s.PhaseDeg }

// Option mutates a Bench at construction time.
type Option func(*Bench)

// WithAmplitude sets the generator amplitude in volts (default 1).
func WithAmplitude(v float64) Option {
	return func(b *Bench) {
		if v > 0 {
			b.amplitude = v
		}
	}
}

// WithNoise adds deterministic white noise of the given amplitude to both
// channels.
func WithNoise(amplitude float64, seed int64) Option {
	return func(b *Bench) {
		b.noise = amplitude
		b.seed = seed
	}
}

// WithRateLimits constrains the sample rates the simulated scope accepts,
// mimicking hardware quantization bounds.
func WithRateLimits(minHz, maxHz float64) Option {
	return func(b *Bench) {
		if minHz > 0 && maxHz >= minHz {
			b.minRate = minHz
			b.maxRate = maxHz
		}
	}
}

// Bench is a simulated generator/scope pair wired through a filter model.
// It is not safe for concurrent use; the sweep is sequential by design.
type Bench struct {
	filter    Filter
	amplitude float64
	noise     float64
	seed      int64

	minRate float64
	maxRate float64

	freq    float64
	rate    float64
	enabled bool

	failAfter    int // acquisitions before the armed fault trips; <0 disarmed
	acquisitions int
}

// NewBench creates a simulated bench around the given filter model.
func NewBench(filter Filter, opts ...Option) *Bench {
	b := &Bench{
		filter:    filter,
		amplitude: 1,
		failAfter: -1,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}

	return b
}

// FailAfter arms a device fault: the n-th subsequent acquisition returns
// ErrFault. FailAfter(0) faults immediately.
func (b *Bench) FailAfter(n int) {
	b.failAfter = n
	b.acquisitions = 0
}

// SetFrequency records the drive frequency.
func (b *Bench) SetFrequency(hz float64) error {
	if hz <= 0 {
		return errors.New("sim: frequency must be positive")
	}

	b.freq = hz

	return nil
}

// EnableOutput switches the simulated generator output.
func (b *Bench) EnableOutput(on bool) error {
	b.enabled = on

	return nil
}

// Configure clamps the requested sample rate into the configured limits and
// returns the rate in effect.
func (b *Bench) Configure(sampleRate float64) (float64, error) {
	if sampleRate <= 0 {
		return 0, errors.New("sim: sample rate must be positive")
	}

	if b.minRate > 0 && sampleRate < b.minRate {
		sampleRate = b.minRate
	}

	if b.maxRate > 0 && sampleRate > b.maxRate {
		sampleRate = b.maxRate
	}

	b.rate = sampleRate

	return sampleRate, nil
}

// Acquire synthesizes one synchronized capture pair: the reference is the
// generator sinusoid, the output is the reference passed through the filter
// model. With the output disabled both channels are silent.
func (b *Bench) Acquire(samples int) ([]float64, []float64, error) {
	if b.rate <= 0 {
		return nil, nil, errors.New("sim: Configure must be called before Acquire")
	}

	if b.failAfter >= 0 && b.acquisitions >= b.failAfter {
		return nil, nil, ErrFault
	}
	b.acquisitions++

	out := make([]float64, samples)
	ref := make([]float64, samples)

	if !b.enabled {
		return out, ref, nil
	}

	gain, phaseDeg := b.filter.Response(b.freq)
	phase := phaseDeg * math.Pi / 180
	step := 2 * math.Pi * b.freq / b.rate

	var rng *rand.Rand
	if b.noise > 0 {
		rng = rand.New(rand.NewSource(b.seed))
	}

	for i := range ref {
		ph := step * float64(i)
		ref[i] = b.amplitude * math.Sin(ph)
		out[i] = gain * b.amplitude * math.Sin(ph+phase)

		if rng != nil {
			ref[i] += (rng.Float64()*2 - 1) * b.noise
			out[i] += (rng.Float64()*2 - 1) * b.noise
		}
	}

	return out, ref, nil
}
