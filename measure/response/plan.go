package response

import (
	"errors"
	"math"
)

// Errors returned by plan validation.
var (
	ErrInvalidFrequency = errors.New("response: frequency must be positive")
	ErrFrequencyOrder   = errors.New("response: start frequency must be less than stop frequency")
	ErrInvalidStep      = errors.New("response: step multiplier must be greater than 1")
	ErrInvalidCycles    = errors.New("response: cycle count must be positive")
)

// Default capture scaling parameters. The bounds keep captures short enough
// for USB bulk transfers at the low end of the sweep while still covering a
// couple of thousand samples at the high end, where the oscilloscope's
// maximum sample rate limits the achievable oversampling.
const (
	defaultOversample = 10.0
	defaultCycles     = 50
	defaultMinSamples = 2048
	defaultMaxSamples = 32768
)

// Plan describes a logarithmic frequency sweep from Start to Stop by the
// multiplicative Step, together with the capture scaling policy used at
// each step.
//
// The scaling policy keeps the number of acquired signal cycles roughly
// constant across the sweep: the requested sample rate is Oversample times
// the drive frequency and the buffer length targets Cycles full periods,
// clamped into [MinSamples, MaxSamples]. Hardware quantizes the requested
// rate, so buffer lengths are derived from the rate actually in effect
// (see SamplesAt).
type Plan struct {
	Start float64 // first sweep frequency in Hz
	Stop  float64 // upper sweep bound in Hz
	Step  float64 // multiplicative frequency step, > 1

	Oversample float64 // sample rate as a multiple of the drive frequency (default 10)
	Cycles     int     // target captured cycles per step (default 50)
	MinSamples int     // lower bound on capture length (default 2048)
	MaxSamples int     // upper bound on capture length (default 32768)
}

// Validate checks the sweep bounds and step.
func (p *Plan) Validate() error {
	if p.Start <= 0 || p.Stop <= 0 {
		return ErrInvalidFrequency
	}

	if p.Start >= p.Stop {
		return ErrFrequencyOrder
	}

	if p.Step <= 1 {
		return ErrInvalidStep
	}

	if p.Cycles < 0 {
		return ErrInvalidCycles
	}

	return nil
}

// Frequencies returns the sweep frequencies in ascending order:
// Start*Step^i for i = 0, 1, ... while the value does not exceed Stop.
//
// Each frequency is computed by exponentiation rather than cumulative
// multiplication, so long sweeps do not accumulate rounding drift. A tiny
// relative tolerance keeps Stop itself included when Stop/Start is an exact
// power of Step.
func (p *Plan) Frequencies() []float64 {
	if p.Validate() != nil {
		return nil
	}

	out := make([]float64, 0, p.Steps())

	limit := p.Stop * (1 + 1e-9)
	for i := 0; ; i++ {
		f := p.Start * math.Pow(p.Step, float64(i))
		if f > limit {
			break
		}

		out = append(out, f)
	}

	return out
}

// Steps returns the number of sweep frequencies.
func (p *Plan) Steps() int {
	if p.Validate() != nil {
		return 0
	}

	k := math.Log(p.Stop/p.Start) / math.Log(p.Step)

	return int(math.Floor(k+1e-9)) + 1
}

// RateFor returns the sample rate to request from the capturer for the
// given drive frequency.
func (p *Plan) RateFor(freq float64) float64 {
	o := p.Oversample
	if o <= 0 {
		o = defaultOversample
	}

	return o * freq
}

// SamplesAt returns the capture length for the given drive frequency and
// the sample rate actually in effect.
func (p *Plan) SamplesAt(freq, sampleRate float64) int {
	cycles := p.Cycles
	if cycles == 0 {
		cycles = defaultCycles
	}

	minS := p.MinSamples
	if minS <= 0 {
		minS = defaultMinSamples
	}

	maxS := p.MaxSamples
	if maxS <= 0 {
		maxS = defaultMaxSamples
	}

	if maxS < minS {
		maxS = minS
	}

	n := minS
	if freq > 0 && sampleRate > 0 {
		n = int(math.Ceil(float64(cycles) * sampleRate / freq))
	}

	if n < minS {
		n = minS
	}

	if n > maxS {
		n = maxS
	}

	return n
}
