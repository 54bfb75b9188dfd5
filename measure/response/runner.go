package response

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/cwbudde/bodeplot/stats/capture"
)

// SignalSource commands a function generator driving the device under test.
type SignalSource interface {
	SetFrequency(hz float64) error
	EnableOutput(on bool) error
}

// WaveformCapturer acquires synchronized sample pairs from an oscilloscope.
//
// Configure requests a sample rate and returns the rate actually in effect;
// hardware quantizes to its supported set. Acquire captures the given number
// of samples per channel and returns the filter output and the drive
// reference.
type WaveformCapturer interface {
	Configure(sampleRate float64) (float64, error)
	Acquire(samples int) (out, ref []float64, err error)
}

// RunnerOption mutates a Runner at construction time.
type RunnerOption func(*Runner)

// WithSettle sets the delay between commanding a new frequency and
// acquiring, allowing generator and filter transients to decay.
func WithSettle(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d >= 0 {
			r.settle = d
		}
	}
}

// WithLogger sets the logger used for per-step progress.
func WithLogger(log zerolog.Logger) RunnerOption {
	return func(r *Runner) {
		r.log = log
	}
}

// WithExtractor sets the extractor used for each step.
func WithExtractor(e Extractor) RunnerOption {
	return func(r *Runner) {
		r.extractor = e
	}
}

// Runner drives a frequency sweep against a signal source and a waveform
// capturer, collecting one measured Point per sweep step.
type Runner struct {
	plan      Plan
	source    SignalSource
	capturer  WaveformCapturer
	extractor Extractor
	settle    time.Duration
	log       zerolog.Logger
}

// NewRunner validates the plan and assembles a runner with default
// settling time of 100ms.
func NewRunner(plan Plan, source SignalSource, capturer WaveformCapturer, opts ...RunnerOption) (*Runner, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	r := &Runner{
		plan:     plan,
		source:   source,
		capturer: capturer,
		settle:   100 * time.Millisecond,
		log:      zerolog.Nop(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	return r, nil
}

// Run executes the sweep sequentially: for each frequency it commands the
// source, waits for settling, acquires a capture pair scaled per the plan,
// and extracts a Point.
//
// Extraction failures (errors wrapping ErrMeasurement) are logged and the
// step is skipped; the sweep continues. Any error from the source or the
// capturer is a device fault: the sweep stops immediately and the error is
// returned. In both the fault and the cancellation case the points measured
// so far are returned alongside the error, so partial results remain
// reportable.
//
// The returned points are strictly ascending in frequency, at most one per
// sweep step.
func (r *Runner) Run(ctx context.Context) ([]Point, error) {
	freqs := r.plan.Frequencies()
	points := make([]Point, 0, len(freqs))

	if err := r.source.EnableOutput(true); err != nil {
		return points, fmt.Errorf("response: enabling generator output: %w", err)
	}

	for _, freq := range freqs {
		if err := ctx.Err(); err != nil {
			return points, err
		}

		if err := r.source.SetFrequency(freq); err != nil {
			return points, fmt.Errorf("response: setting %.6g Hz: %w", freq, err)
		}

		if err := sleepCtx(ctx, r.settle); err != nil {
			return points, err
		}

		rate, err := r.capturer.Configure(r.plan.RateFor(freq))
		if err != nil {
			return points, fmt.Errorf("response: configuring capture at %.6g Hz: %w", freq, err)
		}

		samples := r.plan.SamplesAt(freq, rate)

		out, ref, err := r.capturer.Acquire(samples)
		if err != nil {
			return points, fmt.Errorf("response: acquiring at %.6g Hz: %w", freq, err)
		}

		refStats := capture.Calculate(ref)
		r.log.Debug().
			Float64("freq_hz", freq).
			Float64("ref_rms_v", refStats.RMS).
			Float64("ref_dc_v", refStats.DC).
			Float64("out_peak_v", capture.Peak(out)).
			Msg("captured")

		pt, err := r.extractor.Extract(Capture{Out: out, Ref: ref, SampleRate: rate}, freq)
		if err != nil {
			if errors.Is(err, ErrMeasurement) {
				r.log.Warn().
					Float64("freq_hz", freq).
					Err(err).
					Msg("skipping unusable step")

				continue
			}

			return points, err
		}

		r.log.Info().
			Float64("freq_hz", pt.Frequency).
			Float64("gain_db", pt.GainDB).
			Float64("phase_deg", pt.PhaseDeg).
			Float64("rate_hz", rate).
			Int("samples", samples).
			Msg("measured")

		points = append(points, pt)
	}

	return points, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
