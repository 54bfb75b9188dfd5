// Package response measures the frequency response of a device under test
// from synchronized two-channel captures.
//
// The package is built around three pieces:
//
//   - Extract turns one capture (filter output plus drive reference) into a
//     gain/phase pair at a known drive frequency, using a single-frequency
//     complex correlation. ExtractFFT provides an equivalent spectral-bin
//     reading for cross-checking.
//   - Plan describes a logarithmic frequency sweep and the capture scaling
//     policy (sample rate and buffer length per step).
//   - Runner drives a SignalSource and a WaveformCapturer through the plan
//     and collects the measured points in ascending frequency order.
//
// The package has no dependency on any particular hardware driver; the
// instrument adapters in instrument/... implement the two capability
// interfaces, and instrument/sim provides an in-memory pair for testing.
//
// # Usage
//
//	plan := response.Plan{Start: 10, Stop: 5e6, Step: 1.1}
//	runner, _ := response.NewRunner(plan, source, capturer)
//	points, err := runner.Run(ctx)
//	// points holds one (frequency, gain dB, phase deg) triple per
//	// successfully measured step, even when err is non-nil.
package response
