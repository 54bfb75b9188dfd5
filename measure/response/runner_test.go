package response_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/bodeplot/instrument/sim"
	"github.com/cwbudde/bodeplot/internal/testutil"
	"github.com/cwbudde/bodeplot/measure/response"
)

func mustRunner(t *testing.T, plan response.Plan, bench *sim.Bench) *response.Runner {
	t.Helper()

	r, err := response.NewRunner(plan, bench, bench, response.WithSettle(0))
	if err != nil {
		t.Fatal(err)
	}

	return r
}

func TestRunnerUnitySweep(t *testing.T) {
	plan := response.Plan{Start: 10, Stop: 1000, Step: 10}
	bench := sim.NewBench(sim.Unity{})

	points, err := mustRunner(t, plan, bench).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	wantFreqs := []float64{10, 100, 1000}
	if len(points) != len(wantFreqs) {
		t.Fatalf("got %d points, want %d", len(points), len(wantFreqs))
	}

	for i, p := range points {
		testutil.RequireNearlyEqual(t, p.Frequency, wantFreqs[i], 1e-6)
		testutil.RequireNearlyEqual(t, p.GainDB, 0, 1e-3)
		testutil.RequireNearlyEqual(t, p.PhaseDeg, 0, 0.1)
	}
}

func TestRunnerSinglePoleLowPass(t *testing.T) {
	// One-octave steps through the cutoff of a 1 kHz single pole.
	plan := response.Plan{Start: 125, Stop: 8000, Step: 2}
	bench := sim.NewBench(sim.SinglePoleLowPass{Cutoff: 1000})

	points, err := mustRunner(t, plan, bench).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(points) != 7 {
		t.Fatalf("got %d points, want 7", len(points))
	}

	var atCutoff, oneAbove, twoAbove *response.Point

	for i := range points {
		switch points[i].Frequency {
		case 1000:
			atCutoff = &points[i]
		case 4000:
			oneAbove = &points[i]
		case 8000:
			twoAbove = &points[i]
		}
	}

	if atCutoff == nil || oneAbove == nil || twoAbove == nil {
		t.Fatalf("missing expected frequencies in %v", points)
	}

	// -3 dB and -45 degrees at the cutoff.
	testutil.RequireNearlyEqual(t, atCutoff.GainDB, -3.0103, 0.05)
	testutil.RequireNearlyEqual(t, atCutoff.PhaseDeg, -45, 0.5)

	// Approaching -6 dB/octave (-20 dB/decade) above the cutoff.
	octaveDrop := twoAbove.GainDB - oneAbove.GainDB
	if octaveDrop > -5.5 || octaveDrop < -6.5 {
		t.Errorf("roll-off per octave above cutoff = %v dB, want about -6", octaveDrop)
	}
}

func TestRunnerResultsAscendingOneEntryPerStep(t *testing.T) {
	plan := response.Plan{Start: 20, Stop: 20000, Step: 1.5}
	bench := sim.NewBench(sim.Static{Gain: 0.5, PhaseDeg: 30})

	points, err := mustRunner(t, plan, bench).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(points) != plan.Steps() {
		t.Fatalf("got %d points, want %d", len(points), plan.Steps())
	}

	for i := 1; i < len(points); i++ {
		if points[i].Frequency <= points[i-1].Frequency {
			t.Fatalf("points not strictly ascending at %d: %v", i, points)
		}
	}
}

// silentStepCapturer delegates to a bench but returns a dead reference
// channel at one chosen step.
type silentStepCapturer struct {
	*sim.Bench
	badStep int
	step    int
}

func (c *silentStepCapturer) Acquire(samples int) ([]float64, []float64, error) {
	out, ref, err := c.Bench.Acquire(samples)
	if err != nil {
		return nil, nil, err
	}

	if c.step == c.badStep {
		ref = testutil.Zeros(len(ref))
	}
	c.step++

	return out, ref, nil
}

func TestRunnerSkipsUnusableStepAndContinues(t *testing.T) {
	plan := response.Plan{Start: 10, Stop: 10000, Step: 10}
	bench := sim.NewBench(sim.Unity{})
	capturer := &silentStepCapturer{Bench: bench, badStep: 1}

	r, err := response.NewRunner(plan, bench, capturer, response.WithSettle(0))
	if err != nil {
		t.Fatal(err)
	}

	points, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("a single unusable step must not abort the sweep: %v", err)
	}

	wantFreqs := []float64{10, 1000, 10000} // 100 Hz step skipped
	if len(points) != len(wantFreqs) {
		t.Fatalf("got %d points, want %d: %v", len(points), len(wantFreqs), points)
	}

	for i, p := range points {
		if math.Abs(p.Frequency-wantFreqs[i]) > 1e-6 {
			t.Errorf("point %d frequency = %v, want %v", i, p.Frequency, wantFreqs[i])
		}
	}
}

func TestRunnerDeviceFaultStopsSweep(t *testing.T) {
	plan := response.Plan{Start: 10, Stop: 10000, Step: 10}
	bench := sim.NewBench(sim.Unity{})
	bench.FailAfter(2)

	points, err := mustRunner(t, plan, bench).Run(context.Background())
	if !errors.Is(err, sim.ErrFault) {
		t.Fatalf("err = %v, want sim.ErrFault", err)
	}

	// The two completed steps survive the fault.
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2", len(points))
	}

	testutil.RequireNearlyEqual(t, points[0].Frequency, 10, 1e-6)
	testutil.RequireNearlyEqual(t, points[1].Frequency, 100, 1e-6)
}

func TestRunnerContextCancellation(t *testing.T) {
	plan := response.Plan{Start: 10, Stop: 10000, Step: 10}
	bench := sim.NewBench(sim.Unity{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	points, err := mustRunner(t, plan, bench).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	if len(points) != 0 {
		t.Fatalf("got %d points before cancellation, want 0", len(points))
	}
}

func TestNewRunnerRejectsInvalidPlan(t *testing.T) {
	bench := sim.NewBench(sim.Unity{})

	_, err := response.NewRunner(response.Plan{Start: 100, Stop: 10, Step: 2}, bench, bench)
	if !errors.Is(err, response.ErrFrequencyOrder) {
		t.Fatalf("err = %v, want ErrFrequencyOrder", err)
	}
}
