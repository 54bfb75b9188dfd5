// Command bodeplot measures the frequency response of an analog filter
// using a FeelTech FY32xx function generator and a Hantek 6022 USB
// oscilloscope, and produces a Bode plot and a CSV record.
//
// Scope channel 1 is the filter output, channel 2 the filter input (the
// generator output). The sweep steps logarithmically from -fstart to
// -fstop by the multiplicative -fstep.
//
// Usage:
//
//	bodeplot [flags]
//
// Examples:
//
//	bodeplot -port /dev/ttyUSB0
//	bodeplot -fstart 100 -fstop 100000 -fstep 1.2 -filename filter.csv
//	bodeplot -sim -v
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"

	"github.com/cwbudde/bodeplot/instrument/feeltech"
	"github.com/cwbudde/bodeplot/instrument/hantek"
	"github.com/cwbudde/bodeplot/instrument/sim"
	"github.com/cwbudde/bodeplot/measure/response"
	"github.com/cwbudde/bodeplot/report"
)

func main() {
	port := flag.String("port", "/dev/ttyUSB0", "serial port of the function generator")
	fstart := flag.Float64("fstart", 10, "sweep start frequency in Hz")
	fstop := flag.Float64("fstop", 5e6, "sweep stop frequency in Hz")
	fstep := flag.Float64("fstep", 1.1, "multiplicative frequency step (> 1)")
	filename := flag.String("filename", "bodeplot.csv", "output CSV path")
	plotFile := flag.String("plot", "bodeplot.png", "output plot image path (empty disables)")
	amplitude := flag.Float64("amplitude", 1, "generator amplitude in Vpp")
	offset := flag.Float64("offset", 0, "generator DC offset in V")
	settle := flag.Duration("settle", 100*time.Millisecond, "settling time after each frequency change")
	cycles := flag.Int("cycles", 50, "target captured cycles per step")
	simulate := flag.Bool("sim", false, "run against a simulated low-pass filter instead of hardware")
	verbose := flag.Bool("v", false, "enable debug logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: bodeplot [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Sweeps a function generator across a frequency range, captures both\n")
		fmt.Fprintf(os.Stderr, "oscilloscope channels per step, and records gain and phase of the\n")
		fmt.Fprintf(os.Stderr, "filter under test as a CSV file and a Bode plot image.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).
		With().Timestamp().Logger()

	plan := response.Plan{
		Start:  *fstart,
		Stop:   *fstop,
		Step:   *fstep,
		Cycles: *cycles,
	}

	cfg := config{
		plan:      plan,
		port:      *port,
		filename:  *filename,
		plotFile:  *plotFile,
		amplitude: *amplitude,
		offset:    *offset,
		settle:    *settle,
		simulate:  *simulate,
	}

	// os.Exit skips deferred cleanup, so the sweep body runs in its own
	// function and the exit code is decided here.
	os.Exit(run(cfg, log))
}

type config struct {
	plan      response.Plan
	port      string
	filename  string
	plotFile  string
	amplitude float64
	offset    float64
	settle    time.Duration
	simulate  bool
}

func run(cfg config, log zerolog.Logger) int {
	if err := cfg.plan.Validate(); err != nil {
		log.Error().Err(err).Msg("invalid sweep configuration")
		return 1
	}

	source, capturer, cleanup, err := connect(cfg.simulate, cfg.port, cfg.amplitude, cfg.offset, log)
	if err != nil {
		log.Error().Err(err).Msg("device connection failed")
		return 1
	}
	defer cleanup()

	runner, err := response.NewRunner(cfg.plan, source, capturer,
		response.WithSettle(cfg.settle),
		response.WithLogger(log),
	)
	if err != nil {
		log.Error().Err(err).Msg("invalid sweep configuration")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	points, runErr := runner.Run(ctx)
	if runErr != nil {
		// Partial results up to the fault are still written below.
		log.Error().Err(runErr).Int("points", len(points)).Msg("sweep aborted")
	}

	if err := report.WriteCSVFile(cfg.filename, points); err != nil {
		log.Error().Err(err).Msg("writing CSV failed")
		return 1
	}

	log.Info().Str("path", cfg.filename).Int("points", len(points)).Msg("wrote CSV")

	if cfg.plotFile != "" && len(points) > 0 {
		if err := report.SavePlot(cfg.plotFile, points); err != nil {
			log.Error().Err(err).Msg("rendering plot failed")
			return 1
		}

		log.Info().Str("path", cfg.plotFile).Msg("wrote Bode plot")
	}

	report.Summary(os.Stdout, points)

	if runErr != nil {
		return 1
	}

	return 0
}

// connect opens the instrument pair, or a simulated bench when sim is set.
func connect(simulate bool, port string, amplitude, offset float64, log zerolog.Logger) (
	response.SignalSource, response.WaveformCapturer, func(), error,
) {
	if simulate {
		log.Info().Msg("using simulated 1 kHz low-pass bench")

		bench := sim.NewBench(
			sim.SinglePoleLowPass{Cutoff: 1000},
			sim.WithAmplitude(amplitude/2),
			sim.WithRateLimits(hantek.MinSampleRate, hantek.MaxSampleRate),
		)

		return bench, bench, func() {}, nil
	}

	gen, err := feeltech.Open(port)
	if err != nil {
		return nil, nil, nil, err
	}

	if err := setupGenerator(gen, amplitude, offset); err != nil {
		gen.Close()
		return nil, nil, nil, err
	}

	scope, err := hantek.Open()
	if err != nil {
		gen.Close()
		return nil, nil, nil, err
	}

	cleanup := func() {
		if err := gen.EnableOutput(false); err != nil {
			log.Warn().Err(err).Msg("disabling generator output failed")
		}

		gen.Close()
		scope.Close()
	}

	return gen, scope, cleanup, nil
}

func setupGenerator(gen *feeltech.Generator, amplitude, offset float64) error {
	if err := gen.SetWaveform(feeltech.WaveformSine); err != nil {
		return err
	}

	if err := gen.SetAmplitude(amplitude); err != nil {
		return err
	}

	return gen.SetOffset(offset)
}
