// Package feeltech drives FeelTech FY32xx function generators over a
// serial port.
//
// The FY32xx speaks a newline-terminated ASCII protocol on 9600 8N1:
// channel 1 commands are prefixed 'b' (bf frequency, bw waveform,
// ba amplitude, bo offset), channel 2 uses 'd'. Frequencies are sent as
// nine-digit centihertz. The device answers nothing; a short pause after
// each command keeps its firmware from dropping writes.
package feeltech

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/tarm/serial"
)

const (
	defaultBaud = 9600

	// commandPause is the inter-command delay the FY32xx firmware needs.
	commandPause = 50 * time.Millisecond

	// maxFrequencyHz is the FY3225S upper limit.
	maxFrequencyHz = 25e6
)

// Waveform identifiers understood by the bw/dw command.
const (
	WaveformSine     = 0
	WaveformSquare   = 1
	WaveformTriangle = 2
)

// Generator is a FeelTech FY32xx attached to a serial port. Only channel 1,
// the drive output, is exposed.
type Generator struct {
	port      io.ReadWriteCloser
	pause     time.Duration
	amplitude float64 // last programmed amplitude in Vpp, for EnableOutput
}

// Open connects to the generator on the named serial port.
func Open(portName string) (*Generator, error) {
	cfg := &serial.Config{
		Name:        portName,
		Baud:        defaultBaud,
		ReadTimeout: time.Second,
	}

	port, err := serial.OpenPort(cfg)
	if err != nil {
		return nil, fmt.Errorf("feeltech: opening %s: %w", portName, err)
	}

	return New(port), nil
}

// New wraps an already-open port. Used by Open and by tests.
func New(port io.ReadWriteCloser) *Generator {
	return &Generator{
		port:      port,
		pause:     commandPause,
		amplitude: 1,
	}
}

// Close releases the serial port.
func (g *Generator) Close() error {
	return g.port.Close()
}

// SetFrequency programs the channel 1 output frequency in Hz.
func (g *Generator) SetFrequency(hz float64) error {
	if hz <= 0 || hz > maxFrequencyHz || math.IsNaN(hz) {
		return fmt.Errorf("feeltech: frequency out of range: %v", hz)
	}

	// The device takes centihertz as nine ASCII digits.
	return g.send(fmt.Sprintf("bf%09d", int64(math.Round(hz*100))))
}

// SetWaveform selects the channel 1 waveform.
func (g *Generator) SetWaveform(w int) error {
	if w < 0 || w > 15 {
		return fmt.Errorf("feeltech: unknown waveform %d", w)
	}

	return g.send(fmt.Sprintf("bw%d", w))
}

// SetAmplitude programs the channel 1 amplitude in volts peak-to-peak.
func (g *Generator) SetAmplitude(vpp float64) error {
	if vpp < 0 || vpp > 20 {
		return fmt.Errorf("feeltech: amplitude out of range: %v", vpp)
	}

	if err := g.send(fmt.Sprintf("ba%.2f", vpp)); err != nil {
		return err
	}

	if vpp > 0 {
		g.amplitude = vpp
	}

	return nil
}

// SetOffset programs the channel 1 DC offset in volts.
func (g *Generator) SetOffset(v float64) error {
	if v < -10 || v > 10 {
		return fmt.Errorf("feeltech: offset out of range: %v", v)
	}

	return g.send(fmt.Sprintf("bo%.2f", v))
}

// EnableOutput switches the channel 1 output. The FY32xx has no dedicated
// output relay, so disabling programs zero amplitude and enabling restores
// the last non-zero amplitude.
func (g *Generator) EnableOutput(on bool) error {
	if on {
		return g.send(fmt.Sprintf("ba%.2f", g.amplitude))
	}

	return g.send("ba0.00")
}

func (g *Generator) send(cmd string) error {
	if _, err := io.WriteString(g.port, cmd+"\n"); err != nil {
		return fmt.Errorf("feeltech: sending %q: %w", cmd, err)
	}

	if g.pause > 0 {
		time.Sleep(g.pause)
	}

	return nil
}
