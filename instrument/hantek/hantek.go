// Package hantek captures synchronized two-channel waveforms from Hantek
// 6022 USB oscilloscopes via libusb.
//
// The device exposes no descriptor-level controls; everything goes through
// vendor control requests (channel count, per-channel voltage range, sample
// rate, trigger) and samples arrive as an interleaved unsigned 8-bit stream
// on a bulk-in endpoint. The scope must already carry its runtime firmware
// (flashed by the usual udev/sigrok tooling); Open fails with a hint when
// the device does not enumerate.
package hantek

import (
	"fmt"

	"github.com/google/gousb"
)

const (
	vendorID  = 0x04b5
	productID = 0x6022

	reqSetGainCh1     = 0xe0
	reqSetGainCh2     = 0xe1
	reqSetSampleRate  = 0xe2
	reqTrigger        = 0xe3
	reqSetNumChannels = 0xe4

	bulkInEndpoint = 6

	// skipSamples is the number of leading samples per channel discarded
	// from every acquisition; the first bulk transfer after triggering is
	// unstable on this hardware.
	skipSamples = 2048

	// defaultRange is the highest-gain voltage range (+-0.5V full scale),
	// giving the finest resolution for small measurement signals.
	defaultRange = 10
)

const controlOut = gousb.ControlOut | gousb.ControlVendor | gousb.ControlDevice

// Scope is an open Hantek 6022. Channel 1 is treated as the filter output,
// channel 2 as the drive reference. Not safe for concurrent use; the
// device is a single exclusive resource.
type Scope struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	intf *gousb.Interface
	done func()
	ep   *gousb.InEndpoint

	rangeCh1 int
	rangeCh2 int
	rate     float64
}

// Open finds the scope on the USB bus and prepares both channels at the
// highest-gain range with DC coupling (the device has no coupling relay;
// DC is its native behavior).
func Open() (*Scope, error) {
	ctx := gousb.NewContext()

	dev, err := ctx.OpenDeviceWithVIDPID(vendorID, productID)
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("hantek: opening device: %w", err)
	}

	if dev == nil {
		ctx.Close()
		return nil, fmt.Errorf("hantek: no 6022 found (%04x:%04x); is the firmware loaded?", vendorID, productID)
	}

	if err := dev.SetAutoDetach(true); err != nil {
		dev.Close()
		ctx.Close()

		return nil, fmt.Errorf("hantek: detaching kernel driver: %w", err)
	}

	intf, done, err := dev.DefaultInterface()
	if err != nil {
		dev.Close()
		ctx.Close()

		return nil, fmt.Errorf("hantek: claiming interface: %w", err)
	}

	ep, err := intf.InEndpoint(bulkInEndpoint)
	if err != nil {
		done()
		dev.Close()
		ctx.Close()

		return nil, fmt.Errorf("hantek: opening bulk endpoint: %w", err)
	}

	s := &Scope{
		ctx:      ctx,
		dev:      dev,
		intf:     intf,
		done:     done,
		ep:       ep,
		rangeCh1: defaultRange,
		rangeCh2: defaultRange,
	}

	if err := s.setup(); err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

func (s *Scope) setup() error {
	if err := s.control(reqSetNumChannels, 2); err != nil {
		return fmt.Errorf("hantek: selecting two channels: %w", err)
	}

	if err := s.control(reqSetGainCh1, uint8(s.rangeCh1)); err != nil {
		return fmt.Errorf("hantek: setting channel 1 range: %w", err)
	}

	if err := s.control(reqSetGainCh2, uint8(s.rangeCh2)); err != nil {
		return fmt.Errorf("hantek: setting channel 2 range: %w", err)
	}

	return nil
}

// Close releases the interface, device and USB context.
func (s *Scope) Close() error {
	if s.done != nil {
		s.done()
		s.done = nil
	}

	var err error
	if s.dev != nil {
		err = s.dev.Close()
		s.dev = nil
	}

	if s.ctx != nil {
		if cerr := s.ctx.Close(); err == nil {
			err = cerr
		}

		s.ctx = nil
	}

	return err
}

// Configure selects the smallest supported sample rate at or above the
// requested one and returns the rate in effect.
func (s *Scope) Configure(sampleRate float64) (float64, error) {
	rate := pickSampleRate(sampleRate)

	if err := s.control(reqSetSampleRate, sampleRateID(rate)); err != nil {
		return 0, fmt.Errorf("hantek: setting sample rate: %w", err)
	}

	s.rate = rate

	return rate, nil
}

// Acquire triggers one capture and reads the given number of samples per
// channel, returning channel 1 (filter output) and channel 2 (reference)
// scaled to volts. The leading skipSamples per channel are acquired and
// discarded on top of the requested count.
func (s *Scope) Acquire(samples int) ([]float64, []float64, error) {
	if s.rate <= 0 {
		return nil, nil, fmt.Errorf("hantek: Configure must be called before Acquire")
	}

	if samples <= 0 {
		return nil, nil, fmt.Errorf("hantek: sample count must be positive: %d", samples)
	}

	total := (samples + skipSamples) * 2
	buf := make([]byte, total)

	if err := s.control(reqTrigger, 1); err != nil {
		return nil, nil, fmt.Errorf("hantek: starting acquisition: %w", err)
	}

	read := 0
	for read < total {
		n, err := s.ep.Read(buf[read:])
		if err != nil {
			return nil, nil, fmt.Errorf("hantek: bulk read: %w", err)
		}

		read += n
	}

	if err := s.control(reqTrigger, 0); err != nil {
		return nil, nil, fmt.Errorf("hantek: stopping acquisition: %w", err)
	}

	ch1, ch2 := deinterleave(buf)

	out := scaleSamples(ch1[skipSamples:], s.rangeCh1)
	ref := scaleSamples(ch2[skipSamples:], s.rangeCh2)

	return out, ref, nil
}

func (s *Scope) control(request uint8, value uint8) error {
	_, err := s.dev.Control(controlOut, request, 0, 0, []byte{value})

	return err
}
