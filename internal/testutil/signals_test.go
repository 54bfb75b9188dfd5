package testutil

import (
	"math"
	"testing"
)

func TestSine(t *testing.T) {
	s := Sine(1000, 48000, 1.0, 48)
	if len(s) != 48 {
		t.Fatalf("len = %d, want 48", len(s))
	}
	// First sample of a sine at phase 0 should be 0.
	if math.Abs(s[0]) > 1e-15 {
		t.Fatalf("s[0] = %v, want 0", s[0])
	}
	// All values in [-1, 1].
	for i, v := range s {
		if v < -1 || v > 1 {
			t.Fatalf("s[%d] = %v out of range", i, v)
		}
	}
}

func TestSineReproducible(t *testing.T) {
	a := Sine(440, 44100, 0.5, 100)
	b := Sine(440, 44100, 0.5, 100)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("non-deterministic at index %d", i)
		}
	}
}

func TestSineWithPhase(t *testing.T) {
	// A quarter-turn phase offset turns sine into cosine.
	s := SineWithPhase(100, 10000, 1.0, math.Pi/2, 10)
	if math.Abs(s[0]-1) > 1e-15 {
		t.Fatalf("s[0] = %v, want 1", s[0])
	}
}

func TestNoise(t *testing.T) {
	a := Noise(42, 1.0, 64)
	b := Noise(42, 1.0, 64)
	if len(a) != 64 {
		t.Fatalf("len = %d, want 64", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("noise not deterministic at index %d", i)
		}
	}
	for i, v := range a {
		if v < -1 || v > 1 {
			t.Fatalf("a[%d] = %v out of range", i, v)
		}
	}
}

func TestNoiseDifferentSeeds(t *testing.T) {
	a := Noise(1, 1.0, 16)
	b := Noise(2, 1.0, 16)
	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("different seeds produced identical noise")
	}
}

func TestDC(t *testing.T) {
	d := DC(0.5, 4)
	for i, v := range d {
		if v != 0.5 {
			t.Fatalf("DC[%d] = %v, want 0.5", i, v)
		}
	}
}

func TestZeros(t *testing.T) {
	z := Zeros(3)
	if len(z) != 3 {
		t.Fatalf("len = %d, want 3", len(z))
	}
	for i, v := range z {
		if v != 0 {
			t.Fatalf("Zeros[%d] = %v, want 0", i, v)
		}
	}
}
