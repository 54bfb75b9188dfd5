package hantek

import "testing"

func TestPickSampleRate(t *testing.T) {
	tests := []struct {
		want    float64
		request float64
	}{
		{20e3, 1},      // below the span clamps to the minimum
		{20e3, 20e3},   // exact match
		{32e3, 25e3},   // rounds up to the next supported rate
		{500e3, 300e3},
		{1e6, 600e3},
		{10e6, 10e6}, // top of the span
		{10e6, 50e6}, // above the span clamps to the maximum
	}

	for _, tt := range tests {
		if got := pickSampleRate(tt.request); got != tt.want {
			t.Errorf("pickSampleRate(%v) = %v, want %v", tt.request, got, tt.want)
		}
	}
}

func TestSampleRateID(t *testing.T) {
	// Below 1 MS/s the device wants round(100 + kS/10), above the plain
	// MS/s value. Every supported rate is pinned; 32, 64 and 128 kS/s are
	// the ones where rounding and truncation differ.
	tests := []struct {
		rate float64
		want uint8
	}{
		{20e3, 102},
		{32e3, 103},
		{50e3, 105},
		{64e3, 106},
		{100e3, 110},
		{128e3, 113},
		{200e3, 120},
		{500e3, 150},
		{1e6, 1},
		{2e6, 2},
		{4e6, 4},
		{8e6, 8},
		{10e6, 10},
	}

	if len(tests) != len(supportedRates) {
		t.Fatalf("table covers %d rates, device supports %d", len(tests), len(supportedRates))
	}

	for i, tt := range tests {
		if tt.rate != supportedRates[i] {
			t.Fatalf("table rate %v does not match supported rate %v", tt.rate, supportedRates[i])
		}

		if got := sampleRateID(tt.rate); got != tt.want {
			t.Errorf("sampleRateID(%v) = %d, want %d", tt.rate, got, tt.want)
		}
	}
}

func TestDeinterleave(t *testing.T) {
	ch1, ch2 := deinterleave([]byte{1, 2, 3, 4, 5, 6})

	wantCh1 := []byte{1, 3, 5}
	wantCh2 := []byte{2, 4, 6}

	for i := range wantCh1 {
		if ch1[i] != wantCh1[i] {
			t.Errorf("ch1[%d] = %d, want %d", i, ch1[i], wantCh1[i])
		}

		if ch2[i] != wantCh2[i] {
			t.Errorf("ch2[%d] = %d, want %d", i, ch2[i], wantCh2[i])
		}
	}
}

func TestScaleSamples(t *testing.T) {
	// Range setting 10 means +-0.5V full scale.
	got := scaleSamples([]byte{128, 0, 255}, 10)

	tests := []struct {
		idx  int
		want float64
	}{
		{0, 0},
		{1, -0.5},
		{2, 0.5 * 127.0 / 128.0},
	}

	const eps = 1e-12

	for _, tt := range tests {
		diff := got[tt.idx] - tt.want
		if diff > eps || diff < -eps {
			t.Errorf("sample %d = %v, want %v", tt.idx, got[tt.idx], tt.want)
		}
	}
}
