package vrt

import "testing"

func TestQFormatRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		q    QFormat
		v    float64
	}{
		{"freq", qFreqHz, 100_000_000},
		{"freq negative offset", qFreqHz, -12_500.5},
		{"gain stage", qGainStage, 31.5},
		{"temperature", qTemperature, -40.25},
		{"angle", qAngle, 179.5},
		{"geo", qGeo, -122.419418},
		{"ecef", qEcef, 6378137.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := tt.q.Encode(tt.v)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			got := tt.q.Decode(raw)
			scale := 1.0 / float64(int64(1)<<uint(tt.q.FracBits))
			if diff := got - tt.v; diff > scale || diff < -scale {
				t.Errorf("round trip: got %v, want %v (within %v)", got, tt.v, scale)
			}
		})
	}
}

func TestQFormatRangeError(t *testing.T) {
	q := qGainStage // Q7.7 signed in 16 bits
	if _, err := q.Encode(1000); err == nil {
		t.Fatal("expected RangeError for out-of-range value")
	} else if e, ok := err.(*Error); !ok || e.Kind != KindRangeError {
		t.Fatalf("expected KindRangeError, got %v", err)
	}
}

func TestQFormatBoundary(t *testing.T) {
	// Q7.7 signed 16-bit: max representable is 2^8 - 2^-7, min is -2^8.
	q := qGainStage
	max := 256.0 - 1.0/128.0
	min := -256.0
	if _, err := q.Encode(max); err != nil {
		t.Errorf("max boundary should encode: %v", err)
	}
	if _, err := q.Encode(min); err != nil {
		t.Errorf("min boundary should encode: %v", err)
	}
	if _, err := q.Encode(max + 1.0/128.0); err == nil {
		t.Error("expected RangeError just above max")
	}
	if _, err := q.Encode(min - 1.0/128.0); err == nil {
		t.Error("expected RangeError just below min")
	}
}

func TestReaderTruncated(t *testing.T) {
	r := newReader([]byte{1, 2, 3})
	if _, err := r.u32(); err == nil {
		t.Fatal("expected Truncated reading u32 from 3 bytes")
	} else if e, ok := err.(*Error); !ok || e.Kind != KindTruncated {
		t.Fatalf("expected KindTruncated, got %v", err)
	}
}

func TestWriterPad(t *testing.T) {
	w := newWriter()
	w.raw([]byte{1, 2, 3})
	w.pad()
	if len(w.b)%4 != 0 {
		t.Fatalf("expected word-aligned length, got %d", len(w.b))
	}
	if len(w.b) != 4 {
		t.Fatalf("expected padding to 4 bytes, got %d", len(w.b))
	}
}
