package vrt

import "testing"

// TestIndicatorCoherence is §8 property 3: every present field has its
// indicator bit set, and no absent field's bit is set, across a mix of
// CIF0 and CIF1 fields.
func TestIndicatorCoherence(t *testing.T) {
	bw := 5_000_000.0
	fs := &FieldSet{Bandwidth: &bw}
	tilt, ellip := 10.0, 20.0
	fs.Polarization = &Polarization{TiltDeg: tilt, EllipticityDeg: ellip}

	cif0 := fs.cif0Word()
	if cif0&(1<<bitBandwidth) == 0 {
		t.Error("bandwidth present but bit clear")
	}
	if cif0&(1<<bitCIF1Enable) == 0 {
		t.Error("CIF1 field present but CIF1 enable bit clear")
	}
	if cif0&(1<<bitRFRefFreq) != 0 {
		t.Error("rf_ref_freq absent but bit set")
	}

	cif1 := fs.cif1Word()
	if cif1&(1<<bitPolarization) == 0 {
		t.Error("polarization present but bit clear")
	}
	if cif1&(1<<bitPointingVector) != 0 {
		t.Error("pointing vector absent but bit set")
	}
}

func TestFieldSetRoundTripCIF1(t *testing.T) {
	phase := 12.5
	fs := &FieldSet{
		PhaseOffsetDeg: &phase,
		Polarization:   &Polarization{TiltDeg: 1, EllipticityDeg: -1},
		PointingVector: &PointingVector{AzimuthDeg: 90, ElevationDeg: 45},
		BeamWidths:     &BeamWidths{HorizontalDeg: 3, VerticalDeg: 5},
	}

	w := newWriter()
	if err := fs.encode(w); err != nil {
		t.Fatalf("encode: %v", err)
	}

	r := newReader(w.b)
	got, err := decodeFieldSet(r)
	if err != nil {
		t.Fatalf("decodeFieldSet: %v", err)
	}
	if got.PhaseOffsetDeg == nil || *got.PhaseOffsetDeg != phase {
		t.Errorf("phase = %v, want %v", got.PhaseOffsetDeg, phase)
	}
	if got.Polarization == nil || *got.Polarization != *fs.Polarization {
		t.Errorf("polarization = %+v, want %+v", got.Polarization, fs.Polarization)
	}
	if got.PointingVector == nil || *got.PointingVector != *fs.PointingVector {
		t.Errorf("pointing vector = %+v, want %+v", got.PointingVector, fs.PointingVector)
	}
	if got.BeamWidths == nil || *got.BeamWidths != *fs.BeamWidths {
		t.Errorf("beam widths = %+v, want %+v", got.BeamWidths, fs.BeamWidths)
	}
}

func TestCIF2EnableIsUnsupported(t *testing.T) {
	w := newWriter()
	w.u32(1 << bitCIF2Enable) // CIF0: only CIF2 enable set
	w.u32(1)                  // non-empty CIF2 word

	_, err := decodeFieldSet(newReader(w.b))
	if err == nil {
		t.Fatal("expected an error for CIF2 enable")
	}
	e, ok := err.(*Error)
	if !ok || e.Kind != KindUnsupportedField {
		t.Fatalf("expected KindUnsupportedField, got %v", err)
	}
}

func TestGPSASCIIRoundTripWithPadding(t *testing.T) {
	g := GPSASCII{OUI: 0x001122, Text: "GPRMC"} // 5 bytes, needs 3 bytes padding
	w := newWriter()
	g.encode(w)
	if len(w.b)%4 != 0 {
		t.Fatalf("expected word-aligned encoding, got %d bytes", len(w.b))
	}

	got, err := decodeGPSASCII(newReader(w.b))
	if err != nil {
		t.Fatalf("decodeGPSASCII: %v", err)
	}
	if got.Text != g.Text || got.OUI != g.OUI {
		t.Errorf("got %+v, want %+v", got, g)
	}
}

func TestAssociationListsRoundTrip(t *testing.T) {
	a := AssociationLists{
		Source:              []uint32{1, 2, 3},
		System:              []uint32{4},
		VectorComponent:     nil,
		AsynchronousChannel: []uint32{5, 6},
	}
	w := newWriter()
	a.encode(w)

	got, err := decodeAssociationLists(newReader(w.b))
	if err != nil {
		t.Fatalf("decodeAssociationLists: %v", err)
	}
	if len(got.Source) != 3 || len(got.System) != 1 || len(got.VectorComponent) != 0 || len(got.AsynchronousChannel) != 2 {
		t.Errorf("got %+v", got)
	}
}
