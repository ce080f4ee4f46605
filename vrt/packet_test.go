package vrt

import (
	"bytes"
	"testing"
)

// TestContextBandwidthAndRFRefFreq is the literal S1 scenario: a context
// packet with stream id, rf_ref_freq_hz and bandwidth_hz set round-trips
// exactly and leaves only the expected CIF0 bits set. Bit positions here
// follow the DESIGN.md Open Question resolution (bandwidth=29,
// rf_ref_freq=27, matching ANSI/VITA-49.2-2017's own CIF0 table) rather
// than the illustrative numbers in the distilled field table.
func TestContextBandwidthAndRFRefFreq(t *testing.T) {
	p := NewContext(0xDEADBEEF)
	if err := p.SetRFReferenceFrequencyHz(100_000_000); err != nil {
		t.Fatalf("SetRFReferenceFrequencyHz: %v", err)
	}
	if err := p.SetBandwidthHz(8_000_000); err != nil {
		t.Fatalf("SetBandwidthHz: %v", err)
	}

	b, err := p.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	bw, ok := got.BandwidthHz()
	if !ok || bw != 8_000_000 {
		t.Errorf("bandwidth_hz = %v, %v; want 8000000, true", bw, ok)
	}
	rf, ok := got.RFReferenceFrequencyHz()
	if !ok || rf != 100_000_000 {
		t.Errorf("rf_ref_freq_hz = %v, %v; want 100000000, true", rf, ok)
	}
	if got.StreamID == nil || *got.StreamID != 0xDEADBEEF {
		t.Errorf("stream id = %v, want 0xDEADBEEF", got.StreamID)
	}

	cb, ok := got.Context()
	if !ok {
		t.Fatal("expected a ContextBody")
	}
	cif0 := cb.Fields.cif0Word()
	wantSet := uint32(1<<bitBandwidth | 1<<bitRFRefFreq)
	if cif0&wantSet != wantSet {
		t.Errorf("cif0 = %#08x, missing expected bits %#08x", cif0, wantSet)
	}
	if cif0&^wantSet != 0 {
		t.Errorf("cif0 = %#08x, unexpected extra bits set", cif0)
	}
}

// TestSignalDataSizeEquation is the literal S2 scenario.
func TestSignalDataSizeEquation(t *testing.T) {
	p := NewSignalDataWithStreamID(0xDEADBEEF)
	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if err := p.SetPayload(payload); err != nil {
		t.Fatalf("SetPayload: %v", err)
	}

	b, err := p.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(b) != 16 {
		t.Errorf("encoded length = %d, want 16", len(b))
	}
	if p.Header.PacketSize != 4 {
		t.Errorf("packet_size = %d, want 4", p.Header.PacketSize)
	}

	got, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	gotPayload, err := got.Payload()
	if err != nil {
		t.Fatalf("Payload: %v", err)
	}
	if !bytes.Equal(gotPayload, payload) {
		t.Errorf("payload = %v, want %v", gotPayload, payload)
	}
}

// TestDecodeTruncated is the literal S4 scenario.
func TestDecodeTruncated(t *testing.T) {
	_, err := Decode([]byte{0, 1, 2})
	if err == nil {
		t.Fatal("expected an error decoding a 3-byte buffer")
	}
	e, ok := err.(*Error)
	if !ok || e.Kind != KindTruncated {
		t.Fatalf("expected KindTruncated, got %v", err)
	}
}

// TestDecodeUnsupportedPacketType is the literal S5 scenario.
func TestDecodeUnsupportedPacketType(t *testing.T) {
	w := newWriter()
	w.u32(uint32(0xF) << 28) // packet type 1111, packet_size 0
	_, err := Decode(w.b)
	if err == nil {
		t.Fatal("expected an error for packet type 0xF")
	}
	e, ok := err.(*Error)
	if !ok || e.Kind != KindUnsupportedPacketType {
		t.Fatalf("expected KindUnsupportedPacketType, got %v", err)
	}
}

// TestBandwidthToggleShrinksEncodedLength is the literal S6 scenario.
func TestBandwidthToggleShrinksEncodedLength(t *testing.T) {
	p := NewContext(1)
	if err := p.SetBandwidthHz(1_000_000); err != nil {
		t.Fatalf("SetBandwidthHz: %v", err)
	}
	withBW, err := p.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	cb, _ := p.Context()
	if cb.Fields.cif0Word()&(1<<bitBandwidth) == 0 {
		t.Fatal("expected bandwidth bit set")
	}

	if err := p.ClearBandwidthHz(); err != nil {
		t.Fatalf("ClearBandwidthHz: %v", err)
	}
	withoutBW, err := p.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if cb.Fields.cif0Word()&(1<<bitBandwidth) != 0 {
		t.Fatal("expected bandwidth bit clear")
	}

	if len(withBW)-len(withoutBW) != 8 {
		t.Errorf("length delta = %d, want 8", len(withBW)-len(withoutBW))
	}
}

// TestRefreshSizeIdempotent is the §8 property 2 tripwire: calling
// RefreshSize twice must produce the same header both times.
func TestRefreshSizeIdempotent(t *testing.T) {
	p := NewContext(42)
	if err := p.SetSampleRateHz(48_000); err != nil {
		t.Fatalf("SetSampleRateHz: %v", err)
	}

	if err := p.RefreshSize(); err != nil {
		t.Fatalf("RefreshSize (1st): %v", err)
	}
	h1 := p.Header

	if err := p.RefreshSize(); err != nil {
		t.Fatalf("RefreshSize (2nd): %v", err)
	}
	h2 := p.Header

	if h1 != h2 {
		t.Errorf("RefreshSize not idempotent: %+v != %+v", h1, h2)
	}
}

// TestHeaderSizeEquation is §8 property 4: len(encode(p)) == packet_size*4
// for every packet this suite constructs.
func TestHeaderSizeEquation(t *testing.T) {
	packets := []*Packet{
		NewSignalData(),
		NewSignalDataWithStreamID(7),
		NewContext(7),
		NewExtensionContext(7),
		NewCommand(7),
	}
	for i, p := range packets {
		b, err := p.Encode()
		if err != nil {
			t.Fatalf("packet %d: Encode: %v", i, err)
		}
		if len(b) != int(p.Header.PacketSize)*4 {
			t.Errorf("packet %d: len(b)=%d, packet_size*4=%d", i, len(b), int(p.Header.PacketSize)*4)
		}
	}
}

// TestRoundTripIdentity is §8 property 1: decoding then re-encoding a
// packet reproduces the original bytes exactly.
func TestRoundTripIdentity(t *testing.T) {
	p := NewContext(0x1234)
	_ = p.SetBandwidthHz(5_000_000)
	_ = p.SetSampleRateHz(2_000_000)
	p.SetIntegerTimestamp(TSIUTC, 1700000000)
	original, err := p.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := Decode(original)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	reencoded, err := decoded.Encode()
	if err != nil {
		t.Fatalf("re-Encode: %v", err)
	}
	if !bytes.Equal(original, reencoded) {
		t.Errorf("round trip mismatch:\n  original: % x\n  reencoded: % x", original, reencoded)
	}
}

// TestZeroLengthSignalDataPayload covers the explicit boundary behavior.
func TestZeroLengthSignalDataPayload(t *testing.T) {
	p := NewSignalDataWithStreamID(1)
	b, err := p.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	payload, err := got.Payload()
	if err != nil {
		t.Fatalf("Payload: %v", err)
	}
	if len(payload) != 0 {
		t.Errorf("expected zero-length payload, got %d bytes", len(payload))
	}
}

// TestClassIDAndTrailerPresence exercises 2 of the 8 minimum
// class-id/trailer/CIF present-absent combinations the boundary
// behaviors call for.
func TestClassIDAndTrailerPresence(t *testing.T) {
	p := NewSignalDataWithStreamID(1)
	p.ClassID = &ClassID{OUI: 0x00123456, InfoClassCode: 1, PacketClassCode: 2}
	p.Trailer = &Trailer{SampleFrame: SampleFrameFirst}
	_ = p.SetPayload([]byte{9, 9, 9, 9})

	b, err := p.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !p.Header.ClassIDPresent || !p.Header.TrailerPresent {
		t.Fatal("expected both class-id and trailer present bits set")
	}

	got, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.ClassID == nil || got.ClassID.OUI != 0x00123456 {
		t.Errorf("class id = %+v", got.ClassID)
	}
	if got.Trailer == nil || got.Trailer.SampleFrame != SampleFrameFirst {
		t.Errorf("trailer = %+v", got.Trailer)
	}

	// Now without either.
	p2 := NewSignalDataWithStreamID(1)
	_ = p2.SetPayload([]byte{9, 9, 9, 9})
	b2, err := p2.Encode()
	if err != nil {
		t.Fatalf("Encode (absent): %v", err)
	}
	got2, err := Decode(b2)
	if err != nil {
		t.Fatalf("Decode (absent): %v", err)
	}
	if got2.ClassID != nil || got2.Trailer != nil {
		t.Errorf("expected neither class id nor trailer, got %+v / %+v", got2.ClassID, got2.Trailer)
	}
}

func TestViewProjection(t *testing.T) {
	p := NewContext(0xAABBCCDD)
	_ = p.SetBandwidthHz(1_000_000)

	v, err := p.View()
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if v["stream_id"] != uint32(0xAABBCCDD) {
		t.Errorf("view stream_id = %v", v["stream_id"])
	}
	if v["payload.context.bandwidth_hz"] != 1_000_000.0 {
		t.Errorf("view bandwidth_hz = %v", v["payload.context.bandwidth_hz"])
	}
}
