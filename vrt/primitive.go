package vrt

import (
	"encoding/binary"
	"math"
)

// reader walks a byte buffer big-endian-field by big-endian-field, tracking
// a plain int offset; every read is range-checked and returns a typed error
// instead of panicking.
type reader struct {
	b   []byte
	off int
}

func newReader(b []byte) *reader { return &reader{b: b} }

func (r *reader) remaining() int { return len(r.b) - r.off }

func (r *reader) need(n int) error {
	if r.remaining() < n {
		return errTruncated("need more bytes than remain in buffer")
	}
	return nil
}

func (r *reader) u8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.b[r.off]
	r.off++
	return v, nil
}

func (r *reader) u16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.b[r.off:])
	r.off += 2
	return v, nil
}

func (r *reader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.b[r.off:])
	r.off += 4
	return v, nil
}

func (r *reader) u64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(r.b[r.off:])
	r.off += 8
	return v, nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	v := r.b[r.off : r.off+n]
	r.off += n
	return v, nil
}

func (r *reader) i32() (int32, error) {
	v, err := r.u32()
	return int32(v), err
}

func (r *reader) i64() (int64, error) {
	v, err := r.u64()
	return int64(v), err
}

func (r *reader) f32() (float32, error) {
	v, err := r.u32()
	return math.Float32frombits(v), err
}

func (r *reader) f64() (float64, error) {
	v, err := r.u64()
	return math.Float64frombits(v), err
}

// writer accumulates big-endian fields into a growing byte slice.
type writer struct {
	b []byte
}

func newWriter() *writer { return &writer{} }

func (w *writer) u8(v uint8) { w.b = append(w.b, v) }

func (w *writer) u16(v uint16) {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	w.b = append(w.b, tmp[:]...)
}

func (w *writer) u32(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	w.b = append(w.b, tmp[:]...)
}

func (w *writer) u64(v uint64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	w.b = append(w.b, tmp[:]...)
}

func (w *writer) i32(v int32) { w.u32(uint32(v)) }
func (w *writer) i64(v int64) { w.u64(uint64(v)) }
func (w *writer) f32(v float32) { w.u32(math.Float32bits(v)) }
func (w *writer) f64(v float64) { w.u64(math.Float64bits(v)) }

func (w *writer) raw(b []byte) { w.b = append(w.b, b...) }

// pad appends zero bytes until len(w.b) is a multiple of 4 (word alignment,
// required of every variable-length record by the wire format).
func (w *writer) pad() {
	for len(w.b)%4 != 0 {
		w.b = append(w.b, 0)
	}
}

// QFormat is a fixed-point encoding parameterized by total bit width and
// fractional bit count, per ANSI/VITA-49.2-2017 §9.1 (fixed-point format).
// The table of (field name, QFormat) pairs below is the declarative source
// of truth the code-generation macro in the reference source would have
// produced accessors from; we hand-write the handful of accessors instead,
// each directly citing its entry.
type QFormat struct {
	TotalBits int
	FracBits  int
	Signed    bool
}

// Encode converts a real value to its two's-complement (or unsigned) raw
// integer representation, rounding toward zero, per §4.1.
func (q QFormat) Encode(v float64) (uint64, error) {
	scale := math.Ldexp(1, q.FracBits)
	scaled := math.Trunc(v * scale)

	if q.Signed {
		min := -math.Ldexp(1, q.TotalBits-1)
		max := math.Ldexp(1, q.TotalBits-1) - 1
		if scaled < min || scaled > max {
			return 0, errRange("value out of Q-format range")
		}
		raw := int64(scaled)
		mask := uint64(1)<<uint(q.TotalBits) - 1
		if q.TotalBits == 64 {
			mask = ^uint64(0)
		}
		return uint64(raw) & mask, nil
	}

	max := math.Ldexp(1, q.TotalBits) - 1
	if scaled < 0 || scaled > max {
		return 0, errRange("value out of Q-format range")
	}
	return uint64(scaled), nil
}

// Decode reverses Encode: raw holds exactly TotalBits of meaningful data,
// right-justified in the uint64.
func (q QFormat) Decode(raw uint64) float64 {
	scale := math.Ldexp(1, q.FracBits)
	if !q.Signed {
		return float64(raw) / scale
	}
	signed := signExtend(raw, q.TotalBits)
	return float64(signed) / scale
}

// signExtend interprets the low `bits` bits of raw as a two's-complement
// integer and sign-extends it to a full int64.
func signExtend(raw uint64, bits int) int64 {
	if bits >= 64 {
		return int64(raw)
	}
	shift := uint(64 - bits)
	return int64(raw<<shift) >> shift
}

// Named Q-format table driving every fixed-point field in this package.
// This table IS the spec for the widths and radix points involved; adding a
// new Q-format field means adding one entry here, not hand-rolled arithmetic.
var (
	// qFreqHz covers frequency- and bandwidth-like fields: Q44.20 in 64 bits.
	// if_ref_freq_hz uses the identical format to rf_ref_freq_hz.
	qFreqHz = QFormat{TotalBits: 64, FracBits: 20, Signed: true}
	// qGainStage is one 16-bit stage of a two-stage gain word: Q7.7.
	qGainStage = QFormat{TotalBits: 16, FracBits: 7, Signed: true}
	// qTemperature is Q9.6 in 16 bits with sign, per §4.1.
	qTemperature = QFormat{TotalBits: 16, FracBits: 6, Signed: true}
	// qReferenceLevel is a 16-bit Q7.7 dBm value, stored in the low
	// half-word of a 32-bit field (upper half-word reserved).
	qReferenceLevel = QFormat{TotalBits: 16, FracBits: 7, Signed: true}
	// qAngle covers azimuth/elevation/pointing-vector style angles: Q9.7 in
	// 16 bits (degrees), two packed per 32-bit word.
	qAngle = QFormat{TotalBits: 16, FracBits: 7, Signed: true}
	// qGeo covers latitude/longitude/heading/track-angle style degree
	// fields used in the geolocation (formatted GPS/INS) record: Q9.22 in
	// 32 bits, per VITA-49.2's formatted-geolocation field table.
	qGeo = QFormat{TotalBits: 32, FracBits: 22, Signed: true}
	// qEcef covers ECEF/relative-ephemeris position and velocity
	// components: Q-format with meter/second resolution in 32 bits.
	qEcef = QFormat{TotalBits: 32, FracBits: 5, Signed: true}
)
