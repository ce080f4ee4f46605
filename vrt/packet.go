package vrt

import "fmt"

// Body is implemented by the three packet-type-specific payload shapes:
// *SignalDataBody, *ContextBody and *CommandBody.
type Body interface {
	encode(w *writer) error
}

// Packet is the facade over one VRT packet: the fixed prefix (header,
// optional stream id/class id/timestamp), a typed body, and an optional
// trailer (§4.7). PacketType is never stored directly on Packet — it is
// always derived from which Body variant is present (and, for Signal
// Data, whether StreamID is set), the same derived-view discipline used
// for CIF bitmaps and the CAM id-enable bits.
type Packet struct {
	Header    Header
	StreamID  *uint32
	ClassID   *ClassID
	Timestamp *Timestamp
	Body      Body
	Trailer   *Trailer
}

// NewSignalData creates a Signal Data packet (no Stream ID word).
func NewSignalData() *Packet {
	return &Packet{Body: &SignalDataBody{}}
}

// NewSignalDataWithStreamID creates a Signal Data with Stream ID packet.
func NewSignalDataWithStreamID(streamID uint32) *Packet {
	return &Packet{StreamID: &streamID, Body: &SignalDataBody{}}
}

// NewContext creates a Context packet with an empty field set.
func NewContext(streamID uint32) *Packet {
	return &Packet{StreamID: &streamID, Body: newContextBody()}
}

// NewExtensionContext creates an Extension Context packet.
func NewExtensionContext(streamID uint32) *Packet {
	b := newContextBody()
	b.Extension = true
	return &Packet{StreamID: &streamID, Body: b}
}

// NewCommand creates a Command packet with an empty Control field set.
func NewCommand(streamID uint32) *Packet {
	return &Packet{StreamID: &streamID, Body: newCommandBody()}
}

// NewExtensionCommand creates an Extension Command packet.
func NewExtensionCommand(streamID uint32) *Packet {
	b := newCommandBody()
	b.Extension = true
	return &Packet{StreamID: &streamID, Body: b}
}

// packetType derives the header's packet-type nibble from the current
// Body variant, never the other way around.
func (p *Packet) packetType() (PacketType, error) {
	switch b := p.Body.(type) {
	case *SignalDataBody:
		if p.StreamID != nil {
			return PacketTypeSignalDataStreamID, nil
		}
		return PacketTypeSignalData, nil
	case *ContextBody:
		if b.Extension {
			return PacketTypeExtensionContext, nil
		}
		return PacketTypeContext, nil
	case *CommandBody:
		if b.Extension {
			return PacketTypeExtensionCommand, nil
		}
		return PacketTypeCommand, nil
	default:
		return 0, errInvalidState("packet has no body")
	}
}

// SetIntegerTimestamp sets the TSI mode and integer-seconds value together,
// the only way to put the packet into a state where TSI != TSINone.
func (p *Packet) SetIntegerTimestamp(mode TSIMode, seconds uint32) {
	if mode == TSINone {
		p.ClearIntegerTimestamp()
		return
	}
	p.Header.TSI = mode
	if p.Timestamp == nil {
		p.Timestamp = &Timestamp{}
	}
	p.Timestamp.IntegerSeconds = seconds
}

// ClearIntegerTimestamp removes the integer-seconds component.
func (p *Packet) ClearIntegerTimestamp() {
	p.Header.TSI = TSINone
	if p.Timestamp != nil && p.Header.TSF == TSFNone {
		p.Timestamp = nil
	}
}

// SetFractionalTimestamp sets the TSF mode and fractional-ticks value together.
func (p *Packet) SetFractionalTimestamp(mode TSFMode, ticks uint64) {
	if mode == TSFNone {
		p.ClearFractionalTimestamp()
		return
	}
	p.Header.TSF = mode
	if p.Timestamp == nil {
		p.Timestamp = &Timestamp{}
	}
	p.Timestamp.FractionalTicks = ticks
}

// ClearFractionalTimestamp removes the fractional-ticks component.
func (p *Packet) ClearFractionalTimestamp() {
	p.Header.TSF = TSFNone
	if p.Timestamp != nil && p.Header.TSI == TSINone {
		p.Timestamp = nil
	}
}

// Decode parses b into a Packet. The buffer's total length must match the
// header's declared packet_size exactly (in 32-bit words): a buffer shorter
// than that is reported as Truncated, and extra bytes beyond it or a body
// whose decoded length disagrees with it are reported as MisalignedBuffer
// rather than silently ignored, since that declared size is the contract
// every other field length is measured against (§4.3, §8 property 4).
func Decode(b []byte) (*Packet, error) {
	r := newReader(b)
	pfx, err := decodePrefix(r)
	if err != nil {
		return nil, err
	}

	total := int(pfx.Header.PacketSize) * 4
	if total < r.off {
		return nil, errMisaligned("packet_size smaller than the fixed prefix it must contain")
	}
	if total > len(b) {
		return nil, errTruncated("buffer shorter than packet_size declares")
	}

	trailerLen := 0
	if pfx.Header.TrailerPresent {
		trailerLen = 4
	}
	bodyEnd := total - trailerLen
	if bodyEnd < r.off {
		return nil, errMisaligned("packet_size too small to hold a trailer")
	}

	var body Body
	switch pfx.Header.PacketType {
	case PacketTypeSignalData, PacketTypeSignalDataStreamID:
		b, err := decodeSignalDataBody(r, bodyEnd-r.off)
		if err != nil {
			return nil, err
		}
		body = b
	case PacketTypeContext, PacketTypeExtensionContext:
		cb, err := decodeContextBody(r)
		if err != nil {
			return nil, err
		}
		cb.Extension = pfx.Header.PacketType == PacketTypeExtensionContext
		body = cb
	case PacketTypeCommand, PacketTypeExtensionCommand:
		cb, err := decodeCommandBody(r)
		if err != nil {
			return nil, err
		}
		cb.Extension = pfx.Header.PacketType == PacketTypeExtensionCommand
		body = cb
	default:
		return nil, errUnsupportedPacketType(pfx.Header.PacketType)
	}

	if r.off != bodyEnd {
		return nil, errMisaligned("decoded body length does not match packet_size")
	}

	var trailer *Trailer
	if pfx.Header.TrailerPresent {
		trailer, err = decodeTrailer(r)
		if err != nil {
			return nil, err
		}
	}

	if r.off != total || len(b) != total {
		return nil, errMisaligned("trailing bytes beyond packet_size")
	}

	return &Packet{
		Header:    pfx.Header,
		StreamID:  pfx.StreamID,
		ClassID:   pfx.ClassID,
		Timestamp: pfx.Timestamp,
		Body:      body,
		Trailer:   trailer,
	}, nil
}

// build derives a consistent header (packet type, class-id/trailer
// presence bits, TSI/TSF forced to None when no Timestamp is set, and
// packet_size from the measured length) and serializes the full packet,
// returning both the bytes and the derived header. The header word inside
// the returned bytes still carries the packet_size stored in p.Header going
// in; only the returned Header holds the recomputed value, which is why
// Encode refreshes first and then builds again. The byte length produced
// here does not depend on the packet_size already stored, which is what
// makes RefreshSize idempotent.
func (p *Packet) build() ([]byte, Header, error) {
	pt, err := p.packetType()
	if err != nil {
		return nil, Header{}, err
	}

	h := p.Header
	h.PacketType = pt
	h.ClassIDPresent = p.ClassID != nil
	h.TrailerPresent = p.Trailer != nil
	if p.Timestamp == nil {
		h.TSI = TSINone
		h.TSF = TSFNone
	}

	pfx := prefix{Header: h, StreamID: p.StreamID, ClassID: p.ClassID, Timestamp: p.Timestamp}

	w := newWriter()
	pfx.encode(w)
	if err := p.Body.encode(w); err != nil {
		return nil, Header{}, err
	}
	if p.Trailer != nil {
		p.Trailer.encode(w)
	}

	if len(w.b)%4 != 0 {
		return nil, Header{}, errMisaligned("encoded packet is not word-aligned")
	}
	h.PacketSize = uint16(len(w.b) / 4)

	return w.b, h, nil
}

// RefreshSize recomputes header flags (packet type, class-id/trailer
// presence) and packet_size from the packet's current contents. It is
// idempotent: calling it twice in a row produces the same Header both
// times, since the bytes it measures never depend on the previously
// stored packet_size (§4.7).
func (p *Packet) RefreshSize() error {
	_, h, err := p.build()
	if err != nil {
		return err
	}
	p.Header = h
	return nil
}

// Encode refreshes the header (see RefreshSize) and serializes the
// packet to wire bytes.
func (p *Packet) Encode() ([]byte, error) {
	if err := p.RefreshSize(); err != nil {
		return nil, err
	}
	b, h, err := p.build()
	if err != nil {
		return nil, err
	}
	p.Header = h
	return b, nil
}

// PacketType reports the packet type this packet would encode as.
func (p *Packet) PacketType() (PacketType, error) {
	return p.packetType()
}

// fieldSet returns the FieldSet this packet's body exposes: a Context
// body's Fields, or a Command body's embedded Control field set when it
// carries a Control sub-payload. Any other body (Signal Data, or a
// Command holding an Ack/Cancel sub-payload) has no field set to address.
func (p *Packet) fieldSet() (*FieldSet, error) {
	switch b := p.Body.(type) {
	case *ContextBody:
		return b.Fields, nil
	case *CommandBody:
		if b.Kind() != KindControl {
			return nil, errInvalidState("command body does not carry a Control field set")
		}
		return b.Control, nil
	default:
		return nil, errInvalidState(fmt.Sprintf("%T has no addressable field set", p.Body))
	}
}

// BandwidthHz reports the bandwidth field, if present.
func (p *Packet) BandwidthHz() (float64, bool) {
	fs, err := p.fieldSet()
	if err != nil || fs.Bandwidth == nil {
		return 0, false
	}
	return *fs.Bandwidth, true
}

// SetBandwidthHz sets the bandwidth field.
func (p *Packet) SetBandwidthHz(v float64) error {
	fs, err := p.fieldSet()
	if err != nil {
		return err
	}
	fs.Bandwidth = &v
	return nil
}

// ClearBandwidthHz removes the bandwidth field.
func (p *Packet) ClearBandwidthHz() error {
	fs, err := p.fieldSet()
	if err != nil {
		return err
	}
	fs.Bandwidth = nil
	return nil
}

// RFReferenceFrequencyHz reports the RF reference frequency field, if present.
func (p *Packet) RFReferenceFrequencyHz() (float64, bool) {
	fs, err := p.fieldSet()
	if err != nil || fs.RFRefFreq == nil {
		return 0, false
	}
	return *fs.RFRefFreq, true
}

// SetRFReferenceFrequencyHz sets the RF reference frequency field.
func (p *Packet) SetRFReferenceFrequencyHz(v float64) error {
	fs, err := p.fieldSet()
	if err != nil {
		return err
	}
	fs.RFRefFreq = &v
	return nil
}

// ClearRFReferenceFrequencyHz removes the RF reference frequency field.
func (p *Packet) ClearRFReferenceFrequencyHz() error {
	fs, err := p.fieldSet()
	if err != nil {
		return err
	}
	fs.RFRefFreq = nil
	return nil
}

// SampleRateHz reports the sample rate field, if present.
func (p *Packet) SampleRateHz() (float64, bool) {
	fs, err := p.fieldSet()
	if err != nil || fs.SampleRate == nil {
		return 0, false
	}
	return *fs.SampleRate, true
}

// SetSampleRateHz sets the sample rate field.
func (p *Packet) SetSampleRateHz(v float64) error {
	fs, err := p.fieldSet()
	if err != nil {
		return err
	}
	fs.SampleRate = &v
	return nil
}

// ClearSampleRateHz removes the sample rate field.
func (p *Packet) ClearSampleRateHz() error {
	fs, err := p.fieldSet()
	if err != nil {
		return err
	}
	fs.SampleRate = nil
	return nil
}

// Fields enumerates the present fields of the packet's addressable field
// set, per §4.4's display surface and §6's named-field view.
func (p *Packet) Fields() ([]FieldPresence, error) {
	fs, err := p.fieldSet()
	if err != nil {
		return nil, err
	}
	return fs.Fields(), nil
}

// Payload returns a Signal Data body's opaque payload bytes.
func (p *Packet) Payload() ([]byte, error) {
	sd, ok := p.Body.(*SignalDataBody)
	if !ok {
		return nil, errInvalidState("packet body is not Signal Data")
	}
	return sd.Payload, nil
}

// SetPayload sets a Signal Data body's opaque payload bytes.
func (p *Packet) SetPayload(b []byte) error {
	sd, ok := p.Body.(*SignalDataBody)
	if !ok {
		return errInvalidState("packet body is not Signal Data")
	}
	sd.Payload = b
	return nil
}

// Command returns the packet's CommandBody, if it has one.
func (p *Packet) Command() (*CommandBody, bool) {
	c, ok := p.Body.(*CommandBody)
	return c, ok
}

// Context returns the packet's ContextBody, if it has one.
func (p *Packet) Context() (*ContextBody, bool) {
	c, ok := p.Body.(*ContextBody)
	return c, ok
}

func (p *Packet) String() string {
	pt, _ := p.packetType()
	switch b := p.Body.(type) {
	case *ContextBody:
		return fmt.Sprintf("Packet{type=%#x %s}", uint8(pt), b.String())
	default:
		return fmt.Sprintf("Packet{type=%#x size=%d}", uint8(pt), p.Header.PacketSize)
	}
}
