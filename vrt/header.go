package vrt

// PacketType is the 4-bit packet-type nibble in the header's first byte.
// Values and names per §4.2's packet type table.
type PacketType uint8

const (
	PacketTypeSignalData          PacketType = 0x0
	PacketTypeSignalDataStreamID  PacketType = 0x1
	PacketTypeContext             PacketType = 0x4
	PacketTypeExtensionContext    PacketType = 0x5
	PacketTypeCommand             PacketType = 0x6
	PacketTypeExtensionCommand    PacketType = 0x7
)

func (t PacketType) supported() bool {
	switch t {
	case PacketTypeSignalData, PacketTypeSignalDataStreamID,
		PacketTypeContext, PacketTypeExtensionContext,
		PacketTypeCommand, PacketTypeExtensionCommand:
		return true
	default:
		return false
	}
}

// hasStreamID reports whether this packet type carries a Stream ID word.
// Only the legacy no-stream-id Signal Data variant omits it.
func (t PacketType) hasStreamID() bool {
	return t != PacketTypeSignalData
}

// TSIMode is the 2-bit Timestamp-Integer mode selector.
type TSIMode uint8

const (
	TSINone TSIMode = 0
	TSIUTC  TSIMode = 1
	TSIGPS  TSIMode = 2
	TSIOther TSIMode = 3
)

// TSFMode is the 2-bit Timestamp-Fractional mode selector.
type TSFMode uint8

const (
	TSFNone             TSFMode = 0
	TSFSampleCount      TSFMode = 1
	TSFRealTimePicosecs TSFMode = 2
	TSFFreeRunningCount TSFMode = 3
)

// Header is the invariant first 32-bit word of every VRT packet.
type Header struct {
	PacketType     PacketType
	ClassIDPresent bool
	TrailerPresent bool
	TSM            bool
	TSI            TSIMode
	TSF            TSFMode
	PacketCount    uint8  // 4 bits, wraps modulo 16
	PacketSize     uint16 // in 32-bit words, includes the header itself
}

const (
	hdrClassIDBit   = 1 << 27
	hdrTrailerBit   = 1 << 26
	hdrReservedBit  = 1 << 25
	hdrTSMBit       = 1 << 24
	hdrTSIShift     = 22
	hdrTSFShift     = 20
	hdrPacketCountShift = 16
)

func decodeHeaderWord(word uint32) Header {
	return Header{
		PacketType:     PacketType(word >> 28),
		ClassIDPresent: word&hdrClassIDBit != 0,
		TrailerPresent: word&hdrTrailerBit != 0,
		TSM:            word&hdrTSMBit != 0,
		TSI:            TSIMode((word >> hdrTSIShift) & 0x3),
		TSF:            TSFMode((word >> hdrTSFShift) & 0x3),
		PacketCount:    uint8((word >> hdrPacketCountShift) & 0xF),
		PacketSize:     uint16(word & 0xFFFF),
	}
}

func (h Header) encodeWord() uint32 {
	word := uint32(h.PacketType&0xF) << 28
	if h.ClassIDPresent {
		word |= hdrClassIDBit
	}
	if h.TrailerPresent {
		word |= hdrTrailerBit
	}
	if h.TSM {
		word |= hdrTSMBit
	}
	word |= uint32(h.TSI&0x3) << hdrTSIShift
	word |= uint32(h.TSF&0x3) << hdrTSFShift
	word |= uint32(h.PacketCount&0xF) << hdrPacketCountShift
	word |= uint32(h.PacketSize)
	return word
}

// ClassID is the 64-bit class identifier record, present only when the
// header's class-id-present flag is set.
type ClassID struct {
	OUI             uint32 // 24 bits
	InfoClassCode   uint16
	PacketClassCode uint16
}

func decodeClassID(r *reader) (ClassID, error) {
	w1, err := r.u32()
	if err != nil {
		return ClassID{}, err
	}
	w2, err := r.u32()
	if err != nil {
		return ClassID{}, err
	}
	return ClassID{
		OUI:             w1 & 0x00FFFFFF,
		InfoClassCode:   uint16(w2 >> 16),
		PacketClassCode: uint16(w2),
	}, nil
}

func (c ClassID) encode(w *writer) {
	w.u32(c.OUI & 0x00FFFFFF)
	w.u32(uint32(c.InfoClassCode)<<16 | uint32(c.PacketClassCode))
}

// Timestamp is the optional integer/fractional timestamp pair. Units of
// FractionalTicks depend on the header's TSF mode.
type Timestamp struct {
	IntegerSeconds  uint32
	FractionalTicks uint64
}

// prefix bundles the header plus its mandatory/optional trailing fields,
// the output of decoding everything up to the packet-type-specific body.
type prefix struct {
	Header    Header
	StreamID  *uint32
	ClassID   *ClassID
	Timestamp *Timestamp
}

func decodePrefix(r *reader) (prefix, error) {
	word, err := r.u32()
	if err != nil {
		return prefix{}, err
	}
	h := decodeHeaderWord(word)
	if !h.PacketType.supported() {
		return prefix{}, errUnsupportedPacketType(h.PacketType)
	}

	p := prefix{Header: h}

	if h.PacketType.hasStreamID() {
		sid, err := r.u32()
		if err != nil {
			return prefix{}, err
		}
		p.StreamID = &sid
	}

	if h.ClassIDPresent {
		cid, err := decodeClassID(r)
		if err != nil {
			return prefix{}, err
		}
		p.ClassID = &cid
	}

	if h.TSI != TSINone || h.TSF != TSFNone {
		var ts Timestamp
		if h.TSI != TSINone {
			secs, err := r.u32()
			if err != nil {
				return prefix{}, err
			}
			ts.IntegerSeconds = secs
		}
		if h.TSF != TSFNone {
			frac, err := r.u64()
			if err != nil {
				return prefix{}, err
			}
			ts.FractionalTicks = frac
		}
		p.Timestamp = &ts
	}

	return p, nil
}

func (p prefix) encode(w *writer) {
	w.u32(p.Header.encodeWord())
	if p.StreamID != nil {
		w.u32(*p.StreamID)
	}
	if p.ClassID != nil {
		p.ClassID.encode(w)
	}
	if p.Timestamp != nil {
		if p.Header.TSI != TSINone {
			w.u32(p.Timestamp.IntegerSeconds)
		}
		if p.Header.TSF != TSFNone {
			w.u64(p.Timestamp.FractionalTicks)
		}
	}
}
