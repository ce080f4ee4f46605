package rtc

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/vita49go/vrtbridge/vrt"
)

var errShort = errors.New("vita: truncated packet")

// vitaView is the minimal view the demux needs out of a decoded VRT
// packet: stream id, class code and payload bytes.
type vitaView struct {
	TSI        uint8
	TSF        uint8
	HasClassID bool
	HasTrailer bool

	StreamID  uint32
	OUI       uint32
	ClassInfo uint16
	ClassCode uint16

	IntegerTimestamp    uint32
	FractionalTimestamp uint64

	Payload []byte
}

// parseVITA decodes one UDP datagram as a VRT packet. Radios in practice
// pad datagrams beyond the header's declared packet_size more often than
// they truncate, so the declared size (not the datagram length) is what
// gets handed to vrt.Decode — trailing padding is trimmed first, and a
// genuinely short datagram still surfaces as a Truncated error.
func parseVITA(b []byte) (vitaView, error) {
	if len(b) < 4 {
		return vitaView{}, errShort
	}
	declaredWords := binary.BigEndian.Uint32(b[0:4]) & 0xFFFF
	declaredBytes := int(declaredWords) * 4
	if declaredBytes > 0 && declaredBytes <= len(b) {
		b = b[:declaredBytes]
	}

	pkt, err := vrt.Decode(b)
	if err != nil {
		return vitaView{}, fmt.Errorf("vita: %w", err)
	}

	v := vitaView{
		TSI:        uint8(pkt.Header.TSI),
		TSF:        uint8(pkt.Header.TSF),
		HasClassID: pkt.ClassID != nil,
		HasTrailer: pkt.Trailer != nil,
	}
	if pkt.StreamID != nil {
		v.StreamID = *pkt.StreamID
	}
	if pkt.ClassID != nil {
		v.OUI = pkt.ClassID.OUI
		v.ClassInfo = pkt.ClassID.InfoClassCode
		v.ClassCode = pkt.ClassID.PacketClassCode
	}
	if pkt.Timestamp != nil {
		v.IntegerTimestamp = pkt.Timestamp.IntegerSeconds
		v.FractionalTimestamp = pkt.Timestamp.FractionalTicks
	}
	if payload, err := pkt.Payload(); err == nil {
		v.Payload = payload
	}

	return v, nil
}

func (v vitaView) String() string {
	return fmt.Sprintf("VITA{stream=0x%08X class=0x%04X tsi=%d tsf=%d c=%v t=%v len=%d}",
		v.StreamID, v.ClassCode, v.TSI, v.TSF, v.HasClassID, v.HasTrailer, len(v.Payload))
}
