package vrt

import "fmt"

// View is the optional named-field projection (§6): a flat map keyed by
// the same field names the display surface and the wire spec use, e.g.
// "bandwidth_hz", "cif0", "payload.context.rf_ref_freq_hz". It is a pure
// function of the in-memory model, never the wire form, and carries no
// behavior of its own — a caller wanting JSON marshals the map directly.
type View map[string]any

// View projects a packet to its named-field tree. Header fields are
// always present; body fields are namespaced under "payload.<kind>.",
// mirroring how the wire groups them under the packet's typed body.
func (p *Packet) View() (View, error) {
	pt, err := p.packetType()
	if err != nil {
		return nil, err
	}

	v := View{
		"header.packet_type":  pt,
		"header.packet_size":  p.Header.PacketSize,
		"header.packet_count": p.Header.PacketCount,
		"header.tsm":          p.Header.TSM,
		"header.tsi":          p.Header.TSI,
		"header.tsf":          p.Header.TSF,
	}

	if p.StreamID != nil {
		v["stream_id"] = *p.StreamID
	}
	if p.ClassID != nil {
		v["class_id.oui"] = p.ClassID.OUI
		v["class_id.information_class_code"] = p.ClassID.InfoClassCode
		v["class_id.packet_class_code"] = p.ClassID.PacketClassCode
	}
	if p.Timestamp != nil {
		if p.Header.TSI != TSINone {
			v["timestamp.integer_seconds"] = p.Timestamp.IntegerSeconds
		}
		if p.Header.TSF != TSFNone {
			v["timestamp.fractional_ticks"] = p.Timestamp.FractionalTicks
		}
	}

	switch b := p.Body.(type) {
	case *SignalDataBody:
		v["payload.signal_data.length"] = len(b.Payload)
	case *ContextBody:
		prefix := "payload.context."
		if b.Extension {
			prefix = "payload.extension_context."
		}
		v[prefix+"cif0"] = fmt.Sprintf("%#08x", b.Fields.cif0Word())
		for _, fp := range b.Fields.Fields() {
			v[prefix+fp.Name] = fp.Value
		}
	case *CommandBody:
		prefix := "payload.command."
		if b.Extension {
			prefix = "payload.extension_command."
		}
		v[prefix+"kind"] = b.Kind().String()
		v[prefix+"message_id"] = b.MessageID
		if b.ControlleeID != nil {
			v[prefix+"controllee_id"] = controlIDView(b.ControlleeID)
		}
		if b.ControllerID != nil {
			v[prefix+"controller_id"] = controlIDView(b.ControllerID)
		}
		switch b.Kind() {
		case KindControl:
			v[prefix+"control.cif0"] = fmt.Sprintf("%#08x", b.Control.cif0Word())
			for _, fp := range b.Control.Fields() {
				v[prefix+"control."+fp.Name] = fp.Value
			}
		case KindCancelControl:
			// no further sub-payload
		default:
			v[prefix+"ack.cif0"] = fmt.Sprintf("%#08x", b.Ack.CIF0)
			v[prefix+"ack.statuses"] = b.Ack.Statuses
		}
	}

	if p.Trailer != nil {
		v["trailer.sample_frame"] = p.Trailer.SampleFrame
		if p.Trailer.AssociatedContextPacketCount != nil {
			v["trailer.associated_context_packet_count"] = *p.Trailer.AssociatedContextPacketCount
		}
		for i, ib := range indicatorBits {
			if val := ib.get(p.Trailer.Indicators); val != nil {
				v[fmt.Sprintf("trailer.indicator.%d", i)] = *val
			}
		}
	}

	return v, nil
}

func controlIDView(id *ControlID) any {
	if id.Is128 {
		return id.U128
	}
	return id.U32
}
