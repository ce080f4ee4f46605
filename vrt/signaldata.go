package vrt

// SignalDataBody is the opaque-payload body used by both the Signal Data
// and Signal Data with Stream ID packet types; the presence or absence of
// the Stream ID word is decided one level up, in the prefix (§4.2).
type SignalDataBody struct {
	Payload []byte
}

// decodeSignalDataBody takes the remainder of the packet's declared size
// (minus any trailing trailer bytes, already excluded by the caller) as an
// opaque payload. Zero-length payloads are valid (§8 boundary behavior).
func decodeSignalDataBody(r *reader, n int) (*SignalDataBody, error) {
	b, err := r.bytes(n)
	if err != nil {
		return nil, err
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return &SignalDataBody{Payload: cp}, nil
}

func (s *SignalDataBody) encode(w *writer) error {
	w.raw(s.Payload)
	return nil
}
