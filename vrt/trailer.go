package vrt

// SampleFrameIndicator is the 2-bit multi-sample-frame position selector
// in the trailer (§3).
type SampleFrameIndicator uint8

const (
	SampleFrameSingle SampleFrameIndicator = 0
	SampleFrameFirst  SampleFrameIndicator = 1
	SampleFrameMiddle SampleFrameIndicator = 2
	SampleFrameLast   SampleFrameIndicator = 3
)

// Indicators is the set of per-bit state/event flags the trailer can carry,
// each gated by its own enable bit (§3).
type Indicators struct {
	CalibratedTime   *bool
	ValidData        *bool
	ReferenceLock    *bool
	AGC              *bool // true = AGC, false = MGC
	DetectedSignal   *bool
	SpectralInversion *bool
	OverRange        *bool
	SampleLoss       *bool
}

// Trailer is the optional fixed-shape tail on signal-data packets (§3),
// carrying per-bit-meaningful state/event indicators plus an associated
// context packet count and a sample-frame position.
type Trailer struct {
	Indicators                  Indicators
	SampleFrame                 SampleFrameIndicator
	AssociatedContextPacketCount *uint8 // 7 bits, nil if not enabled
}

const (
	trailerEnableShift    = 24
	trailerIndicatorShift = 16
	trailerSampleFrameShift = 14
	trailerAssocCountEnableBit = 1 << 7
)

var indicatorBits = [8]struct {
	get func(Indicators) *bool
	set func(*Indicators, bool)
}{
	{func(i Indicators) *bool { return i.CalibratedTime }, func(i *Indicators, v bool) { i.CalibratedTime = &v }},
	{func(i Indicators) *bool { return i.ValidData }, func(i *Indicators, v bool) { i.ValidData = &v }},
	{func(i Indicators) *bool { return i.ReferenceLock }, func(i *Indicators, v bool) { i.ReferenceLock = &v }},
	{func(i Indicators) *bool { return i.AGC }, func(i *Indicators, v bool) { i.AGC = &v }},
	{func(i Indicators) *bool { return i.DetectedSignal }, func(i *Indicators, v bool) { i.DetectedSignal = &v }},
	{func(i Indicators) *bool { return i.SpectralInversion }, func(i *Indicators, v bool) { i.SpectralInversion = &v }},
	{func(i Indicators) *bool { return i.OverRange }, func(i *Indicators, v bool) { i.OverRange = &v }},
	{func(i Indicators) *bool { return i.SampleLoss }, func(i *Indicators, v bool) { i.SampleLoss = &v }},
}

func decodeTrailer(r *reader) (*Trailer, error) {
	word, err := r.u32()
	if err != nil {
		return nil, err
	}
	var t Trailer
	for i, ib := range indicatorBits {
		enableBit := uint32(1) << uint(trailerEnableShift+i)
		if word&enableBit == 0 {
			continue
		}
		valueBit := uint32(1) << uint(trailerIndicatorShift+i)
		ib.set(&t.Indicators, word&valueBit != 0)
	}
	t.SampleFrame = SampleFrameIndicator((word >> trailerSampleFrameShift) & 0x3)
	if word&trailerAssocCountEnableBit != 0 {
		count := uint8(word & 0x7F)
		t.AssociatedContextPacketCount = &count
	}
	return &t, nil
}

func (t *Trailer) encode(w *writer) {
	var word uint32
	for i, ib := range indicatorBits {
		v := ib.get(t.Indicators)
		if v == nil {
			continue
		}
		word |= 1 << uint(trailerEnableShift+i)
		if *v {
			word |= 1 << uint(trailerIndicatorShift+i)
		}
	}
	word |= uint32(t.SampleFrame&0x3) << trailerSampleFrameShift
	if t.AssociatedContextPacketCount != nil {
		word |= trailerAssocCountEnableBit
		word |= uint32(*t.AssociatedContextPacketCount & 0x7F)
	}
	w.u32(word)
}
