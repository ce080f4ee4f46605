package vrt

// FieldSet holds the CIF-cascade optional field slots shared by Context
// bodies and a Command's embedded Control sub-payload (§4.4, §4.5). Every
// slot is a nullable value; the CIF bitmaps are a *derived view* computed
// at encode time from which slots are non-nil (the safer of the two
// representations spec.md §9 calls out — no redundant bit bookkeeping to
// keep in sync).
type FieldSet struct {
	ReferencePointID         *uint32
	Bandwidth                *float64 // Hz
	IFRefFreq                *float64 // Hz
	RFRefFreq                *float64 // Hz
	RFRefFreqOffset          *float64 // Hz
	IFBandOffset             *float64 // Hz
	ReferenceLevel           *float64 // dBm
	Gain                     *Gain
	OverRangeCount           *uint32
	SampleRate               *float64 // Hz
	TimestampAdjustment      *int64   // picoseconds, two's complement
	TimestampCalibrationTime *uint32
	Temperature              *float64 // degrees C
	DeviceID                 *DeviceID
	StateEventIndicators     *uint32
	SignalDataPayloadFormat  *PayloadFormat
	FormattedGPS             *GeolocationRecord
	FormattedINS             *GeolocationRecord
	ECEFEphemeris            *EphemerisRecord
	RelativeEphemeris        *EphemerisRecord
	EphemerisRefID           *uint32
	GPSASCII                 *GPSASCII
	AssociationLists         *AssociationLists

	PhaseOffsetDeg *float64
	Polarization   *Polarization
	PointingVector *PointingVector
	BeamWidths     *BeamWidths

	// cif7Bitmap feeds the CIF7 enable bit in cif0Word. Nothing in this
	// package sets it: the attribute-multiplier is out of scope (§1), and
	// decodeFieldSet fails with KindUnsupportedField as soon as CIF0 bit 7
	// is set, so it stays zero. Fields() does not report it.
	cif7Bitmap uint32
}

// cif0Word computes CIF0 from current slot presence, per §4.3's cascade
// monotonicity invariant: CIF1/2/3/7 enable bits are set iff at least one
// dependent field is present.
func (f *FieldSet) cif0Word() uint32 {
	var w uint32
	set := func(bit int, present bool) {
		if present {
			w |= 1 << uint(bit)
		}
	}
	set(bitReferencePointID, f.ReferencePointID != nil)
	set(bitBandwidth, f.Bandwidth != nil)
	set(bitIFRefFreq, f.IFRefFreq != nil)
	set(bitRFRefFreq, f.RFRefFreq != nil)
	set(bitRFRefFreqOffset, f.RFRefFreqOffset != nil)
	set(bitIFBandOffset, f.IFBandOffset != nil)
	set(bitReferenceLevel, f.ReferenceLevel != nil)
	set(bitGain, f.Gain != nil)
	set(bitOverRangeCount, f.OverRangeCount != nil)
	set(bitSampleRate, f.SampleRate != nil)
	set(bitTimestampAdjustment, f.TimestampAdjustment != nil)
	set(bitTimestampCalibrationTime, f.TimestampCalibrationTime != nil)
	set(bitTemperature, f.Temperature != nil)
	set(bitDeviceID, f.DeviceID != nil)
	set(bitStateEventIndicators, f.StateEventIndicators != nil)
	set(bitSignalDataPayloadFormat, f.SignalDataPayloadFormat != nil)
	set(bitFormattedGPS, f.FormattedGPS != nil)
	set(bitFormattedINS, f.FormattedINS != nil)
	set(bitECEFEphemeris, f.ECEFEphemeris != nil)
	set(bitRelativeEphemeris, f.RelativeEphemeris != nil)
	set(bitEphemerisRefID, f.EphemerisRefID != nil)
	set(bitGPSASCII, f.GPSASCII != nil)
	set(bitAssociationLists, f.AssociationLists != nil)

	set(bitCIF1Enable, f.cif1Present())
	set(bitCIF7Enable, f.cif7Bitmap != 0)
	return w
}

func (f *FieldSet) cif1Present() bool {
	return f.PhaseOffsetDeg != nil || f.Polarization != nil ||
		f.PointingVector != nil || f.BeamWidths != nil
}

func (f *FieldSet) cif1Word() uint32 {
	var w uint32
	if f.PhaseOffsetDeg != nil {
		w |= 1 << bitPhaseOffset
	}
	if f.Polarization != nil {
		w |= 1 << bitPolarization
	}
	if f.PointingVector != nil {
		w |= 1 << bitPointingVector
	}
	if f.BeamWidths != nil {
		w |= 1 << bitBeamWidths
	}
	return w
}

// decodeFieldSet parses CIF0 (and, if enabled, the cascaded CIF1 word)
// followed by every field their bits enable, in canonical order:
// bit-descending within CIF0, then CIF1. If the CIF2, CIF3 or CIF7 enable
// bit is set, it reads that word and fails with KindUnsupportedField.
func decodeFieldSet(r *reader) (*FieldSet, error) {
	cif0, err := r.u32()
	if err != nil {
		return nil, err
	}

	f := &FieldSet{}

	var cif1 uint32
	if cif0&(1<<bitCIF1Enable) != 0 {
		cif1, err = r.u32()
		if err != nil {
			return nil, err
		}
		if cif1 == 0 {
			return nil, errMisaligned("CIF1 enable bit set but CIF1 word is empty")
		}
	}
	if cif0&(1<<bitCIF2Enable) != 0 {
		cif2, err := r.u32()
		if err != nil {
			return nil, err
		}
		if cif2 == 0 {
			return nil, errMisaligned("CIF2 enable bit set but CIF2 word is empty")
		}
		return nil, errUnsupportedField("CIF2: no fields in this CIF are implemented")
	}
	if cif0&(1<<bitCIF3Enable) != 0 {
		cif3, err := r.u32()
		if err != nil {
			return nil, err
		}
		if cif3 == 0 {
			return nil, errMisaligned("CIF3 enable bit set but CIF3 word is empty")
		}
		return nil, errUnsupportedField("CIF3: no fields in this CIF are implemented")
	}
	var cif7 uint32
	if cif0&(1<<bitCIF7Enable) != 0 {
		cif7, err = r.u32()
		if err != nil {
			return nil, err
		}
		if cif7 == 0 {
			return nil, errMisaligned("CIF7 enable bit set but CIF7 word is empty")
		}
		// The CIF7 attribute multiplier itself is out of scope (§1); any
		// selected attribute means a replicated field this codec cannot
		// parse follows, so fail loudly now rather than desync the buffer.
		return nil, errUnsupportedField("CIF7 field-attributes multiplier is not implemented")
	}

	// CIF0 fields, bit-descending.
	if cif0&(1<<bitReferencePointID) != 0 {
		v, err := r.u32()
		if err != nil {
			return nil, err
		}
		f.ReferencePointID = &v
	}
	if cif0&(1<<bitBandwidth) != 0 {
		v, err := r.u64()
		if err != nil {
			return nil, err
		}
		val := qFreqHz.Decode(v)
		f.Bandwidth = &val
	}
	if cif0&(1<<bitIFRefFreq) != 0 {
		v, err := r.u64()
		if err != nil {
			return nil, err
		}
		val := qFreqHz.Decode(v)
		f.IFRefFreq = &val
	}
	if cif0&(1<<bitRFRefFreq) != 0 {
		v, err := r.u64()
		if err != nil {
			return nil, err
		}
		val := qFreqHz.Decode(v)
		f.RFRefFreq = &val
	}
	if cif0&(1<<bitRFRefFreqOffset) != 0 {
		v, err := r.u64()
		if err != nil {
			return nil, err
		}
		val := qFreqHz.Decode(v)
		f.RFRefFreqOffset = &val
	}
	if cif0&(1<<bitIFBandOffset) != 0 {
		v, err := r.u64()
		if err != nil {
			return nil, err
		}
		val := qFreqHz.Decode(v)
		f.IFBandOffset = &val
	}
	if cif0&(1<<bitReferenceLevel) != 0 {
		v, err := r.u32()
		if err != nil {
			return nil, err
		}
		val := qReferenceLevel.Decode(uint64(v & 0xFFFF))
		f.ReferenceLevel = &val
	}
	if cif0&(1<<bitGain) != 0 {
		v, err := r.u32()
		if err != nil {
			return nil, err
		}
		g, err := decodeGain(v)
		if err != nil {
			return nil, err
		}
		f.Gain = &g
	}
	if cif0&(1<<bitOverRangeCount) != 0 {
		v, err := r.u32()
		if err != nil {
			return nil, err
		}
		f.OverRangeCount = &v
	}
	if cif0&(1<<bitSampleRate) != 0 {
		v, err := r.u64()
		if err != nil {
			return nil, err
		}
		val := qFreqHz.Decode(v)
		f.SampleRate = &val
	}
	if cif0&(1<<bitTimestampAdjustment) != 0 {
		v, err := r.i64()
		if err != nil {
			return nil, err
		}
		f.TimestampAdjustment = &v
	}
	if cif0&(1<<bitTimestampCalibrationTime) != 0 {
		v, err := r.u32()
		if err != nil {
			return nil, err
		}
		f.TimestampCalibrationTime = &v
	}
	if cif0&(1<<bitTemperature) != 0 {
		v, err := r.u32()
		if err != nil {
			return nil, err
		}
		val := qTemperature.Decode(uint64(v & 0xFFFF))
		f.Temperature = &val
	}
	if cif0&(1<<bitDeviceID) != 0 {
		d, err := decodeDeviceID(r)
		if err != nil {
			return nil, err
		}
		f.DeviceID = &d
	}
	if cif0&(1<<bitStateEventIndicators) != 0 {
		v, err := r.u32()
		if err != nil {
			return nil, err
		}
		f.StateEventIndicators = &v
	}
	if cif0&(1<<bitSignalDataPayloadFormat) != 0 {
		pf, err := decodePayloadFormat(r)
		if err != nil {
			return nil, err
		}
		f.SignalDataPayloadFormat = &pf
	}
	if cif0&(1<<bitFormattedGPS) != 0 {
		g, err := decodeGeolocation(r)
		if err != nil {
			return nil, err
		}
		f.FormattedGPS = &g
	}
	if cif0&(1<<bitFormattedINS) != 0 {
		g, err := decodeGeolocation(r)
		if err != nil {
			return nil, err
		}
		f.FormattedINS = &g
	}
	if cif0&(1<<bitECEFEphemeris) != 0 {
		e, err := decodeEphemeris(r)
		if err != nil {
			return nil, err
		}
		f.ECEFEphemeris = &e
	}
	if cif0&(1<<bitRelativeEphemeris) != 0 {
		e, err := decodeEphemeris(r)
		if err != nil {
			return nil, err
		}
		f.RelativeEphemeris = &e
	}
	if cif0&(1<<bitEphemerisRefID) != 0 {
		v, err := r.u32()
		if err != nil {
			return nil, err
		}
		f.EphemerisRefID = &v
	}
	if cif0&(1<<bitGPSASCII) != 0 {
		g, err := decodeGPSASCII(r)
		if err != nil {
			return nil, err
		}
		f.GPSASCII = &g
	}
	if cif0&(1<<bitAssociationLists) != 0 {
		a, err := decodeAssociationLists(r)
		if err != nil {
			return nil, err
		}
		f.AssociationLists = &a
	}

	// CIF1 fields, bit-descending.
	for bit := 31; bit >= 0; bit-- {
		if cif1&(1<<uint(bit)) == 0 {
			continue
		}
		if !cif1KnownBits[bit] {
			return nil, errUnsupportedField("CIF1: unimplemented bit")
		}
		switch bit {
		case bitPhaseOffset:
			v, err := r.u32()
			if err != nil {
				return nil, err
			}
			val := qAngle.Decode(uint64(v & 0xFFFF))
			f.PhaseOffsetDeg = &val
		case bitPolarization:
			v, err := r.u32()
			if err != nil {
				return nil, err
			}
			p := decodePolarization(v)
			f.Polarization = &p
		case bitPointingVector:
			v, err := r.u32()
			if err != nil {
				return nil, err
			}
			p := decodePointingVector(v)
			f.PointingVector = &p
		case bitBeamWidths:
			v, err := r.u32()
			if err != nil {
				return nil, err
			}
			b := decodeBeamWidths(v)
			f.BeamWidths = &b
		}
	}

	return f, nil
}

// encode serializes CIF0 (and any cascaded CIF1 word) followed by every
// present field, in the same canonical order decodeFieldSet reads them.
func (f *FieldSet) encode(w *writer) error {
	w.u32(f.cif0Word())
	if f.cif1Present() {
		w.u32(f.cif1Word())
	}

	if f.ReferencePointID != nil {
		w.u32(*f.ReferencePointID)
	}
	if err := encodeFreqField(w, f.Bandwidth); err != nil {
		return err
	}
	if err := encodeFreqField(w, f.IFRefFreq); err != nil {
		return err
	}
	if err := encodeFreqField(w, f.RFRefFreq); err != nil {
		return err
	}
	if err := encodeFreqField(w, f.RFRefFreqOffset); err != nil {
		return err
	}
	if err := encodeFreqField(w, f.IFBandOffset); err != nil {
		return err
	}
	if f.ReferenceLevel != nil {
		raw, err := qReferenceLevel.Encode(*f.ReferenceLevel)
		if err != nil {
			return err
		}
		w.u32(uint32(raw & 0xFFFF))
	}
	if f.Gain != nil {
		raw, err := f.Gain.encode()
		if err != nil {
			return err
		}
		w.u32(raw)
	}
	if f.OverRangeCount != nil {
		w.u32(*f.OverRangeCount)
	}
	if err := encodeFreqField(w, f.SampleRate); err != nil {
		return err
	}
	if f.TimestampAdjustment != nil {
		w.i64(*f.TimestampAdjustment)
	}
	if f.TimestampCalibrationTime != nil {
		w.u32(*f.TimestampCalibrationTime)
	}
	if f.Temperature != nil {
		raw, err := qTemperature.Encode(*f.Temperature)
		if err != nil {
			return err
		}
		w.u32(uint32(raw & 0xFFFF))
	}
	if f.DeviceID != nil {
		f.DeviceID.encode(w)
	}
	if f.StateEventIndicators != nil {
		w.u32(*f.StateEventIndicators)
	}
	if f.SignalDataPayloadFormat != nil {
		f.SignalDataPayloadFormat.encode(w)
	}
	if f.FormattedGPS != nil {
		if err := f.FormattedGPS.encode(w); err != nil {
			return err
		}
	}
	if f.FormattedINS != nil {
		if err := f.FormattedINS.encode(w); err != nil {
			return err
		}
	}
	if f.ECEFEphemeris != nil {
		if err := f.ECEFEphemeris.encode(w); err != nil {
			return err
		}
	}
	if f.RelativeEphemeris != nil {
		if err := f.RelativeEphemeris.encode(w); err != nil {
			return err
		}
	}
	if f.EphemerisRefID != nil {
		w.u32(*f.EphemerisRefID)
	}
	if f.GPSASCII != nil {
		f.GPSASCII.encode(w)
	}
	if f.AssociationLists != nil {
		f.AssociationLists.encode(w)
	}

	if f.PhaseOffsetDeg != nil {
		raw, err := qAngle.Encode(*f.PhaseOffsetDeg)
		if err != nil {
			return err
		}
		w.u32(uint32(raw & 0xFFFF))
	}
	if f.Polarization != nil {
		raw, err := f.Polarization.encode()
		if err != nil {
			return err
		}
		w.u32(raw)
	}
	if f.PointingVector != nil {
		raw, err := f.PointingVector.encode()
		if err != nil {
			return err
		}
		w.u32(raw)
	}
	if f.BeamWidths != nil {
		raw, err := f.BeamWidths.encode()
		if err != nil {
			return err
		}
		w.u32(raw)
	}

	return nil
}

func encodeFreqField(w *writer, v *float64) error {
	if v == nil {
		return nil
	}
	raw, err := qFreqHz.Encode(*v)
	if err != nil {
		return err
	}
	w.u64(raw)
	return nil
}

// FieldPresence names a single present field for diagnostics (§4.4
// "Display surface") and the named-field view (§6).
type FieldPresence struct {
	Name  string
	Value any
}

// Fields enumerates every present field in canonical order, for the
// human-readable rendering spec.md §4.4 requires and for view.go's
// named-field projection.
func (f *FieldSet) Fields() []FieldPresence {
	var out []FieldPresence
	add := func(name string, present bool, value any) {
		if present {
			out = append(out, FieldPresence{Name: name, Value: value})
		}
	}
	add("reference_point_id", f.ReferencePointID != nil, derefU32(f.ReferencePointID))
	add("bandwidth_hz", f.Bandwidth != nil, derefF64(f.Bandwidth))
	add("if_ref_freq_hz", f.IFRefFreq != nil, derefF64(f.IFRefFreq))
	add("rf_ref_freq_hz", f.RFRefFreq != nil, derefF64(f.RFRefFreq))
	add("rf_ref_freq_offset_hz", f.RFRefFreqOffset != nil, derefF64(f.RFRefFreqOffset))
	add("if_band_offset_hz", f.IFBandOffset != nil, derefF64(f.IFBandOffset))
	add("reference_level_dbm", f.ReferenceLevel != nil, derefF64(f.ReferenceLevel))
	add("gain", f.Gain != nil, f.Gain)
	add("over_range_count", f.OverRangeCount != nil, derefU32(f.OverRangeCount))
	add("sample_rate_hz", f.SampleRate != nil, derefF64(f.SampleRate))
	add("timestamp_adjustment", f.TimestampAdjustment != nil, derefI64(f.TimestampAdjustment))
	add("timestamp_calibration_time", f.TimestampCalibrationTime != nil, derefU32(f.TimestampCalibrationTime))
	add("temperature_c", f.Temperature != nil, derefF64(f.Temperature))
	add("device_id", f.DeviceID != nil, f.DeviceID)
	add("state_event_indicators", f.StateEventIndicators != nil, derefU32(f.StateEventIndicators))
	add("signal_data_payload_format", f.SignalDataPayloadFormat != nil, f.SignalDataPayloadFormat)
	add("formatted_gps", f.FormattedGPS != nil, f.FormattedGPS)
	add("formatted_ins", f.FormattedINS != nil, f.FormattedINS)
	add("ecef_ephemeris", f.ECEFEphemeris != nil, f.ECEFEphemeris)
	add("relative_ephemeris", f.RelativeEphemeris != nil, f.RelativeEphemeris)
	add("ephemeris_ref_id", f.EphemerisRefID != nil, derefU32(f.EphemerisRefID))
	add("gps_ascii", f.GPSASCII != nil, f.GPSASCII)
	add("context_association_lists", f.AssociationLists != nil, f.AssociationLists)
	add("phase_offset_deg", f.PhaseOffsetDeg != nil, derefF64(f.PhaseOffsetDeg))
	add("polarization", f.Polarization != nil, f.Polarization)
	add("pointing_vector", f.PointingVector != nil, f.PointingVector)
	add("beam_widths", f.BeamWidths != nil, f.BeamWidths)
	return out
}

func derefU32(p *uint32) any {
	if p == nil {
		return nil
	}
	return *p
}
func derefF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
func derefI64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}
