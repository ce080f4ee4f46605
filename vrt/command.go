package vrt

import "math/bits"

// ActionMode is the 2-bit CAM field selecting what a Control payload asks
// the controllee to do (§4.5).
type ActionMode uint8

const (
	ActionNone    ActionMode = 0
	ActionDryRun  ActionMode = 1
	ActionExecute ActionMode = 2
)

// TimingControl is the 2-bit CAM field selecting when a Control payload's
// set-points should take effect (§4.5).
type TimingControl uint8

const (
	TimingIgnoreTimestamp TimingControl = 0
	TimingDevice          TimingControl = 1
	TimingLate            TimingControl = 2
	TimingEarly           TimingControl = 3
)

// CAM is the Control/Acknowledge/Action Mode word (§4.5), minus the
// controllee/controller enable and id-format bits: those are a *derived*
// view of whether ControlleeID/ControllerID are present and which width
// they hold (§4.5's "private contract" — the raw bits can only change as a
// side effect of the id-setting operations, never independently).
type CAM struct {
	PartialPacketPermitted bool
	WarningsPermitted      bool
	ErrorsPermitted        bool
	ActionMode             ActionMode
	NackOnly               bool
	ValidationAckRequest   bool
	ExecutionAckRequest    bool
	QueryAckRequest        bool
	// Cancel and IsAcknowledgement are this implementation's bookkeeping
	// bits (documented in DESIGN.md) used to discriminate the five
	// sub-payload variants deterministically instead of relying on an
	// ambiguous combination of action-mode and ack-request bits alone.
	Cancel           bool
	IsAcknowledgement bool
	TimingControl    TimingControl
}

const (
	camControlleeEnableBit = 1 << 31
	camControlleeFormatBit = 1 << 30
	camControllerEnableBit = 1 << 29
	camControllerFormatBit = 1 << 28
	camPartialBit          = 1 << 27
	camWarningsBit         = 1 << 26
	camErrorsBit           = 1 << 25
	camActionModeShift     = 23
	camNackOnlyBit         = 1 << 22
	camVBit                = 1 << 21
	camXBit                = 1 << 20
	camSBit                = 1 << 19
	camCancelBit           = 1 << 15
	camIsAckBit            = 1 << 14
	camTimingShift         = 0
)

// ControlID is a controllee/controller identifier, either 32 or 128 bits
// wide (§4.5).
type ControlID struct {
	Is128 bool
	U32   uint32
	U128  [16]byte
}

// CommandKind names the five command sub-payload variants (§4.5). It is
// always derived from CAM.Cancel, CAM.IsAcknowledgement and CAM.ActionMode
// — never stored or set directly.
type CommandKind int

const (
	KindControl CommandKind = iota
	KindValidationAck
	KindExecutionAck
	KindQueryStateAck
	KindCancelControl
)

func (k CommandKind) String() string {
	switch k {
	case KindControl:
		return "control"
	case KindValidationAck:
		return "validation_ack"
	case KindExecutionAck:
		return "execution_ack"
	case KindQueryStateAck:
		return "query_state_ack"
	case KindCancelControl:
		return "cancel_control"
	default:
		return "unknown"
	}
}

// AckPayload is the shared shape of Validation/Execution/Query-State
// acknowledgements: the echoed CIF0 bitmap plus one status word per field
// it named (§4.5).
type AckPayload struct {
	CIF0     uint32
	Statuses []uint32
}

const cif0FieldBitsMask = 0x7FFFFF00 // bits 8..30: every named CIF0 field bit

func decodeAckPayload(r *reader) (*AckPayload, error) {
	cif0, err := r.u32()
	if err != nil {
		return nil, err
	}
	n := bits.OnesCount32(cif0 & cif0FieldBitsMask)
	statuses := make([]uint32, n)
	for i := range statuses {
		v, err := r.u32()
		if err != nil {
			return nil, err
		}
		statuses[i] = v
	}
	return &AckPayload{CIF0: cif0, Statuses: statuses}, nil
}

func (a *AckPayload) encode(w *writer) {
	w.u32(a.CIF0)
	for _, s := range a.Statuses {
		w.u32(s)
	}
}

// CommandBody implements the Command (and Extension Command) packet type
// (§3, §4.5): CAM, optional message id, optional controllee/controller
// identifiers, and a typed sub-payload.
type CommandBody struct {
	CAM         CAM
	MessageID   uint32
	ControlleeID *ControlID
	ControllerID *ControlID

	// Exactly one of these is populated, selected by Kind().
	Control *FieldSet
	Ack     *AckPayload

	// Extension selects the Extension Command packet type over plain Command.
	Extension bool
}

func newCommandBody() *CommandBody {
	return &CommandBody{Control: &FieldSet{}}
}

// Kind derives which of the five sub-payload variants this body holds.
func (c *CommandBody) Kind() CommandKind {
	switch {
	case c.CAM.Cancel:
		return KindCancelControl
	case c.CAM.IsAcknowledgement && c.CAM.ActionMode == ActionDryRun:
		return KindValidationAck
	case c.CAM.IsAcknowledgement && c.CAM.ActionMode == ActionExecute:
		return KindExecutionAck
	case c.CAM.IsAcknowledgement:
		return KindQueryStateAck
	default:
		return KindControl
	}
}

func decodeCommandBody(r *reader) (*CommandBody, error) {
	word, err := r.u32()
	if err != nil {
		return nil, err
	}
	cam := CAM{
		PartialPacketPermitted: word&camPartialBit != 0,
		WarningsPermitted:      word&camWarningsBit != 0,
		ErrorsPermitted:        word&camErrorsBit != 0,
		ActionMode:             ActionMode((word >> camActionModeShift) & 0x3),
		NackOnly:               word&camNackOnlyBit != 0,
		ValidationAckRequest:   word&camVBit != 0,
		ExecutionAckRequest:    word&camXBit != 0,
		QueryAckRequest:        word&camSBit != 0,
		Cancel:                 word&camCancelBit != 0,
		IsAcknowledgement:      word&camIsAckBit != 0,
		TimingControl:          TimingControl((word >> camTimingShift) & 0x3),
	}

	msgID, err := r.u32()
	if err != nil {
		return nil, err
	}

	body := &CommandBody{CAM: cam, MessageID: msgID}

	if word&camControlleeEnableBit != 0 {
		id, err := decodeControlID(r, word&camControlleeFormatBit != 0)
		if err != nil {
			return nil, err
		}
		body.ControlleeID = id
	}
	if word&camControllerEnableBit != 0 {
		id, err := decodeControlID(r, word&camControllerFormatBit != 0)
		if err != nil {
			return nil, err
		}
		body.ControllerID = id
	}

	switch body.Kind() {
	case KindCancelControl:
		// no further payload
	case KindControl:
		fs, err := decodeFieldSet(r)
		if err != nil {
			return nil, err
		}
		body.Control = fs
	default: // KindValidationAck, KindExecutionAck, KindQueryStateAck
		ack, err := decodeAckPayload(r)
		if err != nil {
			return nil, err
		}
		body.Ack = ack
	}

	return body, nil
}

func decodeControlID(r *reader, is128 bool) (*ControlID, error) {
	if !is128 {
		v, err := r.u32()
		if err != nil {
			return nil, err
		}
		return &ControlID{U32: v}, nil
	}
	b, err := r.bytes(16)
	if err != nil {
		return nil, err
	}
	var id ControlID
	id.Is128 = true
	copy(id.U128[:], b)
	return &id, nil
}

func (c *CommandBody) encode(w *writer) error {
	word := uint32(0)
	if c.ControlleeID != nil {
		word |= camControlleeEnableBit
		if c.ControlleeID.Is128 {
			word |= camControlleeFormatBit
		}
	}
	if c.ControllerID != nil {
		word |= camControllerEnableBit
		if c.ControllerID.Is128 {
			word |= camControllerFormatBit
		}
	}
	if c.CAM.PartialPacketPermitted {
		word |= camPartialBit
	}
	if c.CAM.WarningsPermitted {
		word |= camWarningsBit
	}
	if c.CAM.ErrorsPermitted {
		word |= camErrorsBit
	}
	word |= uint32(c.CAM.ActionMode&0x3) << camActionModeShift
	if c.CAM.NackOnly {
		word |= camNackOnlyBit
	}
	if c.CAM.ValidationAckRequest {
		word |= camVBit
	}
	if c.CAM.ExecutionAckRequest {
		word |= camXBit
	}
	if c.CAM.QueryAckRequest {
		word |= camSBit
	}
	if c.CAM.Cancel {
		word |= camCancelBit
	}
	if c.CAM.IsAcknowledgement {
		word |= camIsAckBit
	}
	word |= uint32(c.CAM.TimingControl&0x3) << camTimingShift

	w.u32(word)
	w.u32(c.MessageID)

	if c.ControlleeID != nil {
		encodeControlID(w, c.ControlleeID)
	}
	if c.ControllerID != nil {
		encodeControlID(w, c.ControllerID)
	}

	switch c.Kind() {
	case KindCancelControl:
	case KindControl:
		if c.Control == nil {
			return errInvalidState("Control kind requires a non-nil Control field set")
		}
		return c.Control.encode(w)
	default:
		if c.Ack == nil {
			return errInvalidState("acknowledgement kind requires a non-nil Ack payload")
		}
		c.Ack.encode(w)
	}
	return nil
}

func encodeControlID(w *writer, id *ControlID) {
	if !id.Is128 {
		w.u32(id.U32)
		return
	}
	w.raw(id.U128[:])
}

// SetControlleeID32 sets a 32-bit controllee identifier. This is the only
// way to change the controllee-enable/id-format bits: they are derived
// from the presence and width of ControlleeID, never settable directly.
func (c *CommandBody) SetControlleeID32(v uint32) {
	c.ControlleeID = &ControlID{U32: v}
}

// SetControlleeID128 sets a 128-bit controllee identifier.
func (c *CommandBody) SetControlleeID128(v [16]byte) {
	c.ControlleeID = &ControlID{Is128: true, U128: v}
}

// ClearControlleeID removes the controllee identifier entirely.
func (c *CommandBody) ClearControlleeID() { c.ControlleeID = nil }

// SetControllerID32 sets a 32-bit controller identifier.
func (c *CommandBody) SetControllerID32(v uint32) {
	c.ControllerID = &ControlID{U32: v}
}

// SetControllerID128 sets a 128-bit controller identifier.
func (c *CommandBody) SetControllerID128(v [16]byte) {
	c.ControllerID = &ControlID{Is128: true, U128: v}
}

// ClearControllerID removes the controller identifier entirely.
func (c *CommandBody) ClearControllerID() { c.ControllerID = nil }

// generateAck builds the shared shape of a V/X/S acknowledgement: mirror
// the identifiers and message id, echo the request's CIF0 bitmap, and fill
// one zero ("no error") status word per named field. §4.5 calls out the
// ACK generators as a historically bug-prone area; the §8 "ACK mirror"
// property is the tripwire this must satisfy exactly.
func generateAck(ctrl *CommandBody, mode ActionMode) (*CommandBody, error) {
	if ctrl.Kind() != KindControl || ctrl.Control == nil {
		return nil, errInvalidState("ACK can only be generated from a Control command")
	}
	cif0 := ctrl.Control.cif0Word()
	n := bits.OnesCount32(cif0 & cif0FieldBitsMask)
	statuses := make([]uint32, n)

	ack := &CommandBody{
		CAM: CAM{
			ActionMode:        mode,
			IsAcknowledgement: true,
		},
		MessageID:    ctrl.MessageID,
		ControlleeID: ctrl.ControlleeID,
		ControllerID: ctrl.ControllerID,
		Ack:          &AckPayload{CIF0: cif0, Statuses: statuses},
	}
	return ack, nil
}

// GenerateValidationAck produces a Validation Acknowledge (§4.5) mirroring
// ctrl's identifiers, message id and CIF0 bitmap.
func GenerateValidationAck(ctrl *CommandBody) (*CommandBody, error) {
	return generateAck(ctrl, ActionDryRun)
}

// GenerateExecutionAck produces an Execution Acknowledge (§4.5).
func GenerateExecutionAck(ctrl *CommandBody) (*CommandBody, error) {
	return generateAck(ctrl, ActionExecute)
}

// GenerateQueryStateAck produces a Query-State Acknowledge (§4.5).
func GenerateQueryStateAck(ctrl *CommandBody) (*CommandBody, error) {
	return generateAck(ctrl, ActionNone)
}

// GenerateCancelControl produces a Cancel Control sub-payload mirroring
// ctrl's identifiers and message id, with no CIF cascade.
func GenerateCancelControl(ctrl *CommandBody) (*CommandBody, error) {
	if ctrl.Kind() != KindControl {
		return nil, errInvalidState("cancel can only be generated from a Control command")
	}
	return &CommandBody{
		CAM:          CAM{Cancel: true},
		MessageID:    ctrl.MessageID,
		ControlleeID: ctrl.ControlleeID,
		ControllerID: ctrl.ControllerID,
	}, nil
}
