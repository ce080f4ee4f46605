package vrt

import "testing"

// TestGenerateExecutionAck is the literal S3 scenario: decode a Control
// command, generate its execution acknowledgement, and confirm the ACK
// mirror property (§8 property 6) holds.
func TestGenerateExecutionAck(t *testing.T) {
	p := NewCommand(0x100)
	cmd, ok := p.Command()
	if !ok {
		t.Fatal("expected a CommandBody")
	}
	cmd.SetControlleeID32(0x00000001)
	cmd.MessageID = 77
	bw := 40_000.0
	rf := 100_000_000.0
	cmd.Control.Bandwidth = &bw
	cmd.Control.RFRefFreq = &rf

	b, err := p.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	decodedCmd, ok := decoded.Command()
	if !ok {
		t.Fatal("expected a decoded CommandBody")
	}
	if decodedCmd.Kind() != KindControl {
		t.Fatalf("Kind() = %v, want KindControl", decodedCmd.Kind())
	}

	ack, err := GenerateExecutionAck(decodedCmd)
	if err != nil {
		t.Fatalf("GenerateExecutionAck: %v", err)
	}

	if ack.Kind() != KindExecutionAck {
		t.Errorf("ack.Kind() = %v, want KindExecutionAck", ack.Kind())
	}
	if !ack.CAM.IsAcknowledgement || ack.CAM.ActionMode != ActionExecute {
		t.Errorf("ack CAM = %+v, want IsAcknowledgement with ActionExecute", ack.CAM)
	}
	if ack.MessageID != decodedCmd.MessageID {
		t.Errorf("ack message id = %d, want %d", ack.MessageID, decodedCmd.MessageID)
	}
	if ack.ControlleeID == nil || ack.ControlleeID.U32 != 0x00000001 {
		t.Errorf("ack controllee id = %+v, want mirrored 0x1", ack.ControlleeID)
	}
	if ack.Ack.CIF0 != decodedCmd.Control.cif0Word() {
		t.Errorf("ack cif0 = %#08x, want %#08x", ack.Ack.CIF0, decodedCmd.Control.cif0Word())
	}
	if len(ack.Ack.Statuses) != 2 {
		t.Errorf("ack statuses = %d, want 2 (bandwidth + rf_ref_freq)", len(ack.Ack.Statuses))
	}

	ackPacket := &Packet{StreamID: p.StreamID, Body: ack}
	ackBytes, err := ackPacket.Encode()
	if err != nil {
		t.Fatalf("ack Encode: %v", err)
	}
	ackDecoded, err := Decode(ackBytes)
	if err != nil {
		t.Fatalf("ack Decode: %v", err)
	}
	pt, err := ackDecoded.PacketType()
	if err != nil || pt != PacketTypeCommand {
		t.Errorf("ack packet type = %v, %v; want PacketTypeCommand", pt, err)
	}
}

func TestCommandKindDerivation(t *testing.T) {
	tests := []struct {
		name string
		cam  CAM
		want CommandKind
	}{
		{"control", CAM{}, KindControl},
		{"cancel", CAM{Cancel: true}, KindCancelControl},
		{"validation ack", CAM{IsAcknowledgement: true, ActionMode: ActionDryRun}, KindValidationAck},
		{"execution ack", CAM{IsAcknowledgement: true, ActionMode: ActionExecute}, KindExecutionAck},
		{"query state ack", CAM{IsAcknowledgement: true, ActionMode: ActionNone}, KindQueryStateAck},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &CommandBody{CAM: tt.cam}
			if got := c.Kind(); got != tt.want {
				t.Errorf("Kind() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGenerateCancelControl(t *testing.T) {
	p := NewCommand(1)
	cmd, _ := p.Command()
	cmd.SetControllerID32(55)
	cmd.MessageID = 9

	cancel, err := GenerateCancelControl(cmd)
	if err != nil {
		t.Fatalf("GenerateCancelControl: %v", err)
	}
	if cancel.Kind() != KindCancelControl {
		t.Errorf("Kind() = %v, want KindCancelControl", cancel.Kind())
	}
	if cancel.ControllerID == nil || cancel.ControllerID.U32 != 55 {
		t.Errorf("controller id = %+v, want mirrored 55", cancel.ControllerID)
	}

	cancelPacket := &Packet{StreamID: p.StreamID, Body: cancel}
	b, err := cancelPacket.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	dc, ok := decoded.Command()
	if !ok || dc.Kind() != KindCancelControl {
		t.Fatalf("decoded kind = %v, ok=%v", dc, ok)
	}
}

func TestControlID128(t *testing.T) {
	p := NewCommand(1)
	cmd, _ := p.Command()
	var id [16]byte
	for i := range id {
		id[i] = byte(i)
	}
	cmd.SetControlleeID128(id)

	b, err := p.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	dc, _ := decoded.Command()
	if dc.ControlleeID == nil || !dc.ControlleeID.Is128 || dc.ControlleeID.U128 != id {
		t.Errorf("controllee id = %+v, want 128-bit %v", dc.ControlleeID, id)
	}
}
