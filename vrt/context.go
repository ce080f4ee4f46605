package vrt

import (
	"fmt"
	"strings"
)

// ContextBody implements both the Context and Extension Context packet
// types (§3, §4.4): a CIF cascade plus one value slot per enabled field.
// The two packet types share this exact shape; only the header's
// packet-type nibble distinguishes them (Extension Context carries
// application-defined semantics over the same wire layout).
type ContextBody struct {
	Fields *FieldSet
	// Extension selects the Extension Context packet type (same wire shape,
	// application-defined semantics) over plain Context.
	Extension bool
}

func newContextBody() *ContextBody {
	return &ContextBody{Fields: &FieldSet{}}
}

func decodeContextBody(r *reader) (*ContextBody, error) {
	fs, err := decodeFieldSet(r)
	if err != nil {
		return nil, err
	}
	return &ContextBody{Fields: fs}, nil
}

func (c *ContextBody) encode(w *writer) error {
	return c.Fields.encode(w)
}

// String renders every CIF0 bit (set or unset) and every present field's
// decoded value, the diagnostic "Display surface" §4.4 requires.
func (c *ContextBody) String() string {
	var sb strings.Builder
	cif0 := c.Fields.cif0Word()
	sb.WriteString("ContextBody{cif0=")
	fmt.Fprintf(&sb, "%#08x", cif0)
	sb.WriteString(" fields=[")
	for i, fp := range c.Fields.Fields() {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s=%v", fp.Name, fp.Value)
	}
	sb.WriteString("]}")
	return sb.String()
}
