package device

import "fmt"

// FuseField names one fuse/config field within a layout. Fields are
// grouped by MiniproCmd; within a group, Offset+Length values tile a
// single transaction buffer of at most 11 bytes.
type FuseField struct {
	Name       string
	MiniproCmd uint8
	Length     int // 1..4
	Offset     int // 0..10
}

// FuseLayout is an ordered, by-MiniproCmd-ascending set of fields for
// one chip family. The ascending order is an invariant checked by
// Validate, not merely documented (spec.md §3, §8).
type FuseLayout struct {
	ID     string
	Fields []FuseField

	// ErasePulses is the number of erase cycles the ERASE command
	// carries for this family (0 means "use the default of 1",
	// spec.md §4.6).
	ErasePulses uint8
}

// Validate checks the sort-ascending-by-MiniproCmd invariant and that
// no group's fields overflow an 11-byte transaction buffer.
func (f *FuseLayout) Validate() error {
	groupEnd := make(map[uint8]int)
	var lastCmd uint8
	seenFirst := false
	for _, field := range f.Fields {
		if seenFirst && field.MiniproCmd < lastCmd {
			return fmt.Errorf("device: fuse layout %s: minipro_cmd not ascending at field %q", f.ID, field.Name)
		}
		lastCmd = field.MiniproCmd
		seenFirst = true
		if field.Length < 1 || field.Length > 4 {
			return fmt.Errorf("device: fuse layout %s: field %q has invalid length %d", f.ID, field.Name, field.Length)
		}
		if field.Offset < 0 || field.Offset > 10 {
			return fmt.Errorf("device: fuse layout %s: field %q has invalid offset %d", f.ID, field.Name, field.Offset)
		}
		end := field.Offset + field.Length
		if end > groupEnd[field.MiniproCmd] {
			groupEnd[field.MiniproCmd] = end
		}
		if groupEnd[field.MiniproCmd] > 11 {
			return fmt.Errorf("device: fuse layout %s: minipro_cmd group 0x%.2x overflows 11-byte buffer", f.ID, field.MiniproCmd)
		}
	}
	return nil
}

// Commands returns the distinct MiniproCmd values in the layout, in
// ascending order (each is one BEGIN/fuse transaction group).
func (f *FuseLayout) Commands() []uint8 {
	var out []uint8
	var last uint8
	first := true
	for _, field := range f.Fields {
		if first || field.MiniproCmd != last {
			out = append(out, field.MiniproCmd)
			last = field.MiniproCmd
			first = false
		}
	}
	return out
}

// FieldsForCommand returns the fields belonging to one MiniproCmd group.
func (f *FuseLayout) FieldsForCommand(cmd uint8) []FuseField {
	var out []FuseField
	for _, field := range f.Fields {
		if field.MiniproCmd == cmd {
			out = append(out, field)
		}
	}
	return out
}

// ErrUnknownFuseLayout is returned by ResolveFuseLayout when no
// family is known for the given protocol id / variant pair.
type ErrUnknownFuseLayout struct {
	ProtocolID uint32
	Variant    uint8
}

func (e *ErrUnknownFuseLayout) Error() string {
	return fmt.Sprintf("device: no fuse layout for protocol 0x%x variant 0x%x", e.ProtocolID, e.Variant)
}

// ResolveFuseLayout is the pure (protocol_id, variant) -> fuse layout
// function spec.md §9 calls for, replacing the original's late
// mutation of a shared descriptor pointer. registry supplies the
// named layouts (avr_fuses, avr2_fuses, avr3_fuses, pic_fuses,
// pic2_fuses) per §4.4.
func ResolveFuseLayout(registry map[string]*FuseLayout, protocolID uint32, variant uint8) (*FuseLayout, error) {
	switch protocolID {
	case ProtoAVR71:
		switch variant {
		case 0:
			return registry["avr_fuses"], nil
		case 1:
			return registry["avr2_fuses"], nil
		default:
			return registry["avr3_fuses"], nil
		}
	case ProtoAVR73:
		if variant == VariantAVR73_10 || variant == VariantAVR73_12 {
			return registry["avr2_fuses"], nil
		}
	case ProtoPIC2Wide:
		return registry["pic2_fuses"], nil
	case ProtoPIC63, ProtoPIC65, ProtoPIC66:
		return registry["pic_fuses"], nil
	}
	return nil, &ErrUnknownFuseLayout{ProtocolID: protocolID, Variant: variant}
}

// MaskPIC2Wide clears the top 16 bits of the 0x10063 sentinel before
// it is sent to the device, per spec.md §4.4.
func MaskPIC2Wide(protocolID uint32) uint8 {
	return uint8(protocolID & 0xFF)
}
