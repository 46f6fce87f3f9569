// Package device holds the static database of programmer device
// descriptors (C3) and the fuse-layout registry that goes with it
// (C4). The database is a finite ordered table compiled into the
// binary, not a plugin surface (spec.md §1 Non-goals, §9 DESIGN
// NOTES): entries never mutate after init, except that ResolveChipID
// fills in a missing ChipID from the Microchip workaround table.
package device

import (
	"fmt"
	"strings"
)

// MemoryUnit describes how code_memory_size is counted, carried in
// bits 24-25 of Opts4.
type MemoryUnit uint8

const (
	UnitBytes MemoryUnit = iota
	UnitWords
	UnitBits
)

// Protocol-id classes named in the data model. Most chip families use
// their own protocol id directly; these constants name only the ones
// the fuse-layout resolver and the orchestrator branch on.
const (
	ProtoPIC63  = 0x63
	ProtoPIC65  = 0x65
	ProtoPIC66  = 0x66
	ProtoAVR71  = 0x71
	ProtoAVR73  = 0x73
	ProtoPIC2Wide = 0x10063 // sentinel wider-than-a-byte code, see §4.4

	ProtoPLD16V8 = 0xF0
	ProtoPLD20V8 = 0xF1
	ProtoPLD22V10 = 0xF2
)

// AVR73 variants that select avr2_fuses.
const (
	VariantAVR73_10 = 0x10
	VariantAVR73_12 = 0x12
)

// Opts4 bit layout.
const (
	Opts4UnitMask   = 0x03000000
	Opts4UnitShift  = 24
	Opts4ProtectMask = 0xC000
	Opts4WordAddressed = 0x2000
	Opts4TSOP48 = 0x01002078
)

// PackageDetails unpacks the 32-bit little-endian package_details field.
type PackageDetails uint32

func (p PackageDetails) AdapterImageID() uint8 { return uint8(p) }
func (p PackageDetails) ICSPImageID() uint8     { return uint8(p >> 8) }
func (p PackageDetails) DIPPinCount() uint8     { return uint8(p>>24) &^ 0x80 }

// Descriptor is one immutable device-database record.
type Descriptor struct {
	Name string

	ProtocolID uint32 // 8-bit in the common case, widened for the 0x10063 sentinel
	Variant    uint8

	CodeMemorySize  uint32
	DataMemorySize  uint32
	DataMemory2Size uint32

	ChipID            uint32
	ChipIDBytesCount  int

	Opts1 uint16
	Opts2 uint16
	Opts3 uint16
	Opts4 uint32

	PackageDetails PackageDetails

	ReadBufferSize  int
	WriteBufferSize int

	FuseLayout *FuseLayout

	// RowBits is the JEDEC row width, in bits, for GAL/PAL logic
	// devices (spec.md §4.6): CodeMemorySize for these devices is the
	// total fuse-map bit count (MemoryUnit() == UnitBits), streamed a
	// row of RowBits at a time through ReadJEDECRow/WriteJEDECRow
	// rather than the byte-chunked code page every other family uses.
	// Zero for non-GAL devices.
	RowBits int
}

// MemoryUnit reports how CodeMemorySize is counted, per Opts4 bits 24-25.
func (d *Descriptor) MemoryUnit() MemoryUnit {
	return MemoryUnit((d.Opts4 & Opts4UnitMask) >> Opts4UnitShift)
}

// WordAddressed reports whether wire addresses must be shifted right by 1.
func (d *Descriptor) WordAddressed() bool {
	return d.Opts4&Opts4WordAddressed != 0
}

// ProtectSupported reports whether PROTECT_OFF/PROTECT_ON apply to this device.
func (d *Descriptor) ProtectSupported() bool {
	return d.Opts4&Opts4ProtectMask != 0
}

// IsGAL reports whether this descriptor is a GAL/PAL logic device,
// which takes the JEDEC-row read/write path and a fixed erase byte.
func (d *Descriptor) IsGAL() bool {
	switch d.ProtocolID {
	case ProtoPLD16V8, ProtoPLD20V8, ProtoPLD22V10:
		return true
	}
	return false
}

// NeedsTSOP48Unlock reports whether this device requires the TSOP48
// adapter unlock handshake before programming (spec.md §4.6).
func (d *Descriptor) NeedsTSOP48Unlock() bool {
	return d.Opts4 == Opts4TSOP48
}

// WordSize reports the logical unit, in bytes, that CodeMemorySize is
// counted in for address translation: 2 for word-addressed chips, 1
// otherwise.
func (d *Descriptor) WordSize() uint32 {
	if d.WordAddressed() {
		return 2
	}
	return 1
}

func (u MemoryUnit) String() string {
	switch u {
	case UnitWords:
		return "Words"
	case UnitBits:
		return "Bits"
	default:
		return "Bytes"
	}
}

// Info renders the device-info text the "-d NAME" CLI mode prints
// (SPEC_FULL.md §6.1, ported from the original's
// print_device_info_and_exit): name, memory shape, package/adapter
// image, ICSP image, protocol id and both buffer sizes.
func (d *Descriptor) Info() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", d.Name)
	fmt.Fprintf(&b, "Memory: %d %s", d.CodeMemorySize/d.WordSize(), d.MemoryUnit())
	if d.DataMemorySize > 0 {
		fmt.Fprintf(&b, " + %d data", d.DataMemorySize)
	}
	if d.DataMemory2Size > 0 {
		fmt.Fprintf(&b, " + %d data2", d.DataMemory2Size)
	}
	b.WriteString("\n")

	pin := d.PackageDetails.DIPPinCount()
	switch {
	case d.PackageDetails.AdapterImageID() != 0:
		fmt.Fprintf(&b, "Package: adapter image %d\n", d.PackageDetails.AdapterImageID())
	case pin != 0:
		fmt.Fprintf(&b, "Package: DIP%d\n", pin)
	default:
		b.WriteString("Package: ISP only\n")
	}

	if icsp := d.PackageDetails.ICSPImageID(); icsp != 0 {
		fmt.Fprintf(&b, "ICSP: image %d\n", icsp)
	} else {
		b.WriteString("ICSP: -\n")
	}

	fmt.Fprintf(&b, "Protocol: 0x%x\n", d.ProtocolID)
	fmt.Fprintf(&b, "Read buffer: %d  Write buffer: %d\n", d.ReadBufferSize, d.WriteBufferSize)
	return b.String()
}

// Database is a finite ordered sequence of descriptors with a
// by-name index built once at construction (spec.md §9: no late
// mutation, no sentinel-terminated array).
type Database struct {
	all    []*Descriptor
	byName map[string]*Descriptor
}

// NewDatabase builds a Database from a fixed slice of descriptors.
func NewDatabase(descriptors []*Descriptor) *Database {
	db := &Database{
		all:    descriptors,
		byName: make(map[string]*Descriptor, len(descriptors)),
	}
	for _, d := range descriptors {
		db.byName[d.Name] = d
	}
	return db
}

// GetByName looks up a descriptor by its exact, case-sensitive name.
func (db *Database) GetByName(name string) (*Descriptor, bool) {
	d, ok := db.byName[name]
	return d, ok
}

// ListPrefix returns every descriptor whose name starts with prefix,
// case-insensitively, in database order.
func (db *Database) ListPrefix(prefix string) []*Descriptor {
	prefix = strings.ToLower(prefix)
	var out []*Descriptor
	for _, d := range db.all {
		if strings.HasPrefix(strings.ToLower(d.Name), prefix) {
			out = append(out, d)
		}
	}
	return out
}

// All returns every descriptor in database order.
func (db *Database) All() []*Descriptor {
	return db.all
}

// Len reports how many descriptors the database holds.
func (db *Database) Len() int { return len(db.all) }
