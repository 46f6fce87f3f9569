// Package programmer is the top-level read/write/verify orchestrator
// (C8): it resolves a device descriptor, drives the protocol engine
// through a transaction, applies the chip-id gate and file-size
// policy, and reports progress through an interface rather than
// writing to a terminal directly. Grounded on spec.md §4.8 and, for
// the explicit-flag restructuring of the original's fallthrough
// switch, on §9 DESIGN NOTES.
package programmer

import (
	"fmt"

	"github.com/tl866go/tl866prog/device"
	"github.com/tl866go/tl866prog/fuseconf"
	"github.com/tl866go/tl866prog/protocol"
)

// Page selects which memory region an operation targets.
type Page uint8

const (
	PageUnspecified Page = iota
	PageCode
	PageData
	PageConfig
)

func (p Page) String() string {
	switch p {
	case PageCode:
		return "code"
	case PageData:
		return "data"
	case PageConfig:
		return "config"
	default:
		return "unspecified"
	}
}

// SizeMismatchPolicy controls Write's reaction to a file whose length
// doesn't match the target memory size.
type SizeMismatchPolicy uint8

const (
	// SizeMismatchFatal aborts the write (the default, no -s/-S flag).
	SizeMismatchFatal SizeMismatchPolicy = iota
	// SizeMismatchWarn proceeds but prints a warning (-s).
	SizeMismatchWarn
	// SizeMismatchSilent proceeds without printing anything (-S, implies -s).
	SizeMismatchSilent
)

// Orchestrator drives one descriptor over one open engine. It does
// not own the transport's lifecycle — callers open and close the
// underlying transport.Device themselves, mirroring protocol.Engine's
// own non-ownership of its Transceiver.
type Orchestrator struct {
	Engine   *protocol.Engine
	Desc     *device.Descriptor
	Layout   *device.FuseLayout // resolved once via device.ResolveFuseLayout, or Desc.FuseLayout; nil if the device has no fuses
	ChipIDs  device.ChipIDTable
	Progress ProgressReporter
}

// New builds an Orchestrator. progress may be nil, in which case
// NoopProgress is used.
func New(engine *protocol.Engine, desc *device.Descriptor, layout *device.FuseLayout, chipIDs device.ChipIDTable, progress ProgressReporter) *Orchestrator {
	if progress == nil {
		progress = NoopProgress{}
	}
	return &Orchestrator{Engine: engine, Desc: desc, Layout: layout, ChipIDs: chipIDs, Progress: progress}
}

// fuseAreaForCmd maps a FuseField's MiniproCmd group to the transport
// opcode triple the engine exposes. The vendor format uses small
// ascending group numbers (0, 1, 2, ...) that line up directly with
// protocol.FuseArea's own ordinals (user, cfg, lock).
func fuseAreaForCmd(cmd uint8) protocol.FuseArea {
	return protocol.FuseArea(cmd)
}

// readFuseConfig reads every group in layout and assembles a fuseconf.Config.
func readFuseConfig(e *protocol.Engine, layout *device.FuseLayout) (*fuseconf.Config, error) {
	cfg := fuseconf.New()
	for _, cmd := range layout.Commands() {
		fields := layout.FieldsForCommand(cmd)
		size := 0
		for _, f := range fields {
			if end := f.Offset + f.Length; end > size {
				size = end
			}
		}
		buf, err := e.ReadFuses(fuseAreaForCmd(cmd), uint8(len(fields)), size)
		if err != nil {
			return nil, fmt.Errorf("programmer: read fuses (group 0x%02x): %w", cmd, err)
		}
		for _, f := range fields {
			var v uint32
			for i := 0; i < f.Length; i++ {
				v |= uint32(buf[f.Offset+i]) << (8 * i)
			}
			cfg.Set(f.Name, v)
		}
	}
	return cfg, nil
}

// writeFuseConfig writes every group in layout from cfg.
func writeFuseConfig(e *protocol.Engine, layout *device.FuseLayout, cfg *fuseconf.Config) error {
	for _, cmd := range layout.Commands() {
		fields := layout.FieldsForCommand(cmd)
		size := 0
		for _, f := range fields {
			if end := f.Offset + f.Length; end > size {
				size = end
			}
		}
		buf := make([]byte, size)
		for _, f := range fields {
			v, err := cfg.Require(f.Name)
			if err != nil {
				return err
			}
			for i := 0; i < f.Length; i++ {
				buf[f.Offset+i] = byte(v >> (8 * i))
			}
		}
		if err := e.WriteFuses(fuseAreaForCmd(cmd), uint8(len(fields)), buf); err != nil {
			return fmt.Errorf("programmer: write fuses (group 0x%02x): %w", cmd, err)
		}
	}
	return nil
}
