package programmer

import (
	"fmt"
	"os"

	"github.com/tl866go/tl866prog/fuseconf"
	"github.com/tl866go/tl866prog/protocol"
)

// WriteOptions configures Write.
type WriteOptions struct {
	Page Page

	NoErase      bool // -e
	NoProtectOff bool // -u
	NoProtectOn  bool // -P
	NoVerify     bool // -v

	SkipIDCheck          bool // -x
	ContinueOnIDMismatch bool // -y

	SizeMismatch SizeMismatchPolicy // -s / -S
}

// WriteInput carries the payloads to program; a nil field for a page
// the caller isn't targeting is fine, Write only looks at the ones
// opts.Page selects.
type WriteInput struct {
	Code  []byte
	Data  []byte
	Fuses *fuseconf.Config
}

func checkSize(name string, got, want int, policy SizeMismatchPolicy) error {
	if got == want {
		return nil
	}
	switch policy {
	case SizeMismatchFatal:
		return &SizeMismatchError{Want: want, Got: got}
	case SizeMismatchWarn:
		fmt.Fprintf(os.Stderr, "programmer: warning: %s size %d, expected %d\n", name, got, want)
	case SizeMismatchSilent:
		// no output at all
	}
	return nil
}

// Write runs the full write flow (spec.md §4.8): size-mismatch check,
// an erase transaction, a main transaction (chip-id gate, protect-off,
// chunked write, verify), and — if the device supports write
// protection and the caller didn't pass -P — a closing protect-on
// transaction.
func (o *Orchestrator) Write(input WriteInput, opts WriteOptions) error {
	wantCode := opts.Page == PageUnspecified || opts.Page == PageCode
	wantData := (opts.Page == PageUnspecified || opts.Page == PageData) && input.Data != nil
	wantFuses := (opts.Page == PageUnspecified || opts.Page == PageConfig) && input.Fuses != nil

	if wantCode {
		if err := checkSize("code", len(input.Code), int(o.Desc.CodeMemorySize), opts.SizeMismatch); err != nil {
			return err
		}
	}
	if wantData {
		if err := checkSize("data", len(input.Data), int(o.Desc.DataMemorySize), opts.SizeMismatch); err != nil {
			return err
		}
	}

	if !opts.NoErase {
		if err := o.Engine.BeginTransaction(); err != nil {
			return err
		}
		if err := o.Engine.Erase(o.Layout); err != nil {
			o.Engine.EndTransaction()
			return err
		}
		if err := o.Engine.EndTransaction(); err != nil {
			return err
		}
	}

	if err := o.writeMainTransaction(input, opts, wantCode, wantData, wantFuses); err != nil {
		return err
	}

	if o.Desc.ProtectSupported() && !opts.NoProtectOn {
		if err := o.Engine.BeginTransaction(); err != nil {
			return err
		}
		if err := o.Engine.ProtectOn(); err != nil {
			o.Engine.EndTransaction()
			return err
		}
		if err := o.Engine.EndTransaction(); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) writeMainTransaction(input WriteInput, opts WriteOptions, wantCode, wantData, wantFuses bool) (err error) {
	if err := o.Engine.BeginTransaction(); err != nil {
		return err
	}
	defer func() {
		if endErr := o.Engine.EndTransaction(); err == nil {
			err = endErr
		}
	}()

	if !opts.SkipIDCheck {
		if err := o.Engine.VerifyChipID(o.ChipIDs, opts.ContinueOnIDMismatch); err != nil {
			return err
		}
	}

	if o.Desc.NeedsTSOP48Unlock() {
		if _, err := o.Engine.UnlockTSOP48(); err != nil {
			return err
		}
	}

	if !opts.NoProtectOff && o.Desc.ProtectSupported() {
		if err := o.Engine.ProtectOff(); err != nil {
			return err
		}
	}

	if wantCode {
		if o.Desc.IsGAL() {
			if err := o.writeGALFuseMap(input.Code, opts.NoVerify); err != nil {
				return err
			}
		} else if err := o.writeAndVerify(protocol.MemCode, "code", input.Code, opts.NoVerify); err != nil {
			return err
		}
	}
	if wantData {
		if err := o.writeAndVerify(protocol.MemData, "data", input.Data, opts.NoVerify); err != nil {
			return err
		}
	}
	if wantFuses {
		if err := writeFuseConfig(o.Engine, o.Layout, input.Fuses); err != nil {
			return err
		}
	}
	return nil
}

// writeGALFuseMap writes a GAL/PAL device's fuse map through the
// JEDEC-row pipeline (spec.md §4.6), used in place of writeAndVerify
// because GAL devices have no byte-addressed code page.
func (o *Orchestrator) writeGALFuseMap(data []byte, noVerify bool) error {
	totalBits := int(o.Desc.CodeMemorySize)
	o.Progress.StartPhase("write code", len(data))
	err := o.Engine.WriteGALFuseMap(totalBits, o.Desc.RowBits, data)
	o.Progress.Done()
	if err != nil {
		return err
	}
	if noVerify {
		return nil
	}
	o.Progress.StartPhase("verify code", len(data))
	readBack, err := o.Engine.ReadGALFuseMap(totalBits, o.Desc.RowBits)
	o.Progress.Done()
	if err != nil {
		return err
	}
	for i := range data {
		var chipByte byte
		if i < len(readBack) {
			chipByte = readBack[i]
		}
		if i >= len(readBack) || data[i] != chipByte {
			return &VerifyMismatchError{Addr: i, File: data[i], Chip: chipByte}
		}
	}
	return nil
}

func (o *Orchestrator) writeAndVerify(memType protocol.MemoryType, label string, data []byte, noVerify bool) error {
	o.Progress.StartPhase("write "+label, len(data))
	err := o.Engine.WritePageNotify(memType, data, o.Progress.Advance)
	o.Progress.Done()
	if err != nil {
		return err
	}
	if noVerify {
		return nil
	}
	o.Progress.StartPhase("verify "+label, len(data))
	readBack, err := o.Engine.ReadPageNotify(memType, len(data), o.Progress.Advance)
	o.Progress.Done()
	if err != nil {
		return err
	}
	for i := range data {
		if data[i] != readBack[i] {
			return &VerifyMismatchError{Addr: i, File: data[i], Chip: readBack[i]}
		}
	}
	return nil
}
