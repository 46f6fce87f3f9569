package programmer

import (
	"github.com/tl866go/tl866prog/fuseconf"
	"github.com/tl866go/tl866prog/protocol"
)

// ReadOptions configures Read.
type ReadOptions struct {
	Page                 Page
	SkipIDCheck          bool // -x
	ContinueOnIDMismatch bool // -y
}

// ReadResult carries whatever pages were actually read; unread pages
// are left nil/zero so the caller can tell them apart from "empty".
type ReadResult struct {
	Code  []byte
	Data  []byte
	Fuses *fuseconf.Config
}

// Read runs the full read flow (spec.md §4.8): chip-id gate, then
// chunked reads of whichever pages the selector names. Unlike the
// original's fallthrough switch, each page is an explicit, independent
// condition (spec.md §9 DESIGN NOTES) rather than CODE falling through
// into DATA falling through into CONFIG.
func (o *Orchestrator) Read(opts ReadOptions) (res *ReadResult, err error) {
	wantCode := opts.Page == PageUnspecified || opts.Page == PageCode
	wantData := (opts.Page == PageUnspecified || opts.Page == PageData) && o.Desc.DataMemorySize > 0
	wantFuses := (opts.Page == PageUnspecified || opts.Page == PageConfig) && o.Layout != nil

	if opts.Page == PageData && o.Desc.DataMemorySize == 0 {
		return nil, &ErrUnknownMemoryType{Page: PageData}
	}
	if opts.Page == PageConfig && o.Layout == nil {
		return nil, &ErrUnknownMemoryType{Page: PageConfig}
	}

	if err := o.Engine.BeginTransaction(); err != nil {
		return nil, err
	}
	defer func() {
		if endErr := o.Engine.EndTransaction(); err == nil {
			err = endErr
		}
	}()

	if !opts.SkipIDCheck {
		if err := o.Engine.VerifyChipID(o.ChipIDs, opts.ContinueOnIDMismatch); err != nil {
			return nil, err
		}
	}

	if o.Desc.NeedsTSOP48Unlock() {
		if _, err := o.Engine.UnlockTSOP48(); err != nil {
			return nil, err
		}
	}

	res = &ReadResult{}

	if wantCode {
		o.Progress.StartPhase("read code", int(o.Desc.CodeMemorySize))
		var data []byte
		var rerr error
		if o.Desc.IsGAL() {
			data, rerr = o.Engine.ReadGALFuseMap(int(o.Desc.CodeMemorySize), o.Desc.RowBits)
		} else {
			data, rerr = o.Engine.ReadPageNotify(protocol.MemCode, int(o.Desc.CodeMemorySize), o.Progress.Advance)
		}
		o.Progress.Done()
		if rerr != nil {
			return nil, rerr
		}
		res.Code = data
	}

	if wantData {
		o.Progress.StartPhase("read data", int(o.Desc.DataMemorySize))
		data, rerr := o.Engine.ReadPageNotify(protocol.MemData, int(o.Desc.DataMemorySize), o.Progress.Advance)
		o.Progress.Done()
		if rerr != nil {
			return nil, rerr
		}
		res.Data = data
	}

	if wantFuses {
		cfg, rerr := readFuseConfig(o.Engine, o.Layout)
		if rerr != nil {
			return nil, rerr
		}
		res.Fuses = cfg
	}

	return res, nil
}
