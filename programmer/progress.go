package programmer

import (
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// ProgressReporter is the engine-headless-testing seam spec.md §9
// asks for: the orchestrator reports phase boundaries and per-chunk
// progress through this interface, never touching a terminal
// directly, so tests can supply a no-op implementation.
type ProgressReporter interface {
	// StartPhase announces a new phase (e.g. "read code", "verify")
	// with the total number of units (bytes) it will cover.
	StartPhase(label string, total int)
	// Advance reports that n units of the current phase are now
	// complete: a running total, as the engine's per-chunk callbacks
	// report it, not an increment.
	Advance(n int)
	// Done closes out the current phase.
	Done()
}

// NoopProgress discards all reporting; the default for library callers
// that don't want terminal output (and for every test in this package).
type NoopProgress struct{}

func (NoopProgress) StartPhase(string, int) {}
func (NoopProgress) Advance(int)            {}
func (NoopProgress) Done()                  {}

// barProgress is the default ProgressReporter, one mpb bar per phase,
// grounded on guiperry-HASHER/pipeline/1_DATA_MINER's
// internal/app/processor.go bar setup.
type barProgress struct {
	p   *mpb.Progress
	bar *mpb.Bar
}

// NewBarProgress returns a ProgressReporter that renders one progress
// bar per phase to the terminal.
func NewBarProgress() ProgressReporter {
	return &barProgress{p: mpb.New(mpb.WithWidth(80))}
}

func (b *barProgress) StartPhase(label string, total int) {
	b.bar = b.p.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name(label+": "),
			decor.Percentage(decor.WCSyncSpace),
		),
		mpb.AppendDecorators(
			decor.OnComplete(decor.AverageETA(decor.ET_STYLE_GO), "done!"),
		),
	)
}

func (b *barProgress) Advance(n int) {
	if b.bar != nil {
		b.bar.SetCurrent(int64(n))
	}
}

func (b *barProgress) Done() {
	if b.bar != nil {
		b.bar.SetCurrent(b.bar.Current())
	}
	b.p.Wait()
}
