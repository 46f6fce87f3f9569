package programmer

import "fmt"

// SizeMismatchError is returned by Write when the input file length
// does not match the target memory size and the caller has not asked
// for a warn-only policy (spec.md §4.8, §7).
type SizeMismatchError struct {
	Want, Got int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("programmer: file size %d, want %d", e.Got, e.Want)
}

// VerifyMismatchError is returned by Write's post-program verify pass
// on the first differing byte.
type VerifyMismatchError struct {
	Addr       int
	File, Chip byte
}

func (e *VerifyMismatchError) Error() string {
	return fmt.Sprintf("programmer: verify mismatch at 0x%x: file=0x%02x chip=0x%02x", e.Addr, e.File, e.Chip)
}

// ErrUnknownMemoryType is returned when a Page selector names a memory
// the target descriptor does not have (e.g. -c data on a device with
// no data memory).
type ErrUnknownMemoryType struct {
	Page Page
}

func (e *ErrUnknownMemoryType) Error() string {
	return fmt.Sprintf("programmer: device has no %s memory", e.Page)
}
