package device

// ChipIDType selects how a GET_CHIP_ID reply is compared against the
// descriptor's expected ChipID (spec.md §4.6).
type ChipIDType uint8

const (
	ChipIDType1 ChipIDType = 1
	ChipIDType2 ChipIDType = 2
	ChipIDType3 ChipIDType = 3
	ChipIDType4 ChipIDType = 4
	ChipIDType5 ChipIDType = 5
)

// ChipIDTableEntry is the Microchip workaround table indexed by
// opts3-1: some PIC descriptors carry ChipID == 0 and look up the
// real expected id (plus, for type-4 ids, the shift amount) here
// instead.
type ChipIDTableEntry struct {
	ChipID uint32
	Shift  uint8
}

// ChipIDTable maps an (opts3 - 1) index to its resolved entry.
type ChipIDTable map[uint16]ChipIDTableEntry

// ResolveChipID fills in d.ChipID from table when the descriptor
// declares a nonzero ChipIDBytesCount but ChipID is unresolved (0),
// per the Microchip workaround in spec.md §4.6. It returns the shift
// to use for id-type-4 comparisons, or 0 if the table has no entry.
func ResolveChipID(d *Descriptor, table ChipIDTable) uint8 {
	if d.ChipIDBytesCount <= 0 || d.ChipID != 0 || table == nil {
		return 0
	}
	entry, ok := table[d.Opts3-1]
	if !ok {
		return 0
	}
	d.ChipID = entry.ChipID
	return entry.Shift
}

// MatchChipID implements the per-id-type comparison rule from
// spec.md §4.6. revision is meaningful only for type 3 (silicon
// revision, the low 5 bits).
func MatchChipID(idType ChipIDType, chipID, expected uint32, shift uint8) (ok bool, revision uint8) {
	switch idType {
	case ChipIDType1, ChipIDType2, ChipIDType5:
		return chipID == expected, 0
	case ChipIDType3:
		return (chipID >> 5) == expected, uint8(chipID & 0x1F)
	case ChipIDType4:
		// Correct single right-shift: the original C source's
		// "chip_id >> chip_id >> shift" double-shifts by chip_id
		// itself, which is almost certainly a transcription bug
		// (spec.md §9 DESIGN NOTES). The id-OK branch there only
		// makes sense under a single shift by `shift`.
		return (chipID >> shift) == expected, 0
	default:
		return false, 0
	}
}
