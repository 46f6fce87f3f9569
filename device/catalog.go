package device

// DefaultFuseLayouts returns the fuse-layout registry named by
// spec.md §4.4: avr_fuses, avr2_fuses, avr3_fuses, pic_fuses and
// pic2_fuses. Field names and offsets are representative of the
// chip families they cover, not a transcription of every device's
// firmware-documented bit layout.
func DefaultFuseLayouts() map[string]*FuseLayout {
	return map[string]*FuseLayout{
		"avr_fuses": {
			ID: "avr_fuses",
			Fields: []FuseField{
				{Name: "low", MiniproCmd: 0x00, Length: 1, Offset: 0},
				{Name: "lock", MiniproCmd: 0x01, Length: 1, Offset: 0},
			},
		},
		"avr2_fuses": {
			ID: "avr2_fuses",
			Fields: []FuseField{
				{Name: "low", MiniproCmd: 0x00, Length: 1, Offset: 0},
				{Name: "high", MiniproCmd: 0x00, Length: 1, Offset: 1},
				{Name: "lock", MiniproCmd: 0x01, Length: 1, Offset: 0},
			},
		},
		"avr3_fuses": {
			ID: "avr3_fuses",
			Fields: []FuseField{
				{Name: "low", MiniproCmd: 0x00, Length: 1, Offset: 0},
				{Name: "high", MiniproCmd: 0x00, Length: 1, Offset: 1},
				{Name: "extended", MiniproCmd: 0x00, Length: 1, Offset: 2},
				{Name: "lock", MiniproCmd: 0x01, Length: 1, Offset: 0},
			},
		},
		"pic_fuses": {
			ID: "pic_fuses",
			Fields: []FuseField{
				{Name: "config_word", MiniproCmd: 0x00, Length: 2, Offset: 0},
			},
			ErasePulses: 3,
		},
		"pic2_fuses": {
			ID: "pic2_fuses",
			Fields: []FuseField{
				{Name: "config_word1", MiniproCmd: 0x00, Length: 2, Offset: 0},
				{Name: "config_word2", MiniproCmd: 0x00, Length: 2, Offset: 2},
				{Name: "user_id", MiniproCmd: 0x01, Length: 4, Offset: 0},
			},
			ErasePulses: 4,
		},
	}
}

// DefaultChipIDTable returns the Microchip opts3-indexed workaround
// table used by ResolveChipID. The sample entry corresponds to the
// id-type-4 PIC families whose chip id is not known at database
// compile time.
func DefaultChipIDTable() ChipIDTable {
	return ChipIDTable{
		0: {ChipID: 0x1234, Shift: 5},
	}
}

// NewDefaultDatabase builds the static device database. It covers
// the families exercised by the end-to-end scenarios (spec.md §8):
// a byte-addressed parallel EEPROM, a word-addressed PIC, and a GAL
// logic device.
func NewDefaultDatabase() *Database {
	layouts := DefaultFuseLayouts()

	at28c256 := &Descriptor{
		Name:             "AT28C256",
		ProtocolID:       0x01, // generic parallel EPROM/EEPROM class
		Variant:          0,
		CodeMemorySize:   32768,
		ChipIDBytesCount: 0,
		Opts1:            0x0C10, // VPP=0x0C, VDD/VCC=0x10 (vendor-opaque, carried verbatim)
		Opts2:            0x0000,
		Opts3:            0x0000,
		Opts4:            0x00000000,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		FuseLayout:       nil,
	}

	pic16f84a := &Descriptor{
		Name:             "PIC16F84A",
		ProtocolID:       ProtoPIC63,
		Variant:          0,
		CodeMemorySize:   2048, // 1024 14-bit words, stored as bytes of 2
		DataMemorySize:   64,
		ChipID:           0x1234,
		ChipIDBytesCount: 2,
		Opts1:            0x0C10,
		Opts2:            0x0000,
		Opts3:            0x0001,
		Opts4:            Opts4WordAddressed | Opts4ProtectMask,
		ReadBufferSize:   32,
		WriteBufferSize:  32,
		FuseLayout:       layouts["pic_fuses"],
	}

	gal16v8 := &Descriptor{
		Name:             "GAL16V8",
		ProtocolID:       ProtoPLD16V8,
		Variant:          0,
		CodeMemorySize:   2194, // bits, per JEDEC fuse map; unit = bits (opts4 class 2)
		ChipIDBytesCount: 0,
		Opts1:            0x0510,
		Opts2:            0x0000,
		Opts3:            0x0000,
		Opts4:            uint32(UnitBits) << Opts4UnitShift,
		ReadBufferSize:   256,
		WriteBufferSize:  256,
		FuseLayout:       nil,
		// The GAL16V8's AND-array is naturally organized as 32-bit
		// rows; the vendor's per-family row-width table also folds in
		// UES/sync fuses this simplified map doesn't model separately.
		RowBits: 32,
	}

	return NewDatabase([]*Descriptor{at28c256, pic16f84a, gal16v8})
}
