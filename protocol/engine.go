// Package protocol is the A/CS dialect's command packet engine (C6),
// the heart of the driver: transaction lifecycle, chunked read/write
// with overcurrent polling, chip-id validation, fuse pack/unpack
// transport, TSOP48 unlock and JEDEC row access. It is grounded on
// the A/CS low-level ops in the vendor's tl866a.c.
package protocol

import (
	"fmt"
	"os"

	"github.com/tl866go/tl866prog/codec"
	"github.com/tl866go/tl866prog/device"
)

// ICSP option flags, sent verbatim in the BEGIN packet's byte 11.
type ICSP uint8

const (
	ICSPEnable    ICSP = 0x01
	ICSPSupplyVcc ICSP = 0x02
)

// MemoryType selects which page a read/write operation targets.
type MemoryType uint8

const (
	MemCode MemoryType = iota
	MemData
)

// FuseArea selects the fuse transport opcode triple (user/cfg/lock).
type FuseArea uint8

const (
	FuseAreaUser FuseArea = iota
	FuseAreaCfg
	FuseAreaLock
)

// Status is the decoded GET_STATUS reply (spec.md §4.6).
type Status struct {
	VerifyError  bool
	ExpectedByte uint16
	ActualByte   uint16
	Address      uint32
	Overcurrent  bool
}

// Engine drives one open programmer handle through the A/CS dialect.
// It owns no transport lifecycle (Transceiver is supplied by the
// caller) and is not safe for concurrent use — exactly one
// transaction may be open at a time (spec.md §3, §5).
type Engine struct {
	tx   Transceiver
	desc *device.Descriptor
	icsp ICSP

	transactionOpen bool
}

// NewEngine builds an Engine bound to desc over tx.
func NewEngine(tx Transceiver, desc *device.Descriptor, icsp ICSP) *Engine {
	return &Engine{tx: tx, desc: desc, icsp: icsp}
}

// protocolByte returns the 8-bit protocol id stamped into every
// packet, masking the 0x10063 sentinel down to its low byte.
func (e *Engine) protocolByte() uint8 {
	if e.desc.ProtocolID == device.ProtoPIC2Wide {
		return device.MaskPIC2Wide(e.desc.ProtocolID)
	}
	return uint8(e.desc.ProtocolID)
}

func (e *Engine) newPacket(op Opcode) []byte {
	return newPacket(op, e.protocolByte(), e.desc.Variant)
}

// BeginTransaction opens a transaction: the programmer applies
// programming voltages to the ZIF socket until EndTransaction closes
// it. It fails with ErrOvercurrent if the immediate status poll finds
// the overcurrent flag set (spec.md §4.6).
func (e *Engine) BeginTransaction() error {
	if e.transactionOpen {
		return ErrTransactionOpen
	}
	buf := e.newPacket(OpBegin)
	codec.FormatInt(buf[3:5], e.desc.DataMemorySize, 2, codec.LittleEndian)
	buf[5] = byte(e.desc.Opts1)
	codec.FormatInt(buf[6:8], uint32(e.desc.Opts2), 2, codec.LittleEndian)
	buf[8] = byte(e.desc.Opts1 >> 8)
	codec.FormatInt(buf[9:11], uint32(e.desc.Opts3), 2, codec.LittleEndian)
	buf[11] = byte(e.icsp)
	codec.FormatInt(buf[12:15], e.desc.CodeMemorySize, 3, codec.LittleEndian)

	if err := e.tx.Send(buf[:48]); err != nil {
		return err
	}
	e.transactionOpen = true

	status, err := e.GetStatus()
	if err != nil {
		return err
	}
	if status.Overcurrent {
		return ErrOvercurrent
	}
	return nil
}

// EndTransaction closes the transaction and removes programming
// voltages from the ZIF socket. Safe to call even if no transaction
// is open, matching the engine's "always close on fatal error" duty
// (spec.md §7): callers should call it unconditionally during error
// unwinding.
func (e *Engine) EndTransaction() error {
	buf := e.newPacket(OpEnd)
	err := e.tx.Send(buf[:4])
	e.transactionOpen = false
	return err
}

// GetStatus issues GET_STATUS and decodes the reply.
func (e *Engine) GetStatus() (*Status, error) {
	buf := e.newPacket(OpGetStatus)
	if err := e.tx.Send(buf[:5]); err != nil {
		return nil, err
	}
	reply := make([]byte, packetSize)
	if err := e.tx.Recv(reply); err != nil {
		return nil, err
	}
	return &Status{
		VerifyError:  reply[0] != 0,
		ExpectedByte: uint16(codec.LoadInt(reply[2:4], 2, codec.LittleEndian)),
		ActualByte:   uint16(codec.LoadInt(reply[4:6], 2, codec.LittleEndian)),
		Address:      codec.LoadInt(reply[6:9], 3, codec.LittleEndian),
		Overcurrent:  reply[9] != 0,
	}, nil
}

// pollOvercurrent issues GET_STATUS purely for its overcurrent bit,
// used between read/write chunks (spec.md §4.6).
func (e *Engine) pollOvercurrent() error {
	status, err := e.GetStatus()
	if err != nil {
		return err
	}
	if status.Overcurrent {
		return ErrOvercurrent
	}
	return nil
}

// Erase issues ERASE. fuseLayout is the already-resolved layout for
// this descriptor (device.ResolveFuseLayout), or nil if none — the
// erase-cycle count is derived from it, never from a mutated
// descriptor field (spec.md §9 DESIGN NOTES).
func (e *Engine) Erase(fuseLayout *device.FuseLayout) error {
	buf := e.newPacket(OpErase)
	codec.FormatInt(buf[2:4], 0x0003, 2, codec.LittleEndian)
	if !e.desc.IsGAL() {
		cycles := uint8(1)
		if fuseLayout != nil && fuseLayout.ErasePulses > 0 {
			cycles = fuseLayout.ErasePulses
		}
		buf[2] = cycles
	}
	if err := e.tx.Send(buf[:15]); err != nil {
		return err
	}
	reply := make([]byte, packetSize)
	return e.tx.Recv(reply)
}

// ProtectOff disables write protection, only meaningful when
// d.ProtectSupported().
func (e *Engine) ProtectOff() error {
	buf := e.newPacket(OpProtectOff)
	return e.tx.Send(buf[:10])
}

// ProtectOn re-enables write protection.
func (e *Engine) ProtectOn() error {
	buf := e.newPacket(OpProtectOn)
	return e.tx.Send(buf[:10])
}

func (e *Engine) translateAddress(addr uint32) uint32 {
	if e.desc.WordAddressed() {
		return addr >> 1
	}
	return addr
}

func readOpcodeFor(memType MemoryType) Opcode {
	if memType == MemData {
		return OpReadData
	}
	return OpReadCode
}

func writeOpcodeFor(memType MemoryType) Opcode {
	if memType == MemData {
		return OpWriteData
	}
	return OpWriteCode
}

// ReadBlock issues one READ_CODE/READ_DATA transfer. addr is a
// logical (byte) address; it is translated to a wire address for
// word-addressed chips.
func (e *Engine) ReadBlock(memType MemoryType, addr uint32, size int) ([]byte, error) {
	buf := e.newPacket(readOpcodeFor(memType))
	codec.FormatInt(buf[2:4], uint32(size), 2, codec.LittleEndian)
	codec.FormatInt(buf[4:7], e.translateAddress(addr), 3, codec.LittleEndian)
	if err := e.tx.Send(buf[:18]); err != nil {
		return nil, err
	}
	out := make([]byte, size)
	if err := e.tx.Recv(out); err != nil {
		return nil, err
	}
	return out, nil
}

// WriteBlock issues one WRITE_CODE/WRITE_DATA transfer carrying
// payload. No reply is read.
func (e *Engine) WriteBlock(memType MemoryType, addr uint32, payload []byte) error {
	buf := make([]byte, 7+len(payload))
	buf[0] = byte(writeOpcodeFor(memType))
	buf[1] = e.protocolByte()
	codec.FormatInt(buf[2:4], uint32(len(payload)), 2, codec.LittleEndian)
	codec.FormatInt(buf[4:7], e.translateAddress(addr), 3, codec.LittleEndian)
	copy(buf[7:], payload)
	return e.tx.Send(buf)
}

const ovcPollInterval = 10 // poll GET_STATUS every this many chunks (spec.md §4.6)

// ReadPage chunks a size-byte read of memType starting at address 0
// into buffer-size pieces, polling overcurrent every 10 blocks.
func (e *Engine) ReadPage(memType MemoryType, size int) ([]byte, error) {
	bufSize := e.desc.ReadBufferSize
	out := make([]byte, 0, size)
	blocks := (size + bufSize - 1) / bufSize
	for i := 0; i < blocks; i++ {
		addr := uint32(i * bufSize)
		n := bufSize
		if remaining := size - i*bufSize; remaining < n {
			n = remaining
		}
		chunk, err := e.ReadBlock(memType, addr, n)
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
		if (i+1)%ovcPollInterval == 0 {
			if err := e.pollOvercurrent(); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// WritePage chunks writing data into memType starting at address 0,
// polling overcurrent every 10 blocks.
func (e *Engine) WritePage(memType MemoryType, data []byte) error {
	bufSize := e.desc.WriteBufferSize
	size := len(data)
	blocks := (size + bufSize - 1) / bufSize
	for i := 0; i < blocks; i++ {
		addr := uint32(i * bufSize)
		end := (i + 1) * bufSize
		if end > size {
			end = size
		}
		if err := e.WriteBlock(memType, addr, data[i*bufSize:end]); err != nil {
			return err
		}
		if (i+1)%ovcPollInterval == 0 {
			if err := e.pollOvercurrent(); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReadPageNotify is ReadPage with a callback invoked after each chunk,
// reporting bytes read so far — the seam an orchestrator's progress
// reporter hooks into without the engine knowing anything about bars
// or terminals (spec.md §9: "progress reporting belongs behind an
// interface").
func (e *Engine) ReadPageNotify(memType MemoryType, size int, onChunk func(done int)) ([]byte, error) {
	bufSize := e.desc.ReadBufferSize
	out := make([]byte, 0, size)
	blocks := (size + bufSize - 1) / bufSize
	for i := 0; i < blocks; i++ {
		addr := uint32(i * bufSize)
		n := bufSize
		if remaining := size - i*bufSize; remaining < n {
			n = remaining
		}
		chunk, err := e.ReadBlock(memType, addr, n)
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
		if onChunk != nil {
			onChunk(len(out))
		}
		if (i+1)%ovcPollInterval == 0 {
			if err := e.pollOvercurrent(); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// WritePageNotify is WritePage with a per-chunk progress callback; see ReadPageNotify.
func (e *Engine) WritePageNotify(memType MemoryType, data []byte, onChunk func(done int)) error {
	bufSize := e.desc.WriteBufferSize
	size := len(data)
	blocks := (size + bufSize - 1) / bufSize
	for i := 0; i < blocks; i++ {
		addr := uint32(i * bufSize)
		end := (i + 1) * bufSize
		if end > size {
			end = size
		}
		if err := e.WriteBlock(memType, addr, data[i*bufSize:end]); err != nil {
			return err
		}
		if onChunk != nil {
			onChunk(end)
		}
		if (i+1)%ovcPollInterval == 0 {
			if err := e.pollOvercurrent(); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetChipID issues GET_CHIP_ID and returns the id type and the
// decoded value (endianness per spec.md §4.6: little-endian for
// types 3 and 4, big-endian otherwise).
func (e *Engine) GetChipID() (device.ChipIDType, uint32, error) {
	buf := e.newPacket(OpGetChipID)
	if err := e.tx.Send(buf[:8]); err != nil {
		return 0, 0, err
	}
	reply := make([]byte, 32)
	if err := e.tx.Recv(reply); err != nil {
		return 0, 0, err
	}
	idType := device.ChipIDType(reply[0])
	length := int(reply[1] & 0x03)
	if length == 0 {
		return idType, 0, nil
	}
	order := codec.BigEndian
	if idType == device.ChipIDType3 || idType == device.ChipIDType4 {
		order = codec.LittleEndian
	}
	id := codec.LoadInt(reply[2:2+length], length, order)
	return idType, id, nil
}

// VerifyChipID runs the chip-id validation gate (spec.md §4.6): it
// resolves any Microchip-workaround chip id, reads the live id and
// compares it, returning *ChipIDMismatch on a fatal mismatch.
// continueOnMismatch turns a mismatch into a warning on stderr and a
// nil return.
func (e *Engine) VerifyChipID(table device.ChipIDTable, continueOnMismatch bool) error {
	if e.desc.ChipIDBytesCount <= 0 {
		return nil
	}
	shift := device.ResolveChipID(e.desc, table)
	idType, got, err := e.GetChipID()
	if err != nil {
		return err
	}
	ok, _ := device.MatchChipID(idType, got, e.desc.ChipID, shift)
	if ok {
		return nil
	}
	mismatch := &ChipIDMismatch{Expected: e.desc.ChipID, Got: got}
	if continueOnMismatch {
		fmt.Fprintf(os.Stderr, "warning: %v\n", mismatch)
		return nil
	}
	return mismatch
}

// ReadFuses reads one fuse area (user/cfg/lock), sending itemsCount
// in the request, and returns the first size bytes of the reply
// payload.
func (e *Engine) ReadFuses(area FuseArea, itemsCount uint8, size int) ([]byte, error) {
	op := map[FuseArea]Opcode{FuseAreaUser: OpReadUser, FuseAreaCfg: OpReadCfg, FuseAreaLock: OpReadLock}[area]
	buf := e.newPacket(op)
	buf[2] = itemsCount
	codec.FormatInt(buf[4:7], e.desc.CodeMemorySize, 3, codec.LittleEndian)
	if err := e.tx.Send(buf[:18]); err != nil {
		return nil, err
	}
	reply := make([]byte, packetSize)
	if err := e.tx.Recv(reply); err != nil {
		return nil, err
	}
	return append([]byte(nil), reply[7:7+size]...), nil
}

// WriteFuses writes one fuse area from payload.
func (e *Engine) WriteFuses(area FuseArea, itemsCount uint8, payload []byte) error {
	op := map[FuseArea]Opcode{FuseAreaUser: OpWriteUser, FuseAreaCfg: OpWriteCfg, FuseAreaLock: OpWriteLock}[area]
	buf := e.newPacket(op)
	buf[2] = itemsCount
	codec.FormatInt(buf[4:7], e.desc.CodeMemorySize, 3, codec.LittleEndian)
	copy(buf[7:], payload)
	return e.tx.Send(buf)
}
