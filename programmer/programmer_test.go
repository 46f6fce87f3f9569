package programmer

import (
	"bytes"
	"testing"

	"github.com/tl866go/tl866prog/device"
	"github.com/tl866go/tl866prog/protocol"
)

// fakeDevice is a minimal in-memory model of a programmer's code/data
// memory, enough to drive a full Orchestrator.Write/.Read round trip
// without real hardware.
type fakeDevice struct {
	code, data []byte
	lastOp     protocol.Opcode
	lastAddr   uint32
	lastSize   int
}

func newFakeDevice(codeSize, dataSize int) *fakeDevice {
	return &fakeDevice{code: make([]byte, codeSize), data: make([]byte, dataSize)}
}

func le16(b []byte) uint32 { return uint32(b[0]) | uint32(b[1])<<8 }
func le24(b []byte) uint32 { return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 }

func (f *fakeDevice) Send(buf []byte) error {
	f.lastOp = protocol.Opcode(buf[0])
	switch f.lastOp {
	case protocol.OpWriteCode:
		size, addr := int(le16(buf[2:4])), le24(buf[4:7])
		copy(f.code[addr:int(addr)+size], buf[7:7+size])
	case protocol.OpWriteData:
		size, addr := int(le16(buf[2:4])), le24(buf[4:7])
		copy(f.data[addr:int(addr)+size], buf[7:7+size])
	case protocol.OpReadCode:
		f.lastSize, f.lastAddr = int(le16(buf[2:4])), le24(buf[4:7])
	case protocol.OpReadData:
		f.lastSize, f.lastAddr = int(le16(buf[2:4])), le24(buf[4:7])
	case protocol.OpErase:
		for i := range f.code {
			f.code[i] = 0xFF
		}
		for i := range f.data {
			f.data[i] = 0xFF
		}
	}
	return nil
}

func (f *fakeDevice) Recv(buf []byte) error {
	switch f.lastOp {
	case protocol.OpReadCode:
		copy(buf, f.code[f.lastAddr:int(f.lastAddr)+f.lastSize])
	case protocol.OpReadData:
		copy(buf, f.data[f.lastAddr:int(f.lastAddr)+f.lastSize])
	}
	return nil
}

func at28c256() *device.Descriptor {
	return device.NewDefaultDatabase().All()[0] // AT28C256: no chip id, no fuses
}

// fakeGALDevice models a GAL/PAL logic device's JEDEC-row storage:
// OpReadCode/OpWriteCode carry a row index and bit count instead of a
// byte address and size, per protocol.ReadJEDECRow/WriteJEDECRow.
type fakeGALDevice struct {
	rows        map[uint8][]byte
	lastRow     uint8
	lastRowBits int
}

func newFakeGALDevice() *fakeGALDevice { return &fakeGALDevice{rows: map[uint8][]byte{}} }

func (f *fakeGALDevice) Send(buf []byte) error {
	switch protocol.Opcode(buf[0]) {
	case protocol.OpWriteCode:
		rowBits := int(buf[2])
		size := rowBits/8 + 1
		f.rows[buf[4]] = append([]byte(nil), buf[7:7+size]...)
	case protocol.OpReadCode:
		f.lastRowBits = int(buf[2])
		f.lastRow = buf[4]
	}
	return nil
}

func (f *fakeGALDevice) Recv(buf []byte) error {
	copy(buf, f.rows[f.lastRow])
	return nil
}

func galDescriptor() *device.Descriptor {
	return &device.Descriptor{
		Name:            "GAL16V8TEST",
		ProtocolID:      device.ProtoPLD16V8,
		CodeMemorySize:  2194,
		Opts4:           uint32(device.UnitBits) << device.Opts4UnitShift,
		RowBits:         32,
		ReadBufferSize:  256,
		WriteBufferSize: 256,
	}
}

func TestWriteThenReadGALFuseMapRoundTrip(t *testing.T) {
	desc := galDescriptor()
	fake := newFakeGALDevice()
	engine := protocol.NewEngine(fake, desc, 0)
	o := New(engine, desc, nil, nil, nil)

	rows := (int(desc.CodeMemorySize) + desc.RowBits - 1) / desc.RowBits
	rowSize := desc.RowBits/8 + 1
	payload := bytes.Repeat([]byte{0x5A}, rows*rowSize)

	if err := o.Write(WriteInput{Code: payload}, WriteOptions{NoErase: true, SizeMismatch: SizeMismatchSilent}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	res, err := o.Read(ReadOptions{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(res.Code, payload) {
		t.Fatal("GAL fuse map read-back does not match what was written")
	}
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	desc := at28c256()
	fake := newFakeDevice(int(desc.CodeMemorySize), 0)
	engine := protocol.NewEngine(fake, desc, 0)
	o := New(engine, desc, nil, nil, nil)

	payload := bytes.Repeat([]byte{0xAB, 0xCD}, int(desc.CodeMemorySize)/2)
	if err := o.Write(WriteInput{Code: payload}, WriteOptions{}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	res, err := o.Read(ReadOptions{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(res.Code, payload) {
		t.Fatal("read-back code does not match what was written")
	}
}

func TestWriteSizeMismatchFatal(t *testing.T) {
	desc := at28c256()
	fake := newFakeDevice(int(desc.CodeMemorySize), 0)
	engine := protocol.NewEngine(fake, desc, 0)
	o := New(engine, desc, nil, nil, nil)

	err := o.Write(WriteInput{Code: make([]byte, 10)}, WriteOptions{})
	if err == nil {
		t.Fatal("expected a size mismatch error")
	}
	if _, ok := err.(*SizeMismatchError); !ok {
		t.Fatalf("expected *SizeMismatchError, got %T: %v", err, err)
	}
}

func TestWriteSizeMismatchWarnProceeds(t *testing.T) {
	desc := at28c256()
	fake := newFakeDevice(int(desc.CodeMemorySize), 0)
	engine := protocol.NewEngine(fake, desc, 0)
	o := New(engine, desc, nil, nil, nil)

	short := bytes.Repeat([]byte{0x11}, int(desc.CodeMemorySize)-4)
	err := o.Write(WriteInput{Code: short}, WriteOptions{SizeMismatch: SizeMismatchWarn})
	if err != nil {
		t.Fatalf("Write with warn-only policy should proceed, got: %v", err)
	}
}

func TestWriteNoVerifySkipsReadback(t *testing.T) {
	desc := at28c256()
	fake := newFakeDevice(int(desc.CodeMemorySize), 0)
	engine := protocol.NewEngine(fake, desc, 0)
	o := New(engine, desc, nil, nil, nil)

	payload := bytes.Repeat([]byte{0x42}, int(desc.CodeMemorySize))
	if err := o.Write(WriteInput{Code: payload}, WriteOptions{NoVerify: true}); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func TestReadPageSelectorSkipsOtherPages(t *testing.T) {
	desc := device.NewDefaultDatabase().All()[1] // PIC16F84A: has data memory and fuses
	fake := newFakeDevice(int(desc.CodeMemorySize), int(desc.DataMemorySize))
	engine := protocol.NewEngine(fake, desc, 0)
	o := New(engine, desc, desc.FuseLayout, device.DefaultChipIDTable(), nil)

	res, err := o.Read(ReadOptions{Page: PageCode, SkipIDCheck: true})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if res.Code == nil {
		t.Fatal("expected code to be read")
	}
	if res.Data != nil || res.Fuses != nil {
		t.Fatal("PageCode selector should not read data or fuses")
	}
}

func TestReadDataOnUnsupportedDeviceFails(t *testing.T) {
	desc := at28c256() // DataMemorySize == 0
	fake := newFakeDevice(int(desc.CodeMemorySize), 0)
	engine := protocol.NewEngine(fake, desc, 0)
	o := New(engine, desc, nil, nil, nil)

	_, err := o.Read(ReadOptions{Page: PageData})
	if err == nil {
		t.Fatal("expected ErrUnknownMemoryType")
	}
	if _, ok := err.(*ErrUnknownMemoryType); !ok {
		t.Fatalf("expected *ErrUnknownMemoryType, got %T: %v", err, err)
	}
}
