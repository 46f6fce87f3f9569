package protocol

import (
	"testing"

	"github.com/tl866go/tl866prog/codec"
	"github.com/tl866go/tl866prog/device"
)

func countOpcode(ops []Opcode, want Opcode) int {
	n := 0
	for _, op := range ops {
		if op == want {
			n++
		}
	}
	return n
}

// End-to-end scenario 1 (spec.md §8): reading an AT28C256-shaped
// descriptor must emit BEGIN, 32 READ_CODE packets of 1024 bytes at
// addresses 0,1024,...,31744, GET_STATUS polls after blocks 10/20/30,
// and END.
func TestReadPageAT28C256Scenario(t *testing.T) {
	desc := &device.Descriptor{
		Name:            "AT28C256",
		CodeMemorySize:  32768,
		ReadBufferSize:  1024,
	}
	mock := newMockTransceiver()
	for i := 0; i < 32; i++ {
		mock.recvQueue = append(mock.recvQueue, make([]byte, 1024))
	}
	e := NewEngine(mock, desc, 0)

	if err := e.BeginTransaction(); err != nil {
		t.Fatalf("BeginTransaction: %v", err)
	}
	if _, err := e.ReadPage(MemCode, int(desc.CodeMemorySize)); err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if err := e.EndTransaction(); err != nil {
		t.Fatalf("EndTransaction: %v", err)
	}

	ops := mock.opcodesSent()
	if ops[0] != OpBegin {
		t.Fatalf("first opcode = %v, want OpBegin", ops[0])
	}
	if ops[len(ops)-1] != OpEnd {
		t.Fatalf("last opcode = %v, want OpEnd", ops[len(ops)-1])
	}
	if got := countOpcode(ops, OpReadCode); got != 32 {
		t.Errorf("READ_CODE count = %d, want 32", got)
	}
	// One poll from BeginTransaction, plus after blocks 10/20/30.
	if got := countOpcode(ops, OpGetStatus); got != 4 {
		t.Errorf("GET_STATUS count = %d, want 4", got)
	}

	var addrs []uint32
	for _, s := range mock.sent {
		if Opcode(s[0]) == OpReadCode {
			addrs = append(addrs, codec.LoadInt(s[4:7], 3, codec.LittleEndian))
		}
	}
	for i, addr := range addrs {
		want := uint32(i * 1024)
		if addr != want {
			t.Errorf("READ_CODE[%d] addr = %d, want %d", i, addr, want)
		}
	}
}

// End-to-end scenario 2 (spec.md §8): a word-addressed PIC16F84A-shaped
// descriptor must pre-shift wire addresses by 1 (so 32-byte logical
// chunks land 16 apart) across 64 WRITE_CODE packets.
func TestWritePagePIC16F84AScenario(t *testing.T) {
	desc := &device.Descriptor{
		Name:            "PIC16F84A",
		CodeMemorySize:  2048,
		WriteBufferSize: 32,
		Opts4:           device.Opts4WordAddressed,
	}
	mock := newMockTransceiver()
	e := NewEngine(mock, desc, 0)

	data := make([]byte, 2048)
	if err := e.WritePage(MemCode, data); err != nil {
		t.Fatalf("WritePage: %v", err)
	}

	ops := mock.opcodesSent()
	if got := countOpcode(ops, OpWriteCode); got != 64 {
		t.Errorf("WRITE_CODE count = %d, want 64", got)
	}

	var addrs []uint32
	for _, s := range mock.sent {
		if Opcode(s[0]) == OpWriteCode {
			addrs = append(addrs, codec.LoadInt(s[4:7], 3, codec.LittleEndian))
		}
	}
	for i, addr := range addrs {
		want := uint32(i * 16)
		if addr != want {
			t.Errorf("WRITE_CODE[%d] addr = %d, want %d", i, addr, want)
		}
	}
}

// End-to-end scenario 6: overcurrent during a chunked write aborts
// the whole operation without retry.
func TestWritePageOvercurrentAborts(t *testing.T) {
	desc := &device.Descriptor{
		Name:            "AT28C256",
		CodeMemorySize:  320,
		WriteBufferSize: 1,
	}
	mock := newMockTransceiver()
	mock.statusOVCAt[1] = true // the 10th-block poll is the first (and only) GET_STATUS call here
	e := NewEngine(mock, desc, 0)

	data := make([]byte, 320)
	err := e.WritePage(MemCode, data)
	if err != ErrOvercurrent {
		t.Fatalf("WritePage error = %v, want ErrOvercurrent", err)
	}
	if err := e.EndTransaction(); err != nil {
		t.Fatalf("EndTransaction: %v", err)
	}
	ops := mock.opcodesSent()
	if ops[len(ops)-1] != OpEnd {
		t.Errorf("last opcode = %v, want OpEnd", ops[len(ops)-1])
	}
}

func TestVerifyChipIDMismatchIsFatalUnlessContinue(t *testing.T) {
	desc := &device.Descriptor{ChipID: 0x1234, ChipIDBytesCount: 2}
	mock := newMockTransceiver()
	reply := make([]byte, 32)
	reply[0] = byte(device.ChipIDType1)
	reply[1] = 2
	codec.FormatInt(reply[2:4], 0x9999, 2, codec.BigEndian)
	mock.recvQueue = append(mock.recvQueue, reply)
	e := NewEngine(mock, desc, 0)

	err := e.VerifyChipID(nil, false)
	var mismatch *ChipIDMismatch
	if err == nil {
		t.Fatal("expected ChipIDMismatch")
	}
	if m, ok := err.(*ChipIDMismatch); !ok {
		t.Fatalf("error = %T, want *ChipIDMismatch", err)
	} else {
		mismatch = m
	}
	if mismatch.Expected != 0x1234 || mismatch.Got != 0x9999 {
		t.Errorf("mismatch = %+v", mismatch)
	}

	mock.recvQueue = append(mock.recvQueue, reply)
	if err := e.VerifyChipID(nil, true); err != nil {
		t.Errorf("VerifyChipID with continueOnMismatch = %v, want nil", err)
	}
}

func TestBeginTransactionTwiceFails(t *testing.T) {
	desc := &device.Descriptor{}
	mock := newMockTransceiver()
	e := NewEngine(mock, desc, 0)
	if err := e.BeginTransaction(); err != nil {
		t.Fatalf("BeginTransaction: %v", err)
	}
	if err := e.BeginTransaction(); err != ErrTransactionOpen {
		t.Fatalf("second BeginTransaction = %v, want ErrTransactionOpen", err)
	}
}
