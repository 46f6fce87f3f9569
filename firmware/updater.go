package firmware

import (
	"encoding/binary"
	"fmt"
)

// Bootloader-mode opcodes. These are issued directly (no BEGIN/END
// transaction, no protocol-id/variant header byte) because the
// device is not running its normal firmware while being reflashed.
const (
	opBootloaderWrite = 0xAA
	opBootloaderErase = 0xCC
)

// Transceiver is the minimal blocking byte channel the updater rides
// on — the same shape as protocol.Transceiver, kept as its own
// interface so this package does not need to import protocol.
type Transceiver interface {
	Send(buf []byte) error
	Recv(buf []byte) error
}

// ErrBootloaderState is returned when the device is not in the
// lifecycle state (bootloader vs normal) an updater step requires.
type ErrBootloaderState struct {
	Want string
}

func (e *ErrBootloaderState) Error() string {
	return fmt.Sprintf("firmware: device did not reach expected state %q", e.Want)
}

// EraseBootloader sends BOOTLOADER_ERASE with erase at its 20-byte
// packet's offset 7, and checks the 32-byte reply echoes the opcode
// (spec.md §4.7 step 7).
func EraseBootloader(tx Transceiver, erase byte) error {
	buf := make([]byte, 20)
	buf[0] = opBootloaderErase
	buf[7] = erase
	if err := tx.Send(buf); err != nil {
		return err
	}
	reply := make([]byte, 32)
	if err := tx.Recv(reply); err != nil {
		return err
	}
	if reply[0] != opBootloaderErase {
		return fmt.Errorf("firmware: bootloader erase reply echoed 0x%02x, want 0x%02x", reply[0], opBootloaderErase)
	}
	return nil
}

// ReflashProgress is called after each packet streamed by Reflash, with
// the number of bytes sent so far and the total to send.
type ReflashProgress func(sent, total int)

// Reflash streams encData (EncFirmwareSize bytes, block-cipher
// encrypted) to the device as 87-byte packets: a 7-byte header (two
// opcode bytes, a little-endian 16-bit block length, a little-endian
// 24-bit address) followed by an 80-byte block. The address starts
// at BootloaderSize and advances by 64 per packet — not 80, because
// the last 16 bytes of each on-wire block are the block cipher's
// nonce (spec.md §4.7 step 8).
func Reflash(tx Transceiver, encData []byte, progress ReflashProgress) error {
	if len(encData) != EncFirmwareSize {
		return fmt.Errorf("firmware: reflash payload is %d bytes, want %d", len(encData), EncFirmwareSize)
	}
	address := uint32(BootloaderSize)
	packet := make([]byte, reflashPacketSize)
	for i := 0; i < EncFirmwareSize; i += BlockSize {
		packet[0] = opBootloaderWrite
		packet[1] = 0x00
		binary.LittleEndian.PutUint16(packet[2:4], BlockSize)
		packet[4] = byte(address)
		packet[5] = byte(address >> 8)
		packet[6] = byte(address >> 16)
		copy(packet[7:], encData[i:i+BlockSize])

		if err := tx.Send(packet); err != nil {
			return err
		}
		address += addressStep
		if progress != nil {
			progress(i+BlockSize, EncFirmwareSize)
		}
	}
	return nil
}

// PacketCount reports how many Reflash packets a full image takes —
// EncFirmwareSize / BlockSize, exactly 1936 for this firmware format.
func PacketCount() int {
	return EncFirmwareSize / BlockSize
}
