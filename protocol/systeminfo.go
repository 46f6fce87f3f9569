package protocol

import "github.com/tl866go/tl866prog/codec"

// HardwareVariant identifies which physical board GET_SYSTEM_INFO reports.
type HardwareVariant uint8

const (
	HardwareVariantA HardwareVariant = iota
	HardwareVariantCS
)

func (v HardwareVariant) String() string {
	if v == HardwareVariantA {
		return "A"
	}
	return "CS"
}

// DeviceStatus is the device's firmware-execution lifecycle state, as
// reported by GET_SYSTEM_INFO.
type DeviceStatus uint8

const (
	StatusNormal DeviceStatus = iota
	StatusBootloader
)

func (s DeviceStatus) String() string {
	if s == StatusNormal {
		return "NORMAL"
	}
	return "BOOTLOADER"
}

// SystemInfo is the decoded GET_SYSTEM_INFO reply: which hardware
// variant is actually connected, its firmware version, and whether it
// is presently running its normal firmware or the USB bootloader.
//
// The reply's byte layout is not spelled out anywhere in the vendor
// source this driver is grounded on — minipro_open calls the opcode
// and decodes it inline, but that decode is never itself given to us.
// The layout below (byte 0 = hardware variant, byte 1 = status, bytes
// 2:4 = little-endian firmware version) instead follows this engine's
// own established reply-decoding convention for GET_STATUS and
// GET_CHIP_ID: a leading type/flag byte or two, then little-endian
// multi-byte fields.
type SystemInfo struct {
	Variant  HardwareVariant
	Status   DeviceStatus
	Firmware uint16
}

// GetSystemInfo issues GET_SYSTEM_INFO and decodes the reply. Callers
// use it to learn which hardware is actually connected before a
// firmware update re-encrypts toward it (spec.md §4.7), and to check
// the bootloader/normal lifecycle state around a reflash.
func (e *Engine) GetSystemInfo() (*SystemInfo, error) {
	buf := e.newPacket(OpGetSystemInfo)
	if err := e.tx.Send(buf[:8]); err != nil {
		return nil, err
	}
	reply := make([]byte, packetSize)
	if err := e.tx.Recv(reply); err != nil {
		return nil, err
	}
	variant := HardwareVariantA
	if reply[0] != 0 {
		variant = HardwareVariantCS
	}
	status := StatusNormal
	if reply[1] != 0 {
		status = StatusBootloader
	}
	return &SystemInfo{
		Variant:  variant,
		Status:   status,
		Firmware: uint16(codec.LoadInt(reply[2:4], 2, codec.LittleEndian)),
	}, nil
}
