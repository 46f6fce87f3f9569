package usbfs

import (
	"fmt"
	"syscall"
	"unsafe"
)

func doIoctl(fd int, ioc uintptr, arg unsafe.Pointer) (int, error) {
	r, _, e := syscall.Syscall(syscall.SYS_IOCTL, uintptr(fd), ioc, uintptr(arg))
	if e != syscall.Errno(0) {
		return int(r), e
	}
	return int(r), nil
}

// Open opens the raw usbdevfs node for bus/device, e.g. /dev/bus/usb/001/004.
func Open(busNumber, deviceNumber int) (int, error) {
	path := fmt.Sprintf("%s/%.3d/%.3d", devPath, busNumber, deviceNumber)
	fd, err := syscall.Open(path, syscall.O_RDWR, 0)
	if err != nil {
		return -1, err
	}
	return fd, nil
}

// GetDriver returns the kernel driver currently bound to iface, if any.
func GetDriver(fd int, iface uint32) (string, error) {
	data := &getDriver{Interface: iface}
	_, err := doIoctl(fd, ctlGetDriver, unsafe.Pointer(data))
	if err != nil {
		return "", err
	}
	return data.String(), nil
}

// ClaimInterface claims iface for exclusive access from this process.
func ClaimInterface(fd int, iface uint32) error {
	_, err := doIoctl(fd, ctlClaimInterface, unsafe.Pointer(&iface))
	return err
}

// ReleaseInterface releases a previously claimed interface.
func ReleaseInterface(fd int, iface uint32) error {
	_, err := doIoctl(fd, ctlReleaseInterface, unsafe.Pointer(&iface))
	return err
}

// Disconnect detaches the kernel driver bound to iface so this
// process can talk to the device directly.
func Disconnect(fd int, iface uint32) error {
	data := passthroughIoctl{Interface: int32(iface), IoctlCode: int32(ctlDisconnect)}
	_, err := doIoctl(fd, ctlIoctl, unsafe.Pointer(&data))
	return err
}

// Connect re-attaches whatever kernel driver would normally bind to iface.
func Connect(fd int, iface uint32) error {
	data := passthroughIoctl{Interface: int32(iface), IoctlCode: int32(ctlConnect)}
	_, err := doIoctl(fd, ctlIoctl, unsafe.Pointer(&data))
	return err
}

// SetInterface selects an alternate setting for iface.
func SetInterface(fd int, iface, altSetting uint32) error {
	data := &setInterface{Interface: iface, AltSetting: altSetting}
	_, err := doIoctl(fd, ctlSetInterface, unsafe.Pointer(data))
	return err
}

// ControlTransfer issues a single USB control transfer and returns
// the number of bytes transferred.
func ControlTransfer(fd int, reqType, request uint8, value, index uint16, timeoutMS uint32, payload []byte) (int, error) {
	data := &ctrlTransfer{
		RequestType: reqType,
		Request:     request,
		Value:       value,
		Index:       index,
		Timeout:     timeoutMS,
	}
	if len(payload) > 0 {
		data.Length = uint16(len(payload))
		data.Data = slicePtr(payload)
	}
	return doIoctl(fd, ctlControl, unsafe.Pointer(data))
}

// BulkTransfer issues a single USB bulk transfer on endpoint and
// returns the number of bytes transferred.
func BulkTransfer(fd int, endpoint uint8, timeoutMS uint32, payload []byte) (int, error) {
	data := &bulkTransfer{
		Endpoint: uint32(endpoint),
		Timeout:  timeoutMS,
	}
	if len(payload) > 0 {
		data.Length = uint32(len(payload))
		data.Data = slicePtr(payload)
	}
	return doIoctl(fd, ctlBulk, unsafe.Pointer(data))
}

// Reset issues a USBDEVFS_RESET, causing the device to re-enumerate.
func Reset(fd int) error {
	_, err := doIoctl(fd, ctlReset, nil)
	return err
}

// ConnectInfo reports whether the device is operating at low speed.
func ConnectInfo(fd int) (slow bool, err error) {
	info := &connectInfo{}
	_, err = doIoctl(fd, ctlConnectInfo, unsafe.Pointer(info))
	if err != nil {
		return false, err
	}
	return info.Slow != 0, nil
}

// Close closes the usbdevfs node.
func Close(fd int) error {
	return syscall.Close(fd)
}
