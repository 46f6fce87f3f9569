// Package transport is the TL866's C2 USB transport: it frames a byte
// buffer onto the programmer's bulk-OUT endpoint and reads the reply
// off bulk-IN, and it finds the programmer among attached USB devices
// by vendor/product ID.
//
// It is adapted from the teacher's sysfs-based enumeration
// (Daedaluz-gousb's sysfs.go/device.go): walk /sys/bus/usb/devices,
// read each device's idVendor/idProduct attributes, and open the
// matching /dev/bus/usb/<bus>/<dev> node. Unlike the teacher, this
// package has no use for full USB descriptor parsing, configuration
// enumeration or HID — the TL866 exposes one vendor-specific bulk
// pair and nothing else worth modeling.
package transport

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/tl866go/tl866prog/usbfs"
)

// ErrNoDevice is returned when no attached USB device matches the
// requested vendor/product ID.
var ErrNoDevice = errors.New("transport: no matching USB device found")

// IOError wraps a failure from the underlying usbdevfs transfer.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string { return fmt.Sprintf("transport: %s: %v", e.Op, e.Err) }
func (e *IOError) Unwrap() error { return e.Err }

const sysfsDeviceDir = "/sys/bus/usb/devices"

// Endpoints the TL866 programmer exposes. These are fixed by the
// device's firmware, not discovered from its descriptors.
const (
	EndpointOut = 0x01
	EndpointIn  = 0x81
)

const defaultTimeoutMS = 5000 // spec.md §5: 5s per-transfer timeout

// the TL866 exposes a single vendor-specific interface, unnumbered by
// anything this driver needs to discover dynamically.
const claimedInterface = 0

// Device is one open connection to a programmer. It owns the
// usbdevfs file descriptor and is not safe for concurrent use: the
// ZIF socket and its transaction state belong to exactly one caller
// at a time (spec.md §5, DESIGN NOTES §9).
type Device struct {
	fd           int
	BusNumber    int
	DeviceNumber int
}

// candidate describes one USB device found under sysfs, before it is opened.
type candidate struct {
	busNumber, deviceNumber int
	vendor, product         uint16
}

func readSysfsHex(devName, attr string) (uint16, error) {
	data, err := os.ReadFile(fmt.Sprintf("%s/%s/%s", sysfsDeviceDir, devName, attr))
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 16, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}

func readSysfsInt(devName, attr string) (int, error) {
	data, err := os.ReadFile(fmt.Sprintf("%s/%s/%s", sysfsDeviceDir, devName, attr))
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, err
	}
	return v, nil
}

func enumerate() ([]candidate, error) {
	entries, err := os.ReadDir(sysfsDeviceDir)
	if err != nil {
		return nil, err
	}
	var out []candidate
	for _, e := range entries {
		name := e.Name()
		// Skip usb root hubs ("usb1") and interface entries ("1-2:1.0").
		if strings.HasPrefix(name, "usb") || strings.Contains(name, ":") {
			continue
		}
		vendor, err := readSysfsHex(name, "idVendor")
		if err != nil {
			continue
		}
		product, err := readSysfsHex(name, "idProduct")
		if err != nil {
			continue
		}
		busNum, err := readSysfsInt(name, "busnum")
		if err != nil {
			log.Println("transport: bad busnum for", name, ":", err)
			continue
		}
		devNum, err := readSysfsInt(name, "devnum")
		if err != nil {
			log.Println("transport: bad devnum for", name, ":", err)
			continue
		}
		out = append(out, candidate{busNumber: busNum, deviceNumber: devNum, vendor: vendor, product: product})
	}
	return out, nil
}

// FindAll returns bus/device coordinates for every attached device
// matching vendorID/productID, in enumeration order. Used both to
// open "the" programmer (first match) and to count how many are
// attached (spec.md §4.2's "by variant count" selection).
func FindAll(vendorID, productID uint16) ([]Device, error) {
	cands, err := enumerate()
	if err != nil {
		return nil, err
	}
	var out []Device
	for _, c := range cands {
		if c.vendor == vendorID && c.product == productID {
			out = append(out, Device{fd: -1, BusNumber: c.busNumber, DeviceNumber: c.deviceNumber})
		}
	}
	return out, nil
}

// Open opens the first attached device matching vendorID/productID.
func Open(vendorID, productID uint16) (*Device, error) {
	devices, err := FindAll(vendorID, productID)
	if err != nil {
		return nil, &IOError{Op: "enumerate", Err: err}
	}
	if len(devices) == 0 {
		return nil, ErrNoDevice
	}
	dev := devices[0]
	fd, err := usbfs.Open(dev.BusNumber, dev.DeviceNumber)
	if err != nil {
		return nil, &IOError{Op: "open", Err: err}
	}
	// Best-effort: detach whatever kernel driver (usually none) is
	// bound before claiming the interface ourselves.
	_ = usbfs.Disconnect(fd, claimedInterface)
	if err := usbfs.ClaimInterface(fd, claimedInterface); err != nil {
		usbfs.Close(fd)
		return nil, &IOError{Op: "claim", Err: err}
	}
	dev.fd = fd
	return &dev, nil
}

// Close releases the claimed interface and closes the underlying
// usbdevfs node.
func (d *Device) Close() error {
	if d.fd < 0 {
		return nil
	}
	_ = usbfs.ReleaseInterface(d.fd, claimedInterface)
	err := usbfs.Close(d.fd)
	d.fd = -1
	return err
}

// Send writes one bulk-OUT transfer. The transport issues exactly one
// transfer per call and never retries (spec.md §4.2).
func (d *Device) Send(buf []byte) error {
	_, err := usbfs.BulkTransfer(d.fd, EndpointOut, defaultTimeoutMS, buf)
	if err != nil {
		return &IOError{Op: "send", Err: err}
	}
	return nil
}

// Recv reads one bulk-IN transfer into buf, which must be sized for
// the expected reply.
func (d *Device) Recv(buf []byte) error {
	_, err := usbfs.BulkTransfer(d.fd, EndpointIn, defaultTimeoutMS, buf)
	if err != nil {
		return &IOError{Op: "recv", Err: err}
	}
	return nil
}

// Reset triggers a USB bus reset, used by the firmware updater to
// bounce between bootloader and normal mode.
func (d *Device) Reset() error {
	if err := usbfs.Reset(d.fd); err != nil {
		return &IOError{Op: "reset", Err: err}
	}
	return nil
}
