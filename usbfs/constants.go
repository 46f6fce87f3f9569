// Package usbfs wraps the Linux usbdevfs ioctl ABI used by transport
// to talk to a TL866 programmer without linking libusb.
//
// Only the subset of usbdevfs this driver actually needs is modeled:
// control transfers (for USB-standard cleanup of stuck endpoints),
// bulk transfers (the actual command channel), reset/claim/release
// and kernel-driver detach/reattach. Isochronous URBs, stream
// allocation and the other general-purpose usbdevfs surface the
// teacher library (Daedaluz-gousb) exposes are not needed here and
// are left out.
package usbfs

const (
	devPath = "/dev/bus/usb"

	maxDriverName = 255
)
