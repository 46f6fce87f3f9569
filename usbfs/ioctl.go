package usbfs

// Ioctl request codes, computed the same way the kernel's
// <linux/usbdevice_fs.h> macros do. Mirrors the teacher's
// usbfs/ioctl.go, trimmed to the requests this driver issues.

import (
	ioctl "github.com/daedaluz/goioctl"
	"strings"
	"unsafe"
)

var (
	ctlControl          = ioctl.IOWR('U', 0, unsafe.Sizeof(ctrlTransfer{}))
	ctlBulk             = ioctl.IOWR('U', 2, unsafe.Sizeof(bulkTransfer{}))
	ctlSetInterface     = ioctl.IOR('U', 4, unsafe.Sizeof(setInterface{}))
	ctlGetDriver        = ioctl.IOW('U', 8, unsafe.Sizeof(getDriver{}))
	ctlClaimInterface   = ioctl.IOR('U', 15, unsafe.Sizeof(uint32(0)))
	ctlReleaseInterface = ioctl.IOR('U', 16, unsafe.Sizeof(uint32(0)))
	ctlConnectInfo      = ioctl.IOW('U', 17, unsafe.Sizeof(connectInfo{}))
	ctlIoctl            = ioctl.IOWR('U', 18, unsafe.Sizeof(passthroughIoctl{}))
	ctlReset            = ioctl.IO('U', 20)
	ctlDisconnect       = ioctl.IO('U', 22)
	ctlConnect          = ioctl.IO('U', 23)
)

type (
	ctrlTransfer struct {
		RequestType uint8
		Request     uint8
		Value       uint16
		Index       uint16
		Length      uint16
		Timeout     uint32
		Data        uintptr
	}

	bulkTransfer struct {
		Endpoint uint32
		Length   uint32
		Timeout  uint32
		Data     uintptr
	}

	setInterface struct {
		Interface  uint32
		AltSetting uint32
	}

	getDriver struct {
		Interface uint32
		Driver    [maxDriverName + 1]byte
	}

	connectInfo struct {
		DevNum uint32
		Slow   uint8
	}

	// passthroughIoctl mirrors usbdevfs_ioctl, used to issue
	// USBDEVFS_DISCONNECT/USBDEVFS_CONNECT through USBDEVFS_IOCTL.
	passthroughIoctl struct {
		Interface int32
		IoctlCode int32
		Data      uintptr
	}
)

func (d *getDriver) String() string {
	var b strings.Builder
	for _, c := range d.Driver {
		if c == 0 {
			break
		}
		b.WriteByte(c)
	}
	return b.String()
}

func slicePtr(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}
