package usbfs

import "testing"

// Known USBDEVFS_* ioctl numbers from <linux/usbdevice_fs.h>, used to
// sanity-check the _IOR/_IOW/_IOWR encoding pulled in via goioctl.
func TestIOCTLNumbers(t *testing.T) {
	cases := []struct {
		name   string
		got    uintptr
		target uintptr
	}{
		{"USBDEVFS_CONTROL", ctlControl, 0xC0185500},
		{"USBDEVFS_BULK", ctlBulk, 0xC0185502},
		{"USBDEVFS_SETINTERFACE", ctlSetInterface, 0x80085504},
		{"USBDEVFS_GETDRIVER", ctlGetDriver, 0x41045508},
		{"USBDEVFS_CLAIMINTERFACE", ctlClaimInterface, 0x8004550F},
		{"USBDEVFS_RELEASEINTERFACE", ctlReleaseInterface, 0x80045510},
		{"USBDEVFS_CONNECTINFO", ctlConnectInfo, 0x40085511},
		{"USBDEVFS_IOCTL", ctlIoctl, 0xC0105512},
		{"USBDEVFS_RESET", ctlReset, 0x00005514},
		{"USBDEVFS_CONNECT", ctlConnect, 0x00005517},
	}
	for _, c := range cases {
		if c.got != c.target {
			t.Errorf("%s = 0x%.8X, want 0x%.8X", c.name, c.got, c.target)
		}
	}
}
