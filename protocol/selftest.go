package protocol

import "time"

// pinDriverOE selects which output-enable group SET_LATCH programs.
type pinDriverOE uint8

const (
	oeVPP    pinDriverOE = 0x01
	oeVCCGND pinDriverOE = 0x02
	oeAll    pinDriverOE = 0x03
)

// pinDriver is one entry of the bit-bang wiring table SelfTest walks:
// which ZIF pin a given (latch, output-enable, mask) combination
// drives, and at which byte READ_ZIF_PINS reports it back.
type pinDriver struct {
	pin   uint8
	latch uint8
	oe    pinDriverOE
	mask  uint8
}

// vppPins is the full 16-entry VPP driver table (NPN transistor mask).
var vppPins = []pinDriver{
	{pin: 1, latch: 1, oe: oeVPP, mask: 0x04},
	{pin: 2, latch: 1, oe: oeVPP, mask: 0x08},
	{pin: 3, latch: 0, oe: oeVPP, mask: 0x04},
	{pin: 4, latch: 0, oe: oeVPP, mask: 0x08},
	{pin: 9, latch: 0, oe: oeVPP, mask: 0x20},
	{pin: 10, latch: 0, oe: oeVPP, mask: 0x10},
	{pin: 30, latch: 1, oe: oeVPP, mask: 0x01},
	{pin: 31, latch: 0, oe: oeVPP, mask: 0x01},
	{pin: 32, latch: 1, oe: oeVPP, mask: 0x80},
	{pin: 33, latch: 0, oe: oeVPP, mask: 0x40},
	{pin: 34, latch: 0, oe: oeVPP, mask: 0x02},
	{pin: 36, latch: 1, oe: oeVPP, mask: 0x02},
	{pin: 37, latch: 0, oe: oeVPP, mask: 0x80},
	{pin: 38, latch: 1, oe: oeVPP, mask: 0x40},
	{pin: 39, latch: 1, oe: oeVPP, mask: 0x20},
	{pin: 40, latch: 1, oe: oeVPP, mask: 0x10},
}

// vp1 and gnd1 index the entries the VPP overcurrent check drives
// together; vcc40/gnd40 do the same for the VCC overcurrent check.
const (
	vp1   = 0
	gnd1  = 0
	vcc40 = 23
	gnd40 = 24
)

// vccPins is the full 24-entry VCC driver table (PNP transistor mask).
var vccPins = []pinDriver{
	{pin: 1, latch: 2, oe: oeVCCGND, mask: 0x7f},
	{pin: 2, latch: 2, oe: oeVCCGND, mask: 0xef},
	{pin: 3, latch: 2, oe: oeVCCGND, mask: 0xdf},
	{pin: 4, latch: 3, oe: oeVCCGND, mask: 0xfe},
	{pin: 5, latch: 2, oe: oeVCCGND, mask: 0xfb},
	{pin: 6, latch: 3, oe: oeVCCGND, mask: 0xfb},
	{pin: 7, latch: 4, oe: oeVCCGND, mask: 0xbf},
	{pin: 8, latch: 4, oe: oeVCCGND, mask: 0xfd},
	{pin: 9, latch: 4, oe: oeVCCGND, mask: 0xfb},
	{pin: 10, latch: 4, oe: oeVCCGND, mask: 0xf7},
	{pin: 11, latch: 4, oe: oeVCCGND, mask: 0xfe},
	{pin: 12, latch: 4, oe: oeVCCGND, mask: 0x7f},
	{pin: 13, latch: 4, oe: oeVCCGND, mask: 0xef},
	{pin: 21, latch: 4, oe: oeVCCGND, mask: 0xdf},
	{pin: 30, latch: 3, oe: oeVCCGND, mask: 0xbf},
	{pin: 32, latch: 3, oe: oeVCCGND, mask: 0xfd},
	{pin: 33, latch: 3, oe: oeVCCGND, mask: 0xdf},
	{pin: 34, latch: 3, oe: oeVCCGND, mask: 0xf7},
	{pin: 35, latch: 3, oe: oeVCCGND, mask: 0xef},
	{pin: 36, latch: 3, oe: oeVCCGND, mask: 0x7f},
	{pin: 37, latch: 2, oe: oeVCCGND, mask: 0xf7},
	{pin: 38, latch: 2, oe: oeVCCGND, mask: 0xbf},
	{pin: 39, latch: 2, oe: oeVCCGND, mask: 0xfe},
	{pin: 40, latch: 2, oe: oeVCCGND, mask: 0xfd},
}

// gndPins is the full 25-entry GND driver table (NPN transistor mask).
var gndPins = []pinDriver{
	{pin: 1, latch: 6, oe: oeVCCGND, mask: 0x04},
	{pin: 2, latch: 6, oe: oeVCCGND, mask: 0x08},
	{pin: 3, latch: 6, oe: oeVCCGND, mask: 0x40},
	{pin: 4, latch: 6, oe: oeVCCGND, mask: 0x02},
	{pin: 5, latch: 5, oe: oeVCCGND, mask: 0x04},
	{pin: 6, latch: 5, oe: oeVCCGND, mask: 0x08},
	{pin: 7, latch: 5, oe: oeVCCGND, mask: 0x40},
	{pin: 8, latch: 5, oe: oeVCCGND, mask: 0x02},
	{pin: 9, latch: 5, oe: oeVCCGND, mask: 0x01},
	{pin: 10, latch: 5, oe: oeVCCGND, mask: 0x80},
	{pin: 11, latch: 5, oe: oeVCCGND, mask: 0x10},
	{pin: 12, latch: 5, oe: oeVCCGND, mask: 0x20},
	{pin: 14, latch: 7, oe: oeVCCGND, mask: 0x08},
	{pin: 16, latch: 7, oe: oeVCCGND, mask: 0x40},
	{pin: 20, latch: 9, oe: oeVCCGND, mask: 0x01},
	{pin: 30, latch: 7, oe: oeVCCGND, mask: 0x04},
	{pin: 31, latch: 6, oe: oeVCCGND, mask: 0x01},
	{pin: 32, latch: 6, oe: oeVCCGND, mask: 0x80},
	{pin: 34, latch: 6, oe: oeVCCGND, mask: 0x10},
	{pin: 35, latch: 6, oe: oeVCCGND, mask: 0x20},
	{pin: 36, latch: 7, oe: oeVCCGND, mask: 0x20},
	{pin: 37, latch: 7, oe: oeVCCGND, mask: 0x10},
	{pin: 38, latch: 7, oe: oeVCCGND, mask: 0x02},
	{pin: 39, latch: 7, oe: oeVCCGND, mask: 0x80},
	{pin: 40, latch: 7, oe: oeVCCGND, mask: 0x01},
}

// SelfTestResult reports how many of the exercised pin drivers failed
// per class, plus the outcome of the two dedicated overcurrent-trip
// checks.
type SelfTestResult struct {
	VPPFailures int
	VCCFailures int
	GNDFailures int

	VPPOvercurrentOK bool
	VCCOvercurrentOK bool
}

func (r SelfTestResult) OK() bool {
	return r.VPPFailures == 0 && r.VCCFailures == 0 && r.GNDFailures == 0 &&
		r.VPPOvercurrentOK && r.VCCOvercurrentOK
}

func (e *Engine) resetPinDrivers() error {
	buf := e.newPacket(OpResetPinDrivers)
	return e.tx.Send(buf[:10])
}

func (e *Engine) setLatch(latch uint8, oe pinDriverOE, mask uint8) error {
	buf := e.newPacket(OpSetLatch)
	buf[7] = 1
	buf[8] = byte(oe)
	buf[9] = latch
	buf[10] = mask
	return e.tx.Send(buf[:32])
}

// setLatchTwo programs two latches at once, the wiring the two
// overcurrent-trip checks use to short a VPP or VCC pin straight to a
// GND pin.
func (e *Engine) setLatchTwo(oe pinDriverOE, a, b pinDriver) error {
	buf := e.newPacket(OpSetLatch)
	buf[7] = 2
	buf[8] = byte(oe)
	buf[9] = a.latch
	buf[10] = a.mask
	buf[11] = b.latch
	buf[12] = b.mask
	return e.tx.Send(buf[:32])
}

func (e *Engine) readZIFPins() ([]byte, error) {
	buf := e.newPacket(OpReadZIFPins)
	if err := e.tx.Send(buf[:18]); err != nil {
		return nil, err
	}
	reply := make([]byte, packetSize)
	if err := e.tx.Recv(reply); err != nil {
		return nil, err
	}
	return reply, nil
}

// testPin exercises one pin driver: set its latch, wait for the
// driver to settle, read the ZIF pin state back, then reset. A
// nonzero reply[1] signals overcurrent, which aborts the whole test.
func (e *Engine) testPin(p pinDriver, expectHigh bool) (ok bool, err error) {
	if err := e.setLatch(p.latch, p.oe, p.mask); err != nil {
		return false, err
	}
	time.Sleep(5 * time.Millisecond)
	reply, err := e.readZIFPins()
	if err != nil {
		return false, err
	}
	if reply[1] != 0 {
		_ = e.resetPinDrivers()
		_ = e.EndTransaction()
		return false, ErrOvercurrent
	}
	state := reply[6+p.pin] != 0
	if err := e.resetPinDrivers(); err != nil {
		return false, err
	}
	return state == expectHigh, nil
}

// testOvercurrentTrip deliberately shorts one pin driver to a GND
// driver and expects the board's overcurrent protection to trip
// (reply[1] != 0). Unlike testPin, a trip here is success.
func (e *Engine) testOvercurrentTrip(oe pinDriverOE, driven, gnd pinDriver) (tripped bool, err error) {
	if err := e.setLatchTwo(oe, driven, gnd); err != nil {
		return false, err
	}
	reply, err := e.readZIFPins()
	if err != nil {
		return false, err
	}
	return reply[1] != 0, nil
}

// SelfTest runs the bit-bang hardware diagnostic: it exercises every
// VPP, VCC and GND pin driver one at a time, checking each reports its
// expected electrical state, aborts immediately on unexpected
// overcurrent, and finishes with the two dedicated checks that a VPP
// or VCC pin shorted to GND correctly trips the board's overcurrent
// protection.
func (e *Engine) SelfTest() (*SelfTestResult, error) {
	if err := e.resetPinDrivers(); err != nil {
		return nil, err
	}
	result := &SelfTestResult{}

	for _, p := range vppPins {
		ok, err := e.testPin(p, true)
		if err != nil {
			return nil, err
		}
		if !ok {
			result.VPPFailures++
		}
	}
	for _, p := range vccPins {
		ok, err := e.testPin(p, true)
		if err != nil {
			return nil, err
		}
		if !ok {
			result.VCCFailures++
		}
	}
	for _, p := range gndPins {
		ok, err := e.testPin(p, false)
		if err != nil {
			return nil, err
		}
		if !ok {
			result.GNDFailures++
		}
	}

	tripped, err := e.testOvercurrentTrip(oeAll, vppPins[vp1], gndPins[gnd1])
	if err != nil {
		return nil, err
	}
	result.VPPOvercurrentOK = tripped
	if err := e.resetPinDrivers(); err != nil {
		return nil, err
	}
	if err := e.EndTransaction(); err != nil {
		return nil, err
	}
	time.Sleep(5 * time.Millisecond)

	tripped, err = e.testOvercurrentTrip(oeVCCGND, vccPins[vcc40], gndPins[gnd40])
	if err != nil {
		return nil, err
	}
	result.VCCOvercurrentOK = tripped

	return result, nil
}
