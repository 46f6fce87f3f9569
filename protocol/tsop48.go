package protocol

import "crypto/rand"

// tsop48CRC16 computes the rolling check value the TSOP48 unlock
// handshake expects over the 8 random bytes at msg[7:15], following
// the rotate/xor/shift formulation of the original unlock routine:
// for each byte, rotate the 16-bit register by 8, xor in the byte,
// xor in its low byte shifted right by 4, xor in the register
// shifted left by 12, xor in its low byte shifted left by 5.
func tsop48CRC16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc = (crc >> 8) | (crc << 8)
		crc ^= uint16(b)
		crc ^= (crc & 0xFF) >> 4
		crc ^= crc << 12
		crc ^= (crc & 0xFF) << 5
	}
	return crc
}

// UnlockTSOP48 runs the TSOP48 adapter unlock handshake (spec.md
// §4.6), triggered when the descriptor's Opts4 equals
// device.Opts4TSOP48. It returns the reported adapter type, or
// *ErrTSOPAdapter if none is present.
func (e *Engine) UnlockTSOP48() (TSOPAdapter, error) {
	buf := e.newPacket(OpUnlockTSOP48)

	nonce := make([]byte, 8)
	if _, err := rand.Read(nonce); err != nil {
		return TSOPNone, err
	}
	copy(buf[7:15], nonce)
	crc := tsop48CRC16(nonce)

	buf[15] = buf[9]
	buf[16] = buf[11]
	buf[9] = byte(crc)
	buf[11] = byte(crc >> 8)

	if err := e.tx.Send(buf[:17]); err != nil {
		return TSOPNone, err
	}
	reply := make([]byte, packetSize)
	if err := e.tx.Recv(reply); err != nil {
		return TSOPNone, err
	}
	adapter := TSOPAdapter(reply[1])
	if adapter == TSOPNone {
		return adapter, &ErrTSOPAdapter{Kind: adapter}
	}
	return adapter, nil
}
