package protocol

// ReadJEDECRow reads one JEDEC row (GAL/PAL logic devices, spec.md
// §4.6): rowBits carries the row's bit count, which also sizes the
// payload to rowBits/8 + 1 bytes.
func (e *Engine) ReadJEDECRow(row uint8, rowBits int) ([]byte, error) {
	buf := e.newPacket(OpReadCode)
	buf[2] = byte(rowBits)
	buf[4] = row
	if err := e.tx.Send(buf[:18]); err != nil {
		return nil, err
	}
	reply := make([]byte, packetSize)
	if err := e.tx.Recv(reply); err != nil {
		return nil, err
	}
	size := rowBits/8 + 1
	return append([]byte(nil), reply[:size]...), nil
}

// WriteJEDECRow writes one JEDEC row from payload, sized rowBits/8 + 1 bytes.
func (e *Engine) WriteJEDECRow(row uint8, rowBits int, payload []byte) error {
	buf := e.newPacket(OpWriteCode)
	buf[2] = byte(rowBits)
	buf[4] = row
	size := rowBits/8 + 1
	copy(buf[7:7+size], payload)
	return e.tx.Send(buf[:packetSize])
}

// ReadGALFuseMap reads a GAL/PAL device's entire fuse map (totalBits
// bits, spec.md §4.6) as a sequence of rowBits-wide JEDEC rows,
// concatenating each row's reply.
func (e *Engine) ReadGALFuseMap(totalBits, rowBits int) ([]byte, error) {
	rows := (totalBits + rowBits - 1) / rowBits
	out := make([]byte, 0, rows*(rowBits/8+1))
	for row := 0; row < rows; row++ {
		data, err := e.ReadJEDECRow(uint8(row), rowBits)
		if err != nil {
			return nil, err
		}
		out = append(out, data...)
	}
	return out, nil
}

// WriteGALFuseMap writes a GAL/PAL device's entire fuse map from data,
// splitting it into rowBits/8 + 1-byte JEDEC rows, the inverse of
// ReadGALFuseMap.
func (e *Engine) WriteGALFuseMap(totalBits, rowBits int, data []byte) error {
	rows := (totalBits + rowBits - 1) / rowBits
	rowSize := rowBits/8 + 1
	for row := 0; row < rows; row++ {
		start := row * rowSize
		end := start + rowSize
		if end > len(data) {
			end = len(data)
		}
		if err := e.WriteJEDECRow(uint8(row), rowBits, data[start:end]); err != nil {
			return err
		}
	}
	return nil
}
