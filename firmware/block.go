package firmware

import "crypto/rand"

// encryptBlock transforms 80 bytes in place (spec.md §4.7a): the
// caller has filled data[0:64] with plaintext; bytes [64:80) are
// filled here with fresh random nonce bytes.
func encryptBlock(data []byte, xortable *[256]byte, index uint8) error {
	if _, err := rand.Read(data[64:80]); err != nil {
		return err
	}
	for i := 0; i < BlockSize/2; i += 4 {
		data[i], data[BlockSize-i-1] = data[BlockSize-i-1], data[i]
	}
	for i := 0; i < BlockSize-1; i++ {
		data[i] = ((data[i] << 3) & 0xF8) | (data[i+1] >> 5)
	}
	data[BlockSize-1] = (data[BlockSize-1] << 3) & 0xF8
	for i := 0; i < BlockSize; i++ {
		data[i] ^= xortable[index]
		index++
	}
	return nil
}

// decryptBlock is encryptBlock's inverse. data[64:80] decodes to
// nonce bytes that are not meaningful plaintext and are discarded by
// the caller.
func decryptBlock(data []byte, xortable *[256]byte, index uint8) {
	for i := 0; i < BlockSize; i++ {
		data[i] ^= xortable[index]
		index++
	}
	for i := BlockSize - 1; i > 0; i-- {
		data[i] = (data[i] >> 3 & 0x1F) | (data[i-1] << 5)
	}
	data[0] = (data[0] >> 3) & 0x1F

	for i := 0; i < BlockSize/2; i += 4 {
		data[i], data[BlockSize-i-1] = data[BlockSize-i-1], data[i]
	}
}

// decryptFirmware undoes the block cipher over the full image,
// discarding the 16 nonce bytes of each 80-byte block and returning
// UnencFirmwareSize bytes of plaintext firmware.
func decryptFirmware(enc []byte, variant Variant, index uint8) []byte {
	xortable := variant.xortable()
	out := make([]byte, 0, UnencFirmwareSize)
	block := make([]byte, BlockSize)
	for i := 0; i < EncFirmwareSize; i += BlockSize {
		copy(block, enc[i:i+BlockSize])
		decryptBlock(block, xortable, index)
		out = append(out, block[:BlockSize-16]...)
		index += 4
	}
	return out
}

// encryptFirmware applies the block cipher over plaintext firmware,
// producing EncFirmwareSize bytes (80-byte blocks with a 16-byte
// nonce appended to each 64-byte chunk of plaintext).
func encryptFirmware(plain []byte, variant Variant, index uint8) ([]byte, error) {
	xortable := variant.xortable()
	out := make([]byte, 0, EncFirmwareSize)
	block := make([]byte, BlockSize)
	for i := 0; i < UnencFirmwareSize; i += BlockSize - 16 {
		copy(block[:BlockSize-16], plain[i:i+BlockSize-16])
		if err := encryptBlock(block, xortable, index); err != nil {
			return nil, err
		}
		out = append(out, block...)
		index += 4
	}
	return out, nil
}

// Reencrypt implements spec.md §4.7 step 5: decrypt src's image with
// its own variant's block cipher (starting at its stored erase byte
// as the index), then re-encrypt the resulting plaintext with dst's
// block cipher, also starting at dst's erase byte. The result is
// ready to stream to a device of variant dst.
func Reencrypt(src *DecryptedImage, dstVariant Variant, dstErase byte) ([]byte, error) {
	plain := decryptFirmware(src.Data, src.Variant, src.Erase)
	return encryptFirmware(plain, dstVariant, dstErase)
}
