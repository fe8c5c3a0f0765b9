package i2c

import (
	"context"
	"encoding/binary"

	"github.com/pkg/errors"
)

// SensirionCRC computes the CRC-8 Sensirion sensors append to each 16-bit word
// (polynomial 0x31, initial value 0xFF).
func SensirionCRC(data []byte) byte {
	crc := byte(0xFF)
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// WriteCommand sends a 16-bit Sensirion command.
func WriteCommand(ctx context.Context, h Handle, cmd uint16) error {
	return h.Write(ctx, binary.BigEndian.AppendUint16(nil, cmd))
}

// ReadWords reads count CRC-protected big-endian words.
func ReadWords(ctx context.Context, h Handle, count int) ([]uint16, error) {
	buf, err := h.Read(ctx, count*3)
	if err != nil {
		return nil, err
	}
	return DecodeWords(buf, count)
}

// DecodeWords splits buf into count words, checking each word's CRC.
func DecodeWords(buf []byte, count int) ([]uint16, error) {
	if len(buf) != count*3 {
		return nil, errors.Errorf("expected %d bytes, got %d", count*3, len(buf))
	}
	words := make([]uint16, 0, count)
	for i := 0; i < len(buf); i += 3 {
		if crc := SensirionCRC(buf[i : i+2]); crc != buf[i+2] {
			return nil, errors.Errorf("crc mismatch in word %d: got 0x%02X, want 0x%02X", i/3, buf[i+2], crc)
		}
		words = append(words, binary.BigEndian.Uint16(buf[i:i+2]))
	}
	return words, nil
}

// EncodeWords is the inverse of DecodeWords.
func EncodeWords(words ...uint16) []byte {
	buf := make([]byte, 0, len(words)*3)
	for _, w := range words {
		word := binary.BigEndian.AppendUint16(nil, w)
		buf = append(buf, word...)
		buf = append(buf, SensirionCRC(word))
	}
	return buf
}
