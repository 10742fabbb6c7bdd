package store

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeFrame packs a normalised frame as little-endian IEEE 754-2008
// binary16 values. Frames live in [-1, 1], where half precision keeps about
// three significant digits, which is plenty for display.
func EncodeFrame(values []float64) []byte {
	out := make([]byte, 2*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint16(out[2*i:], float32ToFloat16Bits(float32(v)))
	}
	return out
}

// DecodeFrame expands a blob written by EncodeFrame.
func DecodeFrame(blob []byte) ([]float64, error) {
	if len(blob)%2 != 0 {
		return nil, fmt.Errorf("frame blob has odd length %d", len(blob))
	}
	out := make([]float64, len(blob)/2)
	for i := range out {
		out[i] = float64(float16BitsToFloat32(binary.LittleEndian.Uint16(blob[2*i:])))
	}
	return out, nil
}

func float32ToFloat16Bits(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16((bits >> 16) & 0x8000)
	exp := int((bits >> 23) & 0xff)
	mant := bits & 0x7fffff

	switch exp {
	case 0xff:
		if mant == 0 {
			return sign | 0x7c00
		}
		mant >>= 13
		if mant == 0 {
			mant = 1
		}
		return sign | 0x7c00 | uint16(mant)
	case 0:
		if mant == 0 {
			return sign
		}
	}

	half := exp - 127 + 15
	if half >= 0x1f {
		return sign | 0x7c00
	}
	if half <= 0 {
		if half < -10 {
			return sign
		}
		mant |= 0x800000
		mant >>= uint(1 - half)
		mant += 0x1000
		return sign | uint16(mant>>13)
	}

	// Round half up on the dropped bits; a carry bumps the exponent.
	mant += 0x1000
	if mant&0x800000 != 0 {
		mant = 0
		half++
		if half >= 0x1f {
			return sign | 0x7c00
		}
	}
	return sign | uint16(half<<10) | uint16(mant>>13)
}

func float16BitsToFloat32(h uint16) float32 {
	sign := uint32(h>>15) << 31
	exp := int((h >> 10) & 0x1f)
	mant := uint32(h & 0x3ff)

	switch exp {
	case 0:
		if mant == 0 {
			return math.Float32frombits(sign)
		}
		exp = -14
		for mant&0x400 == 0 {
			mant <<= 1
			exp--
		}
		mant &= 0x3ff
		return math.Float32frombits(sign | uint32((exp+127)<<23) | (mant << 13))
	case 0x1f:
		bits := sign | 0x7f800000 | (mant << 13)
		if mant != 0 {
			bits |= 1
		}
		return math.Float32frombits(bits)
	default:
		return math.Float32frombits(sign | uint32((exp-15+127)<<23) | (mant << 13))
	}
}
