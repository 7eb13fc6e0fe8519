// Package audio contains raw audio frames, sample FIFOs and sample conversion.
package audio

import (
	"encoding/binary"
	"math"
)

// SampleFormat is a raw sample format.
// Multi-byte samples are little endian.
type SampleFormat int

// sample formats.
const (
	SampleFormatNone SampleFormat = iota
	SampleFormatU8
	SampleFormatS16
	SampleFormatS32
	SampleFormatF32
	SampleFormatU8P
	SampleFormatS16P
	SampleFormatS32P
	SampleFormatF32P
)

// BytesPerSample returns the size of a single sample of a single channel.
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case SampleFormatU8, SampleFormatU8P:
		return 1
	case SampleFormatS16, SampleFormatS16P:
		return 2
	case SampleFormatS32, SampleFormatS32P, SampleFormatF32, SampleFormatF32P:
		return 4
	}
	return 0
}

// IsPlanar returns whether channels are stored in separate planes.
func (f SampleFormat) IsPlanar() bool {
	switch f {
	case SampleFormatU8P, SampleFormatS16P, SampleFormatS32P, SampleFormatF32P:
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (f SampleFormat) String() string {
	switch f {
	case SampleFormatU8:
		return "u8"
	case SampleFormatS16:
		return "s16"
	case SampleFormatS32:
		return "s32"
	case SampleFormatF32:
		return "f32"
	case SampleFormatU8P:
		return "u8p"
	case SampleFormatS16P:
		return "s16p"
	case SampleFormatS32P:
		return "s32p"
	case SampleFormatF32P:
		return "f32p"
	}
	return "none"
}

// decode reads the sample at buf into the [-1, 1] range.
func (f SampleFormat) decode(buf []byte) float64 {
	switch f {
	case SampleFormatU8, SampleFormatU8P:
		return float64(int(buf[0])-128) / 128

	case SampleFormatS16, SampleFormatS16P:
		return float64(int16(binary.LittleEndian.Uint16(buf))) / 32768

	case SampleFormatS32, SampleFormatS32P:
		return float64(int32(binary.LittleEndian.Uint32(buf))) / 2147483648

	case SampleFormatF32, SampleFormatF32P:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(buf)))
	}
	return 0
}

// encode writes v, in the [-1, 1] range, into buf.
func (f SampleFormat) encode(buf []byte, v float64) {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}

	switch f {
	case SampleFormatU8, SampleFormatU8P:
		buf[0] = uint8(clampInt(int(math.Round(v*128))+128, 0, 255))

	case SampleFormatS16, SampleFormatS16P:
		binary.LittleEndian.PutUint16(buf, uint16(int16(clampInt(int(math.Round(v*32768)), -32768, 32767))))

	case SampleFormatS32, SampleFormatS32P:
		binary.LittleEndian.PutUint32(buf, uint32(int32(clampInt64(int64(math.Round(v*2147483648)),
			-2147483648, 2147483647))))

	case SampleFormatF32, SampleFormatF32P:
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(v)))
	}
}

// silence returns the byte pattern of a silent sample.
func (f SampleFormat) silence() byte {
	if f == SampleFormatU8 || f == SampleFormatU8P {
		return 0x80
	}
	return 0
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt64(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
