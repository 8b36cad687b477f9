/*
Package yuv implements the sample unpacking and colorspace conversion used by
the photo cache frames stored in .ithmb files.

Each 4-byte big-endian word holds two horizontally adjacent luma samples that
share a single pair of chroma samples. From the most significant byte down the
word is laid out as U, Y1, V, Y2.
*/
package yuv

import (
	"encoding/binary"
	"image/color"
)

// WordSize is the number of bytes holding one pair of pixels.
const WordSize = 4

// Parity selects which of the two luma samples in a word belongs to a pixel.
type Parity int

const (
	// Even selects the first luma sample, used by pixels with an even x.
	Even Parity = iota
	// Odd selects the second luma sample, used by pixels with an odd x.
	Odd
)

func (p Parity) String() string {
	if p == Odd {
		return "odd"
	}
	return "even"
}

// Conversion constants, these must not be altered.
const (
	kRV = 1.3983
	kGU = 0.39465
	kGV = 0.5806
	kBU = 2.03211
)

// Sample is one unpacked word.
type Sample struct {
	Y1, Y2 uint8
	U, V   uint8
}

// Unpack reads the word starting at offset in b. It panics if fewer than
// WordSize bytes are available from offset.
func Unpack(b []byte, offset int) Sample {
	w := binary.BigEndian.Uint32(b[offset : offset+WordSize])
	return Sample{
		Y2: uint8(w),
		V:  uint8(w >> 8),
		Y1: uint8(w >> 16),
		U:  uint8(w >> 24),
	}
}

// Luma returns the luma sample selected by p.
func (s Sample) Luma(p Parity) uint8 {
	if p == Odd {
		return s.Y2
	}
	return s.Y1
}

// RGBA converts the pixel selected by p.
func (s Sample) RGBA(p Parity) color.RGBA {
	return ToRGB(Normalize(s.Luma(p)), Normalize(s.U), Normalize(s.V))
}

// Normalize centers an unsigned sample on zero.
func Normalize(b uint8) int {
	return int(b) - 128
}

// clamp shifts c back to the unsigned range, clamps it to [0, 255] and then
// truncates toward zero
func clamp(c float64) uint8 {
	c += 128
	switch {
	case c < 0:
		return 0
	case c > 255:
		return 255
	}
	return uint8(c)
}

// ToRGB converts centered y, u and v samples to an opaque RGB color.
func ToRGB(y, u, v int) color.RGBA {
	fy, fu, fv := float64(y), float64(u), float64(v)

	// The explicit conversions stop the products being fused into
	// multiply-add instructions, which would round differently
	r := fy + float64(kRV*fv)
	g := fy - float64(kGU*fu) - float64(kGV*fv)
	b := fy + float64(kBU*fu)

	return color.RGBA{clamp(r), clamp(g), clamp(b), 0xff}
}

// Extract unpacks the word at offset in b and converts the pixel selected by
// p. The offset must leave at least WordSize bytes in b, anything else is a
// layout error and panics.
func Extract(b []byte, offset int, p Parity) color.RGBA {
	return Unpack(b, offset).RGBA(p)
}
