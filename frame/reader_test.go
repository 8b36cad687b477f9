package frame

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"io"
	"math/rand"
	"testing"

	"github.com/bodgit/ithmb/yuv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomFrame(t *testing.T, size int) []byte {
	b := make([]byte, size)
	_, err := rand.New(rand.NewSource(1)).Read(b)
	require.Nil(t, err)
	return b
}

// referenceDecode walks the frame one pixel at a time, working out the
// offset with explicit row and column cases
func referenceDecode(b []byte, width, height int) *image.RGBA {
	m := image.NewRGBA(image.Rect(0, 0, width, height))
	pixels := width * height
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var offset int
			if y%2 == 0 {
				offset = y / 2 * width * 2
			} else {
				offset = pixels + (y-1)/2*width*2
			}
			if x%2 == 0 {
				m.SetRGBA(x, y, yuv.Extract(b, offset+x*2, yuv.Even))
			} else {
				m.SetRGBA(x, y, yuv.Extract(b, offset+(x-1)*2, yuv.Odd))
			}
		}
	}
	return m
}

func TestLocate(t *testing.T) {
	type key struct {
		offset int
		parity yuv.Parity
	}
	seen := make(map[key]struct{}, Width*Height)

	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			offset, parity := locate(x, y, Width, Height)

			require.True(t, offset >= 0 && offset <= Size-yuv.WordSize, "(%d, %d) at %d", x, y, offset)
			require.Equal(t, 0, offset%yuv.WordSize)
			require.Equal(t, yuv.Parity(x%2), parity)

			if y%2 == 0 {
				require.True(t, offset+yuv.WordSize <= Width*Height, "even row %d outside first field", y)
			} else {
				require.True(t, offset >= Width*Height, "odd row %d outside second field", y)
			}

			k := key{offset, parity}
			_, dup := seen[k]
			require.False(t, dup, "(%d, %d) shares a sample", x, y)
			seen[k] = struct{}{}
		}
	}

	assert.Len(t, seen, Width*Height)
}

func TestLocateSharesWord(t *testing.T) {
	for _, y := range []int{0, 1, 2, 3, Height - 2, Height - 1} {
		for x := 0; x < Width; x += 2 {
			even, _ := locate(x, y, Width, Height)
			odd, _ := locate(x+1, y, Width, Height)
			assert.Equal(t, even, odd)
		}
	}
}

func TestDecodeBytesZero(t *testing.T) {
	m, err := DecodeBytes(make([]byte, Size), Width, Height)
	require.Nil(t, err)
	require.Equal(t, image.Rect(0, 0, Width, Height), m.Bounds())

	expected := yuv.ToRGB(-128, -128, -128)
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if c := m.RGBAAt(x, y); c != expected {
				t.Fatalf("pixel (%d, %d) is %v, want %v", x, y, c, expected)
			}
		}
	}
}

func TestDecodeBytesMatchesReference(t *testing.T) {
	b := randomFrame(t, Size)

	m, err := DecodeBytes(b, Width, Height)
	require.Nil(t, err)

	assert.Equal(t, referenceDecode(b, Width, Height).Pix, m.Pix)
}

func TestDecodeBytesSmall(t *testing.T) {
	// 4x2: first field is the even row, second field the odd row
	b := []byte{
		0x80, 0x00, 0x80, 0xff, 0x80, 0x40, 0x80, 0x80,
		0x80, 0x80, 0x80, 0x80, 0x80, 0xff, 0x80, 0x00,
	}

	m, err := DecodeBytes(b, 4, 2)
	require.Nil(t, err)

	gray := func(g uint8) color.RGBA { return color.RGBA{g, g, g, 0xff} }
	expected := [][]color.RGBA{
		{gray(0x00), gray(0xff), gray(0x40), gray(0x80)},
		{gray(0x80), gray(0x80), gray(0xff), gray(0x00)},
	}
	for y, row := range expected {
		for x, c := range row {
			assert.Equal(t, c, m.RGBAAt(x, y), "(%d, %d)", x, y)
		}
	}
}

func TestDecodeBytesSharedChroma(t *testing.T) {
	b := make([]byte, Size)
	for i := 0; i < len(b); i += yuv.WordSize {
		// Constant luma so pairs only match if chroma is shared
		b[i], b[i+1], b[i+2], b[i+3] = byte(i>>2), 0x80, byte(i>>10), 0x80
	}

	m, err := DecodeBytes(b, Width, Height)
	require.Nil(t, err)

	for y := 0; y < Height; y += 37 {
		for x := 0; x < Width; x += 2 {
			offset, _ := locate(x, y, Width, Height)
			s := yuv.Unpack(b, offset)
			expected := yuv.ToRGB(0, yuv.Normalize(s.U), yuv.Normalize(s.V))
			assert.Equal(t, expected, m.RGBAAt(x, y))
			assert.Equal(t, expected, m.RGBAAt(x+1, y))
		}
	}
}

func TestDecodeBytesInvalid(t *testing.T) {
	cases := []struct {
		message       string
		size          int
		width, height int
		expected      error
	}{
		{"empty", 0, Width, Height, ErrSize},
		{"truncated", Size - 1, Width, Height, ErrSize},
		{"half", Size / 2, Width, Height, ErrSize},
		{"too long", Size + 1, Width, Height, ErrSize},
		{"odd width", 3 * 2 * 2, 3, 2, ErrGeometry},
		{"odd height", 4 * 3 * 2, 4, 3, ErrGeometry},
		{"zero width", 0, 0, 2, ErrGeometry},
		{"negative height", 0, 2, -2, ErrGeometry},
	}

	for _, c := range cases {
		m, err := DecodeBytes(make([]byte, c.size), c.width, c.height)
		assert.Nil(t, m, c.message)
		assert.True(t, errors.Is(err, c.expected), "%s: %v", c.message, err)
	}
}

func TestDecode(t *testing.T) {
	b := randomFrame(t, Size)

	m, err := Decode(bytes.NewReader(b))
	require.Nil(t, err)

	assert.Equal(t, referenceDecode(b, Width, Height), m)
}

func TestDecodeInvalid(t *testing.T) {
	for _, size := range []int{0, 1, Size - 1, Size + 1, Size * 2} {
		m, err := Decode(bytes.NewReader(make([]byte, size)))
		assert.Nil(t, m)
		assert.True(t, errors.Is(err, ErrSize), "size %d: %v", size, err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, io.ErrClosedPipe
}

// stallingReader returns (0, nil) before every real read
type stallingReader struct {
	r       io.Reader
	stalled bool
}

func (s *stallingReader) Read(b []byte) (int, error) {
	if !s.stalled {
		s.stalled = true
		return 0, nil
	}
	s.stalled = false
	return s.r.Read(b)
}

func TestDecodeStallingReader(t *testing.T) {
	b := randomFrame(t, Size)

	m, err := Decode(&stallingReader{r: bytes.NewReader(b)})
	require.Nil(t, err)
	assert.Equal(t, referenceDecode(b, Width, Height), m)

	_, err = Decode(&stallingReader{r: bytes.NewReader(make([]byte, Size+1))})
	assert.True(t, errors.Is(err, ErrSize))
}

func TestDecodeReadError(t *testing.T) {
	_, err := Decode(failingReader{})
	assert.Equal(t, io.ErrClosedPipe, err)
}

func TestDecodeConfig(t *testing.T) {
	cfg, err := DecodeConfig(bytes.NewReader(make([]byte, Size)))
	require.Nil(t, err)
	assert.Equal(t, Width, cfg.Width)
	assert.Equal(t, Height, cfg.Height)
	assert.Equal(t, color.RGBAModel, cfg.ColorModel)

	_, err = DecodeConfig(bytes.NewReader(make([]byte, Size-4)))
	assert.True(t, errors.Is(err, ErrSize))
}

func BenchmarkDecodeBytes(b *testing.B) {
	data := make([]byte, Size)
	b.SetBytes(Size)
	for i := 0; i < b.N; i++ {
		if _, err := DecodeBytes(data, Width, Height); err != nil {
			b.Fatal(err)
		}
	}
}
