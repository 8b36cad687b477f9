package frame

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"runtime"
	"sync"

	"github.com/bodgit/ithmb/yuv"
)

var (
	// ErrSize is returned when the data is empty, truncated or too long
	ErrSize = errors.New("frame: wrong amount of image data")
	// ErrGeometry is returned for dimensions that cannot be interlaced
	ErrGeometry = errors.New("frame: dimensions must be positive and even")
	// ErrLayout is returned if a pixel maps outside of the data. It
	// can only happen through a bug in the offset calculation.
	ErrLayout = errors.New("frame: pixel offset out of range")
)

// locate returns the offset of the word holding pixel (x, y) and which of
// its two luma samples the pixel uses. Even rows live in the first field and
// odd rows in the second, each field row being width*2 bytes.
func locate(x, y, width, height int) (int, yuv.Parity) {
	field := (y & 1) * width * height
	row := (y >> 1) * width * bytesPerPixel
	return field + row + (x&^1)*bytesPerPixel, yuv.Parity(x & 1)
}

func decodeRows(m *image.RGBA, b []byte, width, height, y0, y1 int) error {
	for y := y0; y < y1; y++ {
		for x := 0; x < width; x++ {
			offset, parity := locate(x, y, width, height)
			if offset < 0 || offset+yuv.WordSize > len(b) {
				return fmt.Errorf("%w: (%d, %d) at %d", ErrLayout, x, y, offset)
			}
			m.SetRGBA(x, y, yuv.Extract(b, offset, parity))
		}
	}
	return nil
}

// DecodeBytes decodes a width by height frame from b, which must be exactly
// width*height*2 bytes. Rows are decoded concurrently.
func DecodeBytes(b []byte, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 || width&1 != 0 || height&1 != 0 {
		return nil, ErrGeometry
	}
	if want := width * height * bytesPerPixel; len(b) != want {
		return nil, fmt.Errorf("%w: have %d bytes, want %d", ErrSize, len(b), want)
	}

	m := image.NewRGBA(image.Rect(0, 0, width, height))

	workers := runtime.GOMAXPROCS(0)
	if workers > height {
		workers = height
	}
	band := (height + workers - 1) / workers

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		y0, y1 := i*band, (i+1)*band
		if y1 > height {
			y1 = height
		}
		wg.Add(1)
		go func(i, y0, y1 int) {
			defer wg.Done()
			errs[i] = decodeRows(m, b, width, height, y0, y1)
		}(i, y0, y1)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return m, nil
}

func readFull(r io.Reader, b []byte) (int, error) {
	n, err := io.ReadFull(r, b)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}

type decoder struct {
	r     io.Reader
	image *image.RGBA
	tmp   []byte
}

func (d *decoder) decode(r io.Reader, configOnly bool) error {
	d.r = r
	d.tmp = make([]byte, Size)

	if n, err := readFull(d.r, d.tmp); err != nil {
		if err != io.ErrUnexpectedEOF {
			return err
		}
		return fmt.Errorf("%w: have %d bytes, want %d", ErrSize, n, Size)
	}

	var extra [1]byte
	switch _, err := io.ReadFull(d.r, extra[:]); err {
	case io.EOF:
	case nil:
		return fmt.Errorf("%w: more than %d bytes", ErrSize, Size)
	default:
		return err
	}

	if configOnly {
		return nil
	}

	m, err := DecodeBytes(d.tmp, Width, Height)
	if err != nil {
		return err
	}
	d.image = m

	return nil
}

// Decode reads a frame from r and returns it as an image.Image.
func Decode(r io.Reader) (image.Image, error) {
	var d decoder
	if err := d.decode(r, false); err != nil {
		return nil, err
	}
	return d.image, nil
}

// DecodeConfig returns the color model and dimensions of a frame after
// checking the amount of data, without decoding any pixels.
func DecodeConfig(r io.Reader) (image.Config, error) {
	var d decoder
	if err := d.decode(r, true); err != nil {
		return image.Config{}, err
	}
	return image.Config{
		ColorModel: color.RGBAModel,
		Width:      Width,
		Height:     Height,
	}, nil
}
