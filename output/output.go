/*
Package output writes decoded frames to disk in one of the common image
formats, optionally scaling them first.
*/
package output

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/ericpauley/go-quantize/quantize"
	"github.com/nfnt/resize"
)

// Format is an output image format.
type Format int

const (
	// JPEG is lossy and honours Options.Quality
	JPEG Format = iota
	// PNG is lossless
	PNG
	// GIF reduces the frame to a 256 color palette
	GIF
)

// DefaultQuality is the JPEG quality used unless overridden.
const DefaultQuality = 90

var errBadQuality = errors.New("output: quality must be between 1 and 100")

var formats = map[string]Format{
	"jpeg": JPEG,
	"jpg":  JPEG,
	"png":  PNG,
	"gif":  GIF,
}

// ParseFormat returns the Format matching name, case insensitively.
func ParseFormat(name string) (Format, error) {
	if f, ok := formats[strings.ToLower(name)]; ok {
		return f, nil
	}
	return JPEG, fmt.Errorf("output: unknown format %q", name)
}

func (f Format) String() string {
	switch f {
	case PNG:
		return "png"
	case GIF:
		return "gif"
	default:
		return "jpeg"
	}
}

// Ext returns the filename extension, including the leading dot.
func (f Format) Ext() string {
	if f == JPEG {
		return ".jpg"
	}
	return "." + f.String()
}

// Options controls how an image is written.
type Options struct {
	Format  Format
	Quality int
	// Width and Height scale the image, zero for both leaves it as is and
	// zero for one of them preserves the aspect ratio
	Width, Height uint
}

// Validate checks the options are usable.
func (o *Options) Validate() error {
	if o.Format == JPEG && (o.Quality < 1 || o.Quality > 100) {
		return errBadQuality
	}
	return nil
}

func (o *Options) scale(m image.Image) image.Image {
	if o.Width == 0 && o.Height == 0 {
		return m
	}
	return resize.Resize(o.Width, o.Height, m, resize.Lanczos3)
}

// Encode writes m to w as described by o.
func Encode(w io.Writer, m image.Image, o *Options) error {
	if err := o.Validate(); err != nil {
		return err
	}

	m = o.scale(m)

	switch o.Format {
	case PNG:
		return png.Encode(w, m)
	case GIF:
		return gif.Encode(w, m, &gif.Options{
			NumColors: 256,
			Quantizer: &quantize.MedianCutQuantizer{},
			Drawer:    draw.FloydSteinberg,
		})
	default:
		return jpeg.Encode(w, m, &jpeg.Options{Quality: o.Quality})
	}
}

// WriteFile encodes m into the named file. The image is written to a
// temporary file in the same directory and renamed into place, so file is
// either complete or untouched.
func WriteFile(file string, m image.Image, o *Options) (err error) {
	f, err := ioutil.TempFile(filepath.Dir(file), "."+filepath.Base(file)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err == nil {
			err = os.Rename(f.Name(), file)
		}
		if err != nil {
			os.Remove(f.Name())
		}
	}()

	if err := f.Chmod(0644); err != nil {
		return err
	}

	return Encode(f, m, o)
}
