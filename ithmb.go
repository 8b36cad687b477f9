/*
Package ithmb is a library for recovering the full screen photos cached by
portable media players in .ithmb files.

Each file holds a single raw 720 by 480 frame which is decoded by the frame
package and written out as an ordinary image.
*/
package ithmb

import (
	"io"
	"io/ioutil"
	"log"

	"github.com/bodgit/ithmb/catalog"
	"github.com/bodgit/ithmb/output"
)

const defaultWorkers = 10

// Options controls a Converter.
type Options struct {
	// Output is the directory converted images are written to
	Output string
	// Format, Quality, Width and Height control the written images
	Format        output.Format
	Quality       int
	Width, Height uint
	// Workers is the number of files converted concurrently
	Workers int
	// Recursive also looks for files in subdirectories
	Recursive bool
	// Force converts files even if the catalog says they are done
	Force bool
	// Report receives one line per file and a final summary
	Report io.Writer
}

func (o *Options) output() *output.Options {
	return &output.Options{
		Format:  o.Format,
		Quality: o.Quality,
		Width:   o.Width,
		Height:  o.Height,
	}
}

// Converter converts .ithmb files to images.
type Converter struct {
	catalog *catalog.Catalog
	logger  *log.Logger
	options Options
}

// New returns a Converter. If db is not empty it names a catalog database
// used to skip files that have already been converted.
func New(db string, logger *log.Logger, options ...func(*Options)) (*Converter, error) {
	c := &Converter{
		logger: logger,
		options: Options{
			Output:  ".",
			Format:  output.JPEG,
			Quality: output.DefaultQuality,
			Workers: defaultWorkers,
			Report:  ioutil.Discard,
		},
	}
	for _, o := range options {
		o(&c.options)
	}

	if c.logger == nil {
		c.logger = log.New(ioutil.Discard, "", 0)
	}
	if c.options.Report == nil {
		c.options.Report = ioutil.Discard
	}
	if c.options.Workers < 1 {
		c.options.Workers = 1
	}

	if err := c.options.output().Validate(); err != nil {
		return nil, err
	}

	if db != "" {
		cat, err := catalog.Open(db)
		if err != nil {
			return nil, err
		}
		c.catalog = cat
	}

	return c, nil
}

// Close releases the catalog, if any.
func (c *Converter) Close() error {
	if c.catalog != nil {
		return c.catalog.Close()
	}
	return nil
}
