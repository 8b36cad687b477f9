package ithmb

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bodgit/ithmb/catalog"
	"github.com/bodgit/ithmb/frame"
	"github.com/bodgit/ithmb/output"
)

// Ext is the extension of the files that are converted, matched case
// insensitively.
const Ext = ".ithmb"

// Result is the outcome of converting one file.
type Result struct {
	Source  string
	Output  string
	Skipped bool
	Err     error
}

// Summary counts the results of a Convert run.
type Summary struct {
	Converted int
	Skipped   int
	Failed    int
}

// Total returns the number of files seen.
func (s *Summary) Total() int {
	return s.Converted + s.Skipped + s.Failed
}

func (s *Summary) add(r Result) {
	switch {
	case r.Err != nil:
		s.Failed++
	case r.Skipped:
		s.Skipped++
	default:
		s.Converted++
	}
}

func isFrame(name string) bool {
	return strings.EqualFold(filepath.Ext(name), Ext)
}

func (c *Converter) outputPath(file string) string {
	base := filepath.Base(file)
	return filepath.Join(c.options.Output, strings.TrimSuffix(base, filepath.Ext(base))+c.options.Format.Ext())
}

// ErrDuplicate is returned for a file whose image would overwrite the image
// of another file converted in the same run.
var ErrDuplicate = errors.New("output already claimed by another file")

type job struct {
	source string
	output string
	err    error
}

// regular reports whether info describes a regular file, following a
// symbolic link if necessary. Broken links are not regular.
func regular(file string, info os.FileInfo) bool {
	if info.Mode()&os.ModeSymlink != 0 {
		var err error
		if info, err = os.Stat(file); err != nil {
			return false
		}
	}
	return info.Mode().IsRegular()
}

func (c *Converter) findFiles(ctx context.Context, base string) (<-chan job, <-chan error) {
	out := make(chan job)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)

		// Output path to the source that claimed it, first in walk order wins
		claimed := make(map[string]string)

		errc <- filepath.Walk(base, func(file string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			if info.IsDir() {
				if file == base {
					return nil
				}
				// Ignore hidden directories, and any others unless asked
				if !c.options.Recursive || info.Name()[0] == '.' {
					return filepath.SkipDir
				}
				return nil
			}

			// Ignore hidden files and anything that isn't a normal file
			if info.Name()[0] == '.' || !isFrame(file) || !regular(file, info) {
				return nil
			}

			j := job{
				source: file,
				output: c.outputPath(file),
			}
			if other, ok := claimed[j.output]; ok {
				j.err = fmt.Errorf("%w: %s", ErrDuplicate, other)
			} else {
				claimed[j.output] = file
			}

			select {
			case out <- j:
			case <-ctx.Done():
				return ctx.Err()
			}

			return nil
		})
	}()
	return out, errc
}

func (c *Converter) fileWorker(ctx context.Context, in <-chan job, out chan<- Result) {
	for j := range in {
		r := Result{
			Source: j.source,
			Output: j.output,
			Err:    j.err,
		}
		if r.Err == nil {
			c.convertFile(&r)
		}
		select {
		case out <- r:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Converter) convertFile(r *Result) {
	b, err := ioutil.ReadFile(r.Source)
	if err != nil {
		r.Err = err
		return
	}

	var sha string
	if c.catalog != nil {
		sha = catalog.Hash(b)
		if !c.options.Force {
			done, err := c.catalog.Converted(sha, r.Output)
			if err != nil {
				r.Err = err
				return
			}
			if done {
				c.logger.Printf("Already converted \"%s\" with SHA1 \"%s\"\n", r.Source, sha)
				r.Skipped = true
				return
			}
		}
	}

	c.logger.Printf("Decoding \"%s\" (%d bytes)\n", r.Source, len(b))
	m, err := frame.DecodeBytes(b, frame.Width, frame.Height)
	if err != nil {
		r.Err = err
		return
	}

	if err := output.WriteFile(r.Output, m, c.options.output()); err != nil {
		r.Err = err
		return
	}

	// The image is complete so a catalog failure only costs a later rerun
	if c.catalog != nil {
		if err := c.catalog.Record(sha, r.Source, r.Output); err != nil {
			c.logger.Printf("Unable to record \"%s\" in catalog: %v\n", r.Source, err)
		}
	}
}

func (c *Converter) report(r Result) {
	switch {
	case r.Err != nil:
		fmt.Fprintf(c.options.Report, "failed: %s: %v\n", r.Source, r.Err)
	case r.Skipped:
		fmt.Fprintf(c.options.Report, "skipped: %s\n", r.Source)
	default:
		fmt.Fprintf(c.options.Report, "converted: %s -> %s\n", r.Source, r.Output)
	}
}

// ConvertFile converts a single file, writing the image to dst. The catalog
// is not consulted.
func (c *Converter) ConvertFile(src, dst string) error {
	b, err := ioutil.ReadFile(src)
	if err != nil {
		return err
	}

	m, err := frame.DecodeBytes(b, frame.Width, frame.Height)
	if err != nil {
		return err
	}

	return output.WriteFile(dst, m, c.options.output())
}

// Convert converts every .ithmb file found in path. A file that cannot be
// converted is reported and counted but does not stop the others, an error is
// only returned if the directory cannot be read.
func (c *Converter) Convert(ctx context.Context, path string) (*Summary, error) {
	dir, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("not a directory")
	}

	if err := os.MkdirAll(c.options.Output, 0755); err != nil {
		return nil, err
	}

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	files, errc := c.findFiles(ctx, dir)

	results := make(chan Result)
	var wg sync.WaitGroup
	wg.Add(c.options.Workers)
	for i := 0; i < c.options.Workers; i++ {
		go func() {
			defer wg.Done()
			c.fileWorker(ctx, files, results)
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	summary := new(Summary)
	for r := range results {
		summary.add(r)
		c.report(r)
	}

	if err := <-errc; err != nil {
		return summary, err
	}

	if summary.Total() == 0 {
		fmt.Fprintf(c.options.Report, "no %s files found in %s\n", Ext, dir)
	}
	fmt.Fprintf(c.options.Report, "done: %d converted, %d skipped, %d failed\n", summary.Converted, summary.Skipped, summary.Failed)

	return summary, nil
}
