package main

import (
	"context"
	"io/ioutil"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/bodgit/ithmb"
	"github.com/bodgit/ithmb/output"
	"github.com/urfave/cli/v2"
)

const defaultDB = "ithmb.db"

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

var imageFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "format",
		Value: "jpeg",
		Usage: "output image format, one of jpeg, png or gif",
	},
	&cli.IntFlag{
		Name:  "quality",
		Value: output.DefaultQuality,
		Usage: "JPEG quality, 1 to 100",
	},
	&cli.UintFlag{
		Name:  "width",
		Usage: "scale to this width, 0 keeps the aspect ratio",
	},
	&cli.UintFlag{
		Name:  "height",
		Usage: "scale to this height, 0 keeps the aspect ratio",
	},
}

func newLogger(c *cli.Context) *log.Logger {
	logger := log.New(ioutil.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

func imageOptions(c *cli.Context) (func(*ithmb.Options), error) {
	format, err := output.ParseFormat(c.String("format"))
	if err != nil {
		return nil, err
	}
	return func(o *ithmb.Options) {
		o.Format = format
		o.Quality = c.Int("quality")
		o.Width = c.Uint("width")
		o.Height = c.Uint("height")
	}, nil
}

func interruptContext() (context.Context, context.CancelFunc) {
	ctx, cancelFunc := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		select {
		case <-sig:
			cancelFunc()
		case <-ctx.Done():
		}
		signal.Stop(sig)
	}()
	return ctx, cancelFunc
}

func main() {
	app := cli.NewApp()

	app.Name = "ithmb"
	app.Usage = "Photo cache (.ithmb) recovery utility"
	app.Version = "1.0.0"

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"ITHMB_DB"},
			Value:   filepath.Join(cwd, defaultDB),
			Usage:   "path to conversion catalog, empty to disable",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:        "convert",
			Usage:       "Convert every .ithmb file in a directory",
			Description: "",
			ArgsUsage:   "DIRECTORY",
			Flags: append([]cli.Flag{
				&cli.StringFlag{
					Name:    "output",
					Aliases: []string{"o"},
					EnvVars: []string{"ITHMB_OUTPUT"},
					Value:   cwd,
					Usage:   "directory to write images to",
				},
				&cli.IntFlag{
					Name:  "workers",
					Value: 10,
					Usage: "number of files to convert concurrently",
				},
				&cli.BoolFlag{
					Name:    "recursive",
					Aliases: []string{"r"},
					Usage:   "search subdirectories",
				},
				&cli.BoolFlag{
					Name:  "force",
					Usage: "convert files already in the catalog",
				},
			}, imageFlags...),
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				options, err := imageOptions(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				m, err := ithmb.New(c.String("db"), newLogger(c), options, func(o *ithmb.Options) {
					o.Output = c.String("output")
					o.Workers = c.Int("workers")
					o.Recursive = c.Bool("recursive")
					o.Force = c.Bool("force")
					o.Report = os.Stdout
				})
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer m.Close()

				ctx, cancelFunc := interruptContext()
				defer cancelFunc()

				if _, err := m.Convert(ctx, c.Args().First()); err != nil {
					return cli.NewExitError(err, 1)
				}

				return nil
			},
		},
		{
			Name:        "decode",
			Usage:       "Convert a single .ithmb file",
			Description: "",
			ArgsUsage:   "FILE OUTPUT",
			Flags:       imageFlags,
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				options, err := imageOptions(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				m, err := ithmb.New("", newLogger(c), options)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer m.Close()

				if err := m.ConvertFile(c.Args().Get(0), c.Args().Get(1)); err != nil {
					return cli.NewExitError(err, 1)
				}

				return nil
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
