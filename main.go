package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func newLogger(verbose bool) (*zap.SugaredLogger, error) {
	var (
		l   *zap.Logger
		err error
	)

	if verbose {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}

	if err != nil {
		return nil, err
	}

	return l.Sugar(), nil
}

func main() {
	a := &app{}

	cliApp := &cli.App{
		Name:  "systrace",
		Usage: "decode and format syscall samples the way perf trace does",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			logger, err := newLogger(c.Bool("verbose"))
			if err != nil {
				return err
			}

			a.logger = logger

			return nil
		},
		After: func(*cli.Context) error {
			if a.logger != nil {
				_ = a.logger.Sync()
			}

			return nil
		},
		Commands: []*cli.Command{
			a.traceCmd(),
			a.filterCmd(),
			a.syscallsCmd(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		if a.logger == nil {
			log.Fatalf("failed to run: %v", err)
		}

		a.logger.Fatalw("failed to run", "err", err)
	}
}
