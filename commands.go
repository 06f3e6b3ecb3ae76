package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/tcassar-diss/systrace/config"
	"github.com/tcassar-diss/systrace/internal/session"
	"github.com/tcassar-diss/systrace/syscalltbl"
)

type app struct {
	logger *zap.SugaredLogger
}

var configFlags = []cli.Flag{
	&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file, flags override it"},
	&cli.StringFlag{Name: "tracefs", Usage: "tracefs mount used for event formats"},
	&cli.StringFlag{Name: "procfs", Usage: "procfs mount used for comm, fd paths and maps"},
	&cli.BoolFlag{Name: "btf", Value: true, Usage: "resolve enum arguments from kernel BTF"},
	&cli.StringSliceFlag{Name: "event", Aliases: []string{"e"}, Usage: "syscalls to trace, globs allowed, a leading ! negates the list"},
	&cli.StringSliceFlag{Name: "filter", Usage: "filter expression as event=expr, may be repeated"},
}

var traceFlags = []cli.Flag{
	&cli.StringFlag{Name: "ringbuf", Usage: "pinned BPF ring buffer to read samples from"},
	&cli.StringFlag{Name: "replay", Usage: "replay file to read samples from"},
	&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "write the trace to this file instead of stdout"},
	&cli.DurationFlag{Name: "timeout", Usage: "stop tracing after this long"},

	&cli.BoolFlag{Name: "timestamp", Value: true, Usage: "print the timestamp column"},
	&cli.BoolFlag{Name: "show-duration", Value: true, Usage: "print the duration column"},
	&cli.BoolFlag{Name: "comm", Value: true, Usage: "print comm with tid"},
	&cli.BoolFlag{Name: "arg-names", Value: true, Usage: "print argument names, disabling it prints zero values too"},
	&cli.BoolFlag{Name: "zeros", Usage: "print zero valued arguments"},
	&cli.BoolFlag{Name: "prefix", Usage: "keep prefixes such as O_ on symbolic values"},
	&cli.BoolFlag{Name: "full-time", Usage: "print absolute timestamps"},
	&cli.BoolFlag{Name: "multiple-threads", Aliases: []string{"T"}, Usage: "print comm/tid on every line"},
	&cli.IntFlag{Name: "args-alignment", Usage: "column return values are aligned to"},

	&cli.Float64Flag{Name: "duration", Usage: "only show syscalls taking longer than this many msec"},
	&cli.Uint64Flag{Name: "max-events", Usage: "stop after this many printed events"},
	&cli.BoolFlag{Name: "failure", Usage: "only show failed syscalls"},
	&cli.IntSliceFlag{Name: "pid", Aliases: []string{"p"}, Usage: "drop samples from these pids"},
	&cli.BoolFlag{Name: "sort-events", Usage: "reorder samples by time before decoding"},
	&cli.BoolFlag{Name: "vfs-getname", Usage: "samples carry probe:vfs_getname filenames"},
	&cli.BoolFlag{Name: "sched", Usage: "samples carry sched:sched_stat_runtime"},

	&cli.BoolFlag{Name: "call-graph", Usage: "print callchains"},
	&cli.IntFlag{Name: "min-stack", Usage: "only show events with callchains at least this deep"},
	&cli.IntFlag{Name: "max-stack", Usage: "print at most this many callchain entries"},

	&cli.BoolFlag{Name: "summary", Aliases: []string{"S"}, Usage: "print a summary after the trace"},
	&cli.BoolFlag{Name: "summary-only", Aliases: []string{"s"}, Usage: "only print the summary"},
	&cli.StringFlag{Name: "summary-mode", Usage: "summary per \"thread\" or in \"total\""},
	&cli.BoolFlag{Name: "errno-summary", Usage: "break failures down by errno in the summary"},
	&cli.StringFlag{Name: "summary-json", Usage: "write the summary as JSON to this file"},
	&cli.StringFlag{Name: "seccomp-profile", Usage: "write a seccomp profile allowing the observed syscalls"},
	&cli.BoolFlag{Name: "tool-stats", Usage: "print sample handling stats at the end"},
}

// loadConfig reads --config, if given, and applies every flag set on the command line.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()

	if c.IsSet("config") {
		var err error

		cfg, err = config.Load(c.String("config"))
		if err != nil {
			return nil, err
		}
	}

	src, tr, out := &cfg.Source, &cfg.Trace, &cfg.Output

	setString(c, "tracefs", &src.TraceFS)
	setString(c, "procfs", &src.ProcFS)
	setBool(c, "btf", &src.BTF)
	setString(c, "ringbuf", &src.Ringbuf)
	setString(c, "replay", &src.Replay)

	setString(c, "output", &out.Path)
	setString(c, "summary-json", &out.SummaryJSON)
	setString(c, "seccomp-profile", &out.SeccompProfile)

	if c.IsSet("timeout") {
		out.Timeout = c.Duration("timeout")
	}

	setBool(c, "timestamp", &tr.ShowTimestamp)
	setBool(c, "show-duration", &tr.ShowDuration)
	setBool(c, "comm", &tr.ShowComm)
	setBool(c, "arg-names", &tr.ShowArgNames)
	setBool(c, "zeros", &tr.ShowZeros)
	setBool(c, "prefix", &tr.ShowPrefix)
	setBool(c, "full-time", &tr.FullTime)
	setBool(c, "multiple-threads", &tr.MultipleThreads)
	setBool(c, "failure", &tr.FailureOnly)
	setBool(c, "sort-events", &tr.SortEvents)
	setBool(c, "vfs-getname", &tr.VfsGetname)
	setBool(c, "sched", &tr.Sched)
	setBool(c, "call-graph", &tr.Callchain)
	setBool(c, "summary", &tr.Summary)
	setBool(c, "summary-only", &tr.SummaryOnly)
	setBool(c, "errno-summary", &tr.ErrnoSummary)
	setBool(c, "tool-stats", &tr.ToolStats)
	setString(c, "summary-mode", &tr.SummaryMode)

	setInt(c, "args-alignment", &tr.ArgsAlignment)
	setInt(c, "min-stack", &tr.MinStack)
	setInt(c, "max-stack", &tr.MaxStack)

	if c.IsSet("duration") {
		tr.Duration = c.Float64("duration")
	}

	if c.IsSet("max-events") {
		tr.MaxEvents = c.Uint64("max-events")
	}

	if c.IsSet("pid") {
		tr.FilterPids = c.IntSlice("pid")
	}

	if c.IsSet("event") {
		tr.Syscalls = c.StringSlice("event")
	}

	for _, f := range c.StringSlice("filter") {
		event, expr, ok := strings.Cut(f, "=")
		if !ok || event == "" {
			return nil, fmt.Errorf("%w: filter %q is not event=expr", config.ErrInvalidConfig, f)
		}

		if tr.Filters == nil {
			tr.Filters = make(map[string]string)
		}

		tr.Filters[event] = expr
	}

	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setString(c *cli.Context, name string, dst *string) {
	if c.IsSet(name) {
		*dst = c.String(name)
	}
}

func setBool(c *cli.Context, name string, dst *bool) {
	if c.IsSet(name) {
		*dst = c.Bool(name)
	}
}

func setInt(c *cli.Context, name string, dst *int) {
	if c.IsSet(name) {
		*dst = c.Int(name)
	}
}

func (a *app) traceCmd() *cli.Command {
	return &cli.Command{
		Name:  "trace",
		Usage: "decode samples from a ring buffer or replay file",
		Flags: append(append([]cli.Flag{}, configFlags...), traceFlags...),
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			var out io.Writer = os.Stdout

			if cfg.Output.Path != "" {
				f, err := os.Create(cfg.Output.Path)
				if err != nil {
					return fmt.Errorf("failed to create output: %w", err)
				}
				defer f.Close()

				out = f
			}

			w := bufio.NewWriter(out)

			s, err := session.New(a.logger, cfg, w, session.LiveDeps(a.logger, cfg))
			if err != nil {
				return err
			}

			runErr := s.Run(c.Context)

			if err := w.Flush(); err != nil && runErr == nil {
				runErr = fmt.Errorf("failed to flush output: %w", err)
			}

			return runErr
		},
	}
}

func (a *app) filterCmd() *cli.Command {
	return &cli.Command{
		Name:      "filter",
		Usage:     "expand symbolic filter expressions into the numeric form the kernel accepts",
		ArgsUsage: "[event=expr...]",
		Flags:     configFlags,
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			for _, arg := range c.Args().Slice() {
				event, expr, ok := strings.Cut(arg, "=")
				if !ok {
					return fmt.Errorf("%w: filter %q is not event=expr", config.ErrInvalidConfig, arg)
				}

				if cfg.Trace.Filters == nil {
					cfg.Trace.Filters = make(map[string]string)
				}

				cfg.Trace.Filters[event] = expr
			}

			s, err := session.New(a.logger, cfg, io.Discard, session.LiveDeps(a.logger, cfg))
			if err != nil {
				return err
			}

			for _, f := range s.Filters() {
				fmt.Printf("%s: %s\n", f.Event, f.Expr)
			}

			return nil
		},
	}
}

func (a *app) syscallsCmd() *cli.Command {
	return &cli.Command{
		Name:      "syscalls",
		Usage:     "list the syscall table of the host, optionally matching globs",
		ArgsUsage: "[glob...]",
		Action: func(c *cli.Context) error {
			tbl, err := syscalltbl.ForMachine(syscalltbl.HostMachine())
			if err != nil {
				return fmt.Errorf("failed to get syscall table: %w", err)
			}

			ids := tbl.IDs()

			if c.NArg() > 0 {
				ids = nil

				for _, glob := range c.Args().Slice() {
					matched, err := tbl.Match(glob)
					if err != nil {
						return err
					}

					ids = append(ids, matched...)
				}
			}

			for _, id := range ids {
				name, _ := tbl.Name(id)
				fmt.Printf("%4d %s\n", id, name)
			}

			a.logger.Debugw("listed syscalls", "machine", tbl.Machine(), "count", len(ids))

			return nil
		},
	}
}
