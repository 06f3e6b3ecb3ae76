// Package session wires a config into a running trace: the source, the live /proc and
// tracefs collaborators, the processor, and the reports written after the run.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/syndtr/gocapability/capability"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/tcassar-diss/systrace/argfmt"
	"github.com/tcassar-diss/systrace/config"
	"github.com/tcassar-diss/systrace/internal/processor"
	"github.com/tcassar-diss/systrace/procfs"
	"github.com/tcassar-diss/systrace/schema"
	"github.com/tcassar-diss/systrace/source"
	"github.com/tcassar-diss/systrace/summary"
	"github.com/tcassar-diss/systrace/syscalltbl"
	"github.com/tcassar-diss/systrace/trace"
)

var (
	ErrNoSource   = errors.New("no sample source configured")
	ErrNotCapable = errors.New("not enough privileges to read the ring buffer")
)

type Session struct {
	logger *zap.SugaredLogger
	cfg    *config.Config
	out    io.Writer

	tbl     *syscalltbl.Table
	tr      *trace.Trace
	filters map[string]string
}

// LiveDeps are the collaborators backed by the running system. /proc only describes
// the traced processes while reading live, so replays get no comm, fd or maps lookups.
func LiveDeps(logger *zap.SugaredLogger, cfg *config.Config) trace.Deps {
	deps := trace.Deps{
		Provider: schema.NewTraceFS(logger, cfg.Source.TraceFS),
	}

	if cfg.Source.Ringbuf != "" {
		pfs := procfs.New(logger, cfg.Source.ProcFS)

		deps.Procs = pfs
		deps.Fds = pfs
		deps.Resolver = pfs
	}

	if cfg.Source.BTF {
		deps.Enums = argfmt.NewBTFEnums(logger, argfmt.KernelTypes)
	}

	return deps
}

// New builds the trace for cfg, writing to out. The qualifier is built from the config
// unless deps carries one, and every configured filter is expanded up front.
func New(logger *zap.SugaredLogger, cfg *config.Config, out io.Writer, deps trace.Deps) (*Session, error) {
	tbl, err := syscalltbl.ForMachine(syscalltbl.HostMachine())
	if err != nil {
		return nil, fmt.Errorf("failed to get syscall table: %w", err)
	}

	if deps.Qualifier == nil && len(cfg.Trace.Syscalls) > 0 {
		deps.Qualifier, err = trace.NewQualifier(tbl, cfg.Trace.Syscalls)
		if err != nil {
			return nil, fmt.Errorf("failed to parse event qualifier: %w", err)
		}
	}

	s := &Session{
		logger:  logger,
		cfg:     cfg,
		out:     out,
		tbl:     tbl,
		tr:      trace.New(logger, out, cfg.Options(), deps),
		filters: make(map[string]string, len(cfg.Trace.Filters)),
	}

	if err := s.expandFilters(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Session) expandFilters() error {
	for event, expr := range s.cfg.Trace.Filters {
		var (
			expanded string
			err      error
		)

		if category, name, ok := strings.Cut(event, ":"); ok {
			expanded, err = s.tr.ExpandTracepointFilter(category, name, expr)
		} else {
			expanded, err = s.tr.ExpandSyscallFilter(s.tbl.Machine(), event, expr)
		}

		if err != nil {
			return fmt.Errorf("failed to expand filter for %s: %w", event, err)
		}

		s.logger.Infow("expanded filter", "event", event, "filter", expanded)

		s.filters[event] = expanded
	}

	return nil
}

// Filters returns the expanded filters keyed by event, in event order.
func (s *Session) Filters() []Filter {
	filters := make([]Filter, 0, len(s.filters))

	for event, expr := range s.filters {
		filters = append(filters, Filter{Event: event, Expr: expr})
	}

	sort.Slice(filters, func(i, j int) bool { return filters[i].Event < filters[j].Event })

	return filters
}

type Filter struct {
	Event string
	Expr  string
}

func (s *Session) Trace() *trace.Trace {
	return s.tr
}

// Run traces from the configured source until it is exhausted, the timeout expires, an
// interrupt arrives or max-events is reached. Reports are written afterwards.
func (s *Session) Run(ctx context.Context) error {
	src, err := s.openSource()
	if err != nil {
		return err
	}

	return s.RunSource(ctx, src)
}

// RunSource is Run over an already opened source, which it closes.
func (s *Session) RunSource(ctx context.Context, src source.Source) error {
	defer func() {
		if err := src.Close(); err != nil {
			s.logger.Warnw("failed to close source", "err", err)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.cfg.Output.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Output.Timeout)
		defer cancel()
	}

	stop := s.stopOnSignal(ctx, cancel)
	defer stop()

	p := processor.NewProcessor(s.logger, src, s.tr, nil)

	if err := p.Start(ctx); err != nil {
		return fmt.Errorf("failed to trace: %w", err)
	}

	s.logger.Infow("trace finished", "events", s.tr.NrEvents(), "printed", s.tr.NrPrinted(), "lost", p.Lost())

	return s.report()
}

func (s *Session) stopOnSignal(ctx context.Context, cancel context.CancelFunc) func() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, unix.SIGTERM)

	go func() {
		select {
		case sig := <-sigs:
			s.logger.Infow("received signal, stopping", "signal", sig)
			s.tr.Stop()
			cancel()
		case <-ctx.Done():
		}
	}()

	return func() { signal.Stop(sigs) }
}

func (s *Session) openSource() (source.Source, error) {
	switch {
	case s.cfg.Source.Ringbuf != "":
		if !Capable(s.logger) {
			return nil, ErrNotCapable
		}

		src, err := source.OpenRingbuf(s.logger, s.cfg.Source.Ringbuf)
		if err != nil {
			return nil, fmt.Errorf("failed to open ring buffer: %w", err)
		}

		return src, nil
	case s.cfg.Source.Replay != "":
		src, err := source.OpenReplay(s.logger, s.cfg.Source.Replay)
		if err != nil {
			return nil, fmt.Errorf("failed to open replay: %w", err)
		}

		return src, nil
	}

	return nil, ErrNoSource
}

// Capable reports whether the process holds CAP_SYS_ADMIN. When capabilities cannot be read
// the check passes and opening the map reports the real error.
func Capable(logger *zap.SugaredLogger) bool {
	c, err := capability.NewPid2(0)
	if err == nil {
		err = c.Load()
	}

	if err != nil {
		logger.Warnw("failed to read capabilities, assuming enough privileges", "err", err)
		return true
	}

	return c.Get(capability.EFFECTIVE, capability.CAP_SYS_ADMIN)
}

func (s *Session) mode() summary.Mode {
	if s.cfg.Trace.SummaryMode == config.SummaryByTotal {
		return summary.ByTotal
	}

	return summary.ByThread
}

func (s *Session) report() error {
	out := s.cfg.Output

	if s.cfg.Trace.Summary || out.SummaryJSON != "" || out.SeccompProfile != "" {
		r := summary.Build(s.tr, s.mode())

		if s.cfg.Trace.Summary {
			if err := r.WriteText(s.out); err != nil {
				return fmt.Errorf("failed to write summary: %w", err)
			}
		}

		if out.SummaryJSON != "" {
			if err := r.WriteJSON(out.SummaryJSON); err != nil {
				return err
			}

			s.logger.Infow("wrote summary", "path", out.SummaryJSON)
		}

		if out.SeccompProfile != "" {
			if err := r.WriteSeccomp(s.tr.Machine(), out.SeccompProfile); err != nil {
				return err
			}

			s.logger.Infow("wrote seccomp profile", "path", out.SeccompProfile)
		}
	}

	if s.cfg.Trace.ToolStats {
		if _, err := s.tr.ToolStats().WriteTo(s.out); err != nil {
			return fmt.Errorf("failed to write tool stats: %w", err)
		}
	}

	return nil
}
