// Package trace turns raw syscall and tracepoint samples into strace-like lines and keeps
// the per-thread statistics the summary is built from.
package trace

import (
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	mapset "github.com/deckarep/golang-set"
	"go.uber.org/zap"

	"github.com/tcassar-diss/systrace/argfmt"
	"github.com/tcassar-diss/systrace/schema"
	"github.com/tcassar-diss/systrace/source"
	"github.com/tcassar-diss/systrace/stats"
	"github.com/tcassar-diss/systrace/syscalltbl"
	"github.com/tcassar-diss/systrace/thread"
)

// Deps are the collaborators of a Trace. Only Provider is required.
type Deps struct {
	Provider  schema.Provider
	Procs     argfmt.Procs
	Fds       thread.FdResolver
	Resolver  Resolver
	Enums     argfmt.EnumResolver
	Qualifier *Qualifier
}

// ToolStats count what happened to samples outside of the trace itself.
type ToolStats struct {
	VfsGetname   uint64 `json:"vfs_getname"`
	ProcGetname  uint64 `json:"proc_getname"`
	Unordered    uint64 `json:"unordered"`
	Truncated    uint64 `json:"truncated"`
	SchemaMisses uint64 `json:"schema_misses"`
	Lost         uint64 `json:"lost"`
}

// WriteTo prints the stats block shown with --tool-stats.
func (s ToolStats) WriteTo(w io.Writer) (int64, error) {
	n, err := fmt.Fprintf(w, "Stats:\n vfs_getname : %d\n proc_getname: %d\n unordered   : %d\n"+
		" truncated   : %d\n schema_miss : %d\n lost        : %d\n",
		s.VfsGetname, s.ProcGetname, s.Unordered, s.Truncated, s.SchemaMisses, s.Lost)

	return int64(n), err
}

// Trace is the event correlator. It is driven by a single goroutine; only Stop and Done
// may be called from others.
type Trace struct {
	logger *zap.SugaredLogger
	out    io.Writer
	opts   Options

	cache     *schema.Cache
	threads   *thread.Registry
	enums     argfmt.EnumResolver
	resolver  Resolver
	qualifier *Qualifier
	pids      mapset.Set
	queue     *Queue

	current *thread.State
	machine syscalltbl.Machine

	baseTime   uint64
	nrEvents   uint64
	nrPrinted  uint64
	runtimeMs  float64
	pfMaj      uint64
	pfMin      uint64
	totals     map[int]*stats.Syscall
	toolStats  ToolStats
	outputDone bool

	done atomic.Bool
	err  error
}

func New(logger *zap.SugaredLogger, out io.Writer, opts Options, deps Deps) *Trace {
	t := &Trace{
		logger:    logger,
		out:       out,
		opts:      opts,
		cache:     schema.NewCache(logger, deps.Provider),
		threads:   thread.NewRegistry(deps.Procs, deps.Fds),
		enums:     deps.Enums,
		resolver:  deps.Resolver,
		qualifier: deps.Qualifier,
		pids:      mapset.NewThreadUnsafeSet(),
		machine:   syscalltbl.HostMachine(),
		totals:    make(map[int]*stats.Syscall),
	}

	for _, pid := range opts.FilterPids {
		t.pids.Add(pid)
	}

	if opts.SortEvents {
		t.queue = NewQueue()
	}

	return t
}

// Process handles one sample and returns the first output error seen so far.
func (t *Trace) Process(s *source.Sample) error {
	if t.Done() {
		return t.err
	}

	if t.queue != nil {
		t.queue.Push(s, t.deliver)
	} else {
		t.deliver(s)
	}

	return t.err
}

// Finish delivers any queued samples and flushes the current pending entry.
func (t *Trace) Finish() error {
	if t.queue != nil {
		t.queue.Flush(t.deliver)
		t.toolStats.Unordered = t.queue.Unordered()
	}

	if !t.outputDone && !t.opts.filtering() {
		t.flushInterrupted()
	}

	return t.err
}

// Stop asks the run loop to end after the current sample.
func (t *Trace) Stop() {
	t.done.Store(true)
}

func (t *Trace) Done() bool {
	return t.done.Load()
}

func (t *Trace) deliver(s *source.Sample) {
	if t.outputDone {
		return
	}

	if t.pids.Contains(s.Pid) {
		return
	}

	if s.Machine != 0 {
		t.machine = s.Machine
	}

	if t.baseTime == 0 && !t.opts.FullTime {
		t.baseTime = s.Time
	}

	t.nrEvents++

	switch s.Kind {
	case source.KindSysEnter, source.KindSysEnterAugmented:
		t.sysEnter(s)
	case source.KindSysExit:
		t.sysExit(s)
	case source.KindVfsGetname:
		t.vfsGetname(s)
	case source.KindMajFault, source.KindMinFault:
		t.pageFault(s)
	case source.KindSchedStatRuntime:
		t.schedStatRuntime(s)
	case source.KindTracepoint:
		t.tracepoint(s)
	default:
		t.logger.Debugw("dropping sample of unknown kind", "kind", s.Kind)
	}
}

func (t *Trace) write(line string) {
	if t.err != nil {
		return
	}

	if _, err := io.WriteString(t.out, line); err != nil {
		t.err = fmt.Errorf("failed to write trace output: %w", err)
		t.Stop()
	}
}

// printed counts one output event against MaxEvents.
func (t *Trace) printed() {
	t.nrPrinted++

	if t.opts.MaxEvents > 0 && t.nrPrinted >= t.opts.MaxEvents {
		t.outputDone = true
		t.Stop()
	}
}

func (t *Trace) tstamp(b *strings.Builder, ts uint64) {
	if !t.opts.ShowTimestamp {
		return
	}

	if ts == 0 {
		b.WriteString("         ? ")
		return
	}

	fmt.Fprintf(b, "%10.3f ", float64(int64(ts-t.baseTime))/1e6)
}

func (t *Trace) commTid(b *strings.Builder, st *thread.State) {
	if !t.opts.MultipleThreads {
		return
	}

	if t.opts.ShowComm {
		fmt.Fprintf(b, "%.14s/", st.Comm)
	}

	fmt.Fprintf(b, "%d ", st.Tid)
}

// head writes the timestamp, duration and thread columns of a line.
func (t *Trace) head(b *strings.Builder, st *thread.State, ts, duration uint64, calculated bool) {
	t.tstamp(b, ts)

	if t.opts.ShowDuration {
		if calculated {
			fmt.Fprintf(b, "(%6.3f ms): ", float64(duration)/1e6)
		} else {
			b.WriteString("(         ): ")
		}
	}

	t.commTid(b, st)
}

// flushInterrupted prints the pending entry of the current thread without a return value.
func (t *Trace) flushInterrupted() {
	if t.opts.FailureOnly || t.current == nil || !t.current.EntryPending {
		return
	}

	st := t.current

	var b strings.Builder

	t.head(&b, st, st.EntryTime, 0, false)

	entry := st.Entry() + ")"
	b.WriteString(entry)

	if pad := t.opts.ArgsAlignment - 4 - len(entry); pad > 0 {
		b.WriteString(strings.Repeat(" ", pad))
	}

	b.WriteString(" ...\n")

	st.EntryPending = false

	t.write(b.String())
	t.printed()
}

// Threads returns the state of every thread seen, ordered by tid.
func (t *Trace) Threads() []*thread.State {
	return t.threads.Threads()
}

// Totals are the per-syscall stats across all threads, keyed by id.
func (t *Trace) Totals() map[int]*stats.Syscall {
	return t.totals
}

// SyscallName returns the printable name of id on the traced machine.
func (t *Trace) SyscallName(id int) string {
	if tbl, err := syscalltbl.ForMachine(t.machine); err == nil {
		if name, ok := tbl.Name(id); ok {
			return name
		}
	}

	return fmt.Sprintf("syscall_%d", id)
}

// Machine is the machine of the most recent syscall sample.
func (t *Trace) Machine() syscalltbl.Machine {
	return t.machine
}

func (t *Trace) NrEvents() uint64 {
	return t.nrEvents
}

func (t *Trace) NrPrinted() uint64 {
	return t.nrPrinted
}

func (t *Trace) RuntimeMs() float64 {
	return t.runtimeMs
}

func (t *Trace) PageFaults() (maj, minor uint64) {
	return t.pfMaj, t.pfMin
}

func (t *Trace) Options() Options {
	return t.opts
}

// AddLost records samples the source could not decode.
func (t *Trace) AddLost(n uint64) {
	t.toolStats.Lost += n
}

func (t *Trace) ToolStats() ToolStats {
	s := t.toolStats
	s.ProcGetname = t.threads.ProcGetname()
	s.SchemaMisses = uint64(t.cache.Misses())

	if t.queue != nil {
		s.Unordered = t.queue.Unordered()
	}

	return s
}
