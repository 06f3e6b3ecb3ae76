package trace_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tcassar-diss/systrace/schema"
	"github.com/tcassar-diss/systrace/source"
	"github.com/tcassar-diss/systrace/syscalltbl"
	"github.com/tcassar-diss/systrace/trace"
)

const (
	pid = 100
	ms  = uint64(1_000_000)
)

type fakeProcs map[int]string

func (p fakeProcs) Comm(pid int) (string, bool) {
	c, ok := p[pid]
	return c, ok
}

type fakeResolver map[uint64]trace.Location

func (r fakeResolver) Resolve(_ int, addr uint64) (trace.Location, bool) {
	loc, ok := r[addr]
	return loc, ok
}

func sysFields(args ...schema.Field) []schema.Field {
	fields := []schema.Field{
		{Name: "common_type", Type: "unsigned short", Offset: 0, Size: 2},
		{Name: "common_pid", Type: "int", Offset: 4, Size: 4, Flags: schema.FieldSigned},
		{Name: "__syscall_nr", Type: "int", Offset: 8, Size: 4, Flags: schema.FieldSigned},
	}

	for i, a := range args {
		a.Offset = source.SyscallArgsOffset + 8*i
		a.Size = 8
		fields = append(fields, a)
	}

	return fields
}

var commonFields = []schema.Field{
	{Name: "common_type", Type: "unsigned short", Offset: 0, Size: 2},
	{Name: "common_pid", Type: "int", Offset: 4, Size: 4, Flags: schema.FieldSigned},
}

func tracepointFields(fields ...schema.Field) []schema.Field {
	return append(append([]schema.Field(nil), commonFields...), fields...)
}

var provider = schema.StaticProvider{
	"syscalls:sys_enter_openat": sysFields(
		schema.Field{Name: "dfd", Type: "int", Flags: schema.FieldSigned},
		schema.Field{Name: "pathname", Type: "const char *", Flags: schema.FieldPointer},
		schema.Field{Name: "flags", Type: "int", Flags: schema.FieldSigned},
		schema.Field{Name: "mode", Type: "umode_t"},
	),
	"syscalls:sys_enter_close": sysFields(
		schema.Field{Name: "fd", Type: "unsigned int"},
	),
	"syscalls:sys_enter_read": sysFields(
		schema.Field{Name: "fd", Type: "unsigned int"},
		schema.Field{Name: "buf", Type: "char *", Flags: schema.FieldPointer},
		schema.Field{Name: "count", Type: "size_t"},
	),
	"syscalls:sys_enter_write": sysFields(
		schema.Field{Name: "fd", Type: "unsigned int"},
		schema.Field{Name: "buf", Type: "const char *", Flags: schema.FieldPointer},
		schema.Field{Name: "count", Type: "size_t"},
	),
	"syscalls:sys_enter_lseek": sysFields(
		schema.Field{Name: "fd", Type: "unsigned int"},
		schema.Field{Name: "offset", Type: "off_t", Flags: schema.FieldSigned},
		schema.Field{Name: "whence", Type: "unsigned int"},
	),
	"syscalls:sys_enter_exit_group": sysFields(
		schema.Field{Name: "error_code", Type: "int", Flags: schema.FieldSigned},
	),
	"probe:vfs_getname": tracepointFields(
		schema.Field{Name: "pathname", Type: "char", Offset: 8, Size: 4, Flags: schema.FieldDynamic | schema.FieldArray},
	),
	"sched:sched_stat_runtime": tracepointFields(
		schema.Field{Name: "comm", Type: "char", Offset: 8, Size: 16, ArrayLen: 16, Flags: schema.FieldArray},
		schema.Field{Name: "pid", Type: "pid_t", Offset: 24, Size: 4, Flags: schema.FieldSigned},
		schema.Field{Name: "runtime", Type: "u64", Offset: 32, Size: 8},
	),
	"sched:sched_wakeup": tracepointFields(
		schema.Field{Name: "comm", Type: "char", Offset: 8, Size: 16, ArrayLen: 16, Flags: schema.FieldArray},
		schema.Field{Name: "pid", Type: "pid_t", Offset: 24, Size: 4, Flags: schema.FieldSigned},
		schema.Field{Name: "prio", Type: "int", Offset: 28, Size: 4, Flags: schema.FieldSigned},
		schema.Field{Name: "target_cpu", Type: "int", Offset: 32, Size: 4, Flags: schema.FieldSigned},
	),
	"sched:sched_process_exec": tracepointFields(
		schema.Field{Name: "filename", Type: "char", Offset: 8, Size: 4, Flags: schema.FieldDynamic | schema.FieldArray},
		schema.Field{Name: "pid", Type: "pid_t", Offset: 12, Size: 4, Flags: schema.FieldSigned},
		schema.Field{Name: "data", Type: "u8", Offset: 16, Size: 4, ArrayLen: 4, Flags: schema.FieldArray},
	),
}

// plainOptions print lines without the timestamp and duration columns, with the return
// value one space after the closing paren.
func plainOptions() trace.Options {
	opts := trace.DefaultOptions()
	opts.ShowTimestamp = false
	opts.ShowDuration = false
	opts.ArgsAlignment = 0
	opts.RawAugmentedArgsSize = source.RawSyscallArgsSize

	return opts
}

type harness struct {
	t   *testing.T
	tbl *syscalltbl.Table
	out *bytes.Buffer
	tr  *trace.Trace
}

func newHarness(t *testing.T, opts trace.Options, deps trace.Deps) *harness {
	t.Helper()

	tbl, err := syscalltbl.ForMachine(syscalltbl.HostMachine())
	require.NoError(t, err)

	if deps.Provider == nil {
		deps.Provider = provider
	}

	if deps.Procs == nil {
		deps.Procs = fakeProcs{pid: "cat"}
	}

	out := &bytes.Buffer{}

	return &harness{
		t:   t,
		tbl: tbl,
		out: out,
		tr:  trace.New(zap.NewNop().Sugar(), out, opts, deps),
	}
}

func (h *harness) id(name string) int {
	h.t.Helper()

	id, ok := h.tbl.ID(name)
	require.True(h.t, ok, "no syscall %s on this machine", name)

	return id
}

func (h *harness) process(s *source.Sample) {
	h.t.Helper()

	if s.Pid == 0 {
		s.Pid, s.Tid = pid, pid
	}

	require.NoError(h.t, h.tr.Process(s))
}

func (h *harness) enter(ts uint64, name string, args ...uint64) {
	h.t.Helper()

	h.process(&source.Sample{Kind: source.KindSysEnter, Time: ts, Raw: source.SyscallPayload(h.id(name), args...)})
}

func (h *harness) enterAugmented(ts uint64, name string, value string, args ...uint64) {
	h.t.Helper()

	raw := source.AppendAugmented(source.SyscallPayload(h.id(name), args...), []byte(value+"\x00"))
	h.process(&source.Sample{Kind: source.KindSysEnterAugmented, Time: ts, Raw: raw})
}

func (h *harness) exit(ts uint64, name string, ret int64) {
	h.t.Helper()

	h.process(&source.Sample{Kind: source.KindSysExit, Time: ts, Raw: source.SyscallPayload(h.id(name), uint64(ret))})
}

func (h *harness) lines() string {
	return h.out.String()
}

func cwd() uint64 {
	fd := int64(-100)
	return uint64(fd)
}

func TestOpenBindsFd(t *testing.T) {
	h := newHarness(t, plainOptions(), trace.Deps{})

	h.enterAugmented(1*ms, "openat", "/etc/passwd", cwd(), 0x1000, 0, 0)
	h.exit(2*ms, "openat", 5)

	require.Equal(t, `openat(dfd: CWD, pathname: "/etc/passwd", flags: O_RDONLY) = 5`+"\n", h.lines())

	threads := h.tr.Threads()
	require.Len(t, threads, 1)

	path, ok := threads[0].FdPath(5)
	require.True(t, ok)
	require.Equal(t, "/etc/passwd", path)
}

func TestCloseForgetsFd(t *testing.T) {
	h := newHarness(t, plainOptions(), trace.Deps{})

	h.enterAugmented(1*ms, "openat", "/etc/passwd", cwd(), 0x1000, 0, 0)
	h.exit(2*ms, "openat", 5)
	h.out.Reset()

	h.enter(3*ms, "close", 5)
	h.exit(4*ms, "close", 0)

	require.Equal(t, "close(fd: 5</etc/passwd>) = 0\n", h.lines())

	_, ok := h.tr.Threads()[0].FdPath(5)
	require.False(t, ok)
}

func TestInterruptedEntry(t *testing.T) {
	h := newHarness(t, plainOptions(), trace.Deps{})

	h.enter(1*ms, "read", 3)
	h.enter(2*ms, "write", 3)
	require.Equal(t, "read(fd: 3) ...\n", h.lines())

	h.exit(3*ms, "write", 0)
	require.Equal(t, "read(fd: 3) ...\nwrite(fd: 3) = 0\n", h.lines())
}

func TestErrnoReturn(t *testing.T) {
	h := newHarness(t, plainOptions(), trace.Deps{})

	h.enterAugmented(1*ms, "openat", "/nope", cwd(), 0x1000, 0, 0)
	h.exit(2*ms, "openat", -2)

	require.Equal(t,
		`openat(dfd: CWD, pathname: "/nope", flags: O_RDONLY) = -1 ENOENT (No such file or directory)`+"\n",
		h.lines())
}

func TestDurationFilterKeepsStats(t *testing.T) {
	opts := plainOptions()
	opts.DurationFilter = 5
	opts.Summary = true

	h := newHarness(t, opts, trace.Deps{})

	h.enter(1*ms, "read", 3)
	h.exit(3*ms, "read", 0)
	require.Empty(t, h.lines())

	h.enter(4*ms, "read", 3)
	h.exit(11*ms, "read", 0)
	require.Equal(t, "read(fd: 3) = 0\n", h.lines())

	id := h.id("read")

	require.Equal(t, uint64(2), h.tr.Totals()[id].Calls())
	require.Equal(t, uint64(2), h.tr.Threads()[0].SyscallStats(id).Calls())
}

func TestTotalSummaryKeepsNoThreadStats(t *testing.T) {
	opts := plainOptions()
	opts.Summary = true
	opts.SummaryTotal = true

	h := newHarness(t, opts, trace.Deps{})

	h.enter(1*ms, "read", 3)
	h.exit(2*ms, "read", 0)

	id := h.id("read")

	require.Equal(t, uint64(1), h.tr.Totals()[id].Calls())
	require.Empty(t, h.tr.Threads()[0].Stats)
}

func TestLineLayout(t *testing.T) {
	cases := []struct {
		name     string
		opts     func(*trace.Options)
		expected string
	}{
		{
			name:     "defaults",
			opts:     func(*trace.Options) {},
			expected: "     0.000 ( 2.500 ms): read(fd: 3)" + strings.Repeat(" ", 59) + "= 0\n",
		},
		{
			name: "threads",
			opts: func(o *trace.Options) {
				o.ShowTimestamp = false
				o.ShowDuration = false
				o.MultipleThreads = true
				o.ArgsAlignment = 0
			},
			expected: "cat/100 read(fd: 3) = 0\n",
		},
		{
			name: "no arg names",
			opts: func(o *trace.Options) {
				o.ShowTimestamp = false
				o.ShowDuration = false
				o.ShowArgNames = false
				o.ArgsAlignment = 0
			},
			expected: "read(3) = 0\n",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			opts := trace.DefaultOptions()
			c.opts(&opts)

			h := newHarness(t, opts, trace.Deps{})

			h.enter(1*ms, "read", 3)
			h.exit(3*ms+ms/2, "read", 0)

			require.Equal(t, c.expected, h.lines())
		})
	}
}

func TestContinuedExit(t *testing.T) {
	h := newHarness(t, plainOptions(), trace.Deps{})

	h.exit(1*ms, "read", 7)

	require.Equal(t, " ... [continued]: read()) = 7\n", h.lines())
}

func TestExitLike(t *testing.T) {
	h := newHarness(t, plainOptions(), trace.Deps{})

	h.enter(1*ms, "exit_group", 1)

	require.Equal(t, "exit_group(error_code: 1) = ?\n", h.lines())

	require.NoError(t, h.tr.Finish())
	require.Equal(t, "exit_group(error_code: 1) = ?\n", h.lines())
}

func TestFailureOnly(t *testing.T) {
	opts := plainOptions()
	opts.FailureOnly = true

	h := newHarness(t, opts, trace.Deps{})

	h.enter(1*ms, "read", 3)
	h.enter(2*ms, "read", 3)
	h.exit(3*ms, "read", 0)
	require.Empty(t, h.lines())

	h.enter(4*ms, "read", 3)
	h.exit(5*ms, "read", -9)
	require.Equal(t, "read(fd: 3) = -1 EBADF (Bad file descriptor)\n", h.lines())

	h.enter(6*ms, "read", 3)
	require.NoError(t, h.tr.Finish())
	require.Equal(t, "read(fd: 3) = -1 EBADF (Bad file descriptor)\n", h.lines())
}

func TestFinishFlushesPending(t *testing.T) {
	h := newHarness(t, plainOptions(), trace.Deps{})

	h.enter(1*ms, "read", 3)
	require.Empty(t, h.lines())

	require.NoError(t, h.tr.Finish())
	require.Equal(t, "read(fd: 3) ...\n", h.lines())
}

func TestMaxEvents(t *testing.T) {
	opts := plainOptions()
	opts.MaxEvents = 1

	h := newHarness(t, opts, trace.Deps{})

	h.enter(1*ms, "read", 3)
	h.exit(2*ms, "read", 0)
	require.True(t, h.tr.Done())

	h.enter(3*ms, "read", 4)
	h.exit(4*ms, "read", 0)
	require.NoError(t, h.tr.Finish())

	require.Equal(t, "read(fd: 3) = 0\n", h.lines())
	require.Equal(t, uint64(1), h.tr.NrPrinted())
}

func TestMissingSchema(t *testing.T) {
	h := newHarness(t, plainOptions(), trace.Deps{})

	h.enter(1*ms, "getpid")
	h.exit(2*ms, "getpid", pid)

	require.Equal(t, "getpid(arg0: 0, arg1: 0, arg2: 0, arg3: 0, arg4: 0, arg5: 0) = 100 (cat)\n", h.lines())
	require.Equal(t, uint64(1), h.tr.ToolStats().SchemaMisses)
}

func TestTruncatedPayload(t *testing.T) {
	h := newHarness(t, plainOptions(), trace.Deps{})

	h.process(&source.Sample{Kind: source.KindSysEnter, Time: ms, Raw: make([]byte, 4)})

	require.Empty(t, h.lines())
	require.Equal(t, uint64(1), h.tr.ToolStats().Truncated)
}

func TestFilterPids(t *testing.T) {
	opts := plainOptions()
	opts.FilterPids = []int{pid}

	h := newHarness(t, opts, trace.Deps{})

	h.enter(1*ms, "read", 3)
	h.exit(2*ms, "read", 0)

	require.Empty(t, h.lines())
	require.Zero(t, h.tr.NrEvents())
}

func TestQualifiedSyscalls(t *testing.T) {
	cases := []struct {
		name     string
		exprs    []string
		expected string
	}{
		{name: "allow", exprs: []string{"read"}, expected: "read(fd: 3) = 0\n"},
		{name: "deny", exprs: []string{"!read"}, expected: "write(fd: 3) = 0\n"},
		{name: "glob", exprs: []string{"wr*"}, expected: "write(fd: 3) = 0\n"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			tbl, err := syscalltbl.ForMachine(syscalltbl.HostMachine())
			require.NoError(t, err)

			q, err := trace.NewQualifier(tbl, c.exprs)
			require.NoError(t, err)

			h := newHarness(t, plainOptions(), trace.Deps{Qualifier: q})

			h.enter(1*ms, "read", 3)
			h.exit(2*ms, "read", 0)
			h.enter(3*ms, "write", 3)
			h.exit(4*ms, "write", 0)

			require.Equal(t, c.expected, h.lines())
		})
	}
}

func TestSortedDelivery(t *testing.T) {
	opts := plainOptions()
	opts.SortEvents = true

	h := newHarness(t, opts, trace.Deps{})

	h.exit(2*ms, "read", 0)
	h.enter(1*ms, "read", 3)
	require.Empty(t, h.lines())

	require.NoError(t, h.tr.Finish())
	require.Equal(t, "read(fd: 3) = 0\n", h.lines())
}

func TestVfsGetname(t *testing.T) {
	opts := plainOptions()
	opts.VfsGetname = true

	h := newHarness(t, opts, trace.Deps{})

	h.enter(1*ms, "openat", cwd(), 0x1000, 0, 0)

	name := "/etc/hosts\x00"
	raw := make([]byte, 12+len(name))
	binary.LittleEndian.PutUint32(raw[8:], uint32(12|len(name)<<16))
	copy(raw[12:], name)

	h.process(&source.Sample{Kind: source.KindVfsGetname, Time: 1*ms + 1, Raw: raw})
	h.exit(2*ms, "openat", 4)

	require.Equal(t, "openat(dfd: CWD, pathname: /etc/hosts, flags: O_RDONLY) = 4\n", h.lines())

	path, ok := h.tr.Threads()[0].FdPath(4)
	require.True(t, ok)
	require.Equal(t, "/etc/hosts", path)
	require.Equal(t, uint64(1), h.tr.ToolStats().VfsGetname)
}

func TestSchedStatRuntime(t *testing.T) {
	h := newHarness(t, plainOptions(), trace.Deps{})

	raw := make([]byte, 40)
	copy(raw[8:], "cat")
	binary.LittleEndian.PutUint32(raw[24:], pid)
	binary.LittleEndian.PutUint64(raw[32:], 1_500_000)

	h.process(&source.Sample{Kind: source.KindSchedStatRuntime, Time: ms, Raw: raw})
	h.process(&source.Sample{Kind: source.KindSchedStatRuntime, Time: 2 * ms, Raw: raw})

	require.Empty(t, h.lines())
	require.InDelta(t, 3.0, h.tr.RuntimeMs(), 1e-9)
	require.InDelta(t, 3.0, h.tr.Threads()[0].RuntimeMs, 1e-9)
}

func TestPageFaults(t *testing.T) {
	opts := plainOptions()
	opts.ShowDuration = true

	resolver := fakeResolver{
		0x401010: {Sym: "main", SymOff: 0x10, Dso: "/usr/bin/cat"},
		0x7f0000: {SymOff: 0x2000, Dso: "/usr/bin/cat", MapStart: 0x7ee000},
	}

	h := newHarness(t, opts, trace.Deps{Resolver: resolver})

	h.process(&source.Sample{Kind: source.KindMajFault, Time: ms, IP: 0x401010, Addr: 0x7f0000})
	h.process(&source.Sample{Kind: source.KindMinFault, Time: 2 * ms, IP: 0x5, Addr: 0x6})

	require.Equal(t,
		"( 0.000 ms): majfault [main+0x10] => /usr/bin/cat@0x2000 (d?)\n"+
			"( 0.000 ms): minfault [0x5] => 0x6 (??)\n",
		h.lines())

	maj, minor := h.tr.PageFaults()
	require.Equal(t, uint64(1), maj)
	require.Equal(t, uint64(1), minor)
	require.Equal(t, uint64(1), h.tr.Threads()[0].PfMaj)
}

func TestPageFaultsSummaryOnly(t *testing.T) {
	opts := plainOptions()
	opts.SummaryOnly = true

	h := newHarness(t, opts, trace.Deps{})

	h.process(&source.Sample{Kind: source.KindMinFault, Time: ms, IP: 0x5, Addr: 0x6})

	require.Empty(t, h.lines())

	_, minor := h.tr.PageFaults()
	require.Equal(t, uint64(1), minor)
}

func TestTracepoint(t *testing.T) {
	wakeup := make([]byte, 36)
	copy(wakeup[8:], "cat")
	binary.LittleEndian.PutUint32(wakeup[24:], pid)
	binary.LittleEndian.PutUint32(wakeup[28:], 120)

	exec := make([]byte, 28)
	binary.LittleEndian.PutUint32(exec[8:], uint32(20|8<<16))
	binary.LittleEndian.PutUint32(exec[12:], pid)
	copy(exec[16:], []byte{1, 2, 0, 3})
	copy(exec[20:], "/bin/ls\x00")

	cases := []struct {
		name     string
		event    string
		raw      []byte
		expected string
	}{
		{
			name:     "fixed fields",
			event:    "sched:sched_wakeup",
			raw:      wakeup,
			expected: `(         ): sched:sched_wakeup(comm: "cat", pid: 100 (cat), prio: 120)` + "\n",
		},
		{
			name:     "dynamic and array fields",
			event:    "sched:sched_process_exec",
			raw:      exec,
			expected: `(         ): sched:sched_process_exec(filename: "/bin/ls", pid: 100 (cat), data: [0x1, 0x2, 0, 0x3])` + "\n",
		},
		{
			name:     "unknown format",
			event:    "irq:irq_handler_entry",
			raw:      make([]byte, 8),
			expected: "(         ): irq:irq_handler_entry()\n",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			opts := plainOptions()
			opts.ShowDuration = true

			h := newHarness(t, opts, trace.Deps{})

			h.process(&source.Sample{Kind: source.KindTracepoint, Event: c.event, Time: ms, Raw: c.raw})

			require.Equal(t, c.expected, h.lines())
		})
	}
}

func TestCallchain(t *testing.T) {
	userContext := ^uint64(0) - 511

	resolver := fakeResolver{
		0x401010: {Sym: "main", SymOff: 0x10, Dso: "/usr/bin/cat"},
	}

	cases := []struct {
		name     string
		minStack int
		expected string
	}{
		{
			name: "printed",
			expected: "read(fd: 3) = 0\n" +
				strings.Repeat(" ", 38) + "main+0x10 (/usr/bin/cat)\n" +
				strings.Repeat(" ", 38) + "0x401020\n",
		},
		{
			name:     "too shallow",
			minStack: 3,
			expected: "",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			opts := plainOptions()
			opts.Callchain = true
			opts.MinStack = c.minStack

			h := newHarness(t, opts, trace.Deps{Resolver: resolver})

			h.enter(1*ms, "read", 3)
			h.process(&source.Sample{
				Kind:      source.KindSysExit,
				Time:      2 * ms,
				Raw:       source.SyscallPayload(h.id("read"), 0),
				Callchain: []uint64{userContext, 0x401010, 0x401020},
			})

			require.Equal(t, c.expected, h.lines())
		})
	}
}

var errWrite = errors.New("disk full")

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errWrite
}

func TestWriteErrorStops(t *testing.T) {
	tbl, err := syscalltbl.ForMachine(syscalltbl.HostMachine())
	require.NoError(t, err)

	id, ok := tbl.ID("read")
	require.True(t, ok)

	tr := trace.New(zap.NewNop().Sugar(), failingWriter{}, plainOptions(), trace.Deps{Provider: provider})

	require.NoError(t, tr.Process(&source.Sample{Kind: source.KindSysEnter, Pid: pid, Tid: pid, Time: ms,
		Raw: source.SyscallPayload(id, 3)}))

	err = tr.Process(&source.Sample{Kind: source.KindSysExit, Pid: pid, Tid: pid, Time: 2 * ms,
		Raw: source.SyscallPayload(id, 0)})
	require.ErrorIs(t, err, errWrite)
	require.True(t, tr.Done())
}
