package summary_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	specs "github.com/opencontainers/runtime-spec/specs-go"
	"github.com/stretchr/testify/require"

	"github.com/tcassar-diss/systrace/stats"
	"github.com/tcassar-diss/systrace/summary"
	"github.com/tcassar-diss/systrace/syscalltbl"
	"github.com/tcassar-diss/systrace/thread"
	"github.com/tcassar-diss/systrace/trace"
)

const (
	readID  = 0
	writeID = 1
	ms      = uint64(1_000_000)
)

type fakeProcs map[int]string

func (p fakeProcs) Comm(pid int) (string, bool) {
	c, ok := p[pid]
	return c, ok
}

type fakeSource struct {
	reg     *thread.Registry
	totals  map[int]*stats.Syscall
	events  uint64
	machine syscalltbl.Machine
	opts    trace.Options
}

func (f *fakeSource) Threads() []*thread.State { return f.reg.Threads() }
func (f *fakeSource) Totals() map[int]*stats.Syscall { return f.totals }
func (f *fakeSource) Machine() syscalltbl.Machine { return f.machine }
func (f *fakeSource) NrEvents() uint64 { return f.events }
func (f *fakeSource) RuntimeMs() float64 { return 1.5 }
func (f *fakeSource) PageFaults() (maj, minor uint64) { return 2, 0 }
func (f *fakeSource) Options() trace.Options { return f.opts }
func (f *fakeSource) ToolStats() trace.ToolStats { return trace.ToolStats{Lost: 3} }

func (f *fakeSource) SyscallName(id int) string {
	switch id {
	case readID:
		return "read"
	case writeID:
		return "write"
	}

	return fmt.Sprintf("syscall_%d", id)
}

func (f *fakeSource) record(st *thread.State, id int, duration uint64, ret int64) {
	st.SyscallStats(id).Update(duration, ret, f.opts.ErrnoSummary)

	total, ok := f.totals[id]
	if !ok {
		total = stats.NewSyscall()
		f.totals[id] = total
	}

	total.Update(duration, ret, f.opts.ErrnoSummary)
}

func newSource(opts trace.Options) *fakeSource {
	f := &fakeSource{
		reg:     thread.NewRegistry(fakeProcs{100: "cat", 200: "cat", 50: "sh"}, nil),
		totals:  make(map[int]*stats.Syscall),
		events:  14,
		machine: syscalltbl.EMX8664,
		opts:    opts,
	}

	cat := f.reg.Get(100, 100)
	cat.NrEvents = 6
	cat.PfMaj = 2
	f.record(cat, readID, 1*ms, 0)
	f.record(cat, readID, 3*ms, 0)
	f.record(cat, writeID, 5*ms, -2)

	worker := f.reg.Get(100, 200)
	worker.NrEvents = 6

	sh := f.reg.Get(50, 50)
	sh.NrEvents = 2

	return f
}

const header = "\n" +
	"   syscall            calls  errors  total       min       avg       max       stddev\n" +
	"                                     (msec)    (msec)    (msec)    (msec)        (%)\n" +
	"   --------------- --------  ------ -------- --------- --------- ---------     ------\n"

const (
	writeRow = "   write                  1      1     5.000     5.000     5.000     5.000      0.00%\n"
	readRow  = "   read                   2      0     4.000     1.000     2.000     3.000     50.00%\n"
)

func TestWriteTextTotal(t *testing.T) {
	cases := []struct {
		name     string
		opts     trace.Options
		expected string
	}{
		{
			name: "plain",
			expected: "\n Summary of events:\n\n" +
				" total, 14 events, 2 majfaults\n" +
				header + writeRow + readRow + "\n\n",
		},
		{
			name: "errnos and sched",
			opts: trace.Options{ErrnoSummary: true, Sched: true},
			expected: "\n Summary of events:\n\n" +
				" total, 14 events, 2 majfaults, 1.500 msec\n" +
				header + writeRow + "\t\t\t\tENOENT: 1\n" + readRow + "\n\n",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := summary.Build(newSource(c.opts), summary.ByTotal)

			var b bytes.Buffer
			require.NoError(t, r.WriteText(&b))
			require.Equal(t, c.expected, b.String())
		})
	}
}

func TestBuildByThread(t *testing.T) {
	r := summary.Build(newSource(trace.Options{}), summary.ByThread)

	require.Len(t, r.Threads, 3)

	tids := []int{r.Threads[0].Tid, r.Threads[1].Tid, r.Threads[2].Tid}
	require.Equal(t, []int{100, 200, 50}, tids)

	require.InDelta(t, 42.857, r.Threads[0].Percent, 1e-3)
	require.Len(t, r.Threads[0].Syscalls, 2)
	require.Equal(t, "write", r.Threads[0].Syscalls[0].Name)
	require.Empty(t, r.Threads[1].Syscalls)

	var b bytes.Buffer
	require.NoError(t, r.WriteText(&b))

	text := b.String()
	require.True(t, strings.HasPrefix(text, "\n Summary of events:\n\n cat (100), 6 events, 42.9%, 2 majfaults\n"+
		header+writeRow+readRow+"\n\n"))
	require.Contains(t, text, " cat (200), 6 events, 42.9%\n"+header+"\n\n")
	require.Less(t, strings.Index(text, "(200)"), strings.Index(text, "sh (50), 2 events, 14.3%"))
}

func TestWriteJSON(t *testing.T) {
	r := summary.Build(newSource(trace.Options{}), summary.ByTotal)

	path := filepath.Join(t.TempDir(), "summary.json")
	require.NoError(t, r.WriteJSON(path))

	bts, err := os.ReadFile(path)
	require.NoError(t, err)

	var got summary.Report
	require.NoError(t, json.Unmarshal(bts, &got))

	require.Equal(t, "x86_64", got.Machine)
	require.Equal(t, uint64(14), got.Events)
	require.Equal(t, uint64(3), got.ToolStats.Lost)
	require.Equal(t, r.Totals, got.Totals)
}

func TestSeccomp(t *testing.T) {
	src := newSource(trace.Options{})
	r := summary.Build(src, summary.ByTotal)

	profile, err := r.Seccomp(syscalltbl.EMX8664)
	require.NoError(t, err)

	expected := specs.LinuxSeccomp{
		DefaultAction: specs.ActErrno,
		Architectures: []specs.Arch{specs.ArchX86_64},
		Syscalls: []specs.LinuxSyscall{
			{Names: []string{"read", "write"}, Action: specs.ActAllow},
		},
	}
	require.Equal(t, expected, profile)

	path := filepath.Join(t.TempDir(), "seccomp.json")
	require.NoError(t, r.WriteSeccomp(syscalltbl.EMX8664, path))

	bts, err := os.ReadFile(path)
	require.NoError(t, err)

	var saved specs.LinuxSeccomp
	require.NoError(t, json.Unmarshal(bts, &saved))
	require.Equal(t, expected, saved)

	_, err = r.Seccomp(syscalltbl.Machine(3))
	require.ErrorIs(t, err, syscalltbl.ErrUnsupportedMachine)

	src.totals = map[int]*stats.Syscall{}
	_, err = summary.Build(src, summary.ByTotal).Seccomp(syscalltbl.EMX8664)
	require.ErrorIs(t, err, summary.ErrNoSyscalls)
}
