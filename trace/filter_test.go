package trace_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tcassar-diss/systrace/source"
	"github.com/tcassar-diss/systrace/syscalltbl"
	"github.com/tcassar-diss/systrace/trace"
)

func TestExpandSyscallFilter(t *testing.T) {
	cases := []struct {
		name     string
		filter   string
		expected string
		err      error
	}{
		{name: "symbol", filter: "whence==END", expected: "whence==0x2"},
		{name: "prefixed symbol", filter: "whence==SEEK_END", expected: "whence==0x2"},
		{name: "zero", filter: "whence == SET", expected: "whence == 0"},
		{name: "not equal", filter: "whence!=CUR", expected: "whence!=0x1"},
		{name: "numbers untouched", filter: "fd==3", expected: "fd==3"},
		{name: "conjunction", filter: "fd>2 && whence==END", expected: "fd>2 && whence==0x2"},
		{name: "unknown field", filter: "nosuch==END", err: trace.ErrFilterExpression},
		{name: "no resolver", filter: "fd==STDIN", err: trace.ErrFilterExpression},
		{name: "unknown value", filter: "whence==BOGUS", err: trace.ErrFilterExpression},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			tr := trace.New(zap.NewNop().Sugar(), nil, trace.DefaultOptions(), trace.Deps{Provider: provider})

			got, err := tr.ExpandSyscallFilter(syscalltbl.HostMachine(), "lseek", c.filter)
			if c.err != nil {
				require.ErrorIs(t, err, c.err)
				return
			}

			require.NoError(t, err)
			require.Equal(t, c.expected, got)
		})
	}
}

func TestExpandFilterUnknownSyscall(t *testing.T) {
	tr := trace.New(zap.NewNop().Sugar(), nil, trace.DefaultOptions(), trace.Deps{Provider: provider})

	_, err := tr.ExpandSyscallFilter(syscalltbl.HostMachine(), "no_such_call", "fd==3")
	require.ErrorIs(t, err, trace.ErrUnknownSyscall)
}

func TestExpandTracepointFilter(t *testing.T) {
	tr := trace.New(zap.NewNop().Sugar(), nil, trace.DefaultOptions(), trace.Deps{Provider: provider})

	got, err := tr.ExpandTracepointFilter("sched", "sched_wakeup", "prio>10")
	require.NoError(t, err)
	require.Equal(t, "prio>10", got)

	_, err = tr.ExpandTracepointFilter("sched", "sched_wakeup", "prio==HIGH")
	require.ErrorIs(t, err, trace.ErrFilterExpression)
}

func TestQualifier(t *testing.T) {
	tbl, err := syscalltbl.ForMachine(syscalltbl.HostMachine())
	require.NoError(t, err)

	read, _ := tbl.ID("read")
	write, _ := tbl.ID("write")

	cases := []struct {
		name    string
		exprs   []string
		allowed []int
		denied  []int
		negated bool
	}{
		{name: "names", exprs: []string{"read", " write "}, allowed: []int{read, write}},
		{name: "negated", exprs: []string{"!read"}, allowed: []int{write}, denied: []int{read}, negated: true},
		{name: "glob", exprs: []string{"rea?"}, allowed: []int{read}, denied: []int{write}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			q, err := trace.NewQualifier(tbl, c.exprs)
			require.NoError(t, err)
			require.Equal(t, c.negated, q.Negated())

			for _, id := range c.allowed {
				require.True(t, q.Allow(id), "id %d", id)
			}

			for _, id := range c.denied {
				require.False(t, q.Allow(id), "id %d", id)
			}

			require.True(t, slices.IsSorted(q.IDs()))
		})
	}

	var nilQualifier *trace.Qualifier
	require.True(t, nilQualifier.Allow(read))
}

func TestQualifierErrors(t *testing.T) {
	tbl, err := syscalltbl.ForMachine(syscalltbl.HostMachine())
	require.NoError(t, err)

	cases := []struct {
		name  string
		exprs []string
	}{
		{name: "unknown name", exprs: []string{"no_such_call"}},
		{name: "empty glob", exprs: []string{"zz*"}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := trace.NewQualifier(tbl, c.exprs)
			require.ErrorIs(t, err, trace.ErrUnknownSyscall)
		})
	}
}

func TestQueueHorizon(t *testing.T) {
	const sec = uint64(1_000_000_000)

	q := trace.NewQueue()

	var delivered []uint64

	deliver := func(s *source.Sample) {
		delivered = append(delivered, s.Time)
	}

	push := func(ts uint64) {
		q.Push(&source.Sample{Time: ts}, deliver)
	}

	push(2 * sec)
	push(1 * sec)
	require.Empty(t, delivered)

	push(3*sec + sec/2)
	require.Equal(t, []uint64{1 * sec, 2 * sec}, delivered)
	require.Equal(t, 1, q.Len())

	push(2 * sec)
	require.Equal(t, uint64(1), q.Unordered())

	q.Flush(deliver)
	require.Equal(t, []uint64{1 * sec, 2 * sec, 2 * sec, 3*sec + sec/2}, delivered)
	require.Zero(t, q.Len())
}
