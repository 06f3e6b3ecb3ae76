package processor_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tcassar-diss/systrace/internal/processor"
	"github.com/tcassar-diss/systrace/schema"
	"github.com/tcassar-diss/systrace/source"
	"github.com/tcassar-diss/systrace/syscalltbl"
	"github.com/tcassar-diss/systrace/trace"
)

var provider = schema.StaticProvider{
	"syscalls:sys_enter_read": {
		{Name: "common_type", Type: "unsigned short", Offset: 0, Size: 2},
		{Name: "__syscall_nr", Type: "int", Offset: 8, Size: 4, Flags: schema.FieldSigned},
		{Name: "fd", Type: "unsigned int", Offset: 16, Size: 8},
		{Name: "buf", Type: "char *", Offset: 24, Size: 8, Flags: schema.FieldPointer},
		{Name: "count", Type: "size_t", Offset: 32, Size: 8},
	},
}

type step struct {
	sample *source.Sample
	err    error
}

// scriptedSource replays a fixed list of results, then io.EOF.
type scriptedSource struct {
	steps []step
}

func (s *scriptedSource) Next(ctx context.Context) (*source.Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(s.steps) == 0 {
		return nil, io.EOF
	}

	st := s.steps[0]
	s.steps = s.steps[1:]

	return st.sample, st.err
}

func (s *scriptedSource) Close() error {
	return nil
}

func readPair(t *testing.T, ts uint64, fd uint64) []step {
	t.Helper()

	tbl, err := syscalltbl.ForMachine(syscalltbl.HostMachine())
	require.NoError(t, err)

	id, ok := tbl.ID("read")
	require.True(t, ok)

	return []step{
		{sample: &source.Sample{Kind: source.KindSysEnter, Pid: 1, Tid: 1, Time: ts, Raw: source.SyscallPayload(id, fd)}},
		{sample: &source.Sample{Kind: source.KindSysExit, Pid: 1, Tid: 1, Time: ts + 1000, Raw: source.SyscallPayload(id, 0)}},
	}
}

func options() trace.Options {
	opts := trace.DefaultOptions()
	opts.ShowTimestamp = false
	opts.ShowDuration = false
	opts.ArgsAlignment = 0

	return opts
}

func cfg() *processor.Config {
	return &processor.Config{SampleChanBuffer: 4, Backoff: time.Millisecond}
}

func TestProcessorStart(t *testing.T) {
	steps := []step{{err: source.ErrEmpty}}
	steps = append(steps, readPair(t, 1000, 3)...)
	steps = append(steps, step{err: source.ErrTruncatedRecord})
	steps = append(steps, readPair(t, 5000, 4)...)

	logger := zap.NewNop().Sugar()

	var out bytes.Buffer
	tr := trace.New(logger, &out, options(), trace.Deps{Provider: provider})

	p := processor.NewProcessor(logger, &scriptedSource{steps: steps}, tr, cfg())
	require.NoError(t, p.Start(context.Background()))

	require.Equal(t, "read(fd: 3) = 0\nread(fd: 4) = 0\n", out.String())
	require.Equal(t, uint64(1), p.Lost())
	require.Equal(t, uint64(1), tr.ToolStats().Lost)
}

func TestProcessorMaxEvents(t *testing.T) {
	var steps []step
	for i := uint64(0); i < 8; i++ {
		steps = append(steps, readPair(t, 1000+i*10_000, 3)...)
	}

	opts := options()
	opts.MaxEvents = 2

	logger := zap.NewNop().Sugar()

	var out bytes.Buffer
	tr := trace.New(logger, &out, opts, trace.Deps{Provider: provider})

	p := processor.NewProcessor(logger, &scriptedSource{steps: steps}, tr, cfg())
	require.NoError(t, p.Start(context.Background()))

	require.Equal(t, "read(fd: 3) = 0\nread(fd: 3) = 0\n", out.String())
	require.True(t, tr.Done())
}

func TestProcessorFlushesPending(t *testing.T) {
	steps := readPair(t, 1000, 3)[:1]

	logger := zap.NewNop().Sugar()

	var out bytes.Buffer
	tr := trace.New(logger, &out, options(), trace.Deps{Provider: provider})

	p := processor.NewProcessor(logger, &scriptedSource{steps: steps}, tr, cfg())
	require.NoError(t, p.Start(context.Background()))

	require.Equal(t, "read(fd: 3) ...\n", out.String())
}

var errFull = errors.New("disk full")

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errFull
}

func TestProcessorWriteError(t *testing.T) {
	logger := zap.NewNop().Sugar()

	tr := trace.New(logger, failingWriter{}, options(), trace.Deps{Provider: provider})

	p := processor.NewProcessor(logger, &scriptedSource{steps: readPair(t, 1000, 3)}, tr, cfg())

	err := p.Start(context.Background())
	require.ErrorIs(t, err, errFull)
}

func TestProcessorSourceError(t *testing.T) {
	errBroken := errors.New("broken pipe")

	logger := zap.NewNop().Sugar()
	tr := trace.New(logger, io.Discard, options(), trace.Deps{Provider: provider})

	p := processor.NewProcessor(logger, &scriptedSource{steps: []step{{err: errBroken}}}, tr, cfg())

	err := p.Start(context.Background())
	require.ErrorIs(t, err, errBroken)
}
