package source_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tcassar-diss/systrace/source"
	"github.com/tcassar-diss/systrace/syscalltbl"
)

func testSamples() []*source.Sample {
	return []*source.Sample{
		{
			Kind:    source.KindSysEnter,
			Machine: syscalltbl.EMX8664,
			CPU:     2,
			Pid:     100,
			Tid:     101,
			Time:    1_000_000,
			Raw:     source.SyscallPayload(0, 3, 0x7ffd0000, 832),
		},
		{
			Kind:      source.KindSysExit,
			Machine:   syscalltbl.EMX8664,
			Pid:       100,
			Tid:       101,
			Time:      1_500_000,
			Callchain: []uint64{0x401000, 0x7ffff7400000},
			Raw:       source.SyscallPayload(0, 832),
		},
		{
			Kind:  source.KindTracepoint,
			Event: "sched:sched_switch",
			Pid:   1,
			Tid:   1,
			Time:  2_000_000,
			Raw:   []byte{1, 2, 3},
		},
		{
			Kind: source.KindMajFault,
			Pid:  1,
			Tid:  1,
			IP:   0x401000,
			Addr: 0xdeadbeef,
		},
	}
}

func TestCodecRoundTrip(t *testing.T) {
	for _, s := range testSamples() {
		t.Run(s.Kind.String(), func(t *testing.T) {
			record, err := source.Encode(s)
			require.NoError(t, err)

			got, err := source.Decode(record)
			require.NoError(t, err)
			require.Equal(t, s, got)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	record, err := source.Encode(testSamples()[0])
	require.NoError(t, err)

	cases := []struct {
		name   string
		record []byte
	}{
		{name: "short header", record: record[:10]},
		{name: "short body", record: record[:len(record)-1]},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := source.Decode(c.record)
			require.ErrorIs(t, err, source.ErrTruncatedRecord)
		})
	}

	bad := bytes.Clone(record)
	binary.LittleEndian.PutUint16(bad[0:2], 999)

	_, err = source.Decode(bad)
	require.ErrorIs(t, err, source.ErrUnknownEventKind)
}

func TestReplayFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.replay")

	f, err := os.Create(path)
	require.NoError(t, err)

	w := source.NewReplayWriter(f)
	for _, s := range testSamples() {
		require.NoError(t, w.Write(s))
	}
	require.NoError(t, w.Flush())
	require.NoError(t, f.Close())

	src, err := source.OpenReplay(zap.NewNop().Sugar(), path)
	require.NoError(t, err)
	defer src.Close()

	ctx := context.Background()

	for _, want := range testSamples() {
		got, err := src.Next(ctx)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err = src.Next(ctx)
	require.ErrorIs(t, err, io.EOF)
}

func TestReplayTruncated(t *testing.T) {
	var buf bytes.Buffer

	w := source.NewReplayWriter(&buf)
	require.NoError(t, w.Write(testSamples()[0]))
	require.NoError(t, w.Flush())

	data := buf.Bytes()[:buf.Len()-4]

	src := source.NewReplaySource(zap.NewNop().Sugar(), bytes.NewReader(data))

	_, err := src.Next(context.Background())
	require.ErrorIs(t, err, source.ErrTruncatedRecord)
}

func TestSyscallPayload(t *testing.T) {
	s := &source.Sample{Raw: source.SyscallPayload(257, 0xffffff9c, 0x1000)}

	id, ok := s.SyscallID()
	require.True(t, ok)
	require.Equal(t, 257, id)

	args := s.SyscallArgs()
	require.Len(t, args, source.SyscallMaxArgs)
	require.Equal(t, uint64(0xffffff9c), args[0])

	short := &source.Sample{Raw: s.Raw[:source.SyscallArgsOffset+12]}
	require.Len(t, short.SyscallArgs(), 1)

	_, ok = (&source.Sample{Raw: s.Raw[:12]}).SyscallID()
	require.False(t, ok)

	enoent := int64(-2)
	exit := &source.Sample{Raw: source.SyscallPayload(257, uint64(enoent))}
	ret, ok := exit.SyscallRet()
	require.True(t, ok)
	require.Equal(t, int64(-2), ret)
}

func TestSliceSource(t *testing.T) {
	samples := testSamples()
	src := source.NewSliceSource(samples...)

	ctx, cancel := context.WithCancel(context.Background())

	got, err := src.Next(ctx)
	require.NoError(t, err)
	require.Same(t, samples[0], got)

	cancel()

	_, err = src.Next(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
