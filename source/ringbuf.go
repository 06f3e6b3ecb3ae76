package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/ringbuf"
	"github.com/cilium/ebpf/rlimit"
	"go.uber.org/zap"
)

// PollTimeout is how long Next blocks on an empty ring buffer before returning ErrEmpty.
const PollTimeout = 100 * time.Millisecond

// RingbufSource reads encoded samples from a pinned BPF ring buffer map filled by an
// external loader.
type RingbufSource struct {
	logger *zap.SugaredLogger
	m      *ebpf.Map
	rd     *ringbuf.Reader
	record ringbuf.Record
}

// OpenRingbuf opens the ring buffer pinned at path.
func OpenRingbuf(logger *zap.SugaredLogger, path string) (*RingbufSource, error) {
	if err := rlimit.RemoveMemlock(); err != nil {
		return nil, fmt.Errorf("failed to remove memlock rlimit: %w", err)
	}

	m, err := ebpf.LoadPinnedMap(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load pinned map %s: %w", path, err)
	}

	if m.Type() != ebpf.RingBuf {
		m.Close()
		return nil, fmt.Errorf("failed to use pinned map %s: type %s is not a ring buffer", path, m.Type())
	}

	rd, err := ringbuf.NewReader(m)
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("failed to get reader to %s: %w", path, err)
	}

	logger.Infow("reading samples from ring buffer", "path", path, "size", m.MaxEntries())

	return &RingbufSource{logger: logger, m: m, rd: rd}, nil
}

func (s *RingbufSource) Next(ctx context.Context) (*Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.rd.SetDeadline(time.Now().Add(PollTimeout))

	err := s.rd.ReadInto(&s.record)
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return nil, ErrEmpty
	} else if errors.Is(err, ringbuf.ErrClosed) {
		s.logger.Info("ringbuffer closed, exiting...")
		return nil, io.EOF
	} else if err != nil {
		return nil, fmt.Errorf("failed to read from ringbuffer: %w", err)
	}

	return Decode(s.record.RawSample)
}

func (s *RingbufSource) Close() error {
	err := s.rd.Close()

	if cerr := s.m.Close(); err == nil {
		err = cerr
	}

	return err
}
