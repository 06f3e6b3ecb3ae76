package source

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
)

// MaxRecordSize bounds a single replay record.
const MaxRecordSize = 1 << 20

// ReplaySource reads samples from a file of u32-length-prefixed records.
type ReplaySource struct {
	logger *zap.SugaredLogger
	r      *bufio.Reader
	closer io.Closer
	nr     int
}

// OpenReplay opens a replay file written by ReplayWriter.
func OpenReplay(logger *zap.SugaredLogger, path string) (*ReplaySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open replay file: %w", err)
	}

	src := NewReplaySource(logger, f)
	src.closer = f

	return src, nil
}

func NewReplaySource(logger *zap.SugaredLogger, r io.Reader) *ReplaySource {
	return &ReplaySource{logger: logger, r: bufio.NewReader(r)}
}

func (s *ReplaySource) Next(ctx context.Context) (*Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var size uint32
	if err := binary.Read(s.r, binary.LittleEndian, &size); err != nil {
		if errors.Is(err, io.EOF) {
			s.logger.Debugw("replay finished", "records", s.nr)
			return nil, io.EOF
		}

		return nil, fmt.Errorf("%w: record length: %w", ErrTruncatedRecord, err)
	}

	if size > MaxRecordSize {
		return nil, fmt.Errorf("%w: record of %d bytes", ErrTruncatedRecord, size)
	}

	record := make([]byte, size)
	if _, err := io.ReadFull(s.r, record); err != nil {
		return nil, fmt.Errorf("%w: record %d: %w", ErrTruncatedRecord, s.nr, err)
	}

	s.nr++

	return Decode(record)
}

func (s *ReplaySource) Close() error {
	if s.closer == nil {
		return nil
	}

	return s.closer.Close()
}

// ReplayWriter appends samples to a replay stream.
type ReplayWriter struct {
	w *bufio.Writer
}

func NewReplayWriter(w io.Writer) *ReplayWriter {
	return &ReplayWriter{w: bufio.NewWriter(w)}
}

func (w *ReplayWriter) Write(s *Sample) error {
	record, err := Encode(s)
	if err != nil {
		return err
	}

	if err := binary.Write(w.w, binary.LittleEndian, uint32(len(record))); err != nil {
		return fmt.Errorf("failed to write record length: %w", err)
	}

	if _, err := w.w.Write(record); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}

	return nil
}

func (w *ReplayWriter) Flush() error {
	return w.w.Flush()
}

// SliceSource serves samples from memory.
type SliceSource struct {
	samples []*Sample
}

func NewSliceSource(samples ...*Sample) *SliceSource {
	return &SliceSource{samples: samples}
}

func (s *SliceSource) Next(ctx context.Context) (*Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(s.samples) == 0 {
		return nil, io.EOF
	}

	sample := s.samples[0]
	s.samples = s.samples[1:]

	return sample, nil
}

func (s *SliceSource) Close() error {
	return nil
}
