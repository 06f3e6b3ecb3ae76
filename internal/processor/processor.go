// Package processor moves samples from a source into the trace on a single consumer.
package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tcassar-diss/systrace/source"
	"github.com/tcassar-diss/systrace/trace"
)

type Config struct {
	// SampleChanBuffer is how far the listener may run ahead of the trace.
	SampleChanBuffer int
	// Backoff is the pause after the source reports it has nothing to read.
	Backoff time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		SampleChanBuffer: 2048,
		Backoff:          100 * time.Millisecond,
	}
}

type Processor struct {
	logger *zap.SugaredLogger
	src    source.Source
	tr     *trace.Trace
	cfg    *Config

	lost atomic.Uint64
}

func NewProcessor(logger *zap.SugaredLogger, src source.Source, tr *trace.Trace, cfg *Config) *Processor {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	return &Processor{
		logger: logger,
		src:    src,
		tr:     tr,
		cfg:    cfg,
	}
}

// Start runs until the source is exhausted, ctx is cancelled or the trace is done, then
// flushes the trace.
func (p *Processor) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var group errgroup.Group

	// Closing sampleChan is left to p.listen as it is the only method which writes to sampleChan.
	sampleChan := make(chan *source.Sample, p.cfg.SampleChanBuffer)

	group.Go(func() error {
		defer cancel()

		if err := p.consume(sampleChan); err != nil {
			return fmt.Errorf("failed to consume samples: %w", err)
		}

		return nil
	})

	group.Go(func() error {
		if err := p.listen(ctx, sampleChan); err != nil {
			return fmt.Errorf("failed to listen to source: %w", err)
		}

		return nil
	})

	err := group.Wait()

	p.tr.AddLost(p.lost.Load())

	if ferr := p.tr.Finish(); err == nil && ferr != nil {
		err = fmt.Errorf("failed to flush trace: %w", ferr)
	}

	if err != nil {
		return fmt.Errorf("failed while processing samples: %w", err)
	}

	return nil
}

func (p *Processor) listen(ctx context.Context, sampleChan chan<- *source.Sample) error {
	defer close(sampleChan)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if p.tr.Done() {
			return nil
		}

		sample, err := p.src.Next(ctx)

		switch {
		case err == nil:
		case errors.Is(err, source.ErrEmpty):
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(p.cfg.Backoff):
			}

			continue
		case errors.Is(err, io.EOF):
			p.logger.Infow("source exhausted")
			return nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil
		case errors.Is(err, source.ErrTruncatedRecord), errors.Is(err, source.ErrUnknownEventKind):
			p.lost.Add(1)
			p.logger.Debugw("dropping malformed record", "err", err)

			continue
		default:
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case sampleChan <- sample:
		}
	}
}

func (p *Processor) consume(sampleChan <-chan *source.Sample) error {
	for sample := range sampleChan {
		if err := p.tr.Process(sample); err != nil {
			return err
		}

		if p.tr.Done() {
			p.logger.Infow("trace done, stopping")
			return nil
		}
	}

	return nil
}

// Lost is the number of records the source could not decode.
func (p *Processor) Lost() uint64 {
	return p.lost.Load()
}
