// Package config loads systrace settings from YAML. Command line flags are applied on
// top by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tcassar-diss/systrace/source"
	"github.com/tcassar-diss/systrace/trace"
)

var ErrInvalidConfig = errors.New("invalid config")

const (
	SummaryByThread = "thread"
	SummaryByTotal  = "total"
)

// Trace holds the trace.* keys of perf's config plus the other trace options.
type Trace struct {
	ShowTimestamp   bool    `yaml:"show_timestamp"`
	ShowDuration    bool    `yaml:"show_duration"`
	ShowArgNames    bool    `yaml:"show_arg_names"`
	ShowZeros       bool    `yaml:"show_zeros"`
	ShowPrefix      bool    `yaml:"show_prefix"`
	ShowComm        bool    `yaml:"show_comm"`
	ArgsAlignment   int     `yaml:"args_alignment"`
	FullTime        bool    `yaml:"full_time"`
	MultipleThreads bool    `yaml:"multiple_threads"`
	Duration        float64 `yaml:"duration"`
	MaxEvents       uint64  `yaml:"max_events"`
	FailureOnly     bool    `yaml:"failure_only"`
	SortEvents      bool    `yaml:"sort_events"`
	VfsGetname      bool    `yaml:"vfs_getname"`
	Sched           bool    `yaml:"sched"`

	Callchain bool `yaml:"callchain"`
	MinStack  int  `yaml:"min_stack"`
	MaxStack  int  `yaml:"max_stack"`

	Summary      bool   `yaml:"summary"`
	SummaryOnly  bool   `yaml:"summary_only"`
	SummaryMode  string `yaml:"summary_mode"`
	ErrnoSummary bool   `yaml:"errno_summary"`
	ToolStats    bool   `yaml:"tool_stats"`

	// Syscalls is the event qualifier, names or globs with an optional leading "!".
	Syscalls   []string `yaml:"syscalls"`
	FilterPids []int    `yaml:"filter_pids"`
	// Filters are per event filter expressions, keyed by syscall name or category:name.
	Filters map[string]string `yaml:"filters"`
}

type Source struct {
	Ringbuf              string `yaml:"ringbuf"`
	Replay               string `yaml:"replay"`
	TraceFS              string `yaml:"tracefs"`
	ProcFS               string `yaml:"procfs"`
	RawAugmentedArgsSize int    `yaml:"raw_augmented_args_size"`
	BTF                  bool   `yaml:"btf"`
}

type Output struct {
	Path           string        `yaml:"path"`
	SummaryJSON    string        `yaml:"summary_json"`
	SeccompProfile string        `yaml:"seccomp_profile"`
	Timeout        time.Duration `yaml:"timeout"`
}

type Config struct {
	Trace  Trace  `yaml:"trace"`
	Source Source `yaml:"source"`
	Output Output `yaml:"output"`
}

// Default matches the defaults of the command line.
func Default() *Config {
	return &Config{
		Trace: Trace{
			ShowTimestamp: true,
			ShowDuration:  true,
			ShowArgNames:  true,
			ShowComm:      true,
			ArgsAlignment: trace.DefaultArgsAlignment,
			SummaryMode:   SummaryByThread,
		},
		Source: Source{
			TraceFS:              "/sys/kernel/tracing",
			ProcFS:               "/proc",
			RawAugmentedArgsSize: source.RawSyscallArgsSize,
			BTF:                  true,
		},
	}
}

// Load reads the YAML file at path over the defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	return Read(f)
}

// Read decodes YAML from r over the defaults. Unknown keys are an error.
func Read(r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Normalize applies the rules that tie options together. Without argument names zero
// values are always printed, otherwise positions would be ambiguous.
func (c *Config) Normalize() {
	if !c.Trace.ShowArgNames {
		c.Trace.ShowZeros = true
	}

	if c.Trace.SummaryOnly {
		c.Trace.Summary = true
	}

	if c.Trace.SummaryMode == "" {
		c.Trace.SummaryMode = SummaryByThread
	}
}

func (c *Config) Validate() error {
	t := c.Trace

	switch {
	case t.ArgsAlignment < 0:
		return fmt.Errorf("%w: args_alignment %d is negative", ErrInvalidConfig, t.ArgsAlignment)
	case t.Duration < 0:
		return fmt.Errorf("%w: duration %f is negative", ErrInvalidConfig, t.Duration)
	case t.MinStack < 0 || t.MaxStack < 0:
		return fmt.Errorf("%w: stack depths must not be negative", ErrInvalidConfig)
	case t.SummaryMode != SummaryByThread && t.SummaryMode != SummaryByTotal:
		return fmt.Errorf("%w: summary_mode %q, want %q or %q", ErrInvalidConfig, t.SummaryMode,
			SummaryByThread, SummaryByTotal)
	case c.Source.Ringbuf != "" && c.Source.Replay != "":
		return fmt.Errorf("%w: ringbuf and replay are exclusive", ErrInvalidConfig)
	case c.Source.RawAugmentedArgsSize < 0:
		return fmt.Errorf("%w: raw_augmented_args_size is negative", ErrInvalidConfig)
	}

	return nil
}

// Options converts the trace section into trace.Options.
func (c *Config) Options() trace.Options {
	t := c.Trace

	return trace.Options{
		ShowTimestamp:        t.ShowTimestamp,
		ShowDuration:         t.ShowDuration,
		ShowComm:             t.ShowComm,
		ShowArgNames:         t.ShowArgNames,
		ShowZeros:            t.ShowZeros || !t.ShowArgNames,
		ShowPrefix:           t.ShowPrefix,
		FullTime:             t.FullTime,
		MultipleThreads:      t.MultipleThreads,
		ArgsAlignment:        t.ArgsAlignment,
		DurationFilter:       t.Duration,
		Summary:              t.Summary || t.SummaryOnly || c.Output.SummaryJSON != "" || c.Output.SeccompProfile != "",
		SummaryOnly:          t.SummaryOnly,
		SummaryTotal:         t.SummaryMode == SummaryByTotal,
		FailureOnly:          t.FailureOnly,
		ErrnoSummary:         t.ErrnoSummary,
		MaxEvents:            t.MaxEvents,
		Callchain:            t.Callchain,
		MinStack:             t.MinStack,
		MaxStack:             t.MaxStack,
		VfsGetname:           t.VfsGetname,
		RawAugmentedArgsSize: c.Source.RawAugmentedArgsSize,
		TraceSyscalls:        true,
		Sched:                t.Sched,
		SortEvents:           t.SortEvents,
		FilterPids:           t.FilterPids,
	}
}
