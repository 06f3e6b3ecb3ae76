package trace

// DefaultArgsAlignment is the column return values are aligned to.
const DefaultArgsAlignment = 70

// Options control what is decoded and how lines are laid out.
type Options struct {
	ShowTimestamp bool
	ShowDuration  bool
	ShowComm      bool
	ShowArgNames  bool
	ShowZeros     bool
	// ShowPrefix keeps prefixes such as O_ or SIG on symbolic values.
	ShowPrefix bool

	// FullTime prints absolute timestamps instead of ones relative to the first sample.
	FullTime bool
	// MultipleThreads adds comm/tid to every line.
	MultipleThreads bool
	ArgsAlignment   int

	// DurationFilter drops syscalls shorter than this many milliseconds.
	DurationFilter float64
	Summary        bool
	SummaryOnly    bool
	// SummaryTotal means one table for all threads, so per-thread stats are not kept.
	SummaryTotal   bool
	FailureOnly    bool
	ErrnoSummary   bool
	// MaxEvents stops the run after this many printed events, 0 for no limit.
	MaxEvents uint64

	Callchain bool
	MinStack  int
	MaxStack  int

	// VfsGetname means filenames arrive through probe:vfs_getname samples.
	VfsGetname bool
	// RawAugmentedArgsSize is the payload offset augmented data starts at, 0 to use the
	// end of the syscall's own args.
	RawAugmentedArgsSize int

	// TraceSyscalls is set when syscall events are part of the session.
	TraceSyscalls bool
	// Sched is set when sched_stat_runtime samples are part of the session.
	Sched         bool
	SortEvents    bool
	FilterPids    []int
}

// DefaultOptions matches the defaults of the command line.
func DefaultOptions() Options {
	return Options{
		ShowTimestamp: true,
		ShowDuration:  true,
		ShowComm:      true,
		ShowArgNames:  true,
		ArgsAlignment: DefaultArgsAlignment,
		TraceSyscalls: true,
	}
}

// filtering is set when lines are only printed at sys_exit, if at all.
func (o *Options) filtering() bool {
	return o.DurationFilter > 0 || o.SummaryOnly || o.FailureOnly || o.MinStack > 0
}
