package stats

import "math"

// Stats is a running mean/variance accumulator over syscall durations in nanoseconds.
type Stats struct {
	N    uint64  `json:"n"`
	Mean float64 `json:"mean"`
	M2   float64 `json:"m2"`
	Min  uint64  `json:"min"`
	Max  uint64  `json:"max"`
}

func NewStats() Stats {
	return Stats{Min: math.MaxUint64}
}

// Update adds a sample using Welford's method.
func (s *Stats) Update(val uint64) {
	s.N++

	delta := float64(val) - s.Mean
	s.Mean += delta / float64(s.N)
	s.M2 += delta * (float64(val) - s.Mean)

	s.Min = min(s.Min, val)
	s.Max = max(s.Max, val)
}

func (s *Stats) Avg() float64 {
	return s.Mean
}

// StddevMean is the standard deviation of the mean, sqrt(variance/n).
func (s *Stats) StddevMean() float64 {
	if s.N < 2 {
		return 0
	}

	variance := s.M2 / float64(s.N-1)

	return math.Sqrt(variance / float64(s.N))
}

// Syscall holds the duration statistics and failure counts of one syscall.
type Syscall struct {
	Stats      Stats    `json:"stats"`
	NrFailures uint64   `json:"nr_failures"`
	Errnos     []uint32 `json:"errnos,omitempty"`
}

func NewSyscall() *Syscall {
	return &Syscall{Stats: NewStats()}
}

// Update records one completed call. Errors (ret < 0) count as failures and, with
// errnoSummary, per errno.
func (s *Syscall) Update(duration uint64, ret int64, errnoSummary bool) {
	s.Stats.Update(duration)

	if ret >= 0 {
		return
	}

	s.NrFailures++

	if !errnoSummary {
		return
	}

	errno := -ret
	if errno > 4096 {
		return
	}

	if int64(len(s.Errnos)) < errno {
		s.Errnos = append(s.Errnos, make([]uint32, errno-int64(len(s.Errnos)))...)
	}

	s.Errnos[errno-1]++
}

// Calls is the number of completed calls.
func (s *Syscall) Calls() uint64 {
	return s.Stats.N
}

// TotalMsecs is the accumulated time spent in the syscall, in milliseconds.
func (s *Syscall) TotalMsecs() float64 {
	return float64(s.Stats.N) * (s.Stats.Avg() / 1e6)
}
