package stats_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tcassar-diss/systrace/stats"
)

func TestStatsUpdate(t *testing.T) {
	cases := []struct {
		name       string
		samples    []uint64
		mean       float64
		min        uint64
		max        uint64
		stddevMean float64
	}{
		{
			name:    "single sample",
			samples: []uint64{5000},
			mean:    5000,
			min:     5000,
			max:     5000,
		},
		{
			name:       "two samples",
			samples:    []uint64{1000, 3000},
			mean:       2000,
			min:        1000,
			max:        3000,
			stddevMean: 1000,
		},
		{
			name:       "constant samples",
			samples:    []uint64{7, 7, 7, 7},
			mean:       7,
			min:        7,
			max:        7,
			stddevMean: 0,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := stats.NewStats()

			for _, v := range c.samples {
				s.Update(v)
			}

			require.Equal(t, uint64(len(c.samples)), s.N)
			require.InDelta(t, c.mean, s.Avg(), 1e-9)
			require.Equal(t, c.min, s.Min)
			require.Equal(t, c.max, s.Max)
			require.InDelta(t, c.stddevMean, s.StddevMean(), 1e-9)
		})
	}
}

func TestStatsEmpty(t *testing.T) {
	s := stats.NewStats()

	require.Equal(t, uint64(math.MaxUint64), s.Min)
	require.Equal(t, uint64(0), s.Max)
	require.Zero(t, s.StddevMean())
}

func TestSyscallUpdate(t *testing.T) {
	sc := stats.NewSyscall()

	sc.Update(1_000_000, 0, true)
	sc.Update(3_000_000, -2, true)
	sc.Update(2_000_000, -2, true)
	sc.Update(2_000_000, -13, true)

	require.Equal(t, uint64(4), sc.Calls())
	require.Equal(t, uint64(3), sc.NrFailures)
	require.Len(t, sc.Errnos, 13)
	require.Equal(t, uint32(2), sc.Errnos[1])
	require.Equal(t, uint32(1), sc.Errnos[12])
	require.InDelta(t, 8.0, sc.TotalMsecs(), 1e-9)
}

func TestSyscallUpdateNoErrnoSummary(t *testing.T) {
	sc := stats.NewSyscall()

	sc.Update(10, -1, false)

	require.Equal(t, uint64(1), sc.NrFailures)
	require.Empty(t, sc.Errnos)
}
