package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tcassar-diss/systrace/config"
	"github.com/tcassar-diss/systrace/trace"
)

func TestDefaults(t *testing.T) {
	cfg, err := config.Read(strings.NewReader(""))
	require.NoError(t, err)

	opts := cfg.Options()
	require.True(t, opts.ShowTimestamp)
	require.True(t, opts.ShowDuration)
	require.True(t, opts.ShowArgNames)
	require.False(t, opts.ShowZeros)
	require.Equal(t, trace.DefaultArgsAlignment, opts.ArgsAlignment)
	require.Zero(t, opts.MaxEvents)
	require.Equal(t, config.SummaryByThread, cfg.Trace.SummaryMode)
}

func TestLoad(t *testing.T) {
	yml := `
trace:
  show_timestamp: false
  args_alignment: 40
  duration: 2.5
  max_events: 10
  syscalls: ["!futex", "epoll_*"]
  filters:
    lseek: whence==END
source:
  replay: /tmp/run.trace
output:
  timeout: 30s
`

	path := filepath.Join(t.TempDir(), "systrace.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	require.False(t, cfg.Trace.ShowTimestamp)
	require.True(t, cfg.Trace.ShowDuration)
	require.Equal(t, 40, cfg.Trace.ArgsAlignment)
	require.InDelta(t, 2.5, cfg.Trace.Duration, 1e-9)
	require.Equal(t, uint64(10), cfg.Trace.MaxEvents)
	require.Equal(t, []string{"!futex", "epoll_*"}, cfg.Trace.Syscalls)
	require.Equal(t, map[string]string{"lseek": "whence==END"}, cfg.Trace.Filters)
	require.Equal(t, "/tmp/run.trace", cfg.Source.Replay)
	require.Equal(t, "/proc", cfg.Source.ProcFS)
	require.Equal(t, 30*time.Second, cfg.Output.Timeout)
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		name  string
		yml   string
		check func(t *testing.T, cfg *config.Config)
	}{
		{
			name: "no arg names forces zeros",
			yml:  "trace:\n  show_arg_names: false\n",
			check: func(t *testing.T, cfg *config.Config) {
				require.True(t, cfg.Trace.ShowZeros)
				require.True(t, cfg.Options().ShowZeros)
			},
		},
		{
			name: "summary only implies summary",
			yml:  "trace:\n  summary_only: true\n",
			check: func(t *testing.T, cfg *config.Config) {
				require.True(t, cfg.Trace.Summary)
				require.True(t, cfg.Options().Summary)
			},
		},
		{
			name: "summary json collects stats",
			yml:  "output:\n  summary_json: /tmp/summary.json\n",
			check: func(t *testing.T, cfg *config.Config) {
				require.False(t, cfg.Trace.Summary)
				require.True(t, cfg.Options().Summary)
			},
		},
		{
			name: "total mode keeps no thread stats",
			yml:  "trace:\n  summary_mode: total\n",
			check: func(t *testing.T, cfg *config.Config) {
				require.True(t, cfg.Options().SummaryTotal)
			},
		},
		{
			name: "seccomp profile collects stats",
			yml:  "output:\n  seccomp_profile: /tmp/seccomp.json\n",
			check: func(t *testing.T, cfg *config.Config) {
				require.False(t, cfg.Trace.Summary)
				require.True(t, cfg.Options().Summary)
			},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg, err := config.Read(strings.NewReader(c.yml))
			require.NoError(t, err)

			c.check(t, cfg)
		})
	}
}

func TestInvalid(t *testing.T) {
	cases := []struct {
		name string
		yml  string
	}{
		{name: "unknown key", yml: "trace:\n  show_everything: true\n"},
		{name: "negative alignment", yml: "trace:\n  args_alignment: -1\n"},
		{name: "summary mode", yml: "trace:\n  summary_mode: process\n"},
		{name: "two sources", yml: "source:\n  ringbuf: /sys/fs/bpf/events\n  replay: run.trace\n"},
		{name: "bad type", yml: "trace:\n  max_events: lots\n"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := config.Read(strings.NewReader(c.yml))
			require.ErrorIs(t, err, config.ErrInvalidConfig)
		})
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
