// Package summary aggregates the per-thread syscall statistics of a finished trace.
package summary

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/tcassar-diss/systrace/argfmt"
	"github.com/tcassar-diss/systrace/stats"
	"github.com/tcassar-diss/systrace/syscalltbl"
	"github.com/tcassar-diss/systrace/thread"
	"github.com/tcassar-diss/systrace/trace"
)

type Mode uint8

const (
	ByThread Mode = iota
	ByTotal
)

// Source is what a summary is built from, satisfied by *trace.Trace.
type Source interface {
	Threads() []*thread.State
	Totals() map[int]*stats.Syscall
	SyscallName(id int) string
	Machine() syscalltbl.Machine
	NrEvents() uint64
	RuntimeMs() float64
	PageFaults() (maj, minor uint64)
	Options() trace.Options
	ToolStats() trace.ToolStats
}

type ErrnoCount struct {
	Name  string `json:"name"`
	Count uint32 `json:"count"`
}

// Row is the summary of one syscall. Times are in milliseconds.
type Row struct {
	ID        int          `json:"id"`
	Name      string       `json:"name"`
	Calls     uint64       `json:"calls"`
	Errors    uint64       `json:"errors"`
	TotalMsec float64      `json:"total_msec"`
	MinMsec   float64      `json:"min_msec"`
	AvgMsec   float64      `json:"avg_msec"`
	MaxMsec   float64      `json:"max_msec"`
	StddevPct float64      `json:"stddev_pct"`
	Errnos    []ErrnoCount `json:"errnos,omitempty"`
}

type Thread struct {
	Comm      string  `json:"comm"`
	Tid       int     `json:"tid"`
	Events    uint64  `json:"events"`
	Percent   float64 `json:"percent"`
	PfMaj     uint64  `json:"majfaults"`
	PfMin     uint64  `json:"minfaults"`
	RuntimeMs float64 `json:"runtime_msec"`
	Syscalls  []Row   `json:"syscalls"`
}

type Report struct {
	Mode  Mode `json:"-"`
	Sched bool `json:"-"`

	Machine   string          `json:"machine"`
	Events    uint64          `json:"events"`
	PfMaj     uint64          `json:"majfaults"`
	PfMin     uint64          `json:"minfaults"`
	RuntimeMs float64         `json:"runtime_msec"`
	Threads   []Thread        `json:"threads,omitempty"`
	Totals    []Row           `json:"totals,omitempty"`
	ToolStats trace.ToolStats `json:"tool_stats"`

	observed []string
}

// Build collects the statistics of src. In ByThread mode every thread gets its own table,
// in ByTotal mode one table covers all of them.
func Build(src Source, mode Mode) Report {
	opts := src.Options()
	maj, minor := src.PageFaults()

	r := Report{
		Mode:      mode,
		Sched:     opts.Sched,
		Machine:   src.Machine().String(),
		Events:    src.NrEvents(),
		PfMaj:     maj,
		PfMin:     minor,
		RuntimeMs: src.RuntimeMs(),
		ToolStats: src.ToolStats(),
	}

	totals := src.Totals()

	if mode == ByTotal {
		r.Totals = rows(src, totals, opts.ErrnoSummary)
	} else {
		for _, st := range src.Threads() {
			th := Thread{
				Comm:      st.Comm,
				Tid:       st.Tid,
				Events:    st.NrEvents,
				PfMaj:     st.PfMaj,
				PfMin:     st.PfMin,
				RuntimeMs: st.RuntimeMs,
				Syscalls:  rows(src, st.Stats, opts.ErrnoSummary),
			}

			if r.Events > 0 {
				th.Percent = float64(st.NrEvents) / float64(r.Events) * 100
			}

			r.Threads = append(r.Threads, th)
		}

		sort.SliceStable(r.Threads, func(i, j int) bool {
			a, b := r.Threads[i], r.Threads[j]
			if a.Events != b.Events {
				return a.Events > b.Events
			}

			return a.Tid < b.Tid
		})
	}

	for id := range totals {
		r.observed = append(r.observed, src.SyscallName(id))
	}

	return r
}

func rows(src Source, syscalls map[int]*stats.Syscall, errnoSummary bool) []Row {
	out := make([]Row, 0, len(syscalls))

	for id, sc := range syscalls {
		n := sc.Calls()
		if n == 0 {
			continue
		}

		avg := sc.Stats.Avg()

		row := Row{
			ID:        id,
			Name:      src.SyscallName(id),
			Calls:     n,
			Errors:    sc.NrFailures,
			TotalMsec: sc.TotalMsecs(),
			MinMsec:   float64(sc.Stats.Min) / 1e6,
			AvgMsec:   avg / 1e6,
			MaxMsec:   float64(sc.Stats.Max) / 1e6,
		}

		if avg != 0 {
			row.StddevPct = 100 * sc.Stats.StddevMean() / avg
		}

		if errnoSummary {
			for i, count := range sc.Errnos {
				if count != 0 {
					row.Errnos = append(row.Errnos, ErrnoCount{Name: argfmt.ErrnoName(i + 1), Count: count})
				}
			}
		}

		out = append(out, row)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalMsec != out[j].TotalMsec {
			return out[i].TotalMsec > out[j].TotalMsec
		}

		return out[i].ID < out[j].ID
	})

	return out
}

// WriteText prints the summary the way the end of a trace run shows it.
func (r Report) WriteText(w io.Writer) error {
	p := &printer{w: w}

	p.printf("\n Summary of events:\n\n")

	if r.Mode == ByTotal {
		p.printf(" total, %d events", r.Events)
		r.counters(p, r.PfMaj, r.PfMin, r.RuntimeMs)
		writeTable(p, r.Totals)

		return p.err
	}

	for _, th := range r.Threads {
		p.printf(" %s (%d), %d events, %.1f%%", th.Comm, th.Tid, th.Events, th.Percent)
		r.counters(p, th.PfMaj, th.PfMin, th.RuntimeMs)
		writeTable(p, th.Syscalls)
	}

	return p.err
}

func (r Report) counters(p *printer, maj, minor uint64, runtimeMs float64) {
	if maj > 0 {
		p.printf(", %d majfaults", maj)
	}

	if minor > 0 {
		p.printf(", %d minfaults", minor)
	}

	if r.Sched {
		p.printf(", %.3f msec\n", runtimeMs)
	} else {
		p.printf("\n")
	}
}

func writeTable(p *printer, rows []Row) {
	p.printf("\n")
	p.printf("   syscall            calls  errors  total       min       avg       max       stddev\n")
	p.printf("                                     (msec)    (msec)    (msec)    (msec)        (%%)\n")
	p.printf("   --------------- --------  ------ -------- --------- --------- ---------     ------\n")

	for _, row := range rows {
		p.printf("   %-15s %8d %6d %9.3f %9.3f %9.3f %9.3f %9.2f%%\n",
			row.Name, row.Calls, row.Errors, row.TotalMsec, row.MinMsec, row.AvgMsec, row.MaxMsec, row.StddevPct)

		for _, e := range row.Errnos {
			p.printf("\t\t\t\t%s: %d\n", e.Name, e.Count)
		}
	}

	p.printf("\n\n")
}

// printer keeps the first write error so the layout code can ignore it.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}

	_, p.err = fmt.Fprintf(p.w, format, args...)
}

// WriteJSON saves the report to filepath.
func (r Report) WriteJSON(filepath string) error {
	bts, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshall summary: %w", err)
	}

	if err := os.WriteFile(filepath, bts, 0o644); err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}

	return nil
}
