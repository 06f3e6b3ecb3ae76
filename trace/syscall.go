package trace

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tcassar-diss/systrace/argfmt"
	"github.com/tcassar-diss/systrace/schema"
	"github.com/tcassar-diss/systrace/source"
	"github.com/tcassar-diss/systrace/stats"
	"github.com/tcassar-diss/systrace/thread"
)

// syscall decodes the id of s and returns its descriptor. Descriptors without a schema
// are still returned so the call can be printed with raw args.
func (t *Trace) syscall(s *source.Sample) (*schema.Syscall, bool) {
	id, ok := s.SyscallID()
	if !ok {
		t.toolStats.Truncated++
		t.logger.Debugw("dropping syscall sample without an id", "kind", s.Kind, "len", len(s.Raw))

		return nil, false
	}

	if !t.qualifier.Allow(id) {
		return nil, false
	}

	sc, err := t.cache.Get(t.machine, id)
	switch {
	case err == nil:
	case errors.Is(err, schema.ErrSchemaNotFound):
		t.logger.Debugw("syscall without schema", "id", id, "name", sc.DisplayName())
	default:
		t.logger.Debugw("failed to get syscall schema", "id", id, "err", err)
		return nil, false
	}

	return sc, true
}

func (t *Trace) sysEnter(s *source.Sample) {
	sc, ok := t.syscall(s)
	if !ok {
		return
	}

	st := t.threads.Get(s.Pid, s.Tid)
	st.NrEvents++

	if !t.opts.filtering() {
		t.flushInterrupted()
	}

	st.EntryTime = s.Time
	st.BeginEntry(sc.IsOpen)
	st.WriteEntry(sc.DisplayName() + "(")

	var aug *argfmt.Augmented
	if s.Kind == source.KindSysEnterAugmented {
		aug = t.augmented(s, sc)
	}

	t.formatArgs(st, sc, s.SyscallArgs(), aug)

	if sc.IsExit {
		if !t.opts.filtering() {
			var b strings.Builder

			t.head(&b, st, st.EntryTime, 0, false)

			entry := st.Entry() + ")"
			b.WriteString(entry)
			b.WriteString(strings.Repeat(" ", max(t.opts.ArgsAlignment-len(entry), 1)))
			b.WriteString("= ?\n")

			t.write(b.String())
		}

		st.EntryPending = false
	} else {
		st.Pend()
	}

	t.current = st
}

func (t *Trace) augmented(s *source.Sample, sc *schema.Syscall) *argfmt.Augmented {
	off := t.opts.RawAugmentedArgsSize
	if off == 0 {
		off = sc.ArgsSize
	}

	if off <= 0 || off >= len(s.Raw) {
		return nil
	}

	return argfmt.NewAugmented(s.Raw[off:])
}

func argValue(args []uint64, idx int) uint64 {
	if idx >= len(args) {
		return 0
	}

	return args[idx]
}

// formatArgs renders the arguments of sc into the entry of st.
func (t *Trace) formatArgs(st *thread.State, sc *schema.Syscall, args []uint64, aug *argfmt.Augmented) {
	arg := argfmt.Arg{
		Args:       args,
		Aug:        aug,
		Files:      st,
		Procs:      t.threads,
		Enums:      t.enums,
		ShowPrefix: t.opts.ShowPrefix,
		VfsGetname: t.opts.VfsGetname,
	}

	first := true

	sep := func(name string) {
		if !first {
			st.WriteEntry(", ")
		}

		first = false

		if t.opts.ShowArgNames {
			st.WriteEntry(name + ": ")
		}
	}

	format := func(f *argfmt.Fmt, idx int, val uint64) {
		arg.Idx = idx
		arg.Val = val
		arg.FilenamePos = false

		text := f.Format(&arg)
		if arg.FilenamePos {
			st.MarkFilenamePos()
		}

		st.WriteEntry(text)
	}

	if !sc.Nonexistent {
		for idx, field := range sc.Fields {
			if idx >= 64 {
				break
			}

			if arg.Masked(idx) {
				continue
			}

			f := &sc.ArgFmts[idx]

			val := f.MaskVal(argValue(args, idx))
			if val == 0 && !t.opts.ShowZeros && !f.ShowsZero() {
				continue
			}

			name := field.Name
			if f.Name != "" {
				name = f.Name
			}

			sep(name)
			format(f, idx, val)
		}
	} else {
		for idx := 0; idx < sc.NrArgs; idx++ {
			if arg.Masked(idx) {
				continue
			}

			var f *argfmt.Fmt
			if idx < len(sc.ArgFmts) && sc.ArgFmts[idx].Static() {
				f = &sc.ArgFmts[idx]
			}

			name := "arg" + strconv.Itoa(idx)
			if f != nil && f.Name != "" {
				name = f.Name
			}

			val := argValue(args, idx)
			if f != nil {
				val = f.MaskVal(val)
			}

			sep(name)
			format(f, idx, val)
		}
	}

	st.RetFmt = arg.RetFmt
}

func (t *Trace) sysExit(s *source.Sample) {
	sc, ok := t.syscall(s)
	if !ok {
		return
	}

	st := t.threads.Get(s.Pid, s.Tid)
	st.NrEvents++

	ret, ok := s.SyscallRet()
	if !ok {
		t.toolStats.Truncated++
	}

	defer st.Done()

	var (
		duration   uint64
		calculated bool
	)

	if st.EntryTime != 0 && s.Time >= st.EntryTime {
		duration = s.Time - st.EntryTime
		calculated = true
	}

	if t.opts.Summary {
		t.updateStats(st, sc.ID, duration, ret)
	}

	if sc.IsOpen && ret >= 0 && st.BindPendingOpen(int(ret)) {
		t.toolStats.VfsGetname++
	}

	if t.opts.DurationFilter > 0 && (!calculated || float64(duration) < t.opts.DurationFilter*1e6) {
		return
	}

	var ips []uint64
	if t.opts.Callchain && len(s.Callchain) > 0 {
		ips = callchain(s.Callchain, t.opts.MaxStack)
		if len(ips) < t.opts.MinStack {
			return
		}
	}

	if t.opts.SummaryOnly || (ret >= 0 && t.opts.FailureOnly) {
		return
	}

	var b strings.Builder

	t.head(&b, st, st.EntryTime, duration, calculated)

	var printed int

	if st.EntryPending {
		entry := st.Entry()
		b.WriteString(entry)
		printed = len(entry)
	} else {
		cont := fmt.Sprintf(" ... [continued]: %s()", sc.DisplayName())
		b.WriteString(cont)
		printed = len(cont)
	}

	printed++

	b.WriteString(")")
	b.WriteString(strings.Repeat(" ", max(t.opts.ArgsAlignment-printed, 1)))
	b.WriteString("= ")
	b.WriteString(t.formatRet(st, sc, ret))
	b.WriteByte('\n')

	t.write(b.String())
	t.printed()

	if len(ips) > 0 {
		t.write(t.formatCallchain(s.Pid, ips))
	}
}

func (t *Trace) updateStats(st *thread.State, id int, duration uint64, ret int64) {
	if !t.opts.SummaryTotal {
		st.SyscallStats(id).Update(duration, ret, t.opts.ErrnoSummary)
	}

	total, ok := t.totals[id]
	if !ok {
		total = stats.NewSyscall()
		t.totals[id] = total
	}

	total.Update(duration, ret, t.opts.ErrnoSummary)
}

// formatRet applies the return value rules in order: errno, timeout, the override set
// while formatting the args, hex, pid, plain.
func (t *Trace) formatRet(st *thread.State, sc *schema.Syscall, ret int64) string {
	sf := sc.Fmt

	switch {
	case ret < 0:
		errno := int(-ret)
		return fmt.Sprintf("-1 %s (%s)", argfmt.ErrnoName(errno), argfmt.Strerror(errno))
	case sf == nil:
		return strconv.FormatInt(ret, 10)
	case ret == 0 && sf.Timeout:
		return "0 (Timeout)"
	case st.RetFmt != nil:
		f := st.RetFmt
		st.RetFmt = nil

		return f.Format(&argfmt.Arg{
			Val:        uint64(ret),
			Files:      st,
			Procs:      t.threads,
			Enums:      t.enums,
			ShowPrefix: t.opts.ShowPrefix,
		})
	case sf.HexRet:
		return hexVal(uint64(ret))
	case sf.ErrPid:
		s := strconv.FormatInt(ret, 10)
		if comm, ok := t.threads.Comm(int(ret)); ok {
			s += " (" + comm + ")"
		}

		return s
	default:
		return strconv.FormatInt(ret, 10)
	}
}
