package trace

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/tcassar-diss/systrace/argfmt"
	"github.com/tcassar-diss/systrace/schema"
	"github.com/tcassar-diss/systrace/source"
)

const (
	getnameCategory = "probe"
	getnameEvent    = "vfs_getname"
	schedCategory   = "sched"
	runtimeEvent    = "sched_stat_runtime"
)

// vfsGetname hands the pathname the kernel resolved to the thread's pending open.
func (t *Trace) vfsGetname(s *source.Sample) {
	st, ok := t.threads.Lookup(s.Tid)
	if !ok {
		return
	}

	tp, err := t.cache.Tracepoint(getnameCategory, getnameEvent)
	if err != nil {
		t.logger.Debugw("dropping vfs_getname without format", "err", err)
		return
	}

	field, ok := tp.Field("pathname")
	if !ok {
		t.logger.Debugw("vfs_getname has no pathname field", "fields", len(tp.Fields))
		return
	}

	data, ok := fieldBytes(s.Raw, field)
	if !ok {
		t.toolStats.Truncated++
		return
	}

	st.SetPathname(cstring(data))
}

func (t *Trace) schedStatRuntime(s *source.Sample) {
	st := t.threads.Get(s.Pid, s.Tid)
	st.NrEvents++

	tp, err := t.cache.Tracepoint(schedCategory, runtimeEvent)
	if err != nil {
		t.logger.Debugw("dropping sched_stat_runtime without format", "err", err)
		return
	}

	field, ok := tp.Field("runtime")
	if !ok {
		return
	}

	ns, ok := fieldValue(s.Raw, field)
	if !ok {
		t.toolStats.Truncated++
		return
	}

	ms := float64(ns) / 1e6
	st.RuntimeMs += ms
	t.runtimeMs += ms
}

func (t *Trace) pageFault(s *source.Sample) {
	st := t.threads.Get(s.Pid, s.Tid)
	st.NrEvents++

	kind := "min"
	if s.Kind == source.KindMajFault {
		kind = "maj"
		st.PfMaj++
		t.pfMaj++
	} else {
		st.PfMin++
		t.pfMin++
	}

	if t.opts.SummaryOnly {
		return
	}

	var ips []uint64
	if t.opts.Callchain && len(s.Callchain) > 0 {
		ips = callchain(s.Callchain, t.opts.MaxStack)
		if len(ips) < t.opts.MinStack {
			return
		}
	}

	var b strings.Builder

	t.head(&b, st, s.Time, 0, true)

	ipLoc, ipOk := t.resolve(s.Pid, s.IP)
	addrLoc, addrOk := t.resolve(s.Pid, s.Addr)

	mapType := byte('d')
	if !addrOk {
		mapType = '?'
	}

	fmt.Fprintf(&b, "%sfault [%s] => %s (%c?)\n", kind,
		formatLocation(ipLoc, ipOk, s.IP, false, true),
		formatLocation(addrLoc, addrOk, s.Addr, true, false),
		mapType)

	t.write(b.String())
	t.printed()

	if len(ips) > 0 {
		t.write(t.formatCallchain(s.Pid, ips))
	}
}

// tracepoint prints any other event as "category:name(field: value, ...)".
func (t *Trace) tracepoint(s *source.Sample) {
	st := t.threads.Get(s.Pid, s.Tid)
	st.NrEvents++

	if t.opts.SummaryOnly {
		return
	}

	var ips []uint64
	if t.opts.Callchain && len(s.Callchain) > 0 {
		ips = callchain(s.Callchain, t.opts.MaxStack)
		if len(ips) < t.opts.MinStack {
			return
		}
	}

	t.flushInterrupted()

	var b strings.Builder

	t.tstamp(&b, s.Time)

	if t.opts.TraceSyscalls && t.opts.ShowDuration {
		b.WriteString("(         ): ")
	}

	t.commTid(&b, st)

	b.WriteString(s.Event + "(")

	category, name, _ := strings.Cut(s.Event, ":")

	tp, err := t.cache.Tracepoint(category, name)
	if err != nil {
		t.logger.Debugw("printing tracepoint without fields", "event", s.Event, "err", err)
	} else {
		b.WriteString(t.formatFields(tp, s.Raw))
	}

	b.WriteString(")\n")

	t.write(b.String())
	t.printed()

	if len(ips) > 0 {
		t.write(t.formatCallchain(s.Pid, ips))
	}
}

func (t *Trace) formatFields(tp *schema.Tracepoint, raw []byte) string {
	var b strings.Builder

	arg := argfmt.Arg{
		Procs:      t.threads,
		Enums:      t.enums,
		ShowPrefix: t.opts.ShowPrefix,
	}

	first := true

	for idx, field := range tp.Fields {
		f := &tp.ArgFmts[idx]

		arg.Idx = idx
		arg.Val = 0
		arg.Bytes = nil

		var text string

		if field.Is(schema.FieldArray) {
			data, ok := fieldBytes(raw, field)
			if !ok {
				t.toolStats.Truncated++
				continue
			}

			if f.Kind == argfmt.KindCharArray {
				arg.Bytes = data
				text = f.Format(&arg)
			} else {
				text = hexArray(data, field)
			}
		} else {
			val, ok := fieldValue(raw, field)
			if !ok {
				t.toolStats.Truncated++
				continue
			}

			val = f.MaskVal(val)
			if val == 0 && !t.opts.ShowZeros && !f.ShowsZero() {
				continue
			}

			arg.Val = val
			text = f.Format(&arg)
		}

		if !first {
			b.WriteString(", ")
		}

		first = false

		if t.opts.ShowArgNames {
			b.WriteString(field.Name + ": ")
		}

		b.WriteString(text)
	}

	return b.String()
}

// fieldBytes returns the bytes of field in raw, following __data_loc indirection.
func fieldBytes(raw []byte, field schema.Field) ([]byte, bool) {
	if field.Is(schema.FieldDynamic) {
		if field.Offset < 0 || field.Offset+4 > len(raw) {
			return nil, false
		}

		loc := binary.LittleEndian.Uint32(raw[field.Offset:])
		off, n := int(loc&0xffff), int(loc>>16)

		if off+n > len(raw) {
			return nil, false
		}

		return raw[off : off+n], true
	}

	if field.Offset < 0 || field.Offset+field.Size > len(raw) {
		return nil, false
	}

	return raw[field.Offset : field.Offset+field.Size], true
}

// fieldValue reads an integer field, sign extending signed ones.
func fieldValue(raw []byte, field schema.Field) (uint64, bool) {
	data, ok := fieldBytes(raw, field)
	if !ok {
		return 0, false
	}

	signed := field.Is(schema.FieldSigned)

	switch len(data) {
	case 1:
		if signed {
			return uint64(int64(int8(data[0]))), true
		}

		return uint64(data[0]), true
	case 2:
		v := binary.LittleEndian.Uint16(data)
		if signed {
			return uint64(int64(int16(v))), true
		}

		return uint64(v), true
	case 4:
		v := binary.LittleEndian.Uint32(data)
		if signed {
			return uint64(int64(int32(v))), true
		}

		return uint64(v), true
	case 8:
		return binary.LittleEndian.Uint64(data), true
	}

	return 0, false
}

func hexArray(data []byte, field schema.Field) string {
	size := 1
	if field.ArrayLen > 0 && field.Size%field.ArrayLen == 0 {
		size = field.Size / field.ArrayLen
	}

	if size != 1 && size != 2 && size != 4 && size != 8 {
		size = 1
	}

	elems := make([]string, 0, len(data)/size)

	for off := 0; off+size <= len(data); off += size {
		var v uint64

		switch size {
		case 1:
			v = uint64(data[off])
		case 2:
			v = uint64(binary.LittleEndian.Uint16(data[off:]))
		case 4:
			v = uint64(binary.LittleEndian.Uint32(data[off:]))
		case 8:
			v = binary.LittleEndian.Uint64(data[off:])
		}

		elems = append(elems, hexVal(v))
	}

	return "[" + strings.Join(elems, ", ") + "]"
}

func hexVal(v uint64) string {
	if v == 0 {
		return "0"
	}

	return fmt.Sprintf("%#x", v)
}

func cstring(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}

	return string(b)
}
