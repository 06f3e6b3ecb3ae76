package trace

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tcassar-diss/systrace/argfmt"
	"github.com/tcassar-diss/systrace/schema"
	"github.com/tcassar-diss/systrace/syscalltbl"
)

var ErrFilterExpression = errors.New("invalid filter expression")

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAlnum(c byte) bool {
	return isAlpha(c) || (c >= '0' && c <= '9')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

// ExpandFilter rewrites symbolic right hand sides of the comparisons in filter, such as
// "whence==SEEK_END", into numbers using the parsers of the named fields.
func ExpandFilter(event, filter string, fields []schema.Field, fmts []argfmt.Fmt, enums argfmt.EnumResolver) (string, error) {
	out := filter
	left := 0

	for {
		i := strings.IndexAny(out[left:], "=<>!")
		if i == -1 {
			break
		}

		tok := left + i

		right := tok + 1
		if right < len(out) && out[right] == '=' {
			right++
		}

		for right < len(out) && isSpace(out[right]) {
			right++
		}

		if right == len(out) {
			break
		}

		// The lhs cannot be found, leave the filter for the kernel to reject.
		for left < tok && !isAlpha(out[left]) {
			left++
		}

		if left == tok {
			return out, nil
		}

		rightEnd := right + 1
		for rightEnd < len(out) && (isAlnum(out[rightEnd]) || out[rightEnd] == '_' || out[rightEnd] == '|') {
			rightEnd++
		}

		if !isAlpha(out[right]) {
			left = rightEnd
			continue
		}

		name := strings.TrimRightFunc(out[left:tok], func(r rune) bool { return r < 0x80 && isSpace(byte(r)) })

		f, ok := fieldFmt(name, fields, fmts)
		if !ok {
			return "", fmt.Errorf("%w: %q not found in %q, can't set filter %q", ErrFilterExpression, name, event, filter)
		}

		if !f.CanParse() {
			return "", fmt.Errorf("%w: no resolver for %q in %q, can't set filter %q", ErrFilterExpression, name, event, filter)
		}

		value := out[right:rightEnd]

		val, ok := f.Parse(value, &argfmt.Arg{Enums: enums})
		if !ok {
			return "", fmt.Errorf("%w: %q not found for %q in %q, can't set filter %q", ErrFilterExpression, value, name, event, filter)
		}

		expansion := hexVal(val)

		out = out[:right] + expansion + out[rightEnd:]
		left = right + len(expansion)
	}

	return out, nil
}

func fieldFmt(name string, fields []schema.Field, fmts []argfmt.Fmt) (*argfmt.Fmt, bool) {
	for i, field := range fields {
		if field.Name == name && i < len(fmts) {
			return &fmts[i], true
		}
	}

	return nil, false
}

// ExpandSyscallFilter expands filter against the arguments of syscall name.
func (t *Trace) ExpandSyscallFilter(machine syscalltbl.Machine, name, filter string) (string, error) {
	tbl, err := syscalltbl.ForMachine(machine)
	if err != nil {
		return "", err
	}

	id, ok := tbl.ID(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSyscall, name)
	}

	sc, err := t.cache.Get(machine, id)
	if err != nil {
		return "", fmt.Errorf("failed to describe %s: %w", name, err)
	}

	return ExpandFilter("syscalls:sys_enter_"+name, filter, sc.Fields, sc.ArgFmts, t.enums)
}

// ExpandTracepointFilter expands filter against the fields of category:name.
func (t *Trace) ExpandTracepointFilter(category, name, filter string) (string, error) {
	tp, err := t.cache.Tracepoint(category, name)
	if err != nil {
		return "", fmt.Errorf("failed to describe %s:%s: %w", category, name, err)
	}

	return ExpandFilter(category+":"+name, filter, tp.Fields, tp.ArgFmts, t.enums)
}
