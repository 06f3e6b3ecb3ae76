package argfmt

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// StrArray names the values offset, offset+1, ... Empty entries are holes.
type StrArray struct {
	Prefix  string
	Offset  int
	Entries []string
}

func newStrArray(prefix string, offset int, entries ...string) *StrArray {
	return &StrArray{Prefix: prefix, Offset: offset, Entries: entries}
}

type flagName struct {
	mask uint64
	name string
}

// newFlagArray builds a StrArray where entry i names bit i-1, the layout expected by
// FormatFlags.
func newFlagArray(prefix, zero string, flags ...flagName) *StrArray {
	n := 1

	for _, f := range flags {
		n = max(n, 64-bits.LeadingZeros64(f.mask)+1)
	}

	sa := StrArray{Prefix: prefix, Entries: make([]string, n)}
	sa.Entries[0] = zero

	for _, f := range flags {
		sa.Entries[bits.TrailingZeros64(f.mask)+1] = f.name
	}

	return &sa
}

func (sa *StrArray) entry(val int) (string, bool) {
	idx := val - sa.Offset
	if idx < 0 || idx >= len(sa.Entries) || sa.Entries[idx] == "" {
		return "", false
	}

	return sa.Entries[idx], true
}

func (sa *StrArray) prefix(show bool) string {
	if show {
		return sa.Prefix
	}

	return ""
}

// Format prints the entry for val, or val through intfmt when it has none.
func (sa *StrArray) Format(val int, intfmt string, showPrefix bool) string {
	name, ok := sa.entry(val)
	if !ok {
		s := fmt.Sprintf(intfmt, val)
		if showPrefix {
			s += fmt.Sprintf(" /* %s??? */", sa.Prefix)
		}

		return s
	}

	return sa.prefix(showPrefix) + name
}

// Lookup is the inverse of Format. The prefix is optional.
func (sa *StrArray) Lookup(name string) (uint64, bool) {
	if sa.Prefix != "" {
		name = strings.TrimPrefix(name, sa.Prefix)
	}

	for i, e := range sa.Entries {
		if e != "" && e == name {
			return uint64(sa.Offset + i), true
		}
	}

	return 0, false
}

// FormatFlags prints the names of the set bits joined by '|'.
func (sa *StrArray) FormatFlags(flags uint64, showPrefix bool) string {
	if flags == 0 {
		if len(sa.Entries) > 0 && sa.Entries[0] != "" {
			return sa.prefix(showPrefix) + sa.Entries[0]
		}

		return "0"
	}

	var b strings.Builder

	for i := 1; i < len(sa.Entries) && i <= 64; i++ {
		bit := uint64(1) << uint(i-1)
		if flags&bit == 0 {
			continue
		}

		flags &^= bit

		if b.Len() != 0 {
			b.WriteByte('|')
		}

		if sa.Entries[i] != "" {
			b.WriteString(sa.prefix(showPrefix) + sa.Entries[i])
		} else {
			b.WriteString(hex(bit))
		}
	}

	if flags != 0 {
		if b.Len() != 0 {
			b.WriteByte('|')
		}

		b.WriteString(hex(flags))
	}

	return b.String()
}

// ParseFlags parses "A|B|4" style expressions. Each token is a name, or failing that a
// bit number n in 1..64 setting bit n-1; numbers are not masks.
func (sa *StrArray) ParseFlags(text string) (uint64, bool) {
	var ret uint64

	for _, tok := range strings.Split(text, "|") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			return 0, false
		}

		val, ok := sa.Lookup(tok)
		if !ok {
			v, err := strconv.ParseUint(tok, 0, 64)
			if err != nil || v == 0 || v > 64 {
				return 0, false
			}

			val = v
		}

		if val > 0 && val <= 64 {
			ret |= 1 << (val - 1)
		}
	}

	return ret, true
}

// StrArrays is consulted in order; the first table covering a value decides it.
type StrArrays []*StrArray

func (sas StrArrays) Format(val int, intfmt string, showPrefix bool) string {
	for _, sa := range sas {
		idx := val - sa.Offset
		if idx < 0 || idx >= len(sa.Entries) {
			continue
		}

		if sa.Entries[idx] == "" {
			break
		}

		return sa.prefix(showPrefix) + sa.Entries[idx]
	}

	s := fmt.Sprintf(intfmt, val)
	if showPrefix && len(sas) > 0 {
		s += fmt.Sprintf(" /* %s??? */", sas[0].Prefix)
	}

	return s
}

func (sas StrArrays) Lookup(name string) (uint64, bool) {
	for _, sa := range sas {
		if v, ok := sa.Lookup(name); ok {
			return v, true
		}
	}

	return 0, false
}

// hex prints like C's %#lx: zero has no 0x prefix.
func hex(v uint64) string {
	if v == 0 {
		return "0"
	}

	return fmt.Sprintf("%#x", v)
}
