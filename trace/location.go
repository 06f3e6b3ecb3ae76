package trace

import (
	"fmt"
	"strings"
)

// Location is where an address falls in a process.
type Location struct {
	Sym string
	// SymOff is the offset from Sym, or from the start of Dso when Sym is empty.
	SymOff   uint64
	Dso      string
	MapStart uint64
}

// Resolver maps addresses of a process to locations.
type Resolver interface {
	Resolve(pid int, addr uint64) (Location, bool)
}

// perfContextMax is the lowest callchain entry that marks a context switch rather than
// an instruction pointer.
const perfContextMax = ^uint64(0) - 4094

// callchain returns the instruction pointers of chain, context markers removed, at most
// maxStack of them when maxStack > 0.
func callchain(chain []uint64, maxStack int) []uint64 {
	ips := make([]uint64, 0, len(chain))

	for _, ip := range chain {
		if ip >= perfContextMax {
			continue
		}

		ips = append(ips, ip)
		if maxStack > 0 && len(ips) == maxStack {
			break
		}
	}

	return ips
}

const callchainIndent = 38

func (t *Trace) formatCallchain(pid int, ips []uint64) string {
	var b strings.Builder

	for _, ip := range ips {
		b.WriteString(strings.Repeat(" ", callchainIndent))

		loc, ok := t.resolve(pid, ip)

		if ok && loc.Sym != "" {
			fmt.Fprintf(&b, "%s+0x%x", loc.Sym, loc.SymOff)
		} else {
			fmt.Fprintf(&b, "0x%x", ip)
		}

		if ok && loc.Dso != "" {
			fmt.Fprintf(&b, " (%s)", loc.Dso)
		}

		b.WriteByte('\n')
	}

	return b.String()
}

// formatLocation prints addr as sym+0xoff, dso@0xoff or a bare address.
func formatLocation(loc Location, ok bool, addr uint64, printDso, printSym bool) string {
	var b strings.Builder

	if printDso && ok && loc.Dso != "" {
		b.WriteString(loc.Dso + "@")
	}

	switch {
	case printSym && ok && loc.Sym != "":
		fmt.Fprintf(&b, "%s+0x%x", loc.Sym, loc.SymOff)
	case ok:
		fmt.Fprintf(&b, "0x%x", loc.SymOff)
	default:
		fmt.Fprintf(&b, "0x%x", addr)
	}

	return b.String()
}

func (t *Trace) resolve(pid int, addr uint64) (Location, bool) {
	if t.resolver == nil {
		return Location{}, false
	}

	return t.resolver.Resolve(pid, addr)
}
