// Package syscalltbl maps syscall numbers to names for the machines systrace can decode.
package syscalltbl

import (
	"errors"
	"fmt"
	"path"
	"runtime"
	"slices"
)

var ErrUnsupportedMachine = errors.New("unsupported machine")

// Machine is an ELF e_machine value.
type Machine uint16

const (
	EMX8664   Machine = 62
	EMAArch64 Machine = 183
)

func (m Machine) String() string {
	switch m {
	case EMX8664:
		return "x86_64"
	case EMAArch64:
		return "aarch64"
	default:
		return fmt.Sprintf("machine(%d)", uint16(m))
	}
}

// HostMachine is the machine the binary was built for, defaulting to x86_64.
func HostMachine() Machine {
	if runtime.GOARCH == "arm64" {
		return EMAArch64
	}

	return EMX8664
}

// Table is an immutable id <-> name table for one machine.
type Table struct {
	machine Machine
	names   []string
	ids     map[string]int
	sorted  []int
}

var (
	x8664Table   = newTable(EMX8664, x86_64Names[:])
	aarch64Table = newTable(EMAArch64, aarch64Names[:])
)

func newTable(m Machine, names []string) *Table {
	t := Table{
		machine: m,
		names:   names,
		ids:     make(map[string]int, len(names)),
	}

	for id, name := range names {
		if name == "" {
			continue
		}

		t.ids[name] = id
		t.sorted = append(t.sorted, id)
	}

	slices.SortFunc(t.sorted, func(a, b int) int {
		if names[a] < names[b] {
			return -1
		}
		if names[a] > names[b] {
			return 1
		}
		return 0
	})

	return &t
}

// ForMachine returns the table for m.
func ForMachine(m Machine) (*Table, error) {
	switch m {
	case EMX8664:
		return x8664Table, nil
	case EMAArch64:
		return aarch64Table, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMachine, m)
	}
}

func (t *Table) Machine() Machine {
	return t.machine
}

// Name returns the name of syscall id, or false when the id has no entry.
func (t *Table) Name(id int) (string, bool) {
	if id < 0 || id >= len(t.names) || t.names[id] == "" {
		return "", false
	}

	return t.names[id], true
}

// ID returns the number of the syscall called name.
func (t *Table) ID(name string) (int, bool) {
	id, ok := t.ids[name]
	return id, ok
}

// MaxID is the highest syscall number in the table.
func (t *Table) MaxID() int {
	return len(t.names) - 1
}

// Match returns the ids of every syscall whose name matches the shell glob, in name order.
func (t *Table) Match(glob string) ([]int, error) {
	if _, err := path.Match(glob, ""); err != nil {
		return nil, fmt.Errorf("failed to parse glob %q: %w", glob, err)
	}

	var ids []int

	for _, id := range t.sorted {
		if ok, _ := path.Match(glob, t.names[id]); ok {
			ids = append(ids, id)
		}
	}

	return ids, nil
}

// IDs returns every syscall number in name order.
func (t *Table) IDs() []int {
	return slices.Clone(t.sorted)
}
