package trace

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set"

	"github.com/tcassar-diss/systrace/argfmt"
	"github.com/tcassar-diss/systrace/syscalltbl"
)

var ErrUnknownSyscall = errors.New("unknown syscall")

// Qualifier selects the syscalls to trace. A nil Qualifier allows everything.
type Qualifier struct {
	ids mapset.Set
	not bool
}

// NewQualifier builds a qualifier from syscall names and shell globs. A leading "!" on
// the first entry turns the list into a deny list.
func NewQualifier(tbl *syscalltbl.Table, exprs []string) (*Qualifier, error) {
	q := &Qualifier{ids: mapset.NewThreadUnsafeSet()}

	for i, expr := range exprs {
		expr = strings.TrimSpace(expr)

		if i == 0 && strings.HasPrefix(expr, "!") {
			q.not = true
			expr = strings.TrimSpace(expr[1:])
		}

		if expr == "" {
			continue
		}

		ids, err := lookupSyscalls(tbl, expr)
		if err != nil {
			return nil, err
		}

		for _, id := range ids {
			q.ids.Add(id)
		}
	}

	return q, nil
}

func lookupSyscalls(tbl *syscalltbl.Table, expr string) ([]int, error) {
	if strings.ContainsAny(expr, "*?[") {
		ids, err := tbl.Match(expr)
		if err != nil {
			return nil, err
		}

		if len(ids) == 0 {
			return nil, fmt.Errorf("%w: no syscall matches %q on %s", ErrUnknownSyscall, expr, tbl.Machine())
		}

		return ids, nil
	}

	if id, ok := tbl.ID(expr); ok {
		return []int{id}, nil
	}

	if sf := argfmt.Find(expr); sf != nil {
		for _, name := range []string{sf.Name, sf.Alias} {
			if id, ok := tbl.ID(name); ok {
				return []int{id}, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: %q on %s", ErrUnknownSyscall, expr, tbl.Machine())
}

// Allow reports whether syscall id is traced.
func (q *Qualifier) Allow(id int) bool {
	if q == nil {
		return true
	}

	return q.ids.Contains(id) != q.not
}

// Negated reports whether the listed syscalls are the ones excluded.
func (q *Qualifier) Negated() bool {
	return q.not
}

// IDs returns the listed syscall ids in ascending order.
func (q *Qualifier) IDs() []int {
	ids := make([]int, 0, q.ids.Cardinality())

	q.ids.Each(func(v interface{}) bool {
		ids = append(ids, v.(int))
		return false
	})

	sort.Ints(ids)

	return ids
}
