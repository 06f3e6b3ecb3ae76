package schema

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tcassar-diss/systrace/argfmt"
	"github.com/tcassar-diss/systrace/syscalltbl"
)

var (
	ErrSchemaNotFound = errors.New("syscall schema not found")
	ErrInvalidID      = errors.New("invalid syscall id")
)

const syscallCategory = "syscalls"

// Syscall is the decoded layout of one syscall on one machine.
type Syscall struct {
	Machine syscalltbl.Machine
	ID      int
	Name    string

	Fmt     *argfmt.SyscallFmt
	Fields  []Field
	ArgFmts []argfmt.Fmt
	NrArgs  int
	// ArgsSize is the payload offset just past the last argument.
	ArgsSize int

	IsExit bool
	IsOpen bool

	// Nonexistent is set when no format could be found; it is never retried.
	Nonexistent bool
}

// DisplayName is the name to print, a placeholder when the id has no name.
func (s *Syscall) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}

	return fmt.Sprintf("syscall_%d", s.ID)
}

// Tracepoint is the cached format of a non syscall event.
type Tracepoint struct {
	Category string
	Name     string
	Fields   []Field
	ArgFmts  []argfmt.Fmt

	Nonexistent bool
}

// Field returns the field called name.
func (t *Tracepoint) Field(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}

	return Field{}, false
}

type syscallKey struct {
	machine syscalltbl.Machine
	id      int
}

// Cache builds descriptors on first use and keeps them, misses included. It is not safe
// for concurrent use.
type Cache struct {
	logger   *zap.SugaredLogger
	provider Provider

	syscalls    map[syscallKey]*Syscall
	tracepoints map[string]*Tracepoint

	misses int
}

func NewCache(logger *zap.SugaredLogger, provider Provider) *Cache {
	return &Cache{
		logger:      logger,
		provider:    provider,
		syscalls:    make(map[syscallKey]*Syscall),
		tracepoints: make(map[string]*Tracepoint),
	}
}

// Misses is the number of distinct syscalls for which no schema was found.
func (c *Cache) Misses() int {
	return c.misses
}

// Get returns the descriptor of syscall id. A nonexistent descriptor comes back together
// with ErrSchemaNotFound so callers can still print a placeholder.
func (c *Cache) Get(machine syscalltbl.Machine, id int) (*Syscall, error) {
	if id < 0 {
		return nil, ErrInvalidID
	}

	key := syscallKey{machine: machine, id: id}

	sc, ok := c.syscalls[key]
	if !ok {
		sc = c.build(machine, id)
		c.syscalls[key] = sc
	}

	if sc.Nonexistent {
		return sc, ErrSchemaNotFound
	}

	return sc, nil
}

func (c *Cache) build(machine syscalltbl.Machine, id int) *Syscall {
	sc := &Syscall{Machine: machine, ID: id}

	if tbl, err := syscalltbl.ForMachine(machine); err == nil {
		sc.Name, _ = tbl.Name(id)
	} else {
		c.logger.Debugw("no syscall table for machine", "machine", machine, "err", err)
	}

	if sc.Name != "" {
		sc.Fmt = argfmt.Find(sc.Name)
	}

	fields, err := c.describe(sc)
	if err != nil {
		c.misses++
		sc.Nonexistent = true
		sc.NrArgs = argfmt.MaxArgs

		if sc.Fmt != nil {
			sc.ArgFmts = sc.Fmt.Args[:]
			if sc.Fmt.NrArgs > 0 {
				sc.NrArgs = sc.Fmt.NrArgs
			}
		}

		c.logger.Warnw("failed to find syscall schema", "machine", machine, "id", id,
			"name", sc.DisplayName(), "err", err)

		return sc
	}

	fields = syscallArgs(fields)

	sc.Fields = fields
	sc.NrArgs = len(fields)
	sc.ArgFmts = make([]argfmt.Fmt, len(fields))

	for i, f := range fields {
		var static argfmt.Fmt
		if sc.Fmt != nil && i < argfmt.MaxArgs {
			static = sc.Fmt.Args[i]
		}

		sc.ArgFmts[i] = argfmt.Infer(static, f.argField())
	}

	if n := len(fields); n > 0 {
		last := fields[n-1]
		sc.ArgsSize = last.Offset + last.Size
	}

	sc.IsExit = sc.Name == "exit" || sc.Name == "exit_group"
	sc.IsOpen = sc.Name == "open" || sc.Name == "openat"

	return sc
}

func (c *Cache) describe(sc *Syscall) ([]Field, error) {
	if sc.Name == "" {
		return nil, fmt.Errorf("id %d has no name on %s", sc.ID, sc.Machine)
	}

	fields, err := c.provider.Describe(syscallCategory, "sys_enter_"+sc.Name)
	if err == nil {
		return fields, nil
	}

	if sc.Fmt != nil && sc.Fmt.Alias != "" && sc.Fmt.Alias != sc.Name {
		fields, aliasErr := c.provider.Describe(syscallCategory, "sys_enter_"+sc.Fmt.Alias)
		if aliasErr == nil {
			return fields, nil
		}
	}

	return nil, err
}

// syscallArgs drops the common fields and the leading syscall number.
func syscallArgs(fields []Field) []Field {
	args := make([]Field, 0, len(fields))

	for _, f := range fields {
		if strings.HasPrefix(f.Name, "common_") {
			continue
		}

		args = append(args, f)
	}

	if len(args) > 0 && (args[0].Name == "__syscall_nr" || args[0].Name == "nr") {
		args = args[1:]
	}

	return args
}

// Tracepoint returns the descriptor of category:name with every argument format
// inferred from the field types.
func (c *Cache) Tracepoint(category, name string) (*Tracepoint, error) {
	key := category + ":" + name

	tp, ok := c.tracepoints[key]
	if !ok {
		tp = &Tracepoint{Category: category, Name: name}

		fields, err := c.provider.Describe(category, name)
		if err != nil {
			tp.Nonexistent = true
			c.logger.Warnw("failed to find tracepoint format", "event", key, "err", err)
		} else {
			for _, f := range fields {
				if !strings.HasPrefix(f.Name, "common_") {
					tp.Fields = append(tp.Fields, f)
				}
			}

			tp.ArgFmts = make([]argfmt.Fmt, len(tp.Fields))
			for i, f := range tp.Fields {
				tp.ArgFmts[i] = argfmt.Infer(argfmt.Fmt{}, f.argField())
			}
		}

		c.tracepoints[key] = tp
	}

	if tp.Nonexistent {
		return tp, ErrNotFound
	}

	return tp, nil
}
