package argfmt

import (
	"errors"
	"strings"
	"sync"

	"github.com/cilium/ebpf/btf"
	"go.uber.org/zap"
)

// EnumResolver maps enumerator values of a named enum type to their names and back.
type EnumResolver interface {
	EnumName(typ string, val int64) (string, bool)
	EnumValue(typ, name string) (uint64, bool)
}

// TypeFinder is satisfied by *btf.Spec.
type TypeFinder interface {
	TypeByName(name string, typ interface{}) error
}

// KernelTypes loads the running kernel's BTF.
func KernelTypes() (TypeFinder, error) {
	spec, err := btf.LoadKernelSpec()
	if err != nil {
		return nil, err
	}

	return spec, nil
}

// BTFEnums resolves enums from BTF. The type information is loaded on first use and each
// enum type is looked up once, misses included.
type BTFEnums struct {
	logger *zap.SugaredLogger
	load   func() (TypeFinder, error)

	once   sync.Once
	finder TypeFinder

	enums map[string]*btf.Enum
}

func NewBTFEnums(logger *zap.SugaredLogger, load func() (TypeFinder, error)) *BTFEnums {
	return &BTFEnums{
		logger: logger,
		load:   load,
		enums:  make(map[string]*btf.Enum),
	}
}

func (b *BTFEnums) lookup(typ string) *btf.Enum {
	typ = strings.TrimPrefix(typ, "enum ")

	if e, ok := b.enums[typ]; ok {
		return e
	}

	b.once.Do(func() {
		finder, err := b.load()
		if err != nil {
			b.logger.Warnw("failed to load btf, enum args print as integers", "err", err)
			return
		}

		b.finder = finder
	})

	var e *btf.Enum

	if b.finder != nil {
		if err := b.finder.TypeByName(typ, &e); err != nil {
			if !errors.Is(err, btf.ErrNotFound) {
				b.logger.Debugw("failed to look up enum", "type", typ, "err", err)
			}

			e = nil
		}
	}

	b.enums[typ] = e

	return e
}

func (b *BTFEnums) EnumName(typ string, val int64) (string, bool) {
	e := b.lookup(typ)
	if e == nil {
		return "", false
	}

	for _, v := range e.Values {
		if int64(v.Value) == val {
			return v.Name, true
		}
	}

	return "", false
}

func (b *BTFEnums) EnumValue(typ, name string) (uint64, bool) {
	e := b.lookup(typ)
	if e == nil {
		return 0, false
	}

	for _, v := range e.Values {
		if v.Name == name {
			return v.Value, true
		}
	}

	return 0, false
}

// EnumTable is a fixed EnumResolver keyed by enum type name without the "enum " prefix.
type EnumTable map[string][]btf.EnumValue

func (t EnumTable) EnumName(typ string, val int64) (string, bool) {
	for _, v := range t[strings.TrimPrefix(typ, "enum ")] {
		if int64(v.Value) == val {
			return v.Name, true
		}
	}

	return "", false
}

func (t EnumTable) EnumValue(typ, name string) (uint64, bool) {
	for _, v := range t[strings.TrimPrefix(typ, "enum ")] {
		if v.Name == name {
			return v.Value, true
		}
	}

	return 0, false
}
