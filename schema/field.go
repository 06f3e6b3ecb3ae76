package schema

import (
	"errors"

	"github.com/tcassar-diss/systrace/argfmt"
)

// ErrNotFound is returned by a Provider that has no format for a tracepoint.
var ErrNotFound = errors.New("tracepoint format not found")

type FieldFlags uint8

const (
	FieldPointer FieldFlags = 1 << iota
	FieldArray
	FieldDynamic
	FieldSigned
)

// Field is one entry of a tracepoint format.
type Field struct {
	Name   string
	Type   string
	Offset int
	Size   int
	Flags  FieldFlags
	// ArrayLen is the element count of fixed size arrays.
	ArrayLen int
}

func (f Field) Is(flag FieldFlags) bool {
	return f.Flags&flag != 0
}

func (f Field) argField() argfmt.Field {
	return argfmt.Field{
		Name:     f.Name,
		Type:     f.Type,
		Pointer:  f.Is(FieldPointer),
		Array:    f.Is(FieldArray),
		ArrayLen: f.ArrayLen,
	}
}

// Provider describes tracepoints, returning the ordered fields of category:name.
type Provider interface {
	Describe(category, name string) ([]Field, error)
}

// StaticProvider serves formats from memory, keyed by "category:name".
type StaticProvider map[string][]Field

func (p StaticProvider) Describe(category, name string) ([]Field, error) {
	fields, ok := p[category+":"+name]
	if !ok {
		return nil, ErrNotFound
	}

	return fields, nil
}
