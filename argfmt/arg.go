package argfmt

import (
	"bytes"
	"encoding/binary"
)

// MaxAugmentedSize bounds the bytes appended after the syscall args by an augmenter.
const MaxAugmentedSize = 1024 * 8

const augmentedHeaderSize = 8

// FileTable is the per-thread view formatters get of descriptor paths and filename capture.
type FileTable interface {
	// FdPath returns the path opened on fd, if known.
	FdPath(fd int) (string, bool)
	// ForgetFd drops the path recorded for fd.
	ForgetFd(fd int)
	// CaptureFilename records a filename read from the augmented payload so that a
	// successful open can bind it to the returned fd.
	CaptureFilename(name string)
}

// Procs looks up process names.
type Procs interface {
	Comm(pid int) (string, bool)
}

// Augmented walks the {u32 size; s32 err; value[size]} chunks appended to a sys_enter
// payload. Each formatter that consumes a chunk advances the cursor.
type Augmented struct {
	data []byte
}

// NewAugmented returns nil when there is nothing to decode or the payload is too large.
func NewAugmented(data []byte) *Augmented {
	if len(data) == 0 || len(data) > MaxAugmentedSize {
		return nil
	}

	return &Augmented{data: data}
}

// Next returns the value of the next chunk and advances past it.
func (a *Augmented) Next() ([]byte, bool) {
	if a == nil || len(a.data) < augmentedHeaderSize {
		return nil, false
	}

	size := int(binary.LittleEndian.Uint32(a.data[0:4]))
	if size < 0 || size > len(a.data)-augmentedHeaderSize {
		return nil, false
	}

	value := a.data[augmentedHeaderSize : augmentedHeaderSize+size]
	a.data = a.data[augmentedHeaderSize+size:]

	return value, true
}

func (a *Augmented) Remaining() int {
	if a == nil {
		return 0
	}

	return len(a.data)
}

// Arg is the state passed to a formatter while one argument is rendered.
type Arg struct {
	// Val is the raw value, already passed through the Fmt mask.
	Val uint64
	// Bytes holds the data of array fields of generic tracepoints.
	Bytes []byte
	// Args are the raw values of every argument of the call, for formatters whose
	// output depends on a sibling argument.
	Args []uint64
	// Idx is the position of the argument, Mask has bit i set when argument i must be
	// skipped. Formatters set bits to hide arguments that follow them.
	Idx  int
	Mask uint64

	Aug   *Augmented
	Files FileTable
	Procs Procs
	Enums EnumResolver

	ShowPrefix bool
	VfsGetname bool

	// RetFmt is set by formatters that know how the return value should be printed.
	RetFmt *Fmt
	// FilenamePos is set when a filename is to be spliced in later by vfs_getname.
	FilenamePos bool
}

// MaskNext hides the argument n positions after the current one.
func (a *Arg) MaskNext(n int) {
	a.Mask |= 1 << uint(a.Idx+n)
}

// Masked reports whether argument idx was hidden by an earlier formatter.
func (a *Arg) Masked(idx int) bool {
	return a.Mask&(1<<uint(idx)) != 0
}

// ArgVal returns the raw value of argument idx, 0 when the payload did not carry it.
func (a *Arg) ArgVal(idx int) uint64 {
	if idx < 0 || idx >= len(a.Args) {
		return 0
	}

	return a.Args[idx]
}

func cstring(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}

	return string(b)
}
