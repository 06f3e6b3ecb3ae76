package argfmt

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind selects how an argument value is printed and, for the table backed kinds, parsed.
type Kind uint8

const (
	KindDefault Kind = iota
	KindLong
	KindInt
	KindHex
	KindPtr
	KindPID
	KindMode
	KindFD
	KindCloseFD
	KindFDAt
	KindFilename
	KindCharArray
	KindBuf
	KindStrArray
	KindStrArrays
	KindStrArrayFlags
	KindAccMode
	KindOpenFlags
	KindPipeFlags
	KindGetrandomFlags
	KindMmapProt
	KindMmapFlags
	KindMremapFlags
	KindMountFlags
	KindSocketType
	KindSockaddr
	KindTimespec
	KindSignum
	KindCloneFlags
	KindWaitOptions
	KindFutexOp
	KindFutexVal3
	KindFlock
	KindFcntlCmd
	KindFcntlArg
	KindFdFlags
	KindPrctlOption
	KindPrctlArg2
	KindPrctlArg3
	KindKcmpType
	KindSchedPolicy
	KindIoctlCmd
	KindBTFEnum
	KindX86MSR
	KindX86IRQVector
)

var kindNames = [...]string{
	KindDefault:        "default",
	KindLong:           "long",
	KindInt:            "int",
	KindHex:            "hex",
	KindPtr:            "ptr",
	KindPID:            "pid",
	KindMode:           "mode_t",
	KindFD:             "fd",
	KindCloseFD:        "close_fd",
	KindFDAt:           "fd_at",
	KindFilename:       "filename",
	KindCharArray:      "char_array",
	KindBuf:            "buf",
	KindStrArray:       "strarray",
	KindStrArrays:      "strarrays",
	KindStrArrayFlags:  "strarray_flags",
	KindAccMode:        "accmode",
	KindOpenFlags:      "open_flags",
	KindPipeFlags:      "pipe_flags",
	KindGetrandomFlags: "getrandom_flags",
	KindMmapProt:       "mmap_prot",
	KindMmapFlags:      "mmap_flags",
	KindMremapFlags:    "mremap_flags",
	KindMountFlags:     "mount_flags",
	KindSocketType:     "socket_type",
	KindSockaddr:       "sockaddr",
	KindTimespec:       "timespec",
	KindSignum:         "signum",
	KindCloneFlags:     "clone_flags",
	KindWaitOptions:    "wait_options",
	KindFutexOp:        "futex_op",
	KindFutexVal3:      "futex_val3",
	KindFlock:          "flock",
	KindFcntlCmd:       "fcntl_cmd",
	KindFcntlArg:       "fcntl_arg",
	KindFdFlags:        "fd_flags",
	KindPrctlOption:    "prctl_option",
	KindPrctlArg2:      "prctl_arg2",
	KindPrctlArg3:      "prctl_arg3",
	KindKcmpType:       "kcmp_type",
	KindSchedPolicy:    "sched_policy",
	KindIoctlCmd:       "ioctl_cmd",
	KindBTFEnum:        "btf_enum",
	KindX86MSR:         "x86_msr",
	KindX86IRQVector:   "x86_irq_vector",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}

	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Fmt describes how one argument is rendered.
type Fmt struct {
	Kind Kind
	// Name overrides the field name when argument names are shown.
	Name string
	// Parm is a *StrArray, a StrArrays or, for KindBTFEnum, the enum type name.
	Parm any
	// NrEntries caps KindCharArray output.
	NrEntries int
	// FromUser marks pointers into user memory that an augmenter may have copied.
	FromUser bool
	ShowZero bool
}

// mountMagicMask and mountMagic are the MS_MGC_VAL convention of old mount(2) callers.
const (
	mountMagicMask = 0xffff0000
	mountMagic     = 0xC0ED0000
)

// MaskVal is applied to the raw value before the zero check.
func (f *Fmt) MaskVal(val uint64) uint64 {
	if f == nil {
		return val
	}

	if f.Kind == KindMountFlags && val&mountMagicMask == mountMagic {
		val &^= mountMagicMask
	}

	return val
}

// ShowsZero reports whether a zero value is still printed.
func (f *Fmt) ShowsZero() bool {
	if f == nil {
		return false
	}

	return f.ShowZero || f.Kind == KindBTFEnum || f.Kind == KindOpenFlags
}

func (f *Fmt) strArray() *StrArray {
	sa, _ := f.Parm.(*StrArray)
	return sa
}

func (f *Fmt) strArrays() StrArrays {
	switch p := f.Parm.(type) {
	case StrArrays:
		return p
	case *StrArray:
		return StrArrays{p}
	}

	return nil
}

// Format renders arg. A nil Fmt prints the value as a signed long.
func (f *Fmt) Format(arg *Arg) string {
	if f == nil {
		return formatLong(arg.Val)
	}

	switch f.Kind {
	case KindInt:
		return strconv.Itoa(int(int32(arg.Val)))
	case KindHex:
		return hex(arg.Val)
	case KindPtr:
		if arg.Val == 0 {
			return "NULL"
		}

		return hex(arg.Val)
	case KindPID:
		return formatPID(arg, int(int32(arg.Val)))
	case KindMode:
		return formatMode(arg.Val, arg.ShowPrefix)
	case KindFD:
		return formatFD(arg, int(int32(arg.Val)))
	case KindCloseFD:
		fd := int(int32(arg.Val))
		s := formatFD(arg, fd)

		if arg.Files != nil {
			arg.Files.ForgetFd(fd)
		}

		return s
	case KindFDAt:
		return formatFDAt(arg)
	case KindFilename:
		return formatFilename(arg)
	case KindCharArray:
		return formatCharArray(arg, f.NrEntries)
	case KindBuf:
		return formatBuf(arg)
	case KindStrArray:
		if sa := f.strArray(); sa != nil {
			return sa.Format(int(int32(arg.Val)), "%d", arg.ShowPrefix)
		}
	case KindStrArrays:
		if sas := f.strArrays(); sas != nil {
			return sas.Format(int(int32(arg.Val)), "%d", arg.ShowPrefix)
		}
	case KindStrArrayFlags:
		if sa := f.strArray(); sa != nil {
			return sa.FormatFlags(arg.Val, arg.ShowPrefix)
		}
	case KindAccMode:
		return formatAccMode(arg.Val, arg.ShowPrefix)
	case KindOpenFlags:
		return formatOpenFlagsArg(arg)
	case KindPipeFlags:
		return formatPipeFlags(arg.Val, arg.ShowPrefix)
	case KindGetrandomFlags:
		return formatGetrandomFlags(arg.Val, arg.ShowPrefix)
	case KindMmapProt:
		return formatMmapProt(arg.Val, arg.ShowPrefix)
	case KindMmapFlags:
		return formatMmapFlags(arg)
	case KindMremapFlags:
		return formatMremapFlags(arg)
	case KindMountFlags:
		return mountFlags.FormatFlags(arg.Val, arg.ShowPrefix)
	case KindSocketType:
		return formatSocketType(arg.Val, arg.ShowPrefix)
	case KindSockaddr:
		return formatSockaddr(arg)
	case KindTimespec:
		return formatTimespec(arg)
	case KindSignum:
		return formatSignum(int(int32(arg.Val)), arg.ShowPrefix)
	case KindCloneFlags:
		return formatCloneFlags(arg)
	case KindWaitOptions:
		return formatWaitOptions(arg.Val, arg.ShowPrefix)
	case KindFutexOp:
		return formatFutexOp(arg)
	case KindFutexVal3:
		return formatFutexVal3(arg.Val, arg.ShowPrefix)
	case KindFlock:
		return formatFlock(arg.Val, arg.ShowPrefix)
	case KindFcntlCmd:
		return formatFcntlCmd(arg)
	case KindFcntlArg:
		return formatFcntlArg(arg)
	case KindFdFlags:
		return formatFdFlags(arg.Val, arg.ShowPrefix)
	case KindPrctlOption:
		return formatPrctlOption(arg)
	case KindPrctlArg2:
		return formatPrctlArg2(arg)
	case KindPrctlArg3:
		return formatPrctlArg3(arg)
	case KindKcmpType:
		return formatKcmpType(arg)
	case KindSchedPolicy:
		return formatSchedPolicy(arg.Val, arg.ShowPrefix)
	case KindIoctlCmd:
		return formatIoctlCmd(arg.Val, arg.ShowPrefix)
	case KindBTFEnum:
		return formatBTFEnum(arg, f.enumType())
	case KindX86MSR:
		return x86MSRs.Format(int(uint32(arg.Val)), "%#x", arg.ShowPrefix)
	case KindX86IRQVector:
		return x86IRQVectors.Format(int(int32(arg.Val)), "%#x", arg.ShowPrefix)
	}

	return formatLong(arg.Val)
}

func (f *Fmt) enumType() string {
	s, _ := f.Parm.(string)
	return s
}

// CanParse reports whether Parse understands symbolic values for this kind.
func (f *Fmt) CanParse() bool {
	if f == nil {
		return false
	}

	switch f.Kind {
	case KindStrArray, KindStrArrays, KindStrArrayFlags, KindMmapFlags, KindMountFlags,
		KindBTFEnum, KindX86MSR, KindX86IRQVector, KindPrctlOption, KindFcntlCmd, KindKcmpType:
		return true
	}

	return false
}

// Parse turns the text of a filter literal back into the value Format would print it
// from.
func (f *Fmt) Parse(text string, arg *Arg) (uint64, bool) {
	if f == nil {
		return 0, false
	}

	text = strings.TrimSpace(text)

	switch f.Kind {
	case KindStrArray, KindStrArrays, KindPrctlOption, KindFcntlCmd, KindKcmpType:
		if sas := f.strArrays(); sas != nil {
			return sas.Lookup(text)
		}
	case KindStrArrayFlags:
		if sa := f.strArray(); sa != nil {
			return sa.ParseFlags(text)
		}
	case KindMmapFlags:
		return mmapFlags.ParseFlags(text)
	case KindMountFlags:
		return mountFlags.ParseFlags(text)
	case KindBTFEnum:
		if arg == nil || arg.Enums == nil {
			return 0, false
		}

		return arg.Enums.EnumValue(f.enumType(), text)
	case KindX86MSR:
		return x86MSRs.Lookup(text)
	case KindX86IRQVector:
		return x86IRQVectors.Lookup(text)
	}

	return 0, false
}

func formatLong(val uint64) string {
	return strconv.FormatInt(int64(val), 10)
}

func formatPID(arg *Arg, pid int) string {
	s := strconv.Itoa(pid)

	if arg.Procs != nil {
		if comm, ok := arg.Procs.Comm(pid); ok {
			s += " (" + comm + ")"
		}
	}

	return s
}

func formatFD(arg *Arg, fd int) string {
	s := strconv.Itoa(fd)

	if fd < 0 || arg.Files == nil {
		return s
	}

	if path, ok := arg.Files.FdPath(fd); ok {
		s += "<" + path + ">"
	}

	return s
}

const atFdcwd = -100

func formatFDAt(arg *Arg) string {
	fd := int(int32(arg.Val))
	if fd != atFdcwd {
		return formatFD(arg, fd)
	}

	if arg.ShowPrefix {
		return "AT_FDCWD"
	}

	return "CWD"
}

func formatFilename(arg *Arg) string {
	if chunk, ok := arg.Aug.Next(); ok {
		name := cstring(chunk)

		if arg.Files != nil {
			arg.Files.CaptureFilename(name)
		}

		return `"` + name + `"`
	}

	if !arg.VfsGetname {
		return hex(arg.Val)
	}

	arg.FilenamePos = true

	return ""
}

func formatCharArray(arg *Arg, n int) string {
	if arg.Bytes == nil {
		return hex(arg.Val)
	}

	b := arg.Bytes
	if n > 0 && n < len(b) {
		b = b[:n]
	}

	return `"` + cstring(b) + `"`
}

func formatBuf(arg *Arg) string {
	chunk, ok := arg.Aug.Next()
	if !ok {
		return ""
	}

	var b strings.Builder

	for _, c := range chunk {
		if c <= 31 || c >= 127 {
			fmt.Fprintf(&b, `\%d`, c)
			continue
		}

		b.WriteByte(c)
	}

	return b.String()
}

func formatBTFEnum(arg *Arg, typ string) string {
	if arg.Enums != nil && typ != "" {
		if name, ok := arg.Enums.EnumName(typ, int64(arg.Val)); ok {
			return name
		}
	}

	return formatLong(arg.Val)
}
