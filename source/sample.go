package source

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/tcassar-diss/systrace/syscalltbl"
)

var (
	// ErrEmpty means no sample is available yet; callers retry after a short wait.
	ErrEmpty            = errors.New("no sample available")
	ErrTruncatedRecord  = errors.New("truncated record")
	ErrUnknownEventKind = errors.New("unknown event kind")
)

// Source is a synchronous pull of samples. Next returns io.EOF at the end of the stream.
type Source interface {
	Next(ctx context.Context) (*Sample, error)
	Close() error
}

// Kind is the event a sample was taken from.
type Kind uint16

const (
	KindUnknown Kind = iota
	KindSysEnter
	KindSysEnterAugmented
	KindSysExit
	KindVfsGetname
	KindMajFault
	KindMinFault
	KindSchedStatRuntime
	KindTracepoint
)

var kindNames = [...]string{
	KindUnknown:           "unknown",
	KindSysEnter:          "raw_syscalls:sys_enter",
	KindSysEnterAugmented: "raw_syscalls:sys_enter_augmented",
	KindSysExit:           "raw_syscalls:sys_exit",
	KindVfsGetname:        "probe:vfs_getname",
	KindMajFault:          "major-faults",
	KindMinFault:          "minor-faults",
	KindSchedStatRuntime:  "sched:sched_stat_runtime",
	KindTracepoint:        "tracepoint",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}

	return fmt.Sprintf("kind(%d)", uint16(k))
}

func (k Kind) valid() bool {
	return k > KindUnknown && k <= KindTracepoint
}

// Sample is one decoded perf sample.
type Sample struct {
	Kind Kind
	// Event is the "category:name" of generic tracepoints.
	Event   string
	Machine syscalltbl.Machine
	CPU     uint32
	Pid     int
	Tid     int
	// Time is in nanoseconds.
	Time uint64

	IP        uint64
	Addr      uint64
	Callchain []uint64

	Raw []byte
}

// raw_syscalls payload layout.
const (
	SyscallIDOffset   = 8
	SyscallArgsOffset = 16
	SyscallMaxArgs    = 6
	// RawSyscallArgsSize is where augmented data starts in raw_syscalls:sys_enter.
	RawSyscallArgsSize = SyscallArgsOffset + SyscallMaxArgs*8
)

// SyscallID reads the syscall number, false when the payload is too short to carry it.
func (s *Sample) SyscallID() (int, bool) {
	if len(s.Raw) < SyscallIDOffset+8 {
		return 0, false
	}

	return int(int64(binary.LittleEndian.Uint64(s.Raw[SyscallIDOffset:]))), true
}

// SyscallArgs returns the register arguments present in the payload. A short payload
// yields fewer args.
func (s *Sample) SyscallArgs() []uint64 {
	args := make([]uint64, 0, SyscallMaxArgs)

	for i := 0; i < SyscallMaxArgs; i++ {
		off := SyscallArgsOffset + i*8
		if off+8 > len(s.Raw) {
			break
		}

		args = append(args, binary.LittleEndian.Uint64(s.Raw[off:]))
	}

	return args
}

// SyscallRet reads the return value of a sys_exit payload.
func (s *Sample) SyscallRet() (int64, bool) {
	if len(s.Raw) < SyscallArgsOffset+8 {
		return 0, false
	}

	return int64(binary.LittleEndian.Uint64(s.Raw[SyscallArgsOffset:])), true
}

// SyscallPayload builds a raw_syscalls payload, used by replay generators and tests.
// For sys_exit pass the return value as the only arg.
func SyscallPayload(id int, args ...uint64) []byte {
	n := SyscallArgsOffset + SyscallMaxArgs*8
	if len(args) > SyscallMaxArgs {
		args = args[:SyscallMaxArgs]
	}

	raw := make([]byte, n)
	binary.LittleEndian.PutUint64(raw[SyscallIDOffset:], uint64(int64(id)))

	for i, a := range args {
		binary.LittleEndian.PutUint64(raw[SyscallArgsOffset+i*8:], a)
	}

	return raw
}

// AppendAugmented appends one {u32 size; s32 err; value} chunk to a payload.
func AppendAugmented(raw []byte, value []byte) []byte {
	var hdr [8]byte

	binary.LittleEndian.PutUint32(hdr[0:4], uint32(len(value)))

	raw = append(raw, hdr[:]...)

	return append(raw, value...)
}
