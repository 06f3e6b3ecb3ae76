package argfmt

import (
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

type namedBits struct {
	name string
	bits uint64
}

// bitWriter joins flag names with '|', tracking what is left to print.
type bitWriter struct {
	b      strings.Builder
	prefix string
	flags  uint64
}

func newBitWriter(flags uint64, prefix string, showPrefix bool) *bitWriter {
	w := bitWriter{flags: flags}
	if showPrefix {
		w.prefix = prefix
	}

	return &w
}

func (w *bitWriter) name(name string) {
	if w.b.Len() != 0 {
		w.b.WriteByte('|')
	}

	w.b.WriteString(w.prefix)
	w.b.WriteString(name)
}

// any prints every entry sharing at least one bit with the remaining flags.
func (w *bitWriter) any(names ...namedBits) {
	for _, n := range names {
		if n.bits != 0 && w.flags&n.bits != 0 {
			w.name(n.name)
			w.flags &^= n.bits
		}
	}
}

// all prints every entry whose bits are all set in the remaining flags.
func (w *bitWriter) all(names ...namedBits) {
	for _, n := range names {
		if n.bits != 0 && w.flags&n.bits == n.bits {
			w.name(n.name)
			w.flags &^= n.bits
		}
	}
}

func (w *bitWriter) rest(format string) string {
	if w.flags != 0 {
		if w.b.Len() != 0 {
			w.b.WriteByte('|')
		}

		fmt.Fprintf(&w.b, format, w.flags)
	}

	return w.b.String()
}

var modeBits = []namedBits{
	{"IALLUGO", unix.S_ISUID | unix.S_ISGID | unix.S_ISVTX | 0o777},
	{"IRWXUGO", 0o777},
	{"IFMT", unix.S_IFMT},
	{"IFSOCK", unix.S_IFSOCK},
	{"IFLNK", unix.S_IFLNK},
	{"IFREG", unix.S_IFREG},
	{"IFBLK", unix.S_IFBLK},
	{"IFDIR", unix.S_IFDIR},
	{"IFCHR", unix.S_IFCHR},
	{"IFIFO", unix.S_IFIFO},
	{"ISUID", unix.S_ISUID},
	{"ISGID", unix.S_ISGID},
	{"ISVTX", unix.S_ISVTX},
	{"IRWXU", unix.S_IRWXU},
	{"IRUSR", unix.S_IRUSR},
	{"IWUSR", unix.S_IWUSR},
	{"IXUSR", unix.S_IXUSR},
	{"IRWXG", unix.S_IRWXG},
	{"IRGRP", unix.S_IRGRP},
	{"IWGRP", unix.S_IWGRP},
	{"IXGRP", unix.S_IXGRP},
	{"IRWXO", unix.S_IRWXO},
	{"IROTH", unix.S_IROTH},
	{"IWOTH", unix.S_IWOTH},
	{"IXOTH", unix.S_IXOTH},
}

func formatMode(mode uint64, showPrefix bool) string {
	w := newBitWriter(mode, "S_", showPrefix)
	w.all(modeBits...)

	return w.rest("%#o")
}

func formatAccMode(mode uint64, showPrefix bool) string {
	suffix := ""
	if showPrefix {
		suffix = "_OK"
	}

	if mode == unix.F_OK {
		return "F" + suffix
	}

	var b strings.Builder

	for _, m := range []namedBits{{"R", unix.R_OK}, {"W", unix.W_OK}, {"X", unix.X_OK}} {
		if mode&m.bits != 0 {
			b.WriteString(m.name + suffix)
			mode &^= m.bits
		}
	}

	if mode != 0 {
		fmt.Fprintf(&b, "|%#x", mode)
	}

	return b.String()
}

var openFlagBits = []namedBits{
	{"RDWR", unix.O_RDWR},
	{"APPEND", unix.O_APPEND},
	{"ASYNC", unix.O_ASYNC},
	{"CLOEXEC", unix.O_CLOEXEC},
	{"CREAT", unix.O_CREAT},
	{"DIRECT", unix.O_DIRECT},
	{"DIRECTORY", unix.O_DIRECTORY},
	{"EXCL", unix.O_EXCL},
	{"LARGEFILE", unix.O_LARGEFILE},
	{"NOFOLLOW", unix.O_NOFOLLOW},
	{"TMPFILE", unix.O_TMPFILE},
	{"NOATIME", unix.O_NOATIME},
	{"NOCTTY", unix.O_NOCTTY},
	{"NONBLOCK", unix.O_NONBLOCK},
	{"PATH", unix.O_PATH},
}

// FormatOpenFlags prints open(2) flags. The O_ prefix is always part of the output.
func FormatOpenFlags(flags uint64) string {
	w := newBitWriter(flags, "O_", true)

	if flags&unix.O_ACCMODE == unix.O_RDONLY {
		w.name("RDONLY")
	}

	w.any(openFlagBits...)

	if w.flags&unix.O_SYNC == unix.O_SYNC {
		w.all(namedBits{"SYNC", unix.O_SYNC})
	} else {
		w.any(namedBits{"DSYNC", unix.O_DSYNC})
	}

	w.any(namedBits{"TRUNC", unix.O_TRUNC}, namedBits{"WRONLY", unix.O_WRONLY})

	return w.rest("%#x")
}

func formatOpenFlagsArg(arg *Arg) string {
	if arg.Val&(unix.O_CREAT|unix.O_TMPFILE) == 0 {
		arg.MaskNext(1)
	}

	return FormatOpenFlags(arg.Val)
}

func formatPipeFlags(flags uint64, showPrefix bool) string {
	w := newBitWriter(flags, "O_", showPrefix)
	w.any(namedBits{"CLOEXEC", unix.O_CLOEXEC}, namedBits{"NONBLOCK", unix.O_NONBLOCK})

	return w.rest("%#x")
}

func formatGetrandomFlags(flags uint64, showPrefix bool) string {
	w := newBitWriter(flags, "GRND_", showPrefix)
	w.any(namedBits{"RANDOM", unix.GRND_RANDOM}, namedBits{"NONBLOCK", unix.GRND_NONBLOCK})

	return w.rest("%#x")
}

func formatMmapProt(prot uint64, showPrefix bool) string {
	w := newBitWriter(prot, "PROT_", showPrefix)

	if prot == unix.PROT_NONE {
		w.name("NONE")
		return w.b.String()
	}

	w.any(
		namedBits{"EXEC", unix.PROT_EXEC},
		namedBits{"READ", unix.PROT_READ},
		namedBits{"WRITE", unix.PROT_WRITE},
		namedBits{"SEM", 0x8},
		namedBits{"GROWSDOWN", unix.PROT_GROWSDOWN},
		namedBits{"GROWSUP", unix.PROT_GROWSUP},
	)

	return w.rest("%#x")
}

func formatMmapFlags(arg *Arg) string {
	if arg.Val&unix.MAP_ANONYMOUS != 0 {
		// fd and offset are ignored for anonymous maps
		arg.Mask |= 1<<4 | 1<<5
	}

	return mmapFlags.FormatFlags(arg.Val, arg.ShowPrefix)
}

const mremapDontunmap = 4

func formatMremapFlags(arg *Arg) string {
	if arg.Val&unix.MREMAP_FIXED == 0 {
		arg.Mask |= 1 << 4
	}

	w := newBitWriter(arg.Val, "MREMAP_", arg.ShowPrefix)
	w.any(
		namedBits{"MAYMOVE", unix.MREMAP_MAYMOVE},
		namedBits{"FIXED", unix.MREMAP_FIXED},
		namedBits{"DONTUNMAP", mremapDontunmap},
	)

	return w.rest("%#x")
}

const sockTypeMask = 0xf

func formatSocketType(val uint64, showPrefix bool) string {
	typ := int(val & sockTypeMask)

	w := newBitWriter(val&^sockTypeMask, "", false)

	if name, ok := socketTypes.entry(typ); ok {
		w.b.WriteString(socketTypes.prefix(showPrefix) + name)
	} else {
		w.b.WriteString(hex(uint64(typ)))
	}

	w.any(namedBits{"CLOEXEC", unix.SOCK_CLOEXEC}, namedBits{"NONBLOCK", unix.SOCK_NONBLOCK})

	return w.rest("%#x")
}

func formatSignum(sig int, showPrefix bool) string {
	name := unix.SignalName(unix.Signal(sig))
	if name == "" {
		return fmt.Sprintf("%#x", sig)
	}

	if !showPrefix {
		name = strings.TrimPrefix(name, "SIG")
	}

	return name
}

const (
	cloneClearSighand = 0x100000000
	cloneIntoCgroup   = 0x200000000
)

var cloneFlagBits = []namedBits{
	{"VM", unix.CLONE_VM},
	{"FS", unix.CLONE_FS},
	{"FILES", unix.CLONE_FILES},
	{"SIGHAND", unix.CLONE_SIGHAND},
	{"PIDFD", unix.CLONE_PIDFD},
	{"PTRACE", unix.CLONE_PTRACE},
	{"VFORK", unix.CLONE_VFORK},
	{"PARENT", unix.CLONE_PARENT},
	{"THREAD", unix.CLONE_THREAD},
	{"NEWNS", unix.CLONE_NEWNS},
	{"SYSVSEM", unix.CLONE_SYSVSEM},
	{"SETTLS", unix.CLONE_SETTLS},
	{"PARENT_SETTID", unix.CLONE_PARENT_SETTID},
	{"CHILD_CLEARTID", unix.CLONE_CHILD_CLEARTID},
	{"DETACHED", unix.CLONE_DETACHED},
	{"UNTRACED", unix.CLONE_UNTRACED},
	{"CHILD_SETTID", unix.CLONE_CHILD_SETTID},
	{"NEWCGROUP", unix.CLONE_NEWCGROUP},
	{"NEWUTS", unix.CLONE_NEWUTS},
	{"NEWIPC", unix.CLONE_NEWIPC},
	{"NEWUSER", unix.CLONE_NEWUSER},
	{"NEWPID", unix.CLONE_NEWPID},
	{"NEWNET", unix.CLONE_NEWNET},
	{"IO", unix.CLONE_IO},
	{"CLEAR_SIGHAND", cloneClearSighand},
	{"INTO_CGROUP", cloneIntoCgroup},
}

// clone(flags, child_stack, parent_tidptr, child_tidptr, tls)
const (
	cloneParentTidptr = 1 << 2
	cloneChildTidptr  = 1 << 3
	cloneTLS          = 1 << 4
)

func formatCloneFlags(arg *Arg) string {
	flags := arg.Val

	if flags&unix.CLONE_PARENT_SETTID == 0 {
		arg.Mask |= cloneParentTidptr
	}

	if flags&(unix.CLONE_CHILD_SETTID|unix.CLONE_CHILD_CLEARTID) == 0 {
		arg.Mask |= cloneChildTidptr
	}

	if flags&unix.CLONE_SETTLS == 0 {
		arg.Mask |= cloneTLS
	}

	w := newBitWriter(flags, "CLONE_", arg.ShowPrefix)
	w.any(cloneFlagBits...)

	return w.rest("%#x")
}

func formatWaitOptions(options uint64, showPrefix bool) string {
	w := newBitWriter(options, "W", showPrefix)
	w.any(
		namedBits{"NOHANG", unix.WNOHANG},
		namedBits{"UNTRACED", unix.WUNTRACED},
		namedBits{"CONTINUED", unix.WCONTINUED},
	)

	return w.rest("%#x")
}

// futex(uaddr, op, val, timeout, uaddr2, val3)
const (
	futexTimeout = 1 << 3
	futexUaddr2  = 1 << 4
	futexVal3    = 1 << 5

	futexPrivateFlag   = 128
	futexClockRealtime = 256
	futexCmdMask       = ^uint64(futexPrivateFlag | futexClockRealtime)

	futexBitsetMatchAny = 0xffffffff
)

var futexCmds = []struct {
	name string
	mask uint64
}{
	0:  {"WAIT", futexVal3 | futexUaddr2},
	1:  {"WAKE", futexVal3 | futexUaddr2 | futexTimeout},
	2:  {"FD", futexVal3 | futexUaddr2 | futexTimeout},
	3:  {"REQUEUE", futexVal3 | futexTimeout},
	4:  {"CMP_REQUEUE", futexTimeout},
	5:  {"WAKE_OP", 0},
	6:  {"LOCK_PI", futexVal3 | futexUaddr2 | futexTimeout},
	7:  {"UNLOCK_PI", futexVal3 | futexUaddr2 | futexTimeout},
	8:  {"TRYLOCK_PI", futexVal3 | futexUaddr2},
	9:  {"WAIT_BITSET", futexUaddr2},
	10: {"WAKE_BITSET", futexUaddr2},
	11: {"WAIT_REQUEUE_PI", 0},
	12: {"CMP_REQUEUE_PI", futexTimeout},
}

func formatFutexOp(arg *Arg) string {
	op := arg.Val
	cmd := op & futexCmdMask

	prefix := ""
	if arg.ShowPrefix {
		prefix = "FUTEX_"
	}

	var b strings.Builder

	if cmd < uint64(len(futexCmds)) {
		b.WriteString(prefix + futexCmds[cmd].name)
		arg.Mask |= futexCmds[cmd].mask
	} else {
		fmt.Fprintf(&b, "%#x", cmd)
	}

	if op&futexPrivateFlag != 0 {
		b.WriteString("|" + prefix + "PRIVATE_FLAG")
	}

	if op&futexClockRealtime != 0 {
		b.WriteString("|" + prefix + "CLOCK_REALTIME")
	}

	return b.String()
}

func formatFutexVal3(val uint64, showPrefix bool) string {
	if uint32(val) == futexBitsetMatchAny {
		if showPrefix {
			return "FUTEX_BITSET_MATCH_ANY"
		}

		return "MATCH_ANY"
	}

	return hex(val)
}

const (
	lockMand  = 32
	lockRead  = 64
	lockWrite = 128
	lockRW    = 192
)

func formatFlock(op uint64, showPrefix bool) string {
	if op == 0 {
		return "NONE"
	}

	w := newBitWriter(op, "LOCK_", showPrefix)
	w.all(
		namedBits{"SH", unix.LOCK_SH},
		namedBits{"EX", unix.LOCK_EX},
		namedBits{"NB", unix.LOCK_NB},
		namedBits{"UN", unix.LOCK_UN},
		namedBits{"MAND", lockMand},
		namedBits{"RW", lockRW},
		namedBits{"READ", lockRead},
		namedBits{"WRITE", lockWrite},
	)

	return w.rest("%#x")
}

func formatFcntlCmd(arg *Arg) string {
	cmd := int(int32(arg.Val))

	switch cmd {
	case unix.F_GETFD:
		arg.RetFmt = &Fmt{Kind: KindFdFlags}
	case unix.F_GETFL:
		arg.RetFmt = &Fmt{Kind: KindOpenFlags}
	case unix.F_DUPFD, unix.F_DUPFD_CLOEXEC:
		arg.RetFmt = &Fmt{Kind: KindFD}
	case unix.F_GETOWN:
		arg.RetFmt = &Fmt{Kind: KindPID}
	case unix.F_GETLEASE:
		arg.RetFmt = &Fmt{Kind: KindStrArray, Parm: leaseTypes}
	case unix.F_GET_SEALS:
		arg.RetFmt = &Fmt{Kind: KindStrArrayFlags, Parm: fileSeals}
	}

	switch cmd {
	case unix.F_GETFD, unix.F_GETFL, unix.F_GETOWN, unix.F_GETSIG, unix.F_GETLEASE,
		unix.F_GETPIPE_SZ, unix.F_GET_SEALS:
		arg.MaskNext(1)
	}

	return fcntlCmdsArrays.Format(cmd, "%d", arg.ShowPrefix)
}

func formatFcntlArg(arg *Arg) string {
	cmd := int(int32(arg.ArgVal(1)))

	switch cmd {
	case unix.F_DUPFD, unix.F_DUPFD_CLOEXEC:
		return formatFD(arg, int(int32(arg.Val)))
	case unix.F_SETFD:
		return formatFdFlags(arg.Val, arg.ShowPrefix)
	case unix.F_SETFL:
		return FormatOpenFlags(arg.Val)
	case unix.F_SETOWN:
		return formatPID(arg, int(int32(arg.Val)))
	case unix.F_SETLEASE:
		return leaseTypes.Format(int(int32(arg.Val)), "%d", arg.ShowPrefix)
	case unix.F_ADD_SEALS:
		return fileSeals.FormatFlags(arg.Val, arg.ShowPrefix)
	case unix.F_GETLK, unix.F_SETLK, unix.F_SETLKW:
		return hex(arg.Val)
	}

	return formatLong(arg.Val)
}

func formatFdFlags(val uint64, showPrefix bool) string {
	if val == 0 {
		return "0"
	}

	if showPrefix {
		return "FD_CLOEXEC"
	}

	return "CLOEXEC"
}

// prctl(option, arg2, arg3, arg4, arg5)
const (
	prctlArg2 = 1 << 1
	prctlArg3 = 1 << 2
	prctlArg4 = 1 << 3
	prctlArg5 = 1 << 4

	prctlAllBut2 = prctlArg3 | prctlArg4 | prctlArg5
	prctlAll     = prctlArg2 | prctlAllBut2
)

var prctlMasks = map[int]uint64{
	prGetDumpable:       prctlAll,
	prSetDumpable:       prctlAllBut2,
	prSetName:           prctlAllBut2,
	prGetChildSubreaper: prctlAllBut2,
	prSetChildSubreaper: prctlAllBut2,
	prGetSecurebits:     prctlAll,
	prSetSecurebits:     prctlAllBut2,
	prSetMM:             prctlArg4 | prctlArg5,
	prGetPdeathsig:      prctlAll,
	prSetPdeathsig:      prctlAllBut2,
}

func formatPrctlOption(arg *Arg) string {
	option := int(int32(arg.Val))
	arg.Mask |= prctlMasks[option]

	return prctlOptions.Format(option, "%d", arg.ShowPrefix)
}

func formatPrctlArg2(arg *Arg) string {
	switch int(int32(arg.ArgVal(0))) {
	case prSetMM:
		return prctlSetMMOptions.Format(int(int32(arg.Val)), "%d", arg.ShowPrefix)
	case prSetName:
		return hex(arg.Val)
	}

	return formatLong(arg.Val)
}

func formatPrctlArg3(arg *Arg) string {
	if int(int32(arg.ArgVal(0))) == prSetMM {
		return hex(arg.Val)
	}

	return formatLong(arg.Val)
}

// kcmp(pid1, pid2, type, idx1, idx2)
func formatKcmpType(arg *Arg) string {
	typ := int(int32(arg.Val))
	if typ != kcmpFile {
		arg.Mask |= 1<<3 | 1<<4
	}

	return kcmpTypes.Format(typ, "%d", arg.ShowPrefix)
}

const (
	schedPolicyMask  = 0xff
	schedResetOnFork = 0x40000000
)

func formatSchedPolicy(val uint64, showPrefix bool) string {
	policy := int(val & schedPolicyMask)

	var b strings.Builder

	if name, ok := schedPolicies.entry(policy); ok {
		b.WriteString(schedPolicies.prefix(showPrefix) + name)
	} else {
		b.WriteString(hex(uint64(policy)))
	}

	flags := val &^ schedPolicyMask
	if flags&schedResetOnFork != 0 {
		b.WriteString("|" + schedPolicies.prefix(showPrefix) + "RESET_ON_FORK")
		flags &^= schedResetOnFork
	}

	if flags != 0 {
		fmt.Fprintf(&b, "|%#x", flags)
	}

	return b.String()
}
