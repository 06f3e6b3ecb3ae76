package argfmt

// MaxArgs is the number of register arguments a syscall can take.
const MaxArgs = 6

// SyscallFmt holds the hand written formatting of one syscall: per-argument formats and
// how its return value prints.
type SyscallFmt struct {
	Name string
	// Alias is the tracepoint name used when sys_enter_<Name> does not exist.
	Alias string
	Args  [MaxArgs]Fmt
	// NrArgs is used when no tracepoint schema can be found.
	NrArgs  int
	ErrPid  bool
	HexRet  bool
	Timeout bool
}

func strarray(sa *StrArray) Fmt {
	return Fmt{Kind: KindStrArray, Parm: sa, ShowZero: true}
}

func flagarray(sa *StrArray) Fmt {
	return Fmt{Kind: KindStrArrayFlags, Parm: sa, ShowZero: true}
}

func kind(k Kind) Fmt {
	return Fmt{Kind: k}
}

func named(name string, k Kind) Fmt {
	return Fmt{Name: name, Kind: k}
}

var (
	fdAt     = kind(KindFDAt)
	filename = kind(KindFilename)
	sigArg   = kind(KindSignum)
	msgArg   = flagarray(msgFlags)
	hexArg   = kind(KindHex)
	intArg   = kind(KindInt)
	protArg  = Fmt{Kind: KindMmapProt, ShowZero: true}
	fromUser = Fmt{FromUser: true}
)

var syscallFmts = []SyscallFmt{
	{Name: "access", Args: [MaxArgs]Fmt{1: kind(KindAccMode)}},
	{Name: "arch_prctl", Args: [MaxArgs]Fmt{
		0: {Kind: KindStrArrays, Parm: archPrctlCodes, ShowZero: true},
		1: kind(KindPtr),
	}},
	{Name: "bind", Args: [MaxArgs]Fmt{0: intArg, 1: kind(KindSockaddr), 2: intArg}},
	{Name: "bpf", Args: [MaxArgs]Fmt{0: strarray(bpfCmds), 1: fromUser}},
	{Name: "brk", HexRet: true, Args: [MaxArgs]Fmt{0: hexArg}},
	{Name: "clock_gettime", Args: [MaxArgs]Fmt{0: strarray(clockids)}},
	{Name: "clock_nanosleep", Args: [MaxArgs]Fmt{2: kind(KindTimespec)}},
	{Name: "clone", ErrPid: true, NrArgs: 5, Args: [MaxArgs]Fmt{
		0: named("flags", KindCloneFlags),
		1: named("child_stack", KindHex),
		2: named("parent_tidptr", KindHex),
		3: named("child_tidptr", KindHex),
		4: named("tls", KindHex),
	}},
	{Name: "close", Args: [MaxArgs]Fmt{0: kind(KindCloseFD)}},
	{Name: "connect", Args: [MaxArgs]Fmt{0: intArg, 1: kind(KindSockaddr), 2: intArg}},
	{Name: "epoll_ctl", Args: [MaxArgs]Fmt{1: strarray(epollCtlOps)}},
	{Name: "eventfd2", Args: [MaxArgs]Fmt{1: flagarray(eventfdFlags)}},
	{Name: "faccessat", Args: [MaxArgs]Fmt{0: fdAt, 1: filename, 2: kind(KindAccMode)}},
	{Name: "faccessat2", Args: [MaxArgs]Fmt{
		0: fdAt, 1: filename, 2: kind(KindAccMode), 3: flagarray(faccessat2Flags),
	}},
	{Name: "fchmodat", Args: [MaxArgs]Fmt{0: fdAt}},
	{Name: "fchownat", Args: [MaxArgs]Fmt{0: fdAt}},
	{Name: "fcntl", Args: [MaxArgs]Fmt{
		1: {Kind: KindFcntlCmd, Parm: fcntlCmdsArrays, ShowZero: true},
		2: kind(KindFcntlArg),
	}},
	{Name: "flock", Args: [MaxArgs]Fmt{1: kind(KindFlock)}},
	{Name: "fsconfig", Args: [MaxArgs]Fmt{1: strarray(fsconfigCmds)}},
	{Name: "fsmount", Args: [MaxArgs]Fmt{1: strarray(fsmountFlags), 2: flagarray(fsmountAttrFlags)}},
	{Name: "fspick", Args: [MaxArgs]Fmt{0: fdAt, 1: filename, 2: flagarray(fspickFlags)}},
	{Name: "fstat", Alias: "newfstat"},
	{Name: "futex", Args: [MaxArgs]Fmt{1: kind(KindFutexOp), 5: kind(KindFutexVal3)}},
	{Name: "futimesat", Args: [MaxArgs]Fmt{0: fdAt}},
	{Name: "getitimer", Args: [MaxArgs]Fmt{0: strarray(itimers)}},
	{Name: "getpgid", ErrPid: true},
	{Name: "getpid", ErrPid: true},
	{Name: "getppid", ErrPid: true},
	{Name: "getrandom", Args: [MaxArgs]Fmt{2: kind(KindGetrandomFlags)}},
	{Name: "getrlimit", Args: [MaxArgs]Fmt{0: strarray(rlimitResources)}},
	{Name: "getsockopt", Args: [MaxArgs]Fmt{1: strarray(socketLevels)}},
	{Name: "gettid", ErrPid: true},
	{Name: "ioctl", Args: [MaxArgs]Fmt{1: kind(KindIoctlCmd), 2: hexArg}},
	{Name: "kcmp", NrArgs: 5, Args: [MaxArgs]Fmt{
		0: named("pid1", KindPID),
		1: named("pid2", KindPID),
		2: {Name: "type", Kind: KindKcmpType, Parm: kcmpTypes},
		3: named("idx1", KindLong),
		4: named("idx2", KindLong),
	}},
	{Name: "keyctl", Args: [MaxArgs]Fmt{0: strarray(keyctlOptions)}},
	{Name: "kill", Args: [MaxArgs]Fmt{1: sigArg}},
	{Name: "linkat", Args: [MaxArgs]Fmt{0: fdAt}},
	{Name: "lseek", Args: [MaxArgs]Fmt{2: strarray(whences)}},
	{Name: "lstat", Alias: "newlstat"},
	{Name: "madvise", Args: [MaxArgs]Fmt{0: hexArg, 2: strarray(madvBehaviors)}},
	{Name: "mkdirat", Args: [MaxArgs]Fmt{0: fdAt}},
	{Name: "mknodat", Args: [MaxArgs]Fmt{0: fdAt}},
	{Name: "mmap", HexRet: true, Args: [MaxArgs]Fmt{
		0: hexArg,
		2: protArg,
		3: {Kind: KindMmapFlags, Parm: mmapFlags, ShowZero: true},
		5: hexArg,
	}},
	{Name: "mount", Args: [MaxArgs]Fmt{0: filename, 3: {Kind: KindMountFlags, Parm: mountFlags}}},
	{Name: "move_mount", Args: [MaxArgs]Fmt{
		0: fdAt, 1: filename, 2: fdAt, 3: filename, 4: flagarray(moveMountFlags),
	}},
	{Name: "mprotect", Args: [MaxArgs]Fmt{0: hexArg, 2: protArg}},
	{Name: "mq_unlink", Args: [MaxArgs]Fmt{0: filename}},
	{Name: "mremap", HexRet: true, Args: [MaxArgs]Fmt{3: kind(KindMremapFlags)}},
	{Name: "name_to_handle_at", Args: [MaxArgs]Fmt{0: fdAt}},
	{Name: "nanosleep", Args: [MaxArgs]Fmt{0: kind(KindTimespec)}},
	{Name: "newfstatat", Alias: "fstatat", Args: [MaxArgs]Fmt{
		0: fdAt, 1: filename, 3: flagarray(fsAtFlags),
	}},
	{Name: "open", Args: [MaxArgs]Fmt{1: kind(KindOpenFlags)}},
	{Name: "open_by_handle_at", Args: [MaxArgs]Fmt{0: fdAt, 2: kind(KindOpenFlags)}},
	{Name: "openat", Args: [MaxArgs]Fmt{0: fdAt, 2: kind(KindOpenFlags)}},
	{Name: "perf_event_open", Args: [MaxArgs]Fmt{
		0: fromUser, 2: intArg, 3: kind(KindFD), 4: flagarray(perfFlags),
	}},
	{Name: "pipe2", Args: [MaxArgs]Fmt{1: kind(KindPipeFlags)}},
	{Name: "pkey_alloc", Args: [MaxArgs]Fmt{1: flagarray(pkeyAccessRights)}},
	{Name: "pkey_free", Args: [MaxArgs]Fmt{0: intArg}},
	{Name: "pkey_mprotect", Args: [MaxArgs]Fmt{0: hexArg, 2: protArg, 3: intArg}},
	{Name: "poll", Timeout: true},
	{Name: "ppoll", Timeout: true},
	{Name: "prctl", Args: [MaxArgs]Fmt{
		0: {Kind: KindPrctlOption, Parm: prctlOptions},
		1: kind(KindPrctlArg2),
		2: kind(KindPrctlArg3),
	}},
	{Name: "pread", Alias: "pread64"},
	{Name: "preadv", Alias: "pread"},
	{Name: "prlimit64", Args: [MaxArgs]Fmt{1: strarray(rlimitResources)}},
	{Name: "pwrite", Alias: "pwrite64"},
	{Name: "readlinkat", Args: [MaxArgs]Fmt{0: fdAt}},
	{Name: "recvfrom", Args: [MaxArgs]Fmt{3: msgArg}},
	{Name: "recvmmsg", Args: [MaxArgs]Fmt{3: msgArg}},
	{Name: "recvmsg", Args: [MaxArgs]Fmt{2: msgArg}},
	{Name: "renameat", Args: [MaxArgs]Fmt{0: fdAt, 2: fdAt}},
	{Name: "renameat2", Args: [MaxArgs]Fmt{0: fdAt, 2: fdAt, 4: flagarray(renameat2Flags)}},
	{Name: "rseq", Args: [MaxArgs]Fmt{0: fromUser}},
	{Name: "rt_sigaction", Args: [MaxArgs]Fmt{0: sigArg}},
	{Name: "rt_sigprocmask", Args: [MaxArgs]Fmt{0: strarray(sighow)}},
	{Name: "rt_sigqueueinfo", Args: [MaxArgs]Fmt{1: sigArg}},
	{Name: "rt_tgsigqueueinfo", Args: [MaxArgs]Fmt{2: sigArg}},
	{Name: "sched_setscheduler", Args: [MaxArgs]Fmt{1: kind(KindSchedPolicy)}},
	{Name: "seccomp", Args: [MaxArgs]Fmt{0: strarray(seccompOps), 1: flagarray(seccompFlags)}},
	{Name: "select", Timeout: true},
	{Name: "sendfile", Alias: "sendfile64"},
	{Name: "sendmmsg", Args: [MaxArgs]Fmt{3: msgArg}},
	{Name: "sendmsg", Args: [MaxArgs]Fmt{2: msgArg}},
	{Name: "sendto", Args: [MaxArgs]Fmt{3: msgArg, 4: kind(KindSockaddr)}},
	{Name: "set_robust_list", Args: [MaxArgs]Fmt{0: fromUser}},
	{Name: "set_tid_address", ErrPid: true},
	{Name: "setitimer", Args: [MaxArgs]Fmt{0: strarray(itimers)}},
	{Name: "setrlimit", Args: [MaxArgs]Fmt{0: strarray(rlimitResources)}},
	{Name: "setsockopt", Args: [MaxArgs]Fmt{1: strarray(socketLevels)}},
	{Name: "socket", Args: [MaxArgs]Fmt{
		0: strarray(socketFamilies), 1: kind(KindSocketType), 2: strarray(ipprotos),
	}},
	{Name: "socketpair", Args: [MaxArgs]Fmt{
		0: strarray(socketFamilies), 1: kind(KindSocketType), 2: strarray(ipprotos),
	}},
	{Name: "stat", Alias: "newstat"},
	{Name: "statx", Args: [MaxArgs]Fmt{0: fdAt, 2: flagarray(fsAtFlags), 3: flagarray(statxMask)}},
	{Name: "swapoff", Args: [MaxArgs]Fmt{0: filename}},
	{Name: "swapon", Args: [MaxArgs]Fmt{0: filename}},
	{Name: "symlinkat", Args: [MaxArgs]Fmt{0: fdAt}},
	{Name: "sync_file_range", Args: [MaxArgs]Fmt{3: flagarray(syncFileRangeFlags)}},
	{Name: "tgkill", Args: [MaxArgs]Fmt{2: sigArg}},
	{Name: "tkill", Args: [MaxArgs]Fmt{1: sigArg}},
	{Name: "umount2", Alias: "umount", Args: [MaxArgs]Fmt{0: filename}},
	{Name: "uname", Alias: "newuname"},
	{Name: "unlinkat", Args: [MaxArgs]Fmt{0: fdAt, 1: filename, 2: flagarray(fsAtFlags)}},
	{Name: "utimensat", Args: [MaxArgs]Fmt{0: fdAt}},
	{Name: "wait4", ErrPid: true, Args: [MaxArgs]Fmt{2: kind(KindWaitOptions)}},
	{Name: "waitid", ErrPid: true, Args: [MaxArgs]Fmt{3: kind(KindWaitOptions)}},
	{Name: "write", Args: [MaxArgs]Fmt{1: {Kind: KindBuf, FromUser: true}}},
}

var syscallFmtsByName = func() map[string]*SyscallFmt {
	m := make(map[string]*SyscallFmt, len(syscallFmts))

	for i := range syscallFmts {
		m[syscallFmts[i].Name] = &syscallFmts[i]
	}

	return m
}()

// Find returns the format of the syscall called name, falling back to an entry whose
// Alias is name.
func Find(name string) *SyscallFmt {
	if sf, ok := syscallFmtsByName[name]; ok {
		return sf
	}

	for i := range syscallFmts {
		if syscallFmts[i].Alias != "" && syscallFmts[i].Alias == name {
			return &syscallFmts[i]
		}
	}

	return nil
}

// SyscallFmts lists every syscall with a hand written format.
func SyscallFmts() []*SyscallFmt {
	ret := make([]*SyscallFmt, 0, len(syscallFmts))

	for i := range syscallFmts {
		ret = append(ret, &syscallFmts[i])
	}

	return ret
}

// Static reports whether the table set anything for this argument.
func (f *Fmt) Static() bool {
	return f != nil && (f.Kind != KindDefault || f.FromUser || f.ShowZero || f.Name != "")
}
