package argfmt

var bpfCmds = newStrArray("BPF_", 0,
	"MAP_CREATE", "MAP_LOOKUP_ELEM", "MAP_UPDATE_ELEM", "MAP_DELETE_ELEM",
	"MAP_GET_NEXT_KEY", "PROG_LOAD", "OBJ_PIN", "OBJ_GET", "PROG_ATTACH",
	"PROG_DETACH", "PROG_TEST_RUN", "PROG_GET_NEXT_ID", "MAP_GET_NEXT_ID",
	"PROG_GET_FD_BY_ID", "MAP_GET_FD_BY_ID", "OBJ_GET_INFO_BY_FD",
	"PROG_QUERY", "RAW_TRACEPOINT_OPEN", "BTF_LOAD", "BTF_GET_FD_BY_ID",
	"TASK_FD_QUERY", "MAP_LOOKUP_AND_DELETE_ELEM", "MAP_FREEZE",
	"BTF_GET_NEXT_ID", "MAP_LOOKUP_BATCH", "MAP_LOOKUP_AND_DELETE_BATCH",
	"MAP_UPDATE_BATCH", "MAP_DELETE_BATCH", "LINK_CREATE", "LINK_UPDATE",
	"LINK_GET_FD_BY_ID", "LINK_GET_NEXT_ID", "ENABLE_STATS", "ITER_CREATE",
	"LINK_DETACH", "PROG_BIND_MAP",
)

var fsmountFlags = newStrArray("FSMOUNT_", 0, "", "CLOEXEC")

var fsconfigCmds = newStrArray("FSCONFIG_", 0,
	"SET_FLAG", "SET_STRING", "SET_BINARY", "SET_PATH", "SET_PATH_EMPTY",
	"SET_FD", "CMD_CREATE", "CMD_RECONFIGURE", "CMD_CREATE_EXCL",
)

var epollCtlOps = newStrArray("EPOLL_CTL_", 1, "ADD", "DEL", "MOD")

var itimers = newStrArray("ITIMER_", 0, "REAL", "VIRTUAL", "PROF")

var keyctlOptions = newStrArray("KEYCTL_", 0,
	"GET_KEYRING_ID", "JOIN_SESSION_KEYRING", "UPDATE", "REVOKE", "CHOWN",
	"SETPERM", "DESCRIBE", "CLEAR", "LINK", "UNLINK", "SEARCH", "READ",
	"INSTANTIATE", "NEGATE", "SET_REQKEY_KEYRING", "SET_TIMEOUT",
	"ASSUME_AUTHORITY", "GET_SECURITY", "SESSION_TO_PARENT", "REJECT",
	"INSTANTIATE_IOV", "INVALIDATE", "GET_PERSISTENT",
)

var whences = newStrArray("SEEK_", 0, "SET", "CUR", "END", "DATA", "HOLE")

const fcntlLinuxSpecificBase = 1024

var fcntlCmds = newStrArray("F_", 0,
	"DUPFD", "GETFD", "SETFD", "GETFL", "SETFL", "GETLK", "SETLK",
	"SETLKW", "SETOWN", "GETOWN", "SETSIG", "GETSIG", "GETLK64",
	"SETLK64", "SETLKW64", "SETOWN_EX", "GETOWN_EX",
	"GETOWNER_UIDS",
)

var fcntlLinuxSpecificCmds = newStrArray("F_", fcntlLinuxSpecificBase,
	"SETLEASE", "GETLEASE", "NOTIFY", "DUPFD_QUERY", "", "CANCELLK", "DUPFD_CLOEXEC",
	"SETPIPE_SZ", "GETPIPE_SZ", "ADD_SEALS", "GET_SEALS",
	"GET_RW_HINT", "SET_RW_HINT", "GET_FILE_RW_HINT", "SET_FILE_RW_HINT",
)

var fcntlCmdsArrays = StrArrays{fcntlCmds, fcntlLinuxSpecificCmds}

var rlimitResources = newStrArray("RLIMIT_", 0,
	"CPU", "FSIZE", "DATA", "STACK", "CORE", "RSS", "NPROC", "NOFILE",
	"MEMLOCK", "AS", "LOCKS", "SIGPENDING", "MSGQUEUE", "NICE", "RTPRIO",
	"RTTIME",
)

var sighow = newStrArray("SIG_", 0, "BLOCK", "UNBLOCK", "SETMASK")

var clockids = newStrArray("CLOCK_", 0,
	"REALTIME", "MONOTONIC", "PROCESS_CPUTIME_ID", "THREAD_CPUTIME_ID",
	"MONOTONIC_RAW", "REALTIME_COARSE", "MONOTONIC_COARSE", "BOOTTIME",
	"REALTIME_ALARM", "BOOTTIME_ALARM", "SGI_CYCLE", "TAI",
)

var socketFamilies = newStrArray("AF_", 0,
	"UNSPEC", "LOCAL", "INET", "AX25", "IPX", "APPLETALK", "NETROM",
	"BRIDGE", "ATMPVC", "X25", "INET6", "ROSE", "DECnet", "NETBEUI",
	"SECURITY", "KEY", "NETLINK", "PACKET", "ASH", "ECONET", "ATMSVC",
	"RDS", "SNA", "IRDA", "PPPOX", "WANPIPE", "LLC", "IB", "MPLS", "CAN",
	"TIPC", "BLUETOOTH", "IUCV", "RXRPC", "ISDN", "PHONET", "IEEE802154",
	"CAIF", "ALG", "NFC", "VSOCK", "KCM", "QIPCRTR", "SMC", "XDP", "MCTP",
)

var socketLevels = sparse("SOL_", map[int]string{
	0: "IP", 1: "SOCKET", 6: "TCP", 17: "UDP", 41: "IPV6", 58: "ICMPV6",
	132: "SCTP", 136: "UDPLITE", 255: "RAW", 256: "IPX", 257: "AX25",
	258: "ATALK", 259: "NETROM", 260: "ROSE", 261: "DECNET", 262: "X25",
	263: "PACKET", 264: "ATM", 265: "AAL", 266: "IRDA", 267: "NETBEUI",
	268: "LLC", 269: "DCCP", 270: "NETLINK", 271: "TIPC", 272: "RXRPC",
	273: "PPPOL2TP", 274: "BLUETOOTH", 275: "PNPIPE", 276: "RDS", 277: "IUCV",
	278: "CAIF", 279: "ALG", 280: "NFC", 281: "KCM", 282: "TLS", 283: "XDP",
	284: "MPTCP", 285: "MCTP", 286: "SMC",
})

var ipprotos = sparse("IPPROTO_", map[int]string{
	0: "IP", 1: "ICMP", 2: "IGMP", 4: "IPIP", 6: "TCP", 8: "EGP", 12: "PUP",
	17: "UDP", 22: "IDP", 29: "TP", 33: "DCCP", 41: "IPV6", 46: "RSVP",
	47: "GRE", 50: "ESP", 51: "AH", 58: "ICMPV6", 92: "MTP", 94: "BEETPH",
	98: "ENCAP", 103: "PIM", 108: "COMP", 115: "L2TP", 132: "SCTP",
	136: "UDPLITE", 137: "MPLS", 143: "ETHERNET", 255: "RAW",
})

var socketTypes = sparse("SOCK_", map[int]string{
	1: "STREAM", 2: "DGRAM", 3: "RAW", 4: "RDM", 5: "SEQPACKET", 6: "DCCP", 10: "PACKET",
})

var madvBehaviors = sparse("MADV_", map[int]string{
	0: "NORMAL", 1: "RANDOM", 2: "SEQUENTIAL", 3: "WILLNEED", 4: "DONTNEED",
	8: "FREE", 9: "REMOVE", 10: "DONTFORK", 11: "DOFORK", 12: "MERGEABLE",
	13: "UNMERGEABLE", 14: "HUGEPAGE", 15: "NOHUGEPAGE", 16: "DONTDUMP",
	17: "DODUMP", 18: "WIPEONFORK", 19: "KEEPONFORK", 20: "COLD", 21: "PAGEOUT",
	22: "POPULATE_READ", 23: "POPULATE_WRITE", 24: "DONTNEED_LOCKED",
	25: "COLLAPSE", 100: "HWPOISON", 101: "SOFT_OFFLINE",
})

const (
	prSetPdeathsig      = 1
	prGetPdeathsig      = 2
	prGetDumpable       = 3
	prSetDumpable       = 4
	prSetName           = 15
	prGetSecurebits     = 27
	prSetSecurebits     = 28
	prSetMM             = 35
	prSetChildSubreaper = 36
	prGetChildSubreaper = 37
)

var prctlOptions = sparse("PR_", map[int]string{
	1: "SET_PDEATHSIG", 2: "GET_PDEATHSIG", 3: "GET_DUMPABLE", 4: "SET_DUMPABLE",
	5: "GET_UNALIGN", 6: "SET_UNALIGN", 7: "GET_KEEPCAPS", 8: "SET_KEEPCAPS",
	9: "GET_FPEMU", 10: "SET_FPEMU", 11: "GET_FPEXC", 12: "SET_FPEXC",
	13: "GET_TIMING", 14: "SET_TIMING", 15: "SET_NAME", 16: "GET_NAME",
	19: "GET_ENDIAN", 20: "SET_ENDIAN", 21: "GET_SECCOMP", 22: "SET_SECCOMP",
	23: "CAPBSET_READ", 24: "CAPBSET_DROP", 25: "GET_TSC", 26: "SET_TSC",
	27: "GET_SECUREBITS", 28: "SET_SECUREBITS", 29: "SET_TIMERSLACK",
	30: "GET_TIMERSLACK", 31: "TASK_PERF_EVENTS_DISABLE",
	32: "TASK_PERF_EVENTS_ENABLE", 33: "MCE_KILL", 34: "MCE_KILL_GET",
	35: "SET_MM", 36: "SET_CHILD_SUBREAPER", 37: "GET_CHILD_SUBREAPER",
	38: "SET_NO_NEW_PRIVS", 39: "GET_NO_NEW_PRIVS", 40: "GET_TID_ADDRESS",
	41: "SET_THP_DISABLE", 42: "GET_THP_DISABLE", 43: "MPX_ENABLE_MANAGEMENT",
	44: "MPX_DISABLE_MANAGEMENT", 45: "SET_FP_MODE", 46: "GET_FP_MODE",
	47: "CAP_AMBIENT", 50: "SVE_SET_VL", 51: "SVE_GET_VL",
	52: "GET_SPECULATION_CTRL", 53: "SET_SPECULATION_CTRL", 54: "PAC_RESET_KEYS",
	55: "SET_TAGGED_ADDR_CTRL", 56: "GET_TAGGED_ADDR_CTRL", 57: "SET_IO_FLUSHER",
	58: "GET_IO_FLUSHER", 59: "SET_SYSCALL_USER_DISPATCH",
	60: "PAC_SET_ENABLED_KEYS", 61: "PAC_GET_ENABLED_KEYS", 62: "SCHED_CORE",
	63: "SME_SET_VL", 64: "SME_GET_VL", 65: "SET_MDWE", 66: "GET_MDWE",
	67: "SET_MEMORY_MERGE", 68: "GET_MEMORY_MERGE",
})

var prctlSetMMOptions = newStrArray("PR_SET_MM_", 1,
	"START_CODE", "END_CODE", "START_DATA", "END_DATA", "START_STACK",
	"START_BRK", "BRK", "ARG_START", "ARG_END", "ENV_START", "ENV_END",
	"AUXV", "EXE_FILE", "MAP", "MAP_SIZE",
)

var archPrctlCodes = StrArrays{
	newStrArray("ARCH_", 0x1001, "SET_GS", "SET_FS", "GET_FS", "GET_GS"),
	newStrArray("ARCH_", 0x1011, "GET_CPUID", "SET_CPUID"),
	newStrArray("ARCH_", 0x1021, "GET_XCOMP_SUPP", "GET_XCOMP_PERM", "REQ_XCOMP_PERM",
		"GET_XCOMP_GUEST_PERM", "REQ_XCOMP_GUEST_PERM"),
}

var schedPolicies = newStrArray("SCHED_", 0, "NORMAL", "FIFO", "RR", "BATCH", "ISO", "IDLE", "DEADLINE")

var seccompOps = newStrArray("SECCOMP_", 0,
	"SET_MODE_STRICT", "SET_MODE_FILTER", "GET_ACTION_AVAIL", "GET_NOTIF_SIZES",
)

var seccompFlags = newFlagArray("SECCOMP_FILTER_FLAG_", "",
	flagName{0x1, "TSYNC"},
	flagName{0x2, "LOG"},
	flagName{0x4, "SPEC_ALLOW"},
	flagName{0x8, "NEW_LISTENER"},
	flagName{0x10, "TSYNC_ESRCH"},
	flagName{0x20, "WAIT_KILLABLE_RECV"},
)

var kcmpTypes = newStrArray("KCMP_", 0, "FILE", "VM", "FILES", "FS", "SIGHAND", "IO", "SYSVSEM", "EPOLL_TFD")

const kcmpFile = 0

var leaseTypes = newStrArray("F_", 0, "RDLCK", "WRLCK", "UNLCK")

var fileSeals = newFlagArray("F_SEAL_", "",
	flagName{0x1, "SEAL"},
	flagName{0x2, "SHRINK"},
	flagName{0x4, "GROW"},
	flagName{0x8, "WRITE"},
	flagName{0x10, "FUTURE_WRITE"},
	flagName{0x20, "EXEC"},
)

var fsAtFlags = newFlagArray("AT_", "",
	flagName{0x100, "SYMLINK_NOFOLLOW"},
	flagName{0x200, "REMOVEDIR"},
	flagName{0x400, "SYMLINK_FOLLOW"},
	flagName{0x800, "NO_AUTOMOUNT"},
	flagName{0x1000, "EMPTY_PATH"},
	flagName{0x2000, "STATX_FORCE_SYNC"},
	flagName{0x4000, "STATX_DONT_SYNC"},
	flagName{0x8000, "RECURSIVE"},
)

var faccessat2Flags = newFlagArray("AT_", "",
	flagName{0x100, "SYMLINK_NOFOLLOW"},
	flagName{0x200, "EACCESS"},
	flagName{0x1000, "EMPTY_PATH"},
)

var fspickFlags = newFlagArray("FSPICK_", "",
	flagName{0x1, "CLOEXEC"},
	flagName{0x2, "SYMLINK_NOFOLLOW"},
	flagName{0x4, "NO_AUTOMOUNT"},
	flagName{0x8, "EMPTY_PATH"},
)

var moveMountFlags = newFlagArray("MOVE_MOUNT_", "",
	flagName{0x1, "F_SYMLINKS"},
	flagName{0x2, "F_AUTOMOUNTS"},
	flagName{0x4, "F_EMPTY_PATH"},
	flagName{0x10, "T_SYMLINKS"},
	flagName{0x20, "T_AUTOMOUNTS"},
	flagName{0x40, "T_EMPTY_PATH"},
	flagName{0x100, "SET_GROUP"},
	flagName{0x200, "BENEATH"},
)

var fsmountAttrFlags = newFlagArray("MOUNT_ATTR_", "",
	flagName{0x1, "RDONLY"},
	flagName{0x2, "NOSUID"},
	flagName{0x4, "NODEV"},
	flagName{0x8, "NOEXEC"},
	flagName{0x10, "NOATIME"},
	flagName{0x20, "STRICTATIME"},
	flagName{0x80, "NODIRATIME"},
	flagName{0x100000, "IDMAP"},
	flagName{0x200000, "NOSYMFOLLOW"},
)

var renameat2Flags = newFlagArray("RENAME_", "",
	flagName{0x1, "NOREPLACE"},
	flagName{0x2, "EXCHANGE"},
	flagName{0x4, "WHITEOUT"},
)

var syncFileRangeFlags = newFlagArray("SYNC_FILE_RANGE_", "",
	flagName{0x1, "WAIT_BEFORE"},
	flagName{0x2, "WRITE"},
	flagName{0x4, "WAIT_AFTER"},
)

var statxMask = newFlagArray("STATX_", "",
	flagName{0x1, "TYPE"},
	flagName{0x2, "MODE"},
	flagName{0x4, "NLINK"},
	flagName{0x8, "UID"},
	flagName{0x10, "GID"},
	flagName{0x20, "ATIME"},
	flagName{0x40, "MTIME"},
	flagName{0x80, "CTIME"},
	flagName{0x100, "INO"},
	flagName{0x200, "SIZE"},
	flagName{0x400, "BLOCKS"},
	flagName{0x800, "BTIME"},
	flagName{0x1000, "MNT_ID"},
	flagName{0x2000, "DIOALIGN"},
	flagName{0x4000, "MNT_ID_UNIQUE"},
	flagName{0x8000, "SUBVOL"},
)

var eventfdFlags = newFlagArray("EFD_", "",
	flagName{0x1, "SEMAPHORE"},
	flagName{0x800, "NONBLOCK"},
	flagName{0x80000, "CLOEXEC"},
)

var msgFlags = newFlagArray("MSG_", "",
	flagName{0x1, "OOB"},
	flagName{0x2, "PEEK"},
	flagName{0x4, "DONTROUTE"},
	flagName{0x8, "CTRUNC"},
	flagName{0x10, "PROXY"},
	flagName{0x20, "TRUNC"},
	flagName{0x40, "DONTWAIT"},
	flagName{0x80, "EOR"},
	flagName{0x100, "WAITALL"},
	flagName{0x200, "FIN"},
	flagName{0x400, "SYN"},
	flagName{0x800, "CONFIRM"},
	flagName{0x1000, "RST"},
	flagName{0x2000, "ERRQUEUE"},
	flagName{0x4000, "NOSIGNAL"},
	flagName{0x8000, "MORE"},
	flagName{0x10000, "WAITFORONE"},
	flagName{0x40000, "BATCH"},
	flagName{0x4000000, "ZEROCOPY"},
	flagName{0x20000000, "FASTOPEN"},
	flagName{0x40000000, "CMSG_CLOEXEC"},
)

var perfFlags = newFlagArray("PERF_FLAG_", "",
	flagName{0x1, "FD_NO_GROUP"},
	flagName{0x2, "FD_OUTPUT"},
	flagName{0x4, "PID_CGROUP"},
	flagName{0x8, "FD_CLOEXEC"},
)

var pkeyAccessRights = newFlagArray("PKEY_", "",
	flagName{0x1, "DISABLE_ACCESS"},
	flagName{0x2, "DISABLE_WRITE"},
)

var mmapFlags = newFlagArray("MAP_", "",
	flagName{0x1, "SHARED"},
	flagName{0x2, "PRIVATE"},
	flagName{0x10, "FIXED"},
	flagName{0x20, "ANONYMOUS"},
	flagName{0x40, "32BIT"},
	flagName{0x100, "GROWSDOWN"},
	flagName{0x800, "DENYWRITE"},
	flagName{0x1000, "EXECUTABLE"},
	flagName{0x2000, "LOCKED"},
	flagName{0x4000, "NORESERVE"},
	flagName{0x8000, "POPULATE"},
	flagName{0x10000, "NONBLOCK"},
	flagName{0x20000, "STACK"},
	flagName{0x40000, "HUGETLB"},
	flagName{0x80000, "SYNC"},
	flagName{0x100000, "FIXED_NOREPLACE"},
	flagName{0x4000000, "UNINITIALIZED"},
)

var mountFlags = newFlagArray("MS_", "",
	flagName{0x1, "RDONLY"},
	flagName{0x2, "NOSUID"},
	flagName{0x4, "NODEV"},
	flagName{0x8, "NOEXEC"},
	flagName{0x10, "SYNCHRONOUS"},
	flagName{0x20, "REMOUNT"},
	flagName{0x40, "MANDLOCK"},
	flagName{0x80, "DIRSYNC"},
	flagName{0x100, "NOSYMFOLLOW"},
	flagName{0x400, "NOATIME"},
	flagName{0x800, "NODIRATIME"},
	flagName{0x1000, "BIND"},
	flagName{0x2000, "MOVE"},
	flagName{0x4000, "REC"},
	flagName{0x8000, "SILENT"},
	flagName{0x10000, "POSIXACL"},
	flagName{0x20000, "UNBINDABLE"},
	flagName{0x40000, "PRIVATE"},
	flagName{0x80000, "SLAVE"},
	flagName{0x100000, "SHARED"},
	flagName{0x200000, "RELATIME"},
	flagName{0x400000, "KERNMOUNT"},
	flagName{0x800000, "I_VERSION"},
	flagName{0x1000000, "STRICTATIME"},
	flagName{0x2000000, "LAZYTIME"},
	flagName{0x10000000, "SUBMOUNT"},
	flagName{0x20000000, "NOREMOTELOCK"},
	flagName{0x40000000, "NOSEC"},
	flagName{0x80000000, "BORN"},
)

var x86MSRs = StrArrays{
	sparse("MSR_", map[int]string{
		0x0: "IA32_P5_MC_ADDR", 0x1: "IA32_P5_MC_TYPE", 0x10: "IA32_TSC",
		0x17: "IA32_PLATFORM_ID", 0x1b: "IA32_APICBASE", 0x3a: "IA32_FEAT_CTL",
		0x3b: "IA32_TSC_ADJUST", 0x48: "IA32_SPEC_CTRL", 0x49: "IA32_PRED_CMD",
		0x8b: "IA32_UCODE_REV", 0xe7: "IA32_MPERF", 0xe8: "IA32_APERF",
		0x10a: "IA32_ARCH_CAPABILITIES", 0x174: "IA32_SYSENTER_CS",
		0x175: "IA32_SYSENTER_ESP", 0x176: "IA32_SYSENTER_EIP",
		0x199: "IA32_PERF_CTL", 0x1a0: "IA32_MISC_ENABLE", 0x277: "IA32_CR_PAT",
		0x6e0: "IA32_TSC_DEADLINE",
	}),
	newStrArray("MSR_", 0xc0000080, "EFER", "STAR", "LSTAR", "CSTAR", "SYSCALL_MASK"),
	newStrArray("MSR_", 0xc0000100, "FS_BASE", "GS_BASE", "KERNEL_GS_BASE", "TSC_AUX"),
}

var x86IRQVectors = sparse("", map[int]string{
	0x02: "NMI", 0x80: "IA32_SYSCALL", 0xec: "LOCAL_TIMER",
	0xed: "HYPERV_REENLIGHTENMENT", 0xee: "HYPERV_STIMER0",
	0xef: "POSTED_INTR_NESTED", 0xf0: "POSTED_INTR_WAKEUP", 0xf2: "POSTED_INTR",
	0xf3: "HYPERVISOR_CALLBACK", 0xf4: "DEFERRED_ERROR", 0xf6: "IRQ_WORK",
	0xf7: "X86_PLATFORM_IPI", 0xf8: "REBOOT", 0xf9: "THRESHOLD_APIC",
	0xfa: "THERMAL_APIC", 0xfb: "CALL_FUNCTION_SINGLE", 0xfc: "CALL_FUNCTION",
	0xfd: "RESCHEDULE", 0xfe: "ERROR_APIC", 0xff: "SPURIOUS_APIC",
})

func sparse(prefix string, names map[int]string) *StrArray {
	lo, hi := -1, -1

	for v := range names {
		if lo == -1 || v < lo {
			lo = v
		}

		hi = max(hi, v)
	}

	sa := StrArray{Prefix: prefix, Offset: lo, Entries: make([]string, hi-lo+1)}

	for v, name := range names {
		sa.Entries[v-lo] = name
	}

	return &sa
}
