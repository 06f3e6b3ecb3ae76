package procfs

import (
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// Comm returns the name of thread pid.
func (p *ProcFS) Comm(pid int) (string, bool) {
	b, err := os.ReadFile(p.path(pid, "comm"))
	if err != nil {
		return "", false
	}

	comm := strings.TrimRight(string(b), "\n")
	if comm == "" {
		return "", false
	}

	return comm, true
}

// FdPath reads the link target of fd in pid's fd table.
func (p *ProcFS) FdPath(pid, fd int) (string, bool) {
	if pid <= 0 || fd < 0 {
		return "", false
	}

	buf := make([]byte, unix.PathMax)

	n, err := unix.Readlink(p.path(pid, "fd", strconv.Itoa(fd)), buf)
	if err != nil {
		p.logger.Debugw("failed to read fd link", "pid", pid, "fd", fd, "err", err)
		return "", false
	}

	return string(buf[:n]), true
}
