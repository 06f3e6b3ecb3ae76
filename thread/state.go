package thread

import (
	"github.com/tcassar-diss/systrace/argfmt"
	"github.com/tcassar-diss/systrace/stats"
)

// EntrySize caps the pending "name(args" text of a thread. Longer entries are truncated.
const EntrySize = 2048

// FilenameCapture tracks the pathname of an open-like call until its exit binds it to the
// returned fd.
type FilenameCapture struct {
	// Pos is where vfs_getname should splice the name into the entry, -1 when unset.
	Pos         int
	PendingOpen bool
	Name        string

	capturing bool
	captured  bool
}

// State is the trace state of one thread.
type State struct {
	Tid  int
	Pid  int
	Comm string

	EntryTime    uint64
	EntryPending bool
	entry        []byte

	NrEvents  uint64
	PfMaj     uint64
	PfMin     uint64
	RuntimeMs float64

	// RetFmt overrides how the next return value is printed.
	RetFmt *argfmt.Fmt

	Filename FilenameCapture

	files map[int]string
	Stats map[int]*stats.Syscall

	registry *Registry
}

func newState(r *Registry, tid, pid int, comm string) *State {
	return &State{
		Tid:      tid,
		Pid:      pid,
		Comm:     comm,
		entry:    make([]byte, 0, EntrySize),
		Filename: FilenameCapture{Pos: -1},
		files:    make(map[int]string),
		registry: r,
	}
}

// BeginEntry resets the entry buffer for a new sys_enter. Filenames captured while the
// arguments are formatted are kept only for open-like calls.
func (s *State) BeginEntry(isOpen bool) {
	s.entry = s.entry[:0]
	s.RetFmt = nil
	s.Filename.Pos = -1
	s.Filename.capturing = isOpen
	s.Filename.captured = false
}

// WriteEntry appends text to the entry, dropping whatever does not fit.
func (s *State) WriteEntry(text string) {
	room := EntrySize - len(s.entry)
	if room <= 0 {
		return
	}

	if len(text) > room {
		text = text[:room]
	}

	s.entry = append(s.entry, text...)
}

func (s *State) Entry() string {
	return string(s.entry)
}

func (s *State) EntryLen() int {
	return len(s.entry)
}

// MarkFilenamePos records the current entry length as the splice point for vfs_getname.
func (s *State) MarkFilenamePos() {
	s.Filename.Pos = len(s.entry)
}

// Pend leaves the thread waiting for sys_exit. A pending open is cleared unless the
// entry itself just captured the filename.
func (s *State) Pend() {
	s.EntryPending = true

	if !s.Filename.captured {
		s.Filename.PendingOpen = false
	}

	s.Filename.capturing = false
}

// Done returns the thread to idle after sys_exit.
func (s *State) Done() {
	s.EntryPending = false
	s.Filename.Pos = -1
	s.Filename.PendingOpen = false
	s.Filename.captured = false
	s.Filename.capturing = false
}

// SetPathname handles a vfs_getname name: it becomes the pending open and is spliced into
// the entry when the filename formatter left a position.
func (s *State) SetPathname(name string) {
	if name == "" {
		return
	}

	s.Filename.Name = name
	s.Filename.PendingOpen = true

	pos := s.Filename.Pos
	if pos < 0 || pos > len(s.entry) {
		return
	}

	s.Filename.Pos = -1

	room := EntrySize - len(s.entry)
	if room <= 0 {
		return
	}

	if len(name) > room {
		name = name[len(name)-room:]
	}

	tail := append([]byte(nil), s.entry[pos:]...)
	s.entry = append(append(s.entry[:pos], name...), tail...)
}

// BindPendingOpen stores the captured name as the path of fd, returning whether it did.
func (s *State) BindPendingOpen(fd int) bool {
	if !s.Filename.PendingOpen || s.Filename.Name == "" || fd < 0 {
		return false
	}

	s.files[fd] = s.Filename.Name

	return true
}

// SyscallStats returns the stats of syscall id, creating them on first use.
func (s *State) SyscallStats(id int) *stats.Syscall {
	if s.Stats == nil {
		s.Stats = make(map[int]*stats.Syscall)
	}

	st, ok := s.Stats[id]
	if !ok {
		st = stats.NewSyscall()
		s.Stats[id] = st
	}

	return st
}

// FdPath returns the path of fd, asking the registry's resolver when it is not known.
func (s *State) FdPath(fd int) (string, bool) {
	if path, ok := s.files[fd]; ok {
		return path, true
	}

	if s.registry == nil || s.registry.fds == nil {
		return "", false
	}

	path, ok := s.registry.fds.FdPath(s.Pid, fd)
	if !ok {
		return "", false
	}

	s.registry.procGetname++
	s.files[fd] = path

	return path, true
}

func (s *State) ForgetFd(fd int) {
	delete(s.files, fd)
}

func (s *State) CaptureFilename(name string) {
	if !s.Filename.capturing || name == "" {
		return
	}

	s.Filename.Name = name
	s.Filename.PendingOpen = true
	s.Filename.captured = true
}

// SetFdPath records path for fd, replacing any previous entry.
func (s *State) SetFdPath(fd int, path string) {
	s.files[fd] = path
}

// NrFiles is the number of fds with a known path.
func (s *State) NrFiles() int {
	return len(s.files)
}
