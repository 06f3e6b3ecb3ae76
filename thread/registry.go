package thread

import (
	"fmt"
	"sort"

	"github.com/tcassar-diss/systrace/argfmt"
)

// FdResolver finds the path of an fd opened before tracing started.
type FdResolver interface {
	FdPath(pid, fd int) (string, bool)
}

// Registry owns the State of every thread seen so far.
type Registry struct {
	threads map[int]*State

	procs argfmt.Procs
	fds   FdResolver

	procGetname uint64
}

// NewRegistry creates an empty registry. procs and fds may be nil.
func NewRegistry(procs argfmt.Procs, fds FdResolver) *Registry {
	return &Registry{
		threads: make(map[int]*State),
		procs:   procs,
		fds:     fds,
	}
}

// Get returns the state of tid, creating it on first sight.
func (r *Registry) Get(pid, tid int) *State {
	if s, ok := r.threads[tid]; ok {
		if s.Pid == 0 && pid != 0 {
			s.Pid = pid
		}

		return s
	}

	s := newState(r, tid, pid, r.comm(tid))
	r.threads[tid] = s

	return s
}

// Lookup returns the state of tid if it was seen.
func (r *Registry) Lookup(tid int) (*State, bool) {
	s, ok := r.threads[tid]
	return s, ok
}

func (r *Registry) comm(tid int) string {
	if r.procs != nil {
		if comm, ok := r.procs.Comm(tid); ok {
			return comm
		}
	}

	return fmt.Sprintf(":%d", tid)
}

// Comm resolves the name of pid, through known threads first.
func (r *Registry) Comm(pid int) (string, bool) {
	if s, ok := r.threads[pid]; ok {
		return s.Comm, true
	}

	if r.procs != nil {
		return r.procs.Comm(pid)
	}

	return "", false
}

// Threads returns every thread ordered by tid.
func (r *Registry) Threads() []*State {
	threads := make([]*State, 0, len(r.threads))
	for _, s := range r.threads {
		threads = append(threads, s)
	}

	sort.Slice(threads, func(i, j int) bool { return threads[i].Tid < threads[j].Tid })

	return threads
}

func (r *Registry) Len() int {
	return len(r.threads)
}

// ProcGetname counts the fd paths read from the resolver.
func (r *Registry) ProcGetname() uint64 {
	return r.procGetname
}
