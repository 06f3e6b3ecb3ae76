package procfs

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/tcassar-diss/systrace/trace"
)

// DefaultRoot is where procfs is mounted.
const DefaultRoot = "/proc"

var ErrPMEntryInvalid = errors.New("procmaps line invalid")

var PMRegex = regexp.MustCompile(`^([0-9a-f]+)-([0-9a-f]+)\s[rwxsp-]{4}\s([0-9a-f]+)\s[0-9a-f]+:[0-9a-f]+\s\d+\s*(.*)$`)

type MemMap struct {
	AddrStart uint64
	AddrEnd   uint64
	Offset    uint64
	PathName  string
}

func (m *MemMap) contains(addr uint64) bool {
	return addr >= m.AddrStart && addr < m.AddrEnd
}

// ProcFS reads thread names, fd paths and address spaces from procfs. Address spaces are
// cached per pid.
type ProcFS struct {
	logger *zap.SugaredLogger
	root   string

	mu   sync.Mutex
	maps map[int][]*MemMap
}

// New is configured to read from root, the default mount when root is empty.
func New(logger *zap.SugaredLogger, root string) *ProcFS {
	if root == "" {
		root = DefaultRoot
	}

	return &ProcFS{
		logger: logger,
		root:   root,
		maps:   make(map[int][]*MemMap),
	}
}

func (p *ProcFS) path(pid int, elem ...string) string {
	return filepath.Join(append([]string{p.root, strconv.Itoa(pid)}, elem...)...)
}

// ReadAddrSpace returns the mappings of pid ordered by start address.
//
// ReadAddrSpace will cache: to force a new lookup, use dirty=true.
func (p *ProcFS) ReadAddrSpace(pid int, dirty bool) ([]*MemMap, error) {
	p.mu.Lock()
	maps, ok := p.maps[pid]
	p.mu.Unlock()

	if ok && !dirty {
		return maps, nil
	}

	p.logger.Debugw("reading address space", "pid", pid)

	maps, err := p.readAddrSpace(pid)
	if err != nil {
		return nil, fmt.Errorf("failed to read process %d's address space: %w", pid, err)
	}

	p.mu.Lock()
	p.maps[pid] = maps
	p.mu.Unlock()

	return maps, nil
}

func parseLine(l string) (*MemMap, error) {
	res := PMRegex.FindStringSubmatch(l)
	if len(res) != 5 {
		return nil, fmt.Errorf("%w: regex didn't match 4 expected fields", ErrPMEntryInvalid)
	}

	start, err := strconv.ParseUint(res[1], 16, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse address start %s: %w", res[1], err)
	}

	end, err := strconv.ParseUint(res[2], 16, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse address end %s: %w", res[2], err)
	}

	offset, err := strconv.ParseUint(res[3], 16, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse offset %s: %w", res[3], err)
	}

	return &MemMap{
		AddrStart: start,
		AddrEnd:   end,
		Offset:    offset,
		PathName:  res[4],
	}, nil
}

func (p *ProcFS) readAddrSpace(pid int) ([]*MemMap, error) {
	fp := p.path(pid, "maps")

	f, err := os.Open(fp)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", fp, err)
	}
	defer f.Close()

	var maps []*MemMap

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		l := scanner.Text()
		if l == "" {
			continue
		}

		m, err := parseLine(l)
		if errors.Is(err, ErrPMEntryInvalid) {
			p.logger.Debugw("skipping procmaps line", "pid", pid, "line", l)
			continue
		} else if err != nil {
			return nil, fmt.Errorf("failed to parse procmaps line: %w", err)
		}

		maps = append(maps, m)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", fp, err)
	}

	if len(maps) == 0 {
		p.logger.Warnw("nothing in /proc/pid/maps", "pid", pid)
	}

	sort.Slice(maps, func(i, j int) bool { return maps[i].AddrStart < maps[j].AddrStart })

	return maps, nil
}

func (p *ProcFS) find(pid int, addr uint64) (*MemMap, bool) {
	maps, err := p.ReadAddrSpace(pid, false)
	if err != nil {
		p.logger.Debugw("failed to load memory map", "pid", pid, "err", err)
		return nil, false
	}

	i := sort.Search(len(maps), func(i int) bool { return maps[i].AddrEnd > addr })
	if i == len(maps) || !maps[i].contains(addr) {
		return nil, false
	}

	return maps[i], true
}

// Resolve locates addr in the address space of pid. SymOff is the offset of addr in the
// mapped object; symbols are not read.
func (p *ProcFS) Resolve(pid int, addr uint64) (trace.Location, bool) {
	m, ok := p.find(pid, addr)
	if !ok {
		return trace.Location{}, false
	}

	return trace.Location{
		Dso:      m.PathName,
		SymOff:   addr - m.AddrStart + m.Offset,
		MapStart: m.AddrStart,
	}, true
}

// AssignPC returns the object mapped at pc, or "anonymous" when none is named.
func (p *ProcFS) AssignPC(pid int, pc uint64) string {
	m, ok := p.find(pid, pc)
	if !ok || m.PathName == "" {
		return "anonymous"
	}

	return m.PathName
}
