package procfs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tcassar-diss/systrace/procfs"
)

const testPid = 2099258

const testMaps = `555555554000-555555580000 r--p 00000000 08:02 1234                       /usr/bin/cat
555555580000-5555555a0000 r-xp 0002c000 08:02 1234                       /usr/bin/cat
7ffff7400000-7ffff7428000 r--p 00000000 08:02 5678                       /usr/lib/x86_64-linux-gnu/libc.so.6
7ffff7fbc000-7ffff7fbd000 rw-p 00000000 00:00 0
not a mapping
7ffffffde000-7ffffffff000 rw-p 00000000 00:00 0                          [stack]
`

func newTestProcFS(t *testing.T) *procfs.ProcFS {
	t.Helper()

	root := t.TempDir()
	dir := filepath.Join(root, "2099258")

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "fd"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "maps"), []byte(testMaps), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "comm"), []byte("cat\n"), 0o644))
	require.NoError(t, os.Symlink("/etc/passwd", filepath.Join(dir, "fd", "3")))

	return procfs.New(zap.NewNop().Sugar(), root)
}

func TestReadAddrSpace(t *testing.T) {
	p := newTestProcFS(t)

	maps, err := p.ReadAddrSpace(testPid, true)
	require.NoError(t, err)
	require.Len(t, maps, 5)

	require.Equal(t, &procfs.MemMap{
		AddrStart: 0x555555580000,
		AddrEnd:   0x5555555a0000,
		Offset:    0x2c000,
		PathName:  "/usr/bin/cat",
	}, maps[1])
	require.Equal(t, "", maps[3].PathName)
	require.Equal(t, "[stack]", maps[4].PathName)

	_, err = p.ReadAddrSpace(1, true)
	require.Error(t, err)
}

func TestResolve(t *testing.T) {
	p := newTestProcFS(t)

	cases := []struct {
		name    string
		addr    uint64
		ok      bool
		dso     string
		symOff  uint64
		mapBase uint64
	}{
		{name: "text", addr: 0x555555581000, ok: true, dso: "/usr/bin/cat", symOff: 0x2d000, mapBase: 0x555555580000},
		{name: "lower bound", addr: 0x7ffff7400000, ok: true, dso: "/usr/lib/x86_64-linux-gnu/libc.so.6", mapBase: 0x7ffff7400000},
		{name: "upper bound is exclusive", addr: 0x7ffff7428000},
		{name: "unmapped", addr: 0x1000},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			loc, ok := p.Resolve(testPid, c.addr)
			require.Equal(t, c.ok, ok)

			if !c.ok {
				return
			}

			require.Equal(t, c.dso, loc.Dso)
			require.Equal(t, c.symOff, loc.SymOff)
			require.Equal(t, c.mapBase, loc.MapStart)
		})
	}
}

func TestAssignPC(t *testing.T) {
	p := newTestProcFS(t)

	require.Equal(t, "/usr/bin/cat", p.AssignPC(testPid, 0x555555554000))
	require.Equal(t, "anonymous", p.AssignPC(testPid, 0x7ffff7fbc800))
	require.Equal(t, "anonymous", p.AssignPC(testPid, 0x10))
}

func TestCommAndFdPath(t *testing.T) {
	p := newTestProcFS(t)

	comm, ok := p.Comm(testPid)
	require.True(t, ok)
	require.Equal(t, "cat", comm)

	_, ok = p.Comm(1)
	require.False(t, ok)

	path, ok := p.FdPath(testPid, 3)
	require.True(t, ok)
	require.Equal(t, "/etc/passwd", path)

	_, ok = p.FdPath(testPid, 4)
	require.False(t, ok)

	_, ok = p.FdPath(testPid, -1)
	require.False(t, ok)
}
