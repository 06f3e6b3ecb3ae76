// maps prints the address space of a process the way the location resolver sees it, and
// optionally resolves addresses against it.
//
//	maps <pid> [addr...]
package main

import (
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/tcassar-diss/systrace/procfs"
)

func main() {
	prodLog, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}

	logger := prodLog.Sugar()

	if len(os.Args) < 2 {
		logger.Fatalw("usage: maps <pid> [addr...]")
	}

	pid, err := strconv.Atoi(os.Args[1])
	if err != nil {
		logger.Fatalw("failed to parse pid", "pid", os.Args[1], "err", err)
	}

	pfs := procfs.New(logger, procfs.DefaultRoot)

	comm, _ := pfs.Comm(pid)
	logger.Infow("getting address space", "pid", pid, "comm", comm)

	mmap, err := pfs.ReadAddrSpace(pid, true)
	if err != nil {
		logger.Fatalw("failed to parse proc maps", "pid", pid, "err", err)
	}

	for _, m := range mmap {
		fmt.Printf("%016x-%016x %8x %s\n", m.AddrStart, m.AddrEnd, m.Offset, m.PathName)
	}

	for _, arg := range os.Args[2:] {
		addr, err := strconv.ParseUint(arg, 0, 64)
		if err != nil {
			logger.Fatalw("failed to parse address", "addr", arg, "err", err)
		}

		loc, ok := pfs.Resolve(pid, addr)
		if !ok {
			fmt.Printf("%#x: unmapped\n", addr)
			continue
		}

		fmt.Printf("%#x: %s+%#x (map %#x)\n", addr, pfs.AssignPC(pid, addr), loc.SymOff, loc.MapStart)
	}
}
