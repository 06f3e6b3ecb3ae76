package argfmt

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"strings"

	"golang.org/x/sys/unix"
)

func formatSockaddr(arg *Arg) string {
	chunk, ok := arg.Aug.Next()
	if !ok || len(chunk) < 2 {
		return hex(arg.Val)
	}

	family := binary.LittleEndian.Uint16(chunk[0:2])

	var b strings.Builder

	b.WriteString("{ .family: ")
	b.WriteString(socketFamilies.Format(int(family), "%d", arg.ShowPrefix))

	switch family {
	case unix.AF_INET:
		if len(chunk) >= 8 {
			addr := netip.AddrFrom4([4]byte(chunk[4:8]))
			fmt.Fprintf(&b, ", port: %d, addr: %s", binary.BigEndian.Uint16(chunk[2:4]), addr)
		}
	case unix.AF_INET6:
		if len(chunk) >= 24 {
			addr := netip.AddrFrom16([16]byte(chunk[8:24]))
			fmt.Fprintf(&b, ", port: %d, addr: %s", binary.BigEndian.Uint16(chunk[2:4]), addr)

			if flowinfo := binary.BigEndian.Uint32(chunk[4:8]); flowinfo != 0 {
				fmt.Fprintf(&b, ", flowinfo: %d", flowinfo)
			}

			if len(chunk) >= 28 {
				if scope := binary.LittleEndian.Uint32(chunk[24:28]); scope != 0 {
					fmt.Fprintf(&b, ", scope_id: %d", scope)
				}
			}
		}
	case unix.AF_LOCAL:
		fmt.Fprintf(&b, ", path: %s", cstring(chunk[2:]))
	}

	b.WriteString(" }")

	return b.String()
}

func formatTimespec(arg *Arg) string {
	chunk, ok := arg.Aug.Next()
	if !ok || len(chunk) < 16 {
		return hex(arg.Val)
	}

	return fmt.Sprintf("{ .tv_sec: %d, .tv_nsec: %d }",
		binary.LittleEndian.Uint64(chunk[0:8]), binary.LittleEndian.Uint64(chunk[8:16]))
}
