package argfmt

import (
	"fmt"
	"strings"
)

// Generic _IOC layout: nr:8 type:8 size:14 dir:2.
const (
	iocNrShift   = 0
	iocTypeShift = 8
	iocSizeShift = 16
	iocDirShift  = 30

	iocNone  = 0
	iocWrite = 1
	iocRead  = 2
)

var ttyIoctls = ioctlRuns(
	ioctlRun{0x01, []string{
		"TCGETS", "TCSETS", "TCSETSW", "TCSETSF", "TCGETA", "TCSETA", "TCSETAW",
		"TCSETAF", "TCSBRK", "TCXONC", "TCFLSH", "TIOCEXCL", "TIOCNXCL", "TIOCSCTTY",
		"TIOCGPGRP", "TIOCSPGRP", "TIOCOUTQ", "TIOCSTI", "TIOCGWINSZ", "TIOCSWINSZ",
		"TIOCMGET", "TIOCMBIS", "TIOCMBIC", "TIOCMSET", "TIOCGSOFTCAR", "TIOCSSOFTCAR",
		"FIONREAD", "TIOCLINUX", "TIOCCONS", "TIOCGSERIAL", "TIOCSSERIAL", "TIOCPKT",
		"FIONBIO", "TIOCNOTTY", "TIOCSETD", "TIOCGETD", "TCSBRKP",
	}},
	ioctlRun{0x27, []string{
		"TIOCSBRK", "TIOCCBRK", "TIOCGSID", "TCGETS2", "TCSETS2", "TCSETSW2",
		"TCSETSF2", "TIOCGRS485", "TIOCSRS485", "TIOCGPTN", "TIOCSPTLCK", "TIOCGDEV",
		"TCSETX", "TCSETXF", "TCSETXW", "TIOCSIG", "TIOCVHANGUP", "TIOCGPKT",
		"TIOCGPTLCK",
	}},
	ioctlRun{0x40, []string{"TIOCGEXCL", "TIOCGPTPEER", "TIOCGISO7816", "TIOCSISO7816"}},
	ioctlRun{0x50, []string{
		"FIONCLEX", "FIOCLEX", "FIOASYNC", "TIOCSERCONFIG", "TIOCSERGWILD",
		"TIOCSERSWILD", "TIOCGLCKTRMIOS", "TIOCSLCKTRMIOS", "TIOCSERGSTRUCT",
		"TIOCSERGETLSR", "TIOCSERGETMULTI", "TIOCSERSETMULTI", "TIOCMIWAIT",
		"TIOCGICOUNT",
	}},
)

type ioctlRun struct {
	start int
	names []string
}

func ioctlRuns(runs ...ioctlRun) *StrArray {
	names := make(map[int]string)

	for _, r := range runs {
		for i, n := range r.names {
			names[r.start+i] = n
		}
	}

	return sparse("", names)
}

func formatIoctlCmd(cmd uint64, showPrefix bool) string {
	dir := int(cmd>>iocDirShift) & 0x3
	typ := int(cmd>>iocTypeShift) & 0xff
	nr := int(cmd>>iocNrShift) & 0xff
	size := int(cmd>>iocSizeShift) & 0x3fff

	if typ == 'T' {
		if name, ok := ttyIoctls.entry(nr); ok {
			return name
		}

		return fmt.Sprintf("(%s, %s, %s)", hex('T'), hex(uint64(nr)), hex(uint64(dir)))
	}

	var b strings.Builder

	b.WriteByte('(')

	prefix := ""
	if showPrefix {
		prefix = "_IOC_"
	}

	if dir == iocNone {
		b.WriteString(prefix + "NONE")
	} else {
		if dir&iocRead != 0 {
			b.WriteString(prefix + "READ")
		}

		if dir&iocWrite != 0 {
			if dir&iocRead != 0 {
				b.WriteByte('|')
			}

			b.WriteString(prefix + "WRITE")
		}
	}

	fmt.Fprintf(&b, ", %s, %s, %s)", hex(uint64(typ)), hex(uint64(nr)), hex(uint64(size)))

	return b.String()
}
