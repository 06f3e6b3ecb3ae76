package argfmt

import (
	"strconv"
	"unicode"
	"unicode/utf8"

	"golang.org/x/sys/unix"
)

// ErrnoName returns the symbolic name of errno, such as ENOENT.
func ErrnoName(errno int) string {
	if name := unix.ErrnoName(unix.Errno(errno)); name != "" {
		return name
	}

	return "E" + strconv.Itoa(errno)
}

// Strerror returns the message for errno the way libc prints it.
func Strerror(errno int) string {
	msg := unix.Errno(errno).Error()

	r, n := utf8.DecodeRuneInString(msg)
	if r == utf8.RuneError {
		return msg
	}

	return string(unicode.ToUpper(r)) + msg[n:]
}

// ErrnoByName is the inverse of ErrnoName.
func ErrnoByName(name string) (int, bool) {
	for e := 1; e < 4096; e++ {
		if unix.ErrnoName(unix.Errno(e)) == name {
			return e, true
		}
	}

	return 0, false
}
