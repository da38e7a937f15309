//go:build !windows

package scanfs

import (
	"os"

	"golang.org/x/sys/unix"
)

// platformMode extracts the full POSIX permission mode, including the
// setuid/setgid/sticky bits that os.FileInfo.Mode().Perm() discards, so that
// a four-digit octal string (e.g. "4755") can be produced when those bits are
// set. os.Lstat already gave us everything needed for the common case, but
// reaching into the raw stat result via golang.org/x/sys/unix is the only way
// to recover the special bits portably across POSIX platforms.
func platformMode(path string, info os.FileInfo) string {
	sys, ok := info.Sys().(*unix.Stat_t)
	if !ok {
		// Fall back to the portable projection if the platform's os package
		// didn't give us a raw stat result (shouldn't happen on any unix
		// GOOS, but this keeps EntryMode total).
		return FormatMode(uint32(info.Mode().Perm()))
	}

	bits := uint32(sys.Mode) & 0o7777
	return FormatMode(bits)
}
