// Package scanfs holds the small platform-specific sliver the scanner needs:
// projecting a stat result into an octal permission-mode string.
package scanfs

import (
	"fmt"
	"os"
)

// FormatMode renders permission bits as the 3- or 4-digit octal string used
// for Entry.Mode, e.g. "664" or "4755". Both the POSIX path (mode_unix.go)
// and the Windows projection path (mode_windows.go) funnel through this so
// downstream consumers always see the same shape.
func FormatMode(bits uint32) string {
	return fmt.Sprintf("%o", bits)
}

// UnreadableDirectoryMode is the mode recorded for a directory entry that the
// scanner could not enter (permission denied, or it disappeared between
// enumeration and stat).
const UnreadableDirectoryMode = "000"

// EntryMode computes the Entry.Mode string for a regular file or directory
// using the platform projection in mode_unix.go / mode_windows.go. path is
// the absolute filesystem path corresponding to info, needed on Windows to
// reopen the file for attribute queries.
func EntryMode(path string, info os.FileInfo) string {
	return platformMode(path, info)
}
