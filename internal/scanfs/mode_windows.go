//go:build windows

package scanfs

import (
	"os"
	"syscall"

	"github.com/Microsoft/go-winio"
)

// platformMode projects Windows' readonly/hidden file attributes into an
// octal string of the same shape POSIX callers see, so no downstream
// consumer of Entry.Mode needs a platform branch. A hidden and/or readonly
// file is projected to mode "444" (read-only for everyone) and a hidden
// and/or readonly directory to "555"; a normal file or directory is
// projected to "666"/"777" respectively.
func platformMode(path string, info os.FileInfo) string {
	attrs := windowsAttributes(path, info)

	readOnly := attrs&(syscall.FILE_ATTRIBUTE_READONLY|syscall.FILE_ATTRIBUTE_HIDDEN) != 0

	if info.IsDir() {
		if readOnly {
			return FormatMode(0o555)
		}
		return FormatMode(0o777)
	}

	if readOnly {
		return FormatMode(0o444)
	}
	return FormatMode(0o666)
}

// windowsAttributes opens path to read its basic attribute information via
// github.com/Microsoft/go-winio's winio.GetFileBasicInfo, which exposes
// FileAttributes (readonly/hidden/system/etc.) beyond what os.FileInfo
// surfaces portably. If the file can no longer be opened (it disappeared
// during the scan), the stdlib mode bits are used as a best-effort fallback.
func windowsAttributes(path string, info os.FileInfo) uint32 {
	f, err := os.Open(path)
	if err != nil {
		return fallbackAttributes(info)
	}
	defer f.Close()

	basic, err := winio.GetFileBasicInfo(f)
	if err != nil {
		return fallbackAttributes(info)
	}

	return basic.FileAttributes
}

func fallbackAttributes(info os.FileInfo) uint32 {
	attrs := uint32(0)
	if info.Mode()&0o222 == 0 {
		attrs |= syscall.FILE_ATTRIBUTE_READONLY
	}
	return attrs
}
