// Package snapshot defines the canonical, sorted record of a directory
// subtree and the builder that canonicalizes raw scanner output into one.
// It owns the Entry/Snapshot data model; pkg/scan produces raw, unordered
// entries and pkg/diff consumes finished Snapshots, but neither other
// package redefines the shape.
package snapshot

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Kind is the tagged variant identifying what an Entry represents.
type Kind string

const (
	// KindFile is a regular file.
	KindFile Kind = "file"
	// KindDirectory is a directory.
	KindDirectory Kind = "directory"
	// KindSymlink is a symbolic link, recorded without following it.
	KindSymlink Kind = "symlink"
	// KindOther is anything non-portable: sockets, pipes, devices, and any
	// entry whose type could not be determined.
	KindOther Kind = "other"
)

// Entry is one record per filesystem object reachable from a snapshot's
// root. Checksum is nil for every non-file type, and may also be nil for a
// file the scanner couldn't read; Target is non-nil iff Type == KindSymlink.
type Entry struct {
	// Path is the root-relative path using "/" as separator on every
	// platform. The root entry's Path is "".
	Path string
	// Type identifies what kind of filesystem object this entry is.
	Type Kind
	// Size is the byte count: file content length, the platform-reported
	// (opaque) directory size, or the byte length of a symlink's target.
	Size uint64
	// Mode is a 3- or 4-digit octal permission string, always present even
	// for entries the scanner could not fully stat.
	Mode string
	// ModTime is the entry's modification time, UTC, nanosecond precision.
	ModTime time.Time
	// Checksum is "<alg>:<hex>" for a file the scanner could read, nil for
	// every non-file type and for an unreadable file.
	Checksum *string
	// Target is the raw, "/"-normalized symlink target, nil except for
	// symlinks.
	Target *string
}

// entryWire is the exact on-the-wire field order and shape for an Entry.
// Fields are never omitted; null is emitted explicitly for an absent
// checksum or target, which is why Checksum/Target are *string rather
// than string with omitempty.
type entryWire struct {
	Path     string  `json:"path"`
	Type     string  `json:"type"`
	Size     uint64  `json:"size"`
	Mode     string  `json:"mode"`
	MTime    string  `json:"mtime"`
	Checksum *string `json:"checksum"`
	Target   *string `json:"target"`
}

// MarshalJSON implements json.Marshaler with a fixed field order and an
// RFC-3339-nanosecond, "Z"-suffixed timestamp.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(entryWire{
		Path:     e.Path,
		Type:     string(e.Type),
		Size:     e.Size,
		Mode:     e.Mode,
		MTime:    formatTime(e.ModTime),
		Checksum: e.Checksum,
		Target:   e.Target,
	})
}

// UnmarshalJSON implements json.Unmarshaler. It is tolerant of additional
// unknown fields, for forward compatibility, because it decodes
// into entryWire, which only names the fields it cares about.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var wire entryWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	t, err := parseTime(wire.MTime)
	if err != nil {
		return fmt.Errorf("entry %q: invalid mtime: %w", wire.Path, err)
	}

	e.Path = wire.Path
	e.Type = Kind(wire.Type)
	e.Size = wire.Size
	e.Mode = wire.Mode
	e.ModTime = t
	e.Checksum = wire.Checksum
	e.Target = wire.Target
	return nil
}

// Equal reports whether two entries carry identical attribute values (every
// field except Path, which is not compared). It reports the same thing as an
// empty ChangesFrom, the basis for diff's unchanged/modified classification.
func (e Entry) Equal(other Entry) bool {
	return len(e.ChangesFrom(other)) == 0
}

// ChangesFrom returns the sorted list of attribute names (drawn from
// {type, size, mode, mtime, content, target}) on which e differs from
// other. An empty result means the two entries are equivalent.
// pkg/diff uses this directly to classify modified entries.
func (e Entry) ChangesFrom(other Entry) []string {
	var changes []string

	if e.Type != other.Type {
		changes = append(changes, "type")
	}
	if e.Size != other.Size {
		changes = append(changes, "size")
	}
	if e.Mode != other.Mode {
		changes = append(changes, "mode")
	}
	if !e.ModTime.Equal(other.ModTime) {
		changes = append(changes, "mtime")
	}
	if !checksumEqual(e.Checksum, other.Checksum) {
		changes = append(changes, "content")
	}
	if !stringPtrEqual(e.Target, other.Target) {
		changes = append(changes, "target")
	}

	sort.Strings(changes)
	return changes
}

func checksumEqual(a, b *string) bool {
	return stringPtrEqual(a, b)
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// formatTime renders t as an RFC-3339/ISO-8601 UTC, nanosecond-precision,
// "Z"-suffixed timestamp.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z")
}

// parseTime parses the timestamp format formatTime produces. It is lenient
// about sub-second precision (RFC3339Nano) so documents produced before a
// precision change still round-trip.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
