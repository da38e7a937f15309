// Package serialize is the only place galdi touches a filesystem path for
// reading or writing a Snapshot or Diff document. It owns canonical JSON
// encoding (2-space indent, UTF-8, no BOM) and atomic file writes: a
// temp-file-then-rename sequence, with the temporary name suffixed by a
// google/uuid value so temp names never collide with a concurrent galdi
// invocation writing into the same directory.
package serialize

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/roobie/galdi/pkg/diff"
	"github.com/roobie/galdi/pkg/galerr"
	"github.com/roobie/galdi/pkg/snapshot"
)

// filePermissions is the mode used for every snapshot/diff document galdi
// writes. Documents are data, not secrets, so group/other read access is
// fine; only the owner may write.
const filePermissions = 0o644

// WriteSnapshot canonically encodes snap and atomically writes it to path.
func WriteSnapshot(path string, snap *snapshot.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return galerr.Wrap(galerr.KindSchema, err, "unable to encode snapshot").WithPath(path)
	}
	return writeFileAtomic(path, append(data, '\n'))
}

// ReadSnapshot reads and decodes a Snapshot document from path, validating
// its invariants before returning it.
func ReadSnapshot(path string) (*snapshot.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, galerr.Wrap(galerr.KindIO, err, "unable to read snapshot").WithPath(path)
	}
	var snap snapshot.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		if gerr, ok := asGalErr(err); ok {
			return nil, gerr.WithPath(path)
		}
		return nil, galerr.Wrap(galerr.KindSchema, err, "malformed snapshot document").WithPath(path)
	}
	if err := snap.EnsureValid(); err != nil {
		if gerr, ok := asGalErr(err); ok {
			return nil, gerr.WithPath(path)
		}
		return nil, galerr.Wrap(galerr.KindInvariant, err, "invalid snapshot").WithPath(path)
	}
	return &snap, nil
}

// WriteDiff canonically encodes d and atomically writes it to path.
func WriteDiff(path string, d *diff.Diff) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return galerr.Wrap(galerr.KindSchema, err, "unable to encode diff").WithPath(path)
	}
	return writeFileAtomic(path, append(data, '\n'))
}

// ReadDiff reads and decodes a Diff document from path.
func ReadDiff(path string) (*diff.Diff, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, galerr.Wrap(galerr.KindIO, err, "unable to read diff").WithPath(path)
	}
	var d diff.Diff
	if err := json.Unmarshal(data, &d); err != nil {
		if gerr, ok := asGalErr(err); ok {
			return nil, gerr.WithPath(path)
		}
		return nil, galerr.Wrap(galerr.KindSchema, err, "malformed diff document").WithPath(path)
	}
	return &d, nil
}

// writeFileAtomic writes data to a uuid-suffixed temporary file in path's
// directory, then renames it into place, so a reader never observes a
// partially written document at path.
func writeFileAtomic(path string, data []byte) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	temp := filepath.Join(dir, base+"."+uuid.NewString()+".tmp")

	f, err := os.OpenFile(temp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePermissions)
	if err != nil {
		return galerr.Wrap(galerr.KindIO, err, "unable to create temporary file").WithPath(path)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(temp)
		return galerr.Wrap(galerr.KindIO, err, "unable to write temporary file").WithPath(path)
	}
	if err := f.Close(); err != nil {
		os.Remove(temp)
		return galerr.Wrap(galerr.KindIO, err, "unable to close temporary file").WithPath(path)
	}
	if err := os.Rename(temp, path); err != nil {
		os.Remove(temp)
		return galerr.Wrap(galerr.KindIO, err, "unable to rename temporary file into place").WithPath(path)
	}
	return nil
}

func asGalErr(err error) (*galerr.Error, bool) {
	var gerr *galerr.Error
	if galerr.As(err, &gerr) {
		return gerr, true
	}
	return nil, false
}
