package snapshot

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/roobie/galdi/pkg/checksum"
	"github.com/roobie/galdi/pkg/galerr"
)

// SchemaVersion is the current Snapshot schema version.
const SchemaVersion = "1.0"

// Snapshot is the canonicalized, sorted record of a directory subtree at one
// instant. Build is the only supported constructor, since it is the only
// path that can guarantee the invariants EnsureValid checks.
type Snapshot struct {
	Version           string
	Root              string
	ChecksumAlgorithm checksum.Algorithm
	Entries           []Entry
}

// Count returns len(Entries), which must equal the serialized "count" field.
func (s *Snapshot) Count() int {
	return len(s.Entries)
}

type snapshotWire struct {
	Version           string `json:"version"`
	Root              string `json:"root"`
	ChecksumAlgorithm string `json:"checksum_algorithm"`
	Count             int    `json:"count"`
	Entries           []Entry `json:"entries"`
}

// MarshalJSON implements json.Marshaler with a fixed field order: version,
// root, checksum_algorithm, count, entries.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	algText, err := s.ChecksumAlgorithm.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(snapshotWire{
		Version:           s.Version,
		Root:              s.Root,
		ChecksumAlgorithm: string(algText),
		Count:             len(s.Entries),
		Entries:           s.Entries,
	})
}

// UnmarshalJSON implements json.Unmarshaler. Unknown top-level fields are
// ignored for forward compatibility; Count is validated against len(Entries)
// rather than trusted.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var wire snapshotWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return galerr.Wrap(galerr.KindSchema, err, "malformed snapshot JSON")
	}

	var alg checksum.Algorithm
	if err := alg.UnmarshalText([]byte(wire.ChecksumAlgorithm)); err != nil {
		return galerr.Wrap(galerr.KindSchema, err, "invalid checksum_algorithm")
	}

	if wire.Count != len(wire.Entries) {
		return galerr.New(galerr.KindSchema, fmt.Sprintf(
			"count field (%d) does not match number of entries (%d)", wire.Count, len(wire.Entries)))
	}

	s.Version = wire.Version
	s.Root = wire.Root
	s.ChecksumAlgorithm = alg
	s.Entries = wire.Entries
	return nil
}

// Lookup returns the entry for path within Entries via binary search, since
// Entries is guaranteed sorted by Build. ok is false if path is absent.
func (s *Snapshot) Lookup(path string) (Entry, bool) {
	i := sort.Search(len(s.Entries), func(i int) bool {
		return !pathLess(s.Entries[i].Path, path)
	})
	if i < len(s.Entries) && s.Entries[i].Path == path {
		return s.Entries[i], true
	}
	return Entry{}, false
}

// EnsureValid checks every structural invariant a Snapshot must hold,
// returning a *galerr.Error of kind InvariantError describing the first
// violation found.
// This is the same validation Build runs internally; it is exported so
// pkg/serialize can re-validate snapshots read from disk.
func (s *Snapshot) EnsureValid() error {
	if len(s.Entries) == 0 {
		return galerr.New(galerr.KindInvariant, "snapshot has no entries (missing root)")
	}
	if s.Entries[0].Path != "" {
		return galerr.New(galerr.KindInvariant, "first entry is not the root (path != \"\")")
	}
	if s.Entries[0].Type != KindDirectory {
		return galerr.New(galerr.KindInvariant, "root entry is not a directory")
	}

	seen := make(map[string]struct{}, len(s.Entries))
	for i, e := range s.Entries {
		if _, dup := seen[e.Path]; dup {
			return galerr.New(galerr.KindInvariant, fmt.Sprintf("duplicate path: %q", e.Path))
		}
		seen[e.Path] = struct{}{}

		if i > 0 && !pathLess(s.Entries[i-1].Path, e.Path) {
			return galerr.New(galerr.KindInvariant, fmt.Sprintf(
				"entries not sorted ascending: %q before %q", s.Entries[i-1].Path, e.Path))
		}

		if e.Path != "" {
			if _, ok := seen[PathDir(e.Path)]; !ok {
				return galerr.New(galerr.KindInvariant, fmt.Sprintf(
					"parent of %q not present in snapshot", e.Path))
			}
		}

		// A file's checksum is null when the scanner could not read it (an
		// unreadable file still gets recorded, degraded, with a warning - it
		// never aborts the snapshot). Only a non-file carrying a checksum is
		// an invariant violation.
		if e.Checksum != nil && e.Type != KindFile {
			return galerr.New(galerr.KindInvariant, fmt.Sprintf(
				"entry %q: checksum must be null for non-file type %q", e.Path, e.Type))
		}
		if (e.Target != nil) != (e.Type == KindSymlink) {
			return galerr.New(galerr.KindInvariant, fmt.Sprintf(
				"entry %q: target nullness does not match type %q", e.Path, e.Type))
		}
	}

	if s.Count() != len(s.Entries) {
		return galerr.New(galerr.KindInvariant, "count does not match number of entries")
	}

	return nil
}
