package snapshot

import (
	"sort"

	"github.com/roobie/galdi/pkg/checksum"
)

// Build canonicalizes a scanner's raw, unordered entries into a valid
// Snapshot: it adds the caller-supplied root entry, sorts everything by path under
// byte-lexicographic comparison, and verifies every structural invariant.
// raw must contain one entry per non-root filesystem object the scanner
// found; it must NOT already contain a root entry (root is described
// separately via rootEntry so that even an inaccessible root still produces
// some entry).
//
// On invariant violation, Build fails with a *galerr.Error of kind
// InvariantError: this is treated as a bug indicator, never a recoverable
// condition, since it means the scanner produced inconsistent
// output.
func Build(root string, alg checksum.Algorithm, rootEntry Entry, raw []Entry) (*Snapshot, error) {
	entries := make([]Entry, 0, len(raw)+1)
	entries = append(entries, rootEntry)
	entries = append(entries, raw...)

	sort.Slice(entries, func(i, j int) bool {
		return pathLess(entries[i].Path, entries[j].Path)
	})

	snap := &Snapshot{
		Version:           SchemaVersion,
		Root:              root,
		ChecksumAlgorithm: alg,
		Entries:           entries,
	}

	if err := snap.EnsureValid(); err != nil {
		return nil, err
	}

	return snap, nil
}
