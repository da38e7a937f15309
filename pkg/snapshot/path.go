package snapshot

import (
	"strings"
)

// PathJoin is a fast alternative to path.Join for root-relative snapshot
// paths: it avoids the cleaning overhead path.Join pays and never produces
// "." for the root. leaf must be non-empty.
func PathJoin(base, leaf string) string {
	if leaf == "" {
		panic("empty leaf name")
	}
	if base == "" {
		return leaf
	}
	return base + "/" + leaf
}

// PathDir returns the parent path of a root-relative snapshot path, without
// the path.Dir cleaning overhead. path must be non-empty (the root has no
// parent).
func PathDir(path string) string {
	if path == "" {
		panic("empty path")
	}
	if i := strings.LastIndexByte(path, '/'); i != -1 {
		return path[:i]
	}
	return ""
}

// ComponentLess orders two root-relative paths by depth-first, per-path-
// component comparison. Snapshot serialization does NOT use this
// comparator (plain byte-lexicographic order is used instead, see pathLess
// below); it is
// exported for the "--human" tree renderer in cmd/galdi, which wants a
// directory's contents grouped with it the way a human reads a file tree.
func ComponentLess(first, second string) bool {
	if first == second {
		return false
	} else if first == "" {
		return true
	} else if second == "" {
		return false
	}

	for {
		firstSlash := strings.IndexByte(first, '/')
		secondSlash := strings.IndexByte(second, '/')

		firstComponent, secondComponent := first, second
		if firstSlash != -1 {
			firstComponent = first[:firstSlash]
		}
		if secondSlash != -1 {
			secondComponent = second[:secondSlash]
		}

		if firstComponent != secondComponent {
			return firstComponent < secondComponent
		}

		if firstSlash == -1 {
			return true
		} else if secondSlash == -1 {
			return false
		}
		first = first[firstSlash+1:]
		second = second[secondSlash+1:]
	}
}

// pathLess is the plain byte-lexicographic comparator used for sorting
// Snapshot.Entries (pkg/diff sorts Diff.Differences into the same order with
// sort.Strings). Go's
// native string "<" operator already compares byte-by-byte, so this exists
// only to give the comparison a name at call sites.
func pathLess(a, b string) bool {
	return a < b
}
