// Package diff implements the path-keyed set comparison between two
// snapshots: every path in source or target is classified as added,
// removed, modified (with the attributes that changed), or unchanged. It
// indexes both flat entry lists by path and visits the sorted union of their
// paths, rather than recursing through nested directory contents.
package diff

import (
	"encoding/json"
	"sort"

	"github.com/roobie/galdi/pkg/galerr"
	"github.com/roobie/galdi/pkg/snapshot"
)

// ChangeType identifies how a path differs between the source and target
// snapshots.
type ChangeType string

const (
	// ChangeAdded means the path exists only in the target.
	ChangeAdded ChangeType = "added"
	// ChangeRemoved means the path exists only in the source.
	ChangeRemoved ChangeType = "removed"
	// ChangeModified means the path exists in both but at least one
	// attribute differs.
	ChangeModified ChangeType = "modified"
)

// Difference is one record per path that is not unchanged
type Difference struct {
	Path       string
	ChangeType ChangeType
	// Changes is non-nil iff ChangeType == ChangeModified, and is itself
	// sorted.
	Changes []string
	// Source is the source Entry, or nil if ChangeType == ChangeAdded.
	Source *snapshot.Entry
	// Target is the target Entry, or nil if ChangeType == ChangeRemoved.
	Target *snapshot.Entry
}

// Summary holds the per-path classification counts for a Diff.
type Summary struct {
	Added     int
	Removed   int
	Modified  int
	Unchanged int
}

// Diff is the document describing the transition from a source snapshot to
// a target snapshot
type Diff struct {
	Identical   bool
	Summary     Summary
	Differences []Difference
}

// Compute performs a diff operation between source and target and produces
// a Diff. If the two snapshots were built with different checksum
// algorithms, Compute refuses with a *galerr.Error of kind
// AlgorithmMismatch, since comparing checksums produced by
// different algorithms is meaningless.
func Compute(source, target *snapshot.Snapshot) (*Diff, error) {
	if source.ChecksumAlgorithm != target.ChecksumAlgorithm {
		return nil, galerr.New(galerr.KindAlgorithmMismatch, "source and target snapshots use different checksum algorithms")
	}

	sourceIndex := indexByPath(source.Entries)
	targetIndex := indexByPath(target.Entries)

	paths := make(map[string]struct{}, len(source.Entries)+len(target.Entries))
	for p := range sourceIndex {
		paths[p] = struct{}{}
	}
	for p := range targetIndex {
		paths[p] = struct{}{}
	}

	sorted := make([]string, 0, len(paths))
	for p := range paths {
		sorted = append(sorted, p)
	}
	sort.Strings(sorted)

	var differences []Difference
	var summary Summary

	for _, p := range sorted {
		sourceEntry, inSource := sourceIndex[p]
		targetEntry, inTarget := targetIndex[p]

		switch {
		case inTarget && !inSource:
			differences = append(differences, Difference{
				Path: p, ChangeType: ChangeAdded, Target: entryPtr(targetEntry),
			})
			summary.Added++
		case inSource && !inTarget:
			differences = append(differences, Difference{
				Path: p, ChangeType: ChangeRemoved, Source: entryPtr(sourceEntry),
			})
			summary.Removed++
		default:
			changes := targetEntry.ChangesFrom(sourceEntry)
			if len(changes) == 0 {
				summary.Unchanged++
				continue
			}
			differences = append(differences, Difference{
				Path: p, ChangeType: ChangeModified, Changes: changes,
				Source: entryPtr(sourceEntry), Target: entryPtr(targetEntry),
			})
			summary.Modified++
		}
	}

	return &Diff{
		Identical:   len(differences) == 0,
		Summary:     summary,
		Differences: differences,
	}, nil
}

func entryPtr(e snapshot.Entry) *snapshot.Entry {
	return &e
}

func indexByPath(entries []snapshot.Entry) map[string]snapshot.Entry {
	index := make(map[string]snapshot.Entry, len(entries))
	for _, e := range entries {
		index[e.Path] = e
	}
	return index
}

// --- JSON serialization, fixed field order ---

type differenceWire struct {
	Path       string           `json:"path"`
	ChangeType string           `json:"change_type"`
	Changes    []string         `json:"changes,omitempty"`
	Source     *snapshot.Entry  `json:"source"`
	Target     *snapshot.Entry  `json:"target"`
}

func (d Difference) MarshalJSON() ([]byte, error) {
	wire := differenceWire{
		Path:       d.Path,
		ChangeType: string(d.ChangeType),
		Source:     d.Source,
		Target:     d.Target,
	}
	if d.ChangeType == ChangeModified {
		wire.Changes = d.Changes
	}
	return json.Marshal(wire)
}

func (d *Difference) UnmarshalJSON(data []byte) error {
	var wire differenceWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	d.Path = wire.Path
	d.ChangeType = ChangeType(wire.ChangeType)
	d.Changes = wire.Changes
	d.Source = wire.Source
	d.Target = wire.Target
	return nil
}

type summaryWire struct {
	Added     int `json:"added"`
	Removed   int `json:"removed"`
	Modified  int `json:"modified"`
	Unchanged int `json:"unchanged"`
}

type diffWire struct {
	Identical   bool         `json:"identical"`
	Summary     summaryWire  `json:"summary"`
	Differences []Difference `json:"differences"`
}

func (d Diff) MarshalJSON() ([]byte, error) {
	differences := d.Differences
	if differences == nil {
		differences = []Difference{}
	}
	return json.Marshal(diffWire{
		Identical: d.Identical,
		Summary: summaryWire{
			Added: d.Summary.Added, Removed: d.Summary.Removed,
			Modified: d.Summary.Modified, Unchanged: d.Summary.Unchanged,
		},
		Differences: differences,
	})
}

func (d *Diff) UnmarshalJSON(data []byte) error {
	var wire diffWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return galerr.Wrap(galerr.KindSchema, err, "malformed diff JSON")
	}
	d.Identical = wire.Identical
	d.Summary = Summary{
		Added: wire.Summary.Added, Removed: wire.Summary.Removed,
		Modified: wire.Summary.Modified, Unchanged: wire.Summary.Unchanged,
	}
	d.Differences = wire.Differences
	return nil
}
