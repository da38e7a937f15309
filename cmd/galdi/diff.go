package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roobie/galdi/pkg/diff"
	"github.com/roobie/galdi/pkg/galerr"
	"github.com/roobie/galdi/pkg/plumbah"
	"github.com/roobie/galdi/pkg/serialize"
	"github.com/roobie/galdi/pkg/snapshot"
)

func diffMain(command *cobra.Command, arguments []string) error {
	if len(arguments) != 2 {
		return galerr.New(galerr.KindUsage, "diff requires exactly two snapshot JSON file arguments")
	}
	sourcePath, targetPath := arguments[0], arguments[1]

	start := time.Now()

	source, err := serialize.ReadSnapshot(sourcePath)
	if err != nil {
		return err
	}
	target, err := serialize.ReadSnapshot(targetPath)
	if err != nil {
		return err
	}

	result, err := diff.Compute(source, target)
	if err != nil {
		return err
	}

	if diffConfiguration.human {
		printHumanSummary(result)
		return nil
	}

	envelope := plumbah.Wrap(result, plumbah.Meta{
		Idempotent:    true,
		Mutates:       false,
		Safe:          true,
		Deterministic: true,
		PlumbahLevel:  1,
		Tool:          "galdi-diff",
		ToolVersion:   toolVersion,
	}, start)

	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return galerr.Wrap(galerr.KindSchema, err, "unable to encode envelope")
	}
	printJSON(data)
	return nil
}

// printHumanSummary renders the short, explicitly non-algorithmic tree/
// summary view for interactive use: byte counts go through
// dustin/go-humanize, and paths are ordered with snapshot.ComponentLess so a
// directory's entries stay grouped with it rather than interleaving with
// lexicographic siblings.
func printHumanSummary(result *diff.Diff) {
	if result.Identical {
		fmt.Println("identical")
		return
	}
	fmt.Printf("added: %d, removed: %d, modified: %d, unchanged: %d\n",
		result.Summary.Added, result.Summary.Removed, result.Summary.Modified, result.Summary.Unchanged)

	differences := make([]diff.Difference, len(result.Differences))
	copy(differences, result.Differences)
	sortDifferencesForDisplay(differences)

	for _, d := range differences {
		switch d.ChangeType {
		case diff.ChangeAdded:
			fmt.Printf("  + %s (%s)\n", d.Path, humanize.Bytes(d.Target.Size))
		case diff.ChangeRemoved:
			fmt.Printf("  - %s (%s)\n", d.Path, humanize.Bytes(d.Source.Size))
		case diff.ChangeModified:
			fmt.Printf("  ~ %s [%s]\n", d.Path, joinChanges(d.Changes))
		}
	}
}

// sortDifferencesForDisplay reorders differences using
// snapshot.ComponentLess, so a directory's own difference line stays
// adjacent to its children's rather than interleaving with unrelated
// lexicographic siblings the way the plain byte-lexicographic JSON order
// would.
func sortDifferencesForDisplay(differences []diff.Difference) {
	sort.Slice(differences, func(i, j int) bool {
		return snapshot.ComponentLess(differences[i].Path, differences[j].Path)
	})
}

func joinChanges(changes []string) string {
	out := ""
	for i, c := range changes {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}

var diffCommand = &cobra.Command{
	Use:   "diff <source-snapshot.json> <target-snapshot.json>",
	Short: "Compute the set-algebraic diff between two saved snapshots",
	Run: func(command *cobra.Command, arguments []string) {
		if err := diffMain(command, arguments); err != nil {
			fail("galdi-diff", err)
		}
	},
}

var diffConfiguration struct {
	human bool
}

func init() {
	flags := diffCommand.Flags()
	flags.SortFlags = false
	flags.BoolVar(&diffConfiguration.human, "human", false, "Print a human-readable summary instead of envelope-wrapped JSON")
}
