package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/roobie/galdi/internal/scanfs"
	"github.com/roobie/galdi/pkg/checksum"
	"github.com/roobie/galdi/pkg/galerr"
	"github.com/roobie/galdi/pkg/plumbah"
	"github.com/roobie/galdi/pkg/scan"
	"github.com/roobie/galdi/pkg/snapshot"
)

func snapshotMain(command *cobra.Command, arguments []string) error {
	if len(arguments) != 1 {
		return galerr.New(galerr.KindUsage, "snapshot requires exactly one root path argument")
	}
	root := arguments[0]

	algorithm, err := checksum.ParseAlgorithm(snapshotConfiguration.checksum)
	if err != nil {
		return galerr.Wrap(galerr.KindUsage, err, "invalid --checksum value")
	}

	parallelism := snapshotConfiguration.parallelism
	if parallelism <= 0 {
		parallelism = parallelismFromEnvironment()
	}

	var maxDepth *int
	if snapshotConfiguration.maxDepth >= 0 {
		maxDepth = &snapshotConfiguration.maxDepth
	}

	start := time.Now()

	rootInfo, err := os.Lstat(root)
	if err != nil {
		return galerr.Wrap(galerr.KindIO, err, "unable to stat snapshot root").WithPath(root)
	}

	result, err := scan.Scan(context.Background(), scan.Options{
		Root: root, Algorithm: algorithm, MaxDepth: maxDepth, Parallelism: parallelism,
	})
	if err != nil {
		return err
	}

	rootEntry := snapshot.Entry{
		Path: "", Type: snapshot.KindDirectory,
		Mode:    scanfs.EntryMode(root, rootInfo),
		ModTime: rootInfo.ModTime().UTC(),
	}

	snap, err := snapshot.Build(root, algorithm, rootEntry, result.Entries)
	if err != nil {
		return err
	}

	payloadBytes, err := withWarnings(snap, result.Warnings)
	if err != nil {
		return galerr.Wrap(galerr.KindSchema, err, "unable to encode snapshot payload")
	}

	envelope := plumbah.Wrap(json.RawMessage(payloadBytes), plumbah.Meta{
		Idempotent:    false,
		Mutates:       false,
		Safe:          true,
		Deterministic: false,
		PlumbahLevel:  1,
		Tool:          "galdi-snapshot",
		ToolVersion:   toolVersion,
	}, start)

	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return galerr.Wrap(galerr.KindSchema, err, "unable to encode envelope")
	}
	printJSON(data)
	return nil
}

var snapshotCommand = &cobra.Command{
	Use:   "snapshot <root>",
	Short: "Take a content-addressed snapshot of a directory tree",
	Run: func(command *cobra.Command, arguments []string) {
		if err := snapshotMain(command, arguments); err != nil {
			fail("galdi-snapshot", err)
		}
	},
}

var snapshotConfiguration struct {
	checksum    string
	maxDepth    int
	parallelism int
}

// checksumFlag is a pflag.Value that only accepts the algorithm names
// checksum.ParseAlgorithm recognizes, so an invalid --checksum is rejected by
// cobra's own flag parsing instead of surfacing later as a generic usage
// error out of snapshotMain.
type checksumFlag struct{ value *string }

var _ pflag.Value = checksumFlag{}

func (f checksumFlag) String() string { return *f.value }

func (f checksumFlag) Set(value string) error {
	if _, err := checksum.ParseAlgorithm(value); err != nil {
		return err
	}
	*f.value = value
	return nil
}

func (f checksumFlag) Type() string { return "algorithm" }

func init() {
	flags := snapshotCommand.Flags()
	flags.SortFlags = false
	snapshotConfiguration.checksum = "xxh3_64"
	flags.VarP(checksumFlag{&snapshotConfiguration.checksum}, "checksum", "", "Checksum algorithm: xxh3_64, blake3, or sha256")
	flags.IntVar(&snapshotConfiguration.maxDepth, "max-depth", -1, "Maximum directory depth to descend into (default: unlimited)")
	flags.IntVar(&snapshotConfiguration.parallelism, "parallelism", 0, "Number of scan workers (default: GALDI_PARALLELISM, then logical CPU count)")
}

// parallelismFromEnvironment honors GALDI_PARALLELISM when --parallelism
// was not explicitly set.
func parallelismFromEnvironment() int {
	value := os.Getenv("GALDI_PARALLELISM")
	if value == "" {
		return 0
	}
	var n int
	if _, err := fmt.Sscanf(value, "%d", &n); err != nil || n <= 0 {
		return 0
	}
	return n
}
