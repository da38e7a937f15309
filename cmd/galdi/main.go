// Command galdi is a thin, non-algorithmic front end over pkg/scan,
// pkg/snapshot, pkg/diff, pkg/plumbah and pkg/serialize: it parses flags,
// calls into those packages, and writes an envelope-wrapped JSON document to
// stdout. Each subcommand binds a package-level configuration struct to
// cobra flags in init, with command sorting and the default help flag
// overridden the same way.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roobie/galdi/internal/logging"
	"github.com/roobie/galdi/pkg/galerr"
	"github.com/roobie/galdi/pkg/plumbah"
)

// toolVersion is the galdi release reported in every envelope's
// meta.tool_version field.
const toolVersion = "0.1.0"

var rootCommand = &cobra.Command{
	Use:   "galdi",
	Short: "galdi takes deterministic, content-addressed snapshots of a directory tree and diffs them",
	Run: func(command *cobra.Command, arguments []string) {
		command.Help()
	},
}

var rootConfiguration struct {
	help bool
}

func init() {
	flags := rootCommand.Flags()
	flags.BoolVarP(&rootConfiguration.help, "help", "h", false, "Show help information")

	cobra.EnableCommandSorting = false

	rootCommand.AddCommand(
		snapshotCommand,
		diffCommand,
	)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		// Subcommands use Run, not RunE, so any error reaching here comes
		// from cobra's own command, flag or argument parsing.
		fail("galdi", galerr.Wrap(galerr.KindUsage, err, "invalid invocation"))
	}
}

// fail writes a status: "error" envelope to stdout, logs a one-line summary
// to stderr, and exits with the code galerr.ExitCode derives from err's Kind.
func fail(tool string, err error) {
	logging.RootLogger.Error(err)

	envelope := plumbah.WrapError(err, plumbah.Meta{
		Tool: tool, ToolVersion: toolVersion, PlumbahLevel: 1,
	}, time.Now())
	if data, marshalErr := json.MarshalIndent(envelope, "", "  "); marshalErr == nil {
		printJSON(data)
	}

	os.Exit(galerr.ExitCode(err))
}

func printJSON(data []byte) {
	fmt.Println(string(data))
}
