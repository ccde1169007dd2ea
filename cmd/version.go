// =============================================================================
// Photo Sale Ledger - Version Command
// =============================================================================
//
// COMMAND USAGE:
//   photosale version [--short]
//
// OUTPUT:
//   photosale 1.0.0 (go1.24.11, revision 3f2c9e1)
//   Ledger format: 17 columns, ";" separated, UTF-8 with BOM
//   Config file:   config.yaml
//
// The version is set at build time:
//   go build -ldflags "-X 'github.com/ginjaninja78/photo-sale-ledger/cmd.Version=1.0.0'"
//
// =============================================================================

package cmd

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/photo-sale-ledger/internal/record"
)

// Version is the application version.
var Version = "1.0.0"

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the application version and ledger format",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if versionShort {
			fmt.Fprintln(out, Version)
			return
		}

		build := runtime.Version()
		if revision := vcsRevision(); revision != "" {
			build += ", revision " + revision
		}
		fmt.Fprintf(out, "photosale %s (%s)\n", Version, build)
		fmt.Fprintf(out, "Ledger format: %d columns, \";\" separated, UTF-8 with BOM\n", record.ColumnCount)
		fmt.Fprintf(out, "Config file:   %s\n", cfgFile)
	},
}

// vcsRevision returns the short commit the binary was built from, if the
// toolchain recorded one.
func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" && len(setting.Value) >= 7 {
			return setting.Value[:7]
		}
	}
	return ""
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Print the version number only")
	rootCmd.AddCommand(versionCmd)
}
