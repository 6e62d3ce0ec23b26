package cli

import (
	"github.com/spf13/cobra"

	"github.com/calsym/calsym/internal/cli/info"
	"github.com/calsym/calsym/internal/cli/lookup"
	"github.com/calsym/calsym/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:   "calsym",
	Short: "Calsym - calibration symbol lookup for ELF binaries",
	Long: `Resolve calibration symbol expressions against the DWARF debug info
of ELF binaries.

Calsym reads the static memory layout of a binary (global and static
variables, struct/union/class layouts, arrays, bitfields, enums) and
resolves dotted member paths and array indices to concrete addresses
and types, the way calibration tools address measurement variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(lookup.NewLookupCmd())
	rootCmd.AddCommand(info.NewInfoCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("Calsym version %s\n", version.Version)
			cmd.Printf("Git commit: %s\n", version.GitCommit)
			cmd.Printf("Build date: %s\n", version.BuildDate)
			cmd.Printf("Go version: %s\n", version.GoVersion)
		},
	}
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
