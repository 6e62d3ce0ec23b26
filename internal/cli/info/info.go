// Package info provides the CLI command that summarizes the debug
// info contents of a binary.
package info

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/calsym/calsym/internal/cli/helpers"
	"github.com/calsym/calsym/internal/debuginfo"
)

// NewInfoCmd creates the info command.
func NewInfoCmd() *cobra.Command {
	var (
		logFlags helpers.LogFlags
		units    bool
		sections bool
	)

	cmd := &cobra.Command{
		Use:   "info <binary>",
		Short: "Summarize the debug info of a binary",
		Long: `Loads the DWARF debug info of the given binary and prints how many
global variables, types, and compile units were found.

Examples:
  calsym info firmware.elf
  calsym info firmware.elf --units --sections`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dbg, err := debuginfo.Load(args[0], logFlags.Logger())
			if err != nil {
				return err
			}

			fmt.Printf("variables:     %d\n", len(dbg.Variables))
			fmt.Printf("demangled:     %d\n", len(dbg.DemangledNames))
			fmt.Printf("types:         %d\n", len(dbg.Types))
			fmt.Printf("compile units: %d\n", len(dbg.UnitNames))

			if units {
				fmt.Println()
				for i, name := range dbg.UnitNames {
					fmt.Printf("unit %d: %s\n", i, name)
				}
			}
			if sections {
				fmt.Println()
				names := make([]string, 0, len(dbg.Sections))
				for name := range dbg.Sections {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					sec := dbg.Sections[name]
					fmt.Printf("section %-20s 0x%08x - 0x%08x\n", name, sec.Start, sec.End)
				}
			}
			return nil
		},
	}

	logFlags.AddFlags(cmd.Flags())
	cmd.Flags().BoolVar(&units, "units", false, "list compile unit names")
	cmd.Flags().BoolVar(&sections, "sections", false, "list loadable data sections")

	return cmd
}
