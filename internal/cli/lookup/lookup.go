// Package lookup provides the CLI command that resolves symbol
// expressions against a binary's debug info.
package lookup

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/calsym/calsym/internal/cli/helpers"
	"github.com/calsym/calsym/internal/debuginfo"
	"github.com/calsym/calsym/internal/symbol"
)

// NewLookupCmd creates the lookup command.
func NewLookupCmd() *cobra.Command {
	var (
		logFlags helpers.LogFlags
		offset   int64
	)

	cmd := &cobra.Command{
		Use:   "lookup <binary> <expression>...",
		Short: "Resolve symbol expressions to addresses and types",
		Long: `Resolves one or more symbol expressions against the DWARF debug info
of the given binary and prints the address and type of each result.

Expressions follow calibration-tool notation: struct members with dots,
array elements with [N] or the legacy _N_ form, and an optional
disambiguation suffix for same-named static variables.

Examples:
  calsym lookup firmware.elf motortune.param[0]
  calsym lookup firmware.elf my_struct.array_field._5_._1_
  calsym lookup firmware.elf 'var{Function:task_init}{CompileUnit:motor_c}'

  # Resolve the component 8 bytes into the first expression's symbol
  calsym lookup firmware.elf engine_state --offset 8`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache := debuginfo.NewCache(4, logFlags.Logger())
			dbg, err := cache.Load(args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			for _, expression := range args[1:] {
				sym, err := symbol.Resolve(dbg, expression)
				if err != nil {
					return fmt.Errorf("resolving %q: %w", expression, err)
				}
				if cmd.Flags().Changed("offset") {
					sym, err = symbol.ResolveByOffset(dbg, sym, offset)
					if err != nil {
						return fmt.Errorf("resolving %q: %w", expression, err)
					}
				}
				printSymbol(w, sym, dbg)
			}
			return w.Flush()
		},
	}

	logFlags.AddFlags(cmd.Flags())
	cmd.Flags().Int64Var(&offset, "offset", 0, "resolve the component at this byte offset from the symbol")

	return cmd
}

func printSymbol(w *tabwriter.Writer, sym symbol.SymbolInfo, dbg *debuginfo.DebugData) {
	var context []string
	if unit := dbg.SimpleUnitName(sym.UnitIdx); unit != "" {
		context = append(context, "unit "+unit)
	}
	if sym.Function != "" {
		context = append(context, "function "+sym.Function)
	}
	if len(sym.Namespaces) > 0 {
		context = append(context, "namespace "+strings.Join(sym.Namespaces, "::"))
	}
	if !sym.Unique {
		context = append(context, "name is not unique")
	}
	fmt.Fprintf(w, "%s\t0x%08x\t%s\t%s\n", sym.Name, sym.Address, sym.Type, strings.Join(context, ", "))
}
