package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pixian5/homepage-sub000/internal/filex"
	"github.com/pixian5/homepage-sub000/internal/transfer"
)

func (a *App) exportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write the whole page as JSON to file, or stdout",
		Args:  cobra.RangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.session.Export(cmd.Context())
			if err != nil {
				return err
			}
			if len(args) == 0 {
				_, err = fmt.Fprintln(a.out, string(b))
				return err
			}
			if err := filex.WriteAtomic(args[0], b, 0o600); err != nil {
				return fmt.Errorf("export: %w", err)
			}
			fmt.Fprintf(a.out, "Exported to %s\n", args[0])
			return nil
		},
	}
}

func (a *App) importCommand() *cobra.Command {
	var strategy string
	var yes bool
	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Import a JSON page with the replace, merge or add-only strategy",
		Long: `Import a JSON page.

  replace   substitute the whole page; the payload needs schemaVersion
  merge     union groups and nodes; imported entries win on id clashes
  add-only  take only groups and nodes whose ids are new

A backup is taken before the import lands. A malformed payload changes nothing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := transfer.ParseStrategy(strategy)
			if err != nil {
				return err
			}
			raw, err := a.readInput(args[0])
			if err != nil {
				return err
			}
			if st == transfer.Replace && !yes {
				ok, err := a.confirm("Replace the whole page with the imported one?")
				if err != nil || !ok {
					return err
				}
			}
			rep, out, err := a.session.Import(cmd.Context(), raw, st)
			if err != nil {
				return err
			}
			a.notify(out)
			fmt.Fprintf(a.out, "Imported (%s): %d node(s) added, %d updated, %d group(s) added, %d updated.\n",
				rep.Strategy, rep.AddedNodes, rep.UpdatedNodes, rep.AddedGroups, rep.UpdatedGroups)
			return nil
		},
	}
	cmd.Flags().StringVar(&strategy, "strategy", string(transfer.Merge), "replace, merge or add-only")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask before replacing")
	return cmd
}

func (a *App) readInput(name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(a.reader)
	}
	b, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}
	return b, nil
}
