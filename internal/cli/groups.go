package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pixian5/homepage-sub000/internal/document"
)

func (a *App) groupsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "List groups; subcommands manage them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, g := range document.SortedGroups(a.session.Document()) {
				fmt.Fprintf(a.out, "%d. %s [%s] %d node(s)\n", g.Order, g.Name, g.ID, len(g.Nodes))
			}
			return nil
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add [name]",
			Short: "Add a group",
			Args:  cobra.RangeArgs(0, 1),
			RunE: func(cmd *cobra.Command, args []string) error {
				name := ""
				if len(args) == 1 {
					name = args[0]
				}
				g, out, err := a.session.AddGroup(cmd.Context(), name)
				if err != nil {
					return err
				}
				a.notify(out)
				fmt.Fprintf(a.out, "Added group %s [%s]\n", g.Name, g.ID)
				return nil
			},
		},
		&cobra.Command{
			Use:   "rename <id> <name>",
			Short: "Rename a group",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				out, err := a.session.RenameGroup(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				a.notify(out)
				return nil
			},
		},
		&cobra.Command{
			Use:   "reorder <id>...",
			Short: "Set the display order of groups",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				out, err := a.session.ReorderGroups(cmd.Context(), args)
				if err != nil {
					return err
				}
				a.notify(out)
				return nil
			},
		},
		a.groupDeleteCommand(),
	)
	return cmd
}

func (a *App) groupDeleteCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a group and everything in it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				ok, err := a.confirm(fmt.Sprintf("Delete group %s and all its bookmarks?", args[0]))
				if err != nil || !ok {
					return err
				}
			}
			removed, out, err := a.session.DeleteGroup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.notify(out)
			fmt.Fprintf(a.out, "Deleted group with %d node(s).\n", len(removed))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
