package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func (a *App) backupsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backups",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bs := a.session.Backups()
			if len(bs) == 0 {
				fmt.Fprintln(a.out, "No backups.")
				return nil
			}
			for _, b := range bs {
				nodes := 0
				if b.Data != nil {
					nodes = len(b.Data.Nodes)
				}
				taken := time.UnixMilli(b.Timestamp).Local().Format(time.DateTime)
				fmt.Fprintf(a.out, "%s  %s  %d node(s)\n", b.ID, taken, nodes)
			}
			return nil
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "take",
			Short: "Take a backup now",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				b, out, err := a.session.TakeBackup(cmd.Context())
				if err != nil {
					return err
				}
				a.notify(out)
				fmt.Fprintf(a.out, "Backup %s taken.\n", b.ID)
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a backup",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				out, err := a.session.DeleteBackup(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				a.notify(out)
				return nil
			},
		},
	)
	return cmd
}

func (a *App) restoreCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "restore <backup-id>",
		Short: "Replace the page with a backup; the current page is backed up first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				ok, err := a.confirm("Replace the current page with backup " + args[0] + "?")
				if err != nil || !ok {
					return err
				}
			}
			out, err := a.session.Restore(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.notify(out)
			fmt.Fprintf(a.out, "Restored backup %s.\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
