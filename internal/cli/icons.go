package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *App) iconsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "icons",
		Short: "Inspect and maintain the icon cache",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show <id>",
			Short: "Print the icon reference for a node",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				art, err := a.session.Icon(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s\t%s\n", art.Source, art.Ref)
				return nil
			},
		},
		&cobra.Command{
			Use:   "refresh <id>",
			Short: "Drop the cached icon for a node and fetch it again",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				art, err := a.session.RefreshIcon(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s\t%s\n", art.Source, art.Ref)
				return nil
			},
		},
		&cobra.Command{
			Use:   "retry",
			Short: "Retry failed icons if the daily retry hour has come",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				sw := a.session.RetryIcons(cmd.Context())
				if !sw.Ran {
					fmt.Fprintln(a.out, "Retry is not due.")
					return nil
				}
				fmt.Fprintf(a.out, "Retried %d icon(s), %d recovered.\n", sw.Retried, sw.Recovered)
				return nil
			},
		},
		&cobra.Command{
			Use:   "prune",
			Short: "Drop cache entries no bookmark uses",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				fmt.Fprintf(a.out, "Pruned %d entr(ies).\n", a.session.PruneIcons(cmd.Context()))
				return nil
			},
		},
	)
	return cmd
}

func (a *App) wallpaperCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "wallpaper",
		Short: "Print today's wallpaper, fetching it once a day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, ok := a.session.Wallpaper(cmd.Context())
			if !ok {
				fmt.Fprintln(a.out, "No wallpaper available.")
				return nil
			}
			fmt.Fprintf(a.out, "%s\t%s\t%d bytes\n", e.Date, e.URL, len(e.DataURL))
			return nil
		},
	}
}
