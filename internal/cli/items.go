package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pixian5/homepage-sub000/internal/common"
	"github.com/pixian5/homepage-sub000/internal/document"
	"github.com/pixian5/homepage-sub000/internal/models"
)

func (a *App) showCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print groups, folders and items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d := a.session.Document()
			for _, g := range document.SortedGroups(d) {
				fmt.Fprintf(a.out, "%s [%s]\n", g.Name, g.ID)
				a.printNodes(d, g.Nodes, 1)
			}
			if len(a.session.PendingDelete()) > 0 {
				fmt.Fprintln(a.out, "(a delete can be undone with 'undo')")
			}
			return nil
		},
	}
}

func (a *App) printNodes(d *models.Document, ids []string, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, id := range ids {
		n, ok := d.Nodes[id]
		if !ok {
			continue
		}
		if n.IsFolder() {
			fmt.Fprintf(a.out, "%s+ %s [%s]\n", indent, n.Title, n.ID)
			a.printNodes(d, n.Children, depth+1)
			continue
		}
		fmt.Fprintf(a.out, "%s- %s  %s [%s]\n", indent, n.Title, n.URL, n.ID)
	}
}

func (a *App) recentCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "recent",
		Short: "Print the recent pages group built from browser history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, nodes, err := a.session.Recent(cmd.Context())
			if err != nil {
				return err
			}
			if len(nodes) == 0 {
				fmt.Fprintln(a.out, "No recent pages. Enable them with 'settings set showRecent true'.")
				return nil
			}
			fmt.Fprintf(a.out, "%s [%s]\n", g.Name, g.ID)
			for _, n := range nodes {
				fmt.Fprintf(a.out, "  - %s  %s [%s]\n", n.Title, n.URL, n.ID)
			}
			return nil
		},
	}
}

func (a *App) openCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "open <id>",
		Short: "Open an item with the configured open mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.session.Open(cmd.Context(), args[0])
		},
	}
}

// location resolves --group (id or name) and --folder into a container.
// Without either, the first group is used.
func (a *App) location(group, folder string) (document.Location, error) {
	d := a.session.Document()
	if folder != "" {
		n, ok := d.Nodes[folder]
		if !ok || !n.IsFolder() {
			return document.Location{}, fmt.Errorf("folder %s: %w", folder, common.ErrNotFound)
		}
		return document.Location{FolderID: folder}, nil
	}
	sorted := document.SortedGroups(d)
	if group == "" {
		return document.Location{GroupID: sorted[0].ID}, nil
	}
	for _, g := range sorted {
		if g.ID == group || strings.EqualFold(g.Name, group) {
			return document.Location{GroupID: g.ID}, nil
		}
	}
	return document.Location{}, fmt.Errorf("group %s: %w", group, common.ErrNotFound)
}

func (a *App) addCommand() *cobra.Command {
	var title, group, folder, color string
	var current bool
	cmd := &cobra.Command{
		Use:   "add [url]",
		Short: "Add a bookmark",
		Long:  "Add a bookmark. A URL without a scheme is treated as https. With --current the browser's current tab is added instead.",
		Args:  cobra.RangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := a.location(group, folder)
			if err != nil {
				return err
			}
			if current {
				n, out, err := a.session.AddCurrentTab(cmd.Context(), loc)
				if err != nil {
					return err
				}
				a.notify(out)
				fmt.Fprintf(a.out, "Added %s [%s]\n", n.Title, n.ID)
				return nil
			}
			if len(args) == 0 {
				return fmt.Errorf("a url is required: %w", common.ErrInvalidURL)
			}
			n := models.Node{Title: title, URL: args[0]}
			if color != "" {
				n.IconType, n.Color = models.IconColor, color
			}
			n, out, err := a.session.AddItem(cmd.Context(), loc, n)
			if err != nil {
				return err
			}
			a.notify(out)
			fmt.Fprintf(a.out, "Added %s [%s]\n", n.Title, n.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&title, "title", "t", "", "title, defaults to the URL")
	f.StringVarP(&group, "group", "g", "", "group id or name")
	f.StringVarP(&folder, "folder", "f", "", "folder id")
	f.StringVar(&color, "color", "", "use a solid color tile as the icon")
	f.BoolVar(&current, "current", false, "add the current browser tab")
	return cmd
}

func (a *App) folderCommand() *cobra.Command {
	var group, folder string
	cmd := &cobra.Command{
		Use:   "folder <title>",
		Short: "Create a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := a.location(group, folder)
			if err != nil {
				return err
			}
			n, out, err := a.session.AddFolder(cmd.Context(), loc, args[0])
			if err != nil {
				return err
			}
			a.notify(out)
			fmt.Fprintf(a.out, "Created folder %s [%s]\n", n.Title, n.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&group, "group", "g", "", "group id or name")
	cmd.Flags().StringVarP(&folder, "folder", "f", "", "parent folder id")
	return cmd
}

func (a *App) editCommand() *cobra.Command {
	var title, url, icon, iconData, color string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change an item's title, URL or icon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p document.ItemPatch
			f := cmd.Flags()
			if f.Changed("title") {
				p.Title = &title
			}
			if f.Changed("url") {
				p.URL = &url
			}
			if f.Changed("icon") {
				it := models.IconType(icon)
				switch it {
				case models.IconAuto, models.IconUpload, models.IconColor, models.IconRemote:
				default:
					return fmt.Errorf("unknown icon type %q", icon)
				}
				p.IconType = &it
			}
			if f.Changed("icon-data") {
				p.IconData = &iconData
			}
			if f.Changed("color") {
				p.Color = &color
			}
			n, out, err := a.session.UpdateItem(cmd.Context(), args[0], p)
			if err != nil {
				return err
			}
			a.notify(out)
			fmt.Fprintf(a.out, "Updated %s [%s]\n", n.Title, n.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&title, "title", "t", "", "new title")
	f.StringVar(&url, "url", "", "new URL")
	f.StringVar(&icon, "icon", "", "icon type: auto, upload, color, remote")
	f.StringVar(&iconData, "icon-data", "", "data URL for upload, image URL for remote")
	f.StringVar(&color, "color", "", "tile color")
	return cmd
}

func (a *App) moveCommand() *cobra.Command {
	var group, folder string
	var index int
	cmd := &cobra.Command{
		Use:   "move <id>",
		Short: "Move a node to another group or folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := a.location(group, folder)
			if err != nil {
				return err
			}
			out, err := a.session.Move(cmd.Context(), args[0], loc, index)
			if err != nil {
				return err
			}
			a.notify(out)
			fmt.Fprintf(a.out, "Moved %s to %s\n", args[0], loc)
			return nil
		},
	}
	cmd.Flags().StringVarP(&group, "group", "g", "", "target group id or name")
	cmd.Flags().StringVarP(&folder, "folder", "f", "", "target folder id")
	cmd.Flags().IntVarP(&index, "index", "i", -1, "position in the target, -1 appends")
	return cmd
}

func (a *App) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>...",
		Aliases: []string{"rm"},
		Short:   "Delete nodes; folders go with their contents",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, out, err := a.session.Delete(cmd.Context(), args)
			if err != nil {
				return err
			}
			a.notify(out)
			fmt.Fprintf(a.out, "Deleted %d node(s).", len(removed))
			if a.inREPL {
				fmt.Fprint(a.out, " Type 'undo' to bring them back.")
			}
			fmt.Fprintln(a.out)
			return nil
		},
	}
}

func (a *App) undoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Revert the last delete while its grace period lasts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, ok := a.session.Undo(cmd.Context())
			if !ok {
				fmt.Fprintln(a.out, "Nothing to undo.")
				return nil
			}
			a.notify(out)
			fmt.Fprintln(a.out, "Delete reverted.")
			return nil
		},
	}
}
