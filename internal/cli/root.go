package cli

import (
	"github.com/spf13/cobra"
)

// Command builds a fresh command tree. The REPL builds one per line so
// flag values never leak from one command into the next.
func (a *App) Command() *cobra.Command {
	root := &cobra.Command{
		Use:   "homepage",
		Short: "Manage a bookmark homepage stored in local and synced storage",
		Long: `homepage keeps a tree of bookmarks in groups and folders. The page lives
in a local SQLite database and, with sync on, in a shared synced store.

Examples:
  homepage show
  homepage add go.dev --title "Go"
  homepage --sync postgres --dsn postgres://localhost/homepage sync on
  homepage repl`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			a.ensureLoaded(cmd.Context())
		},
	}

	// Parsed by the config loader before the tree runs; declared so cobra
	// accepts them.
	pf := root.PersistentFlags()
	pf.StringP("config", "c", "", "config file (JSON or YAML)")
	pf.StringP("data-dir", "d", "", "directory for the local database")
	pf.StringP("sync", "s", "", "synced tier backend: none, memory, postgres, s3")
	pf.String("dsn", "", "Postgres DSN for the synced tier")
	pf.StringP("log-level", "l", "", "debug, info, warn, error")

	root.AddCommand(
		a.showCommand(),
		a.recentCommand(),
		a.openCommand(),
		a.addCommand(),
		a.folderCommand(),
		a.editCommand(),
		a.moveCommand(),
		a.deleteCommand(),
		a.undoCommand(),
		a.groupsCommand(),
		a.settingsCommand(),
		a.syncCommand(),
		a.exportCommand(),
		a.importCommand(),
		a.backupsCommand(),
		a.restoreCommand(),
		a.iconsCommand(),
		a.wallpaperCommand(),
	)
	if !a.inREPL {
		root.AddCommand(a.replCommand())
	}
	return root
}
