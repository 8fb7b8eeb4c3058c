// Package cli is the homepage command-line front end.
//
// Every command runs against a services.Session. One-shot invocations load
// the session, run a single command and exit; "repl" keeps the session open
// and reads commands line by line, so a delete can still be undone within
// its grace period.
//
// Commands:
//   - show, recent, open        inspect and launch bookmarks
//   - add, folder, edit, move   change the tree
//   - delete, undo              remove nodes, revert the last delete
//   - groups                    list and manage groups
//   - settings, sync            view and change settings, toggle sync
//   - export, import            JSON document transfer
//   - backups, restore          snapshot management
//   - icons, wallpaper          artifact caches
//   - repl                      interactive shell
package cli
