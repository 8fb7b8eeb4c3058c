package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pixian5/homepage-sub000/internal/browser"
	"github.com/pixian5/homepage-sub000/internal/models"
	"github.com/pixian5/homepage-sub000/internal/reconcile"
)

func (a *App) settingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Print the settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := json.MarshalIndent(a.session.Document().Settings, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, string(b))
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting by its JSON key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			next, err := applySetting(a.session.Document().Settings, args[0], args[1])
			if err != nil {
				return err
			}
			out, err := a.session.UpdateSettings(cmd.Context(), func(s *models.Settings) { *s = next })
			if err != nil {
				return err
			}
			a.notify(out)
			fmt.Fprintf(a.out, "%s = %s\n", args[0], args[1])
			return nil
		},
	})
	return cmd
}

// settingKeys lists the JSON keys of Settings.
func settingKeys() []string {
	s := models.DefaultSettings()
	s.BackgroundImage = "-"
	b, _ := json.Marshal(s)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// applySetting sets key to raw on a copy of cur. raw is read as JSON when
// it parses, otherwise as a string.
func applySetting(cur models.Settings, key, raw string) (models.Settings, error) {
	if key == "syncEnabled" {
		return cur, fmt.Errorf("use 'sync on' or 'sync off' to change syncEnabled")
	}
	known := false
	for _, k := range settingKeys() {
		known = known || k == key
	}
	if !known {
		return cur, fmt.Errorf("unknown setting %q", key)
	}

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		v = raw
	}

	b, err := json.Marshal(cur)
	if err != nil {
		return cur, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return cur, err
	}
	m[key] = v
	if b, err = json.Marshal(m); err != nil {
		return cur, err
	}
	var next models.Settings
	if err := json.Unmarshal(b, &next); err != nil {
		return cur, fmt.Errorf("setting %s: %w", key, err)
	}

	if _, err := browser.ParseOpenMode(string(next.OpenMode)); err != nil {
		return cur, err
	}
	if next.IconRetryHour < 0 || next.IconRetryHour > 23 {
		return cur, fmt.Errorf("iconRetryHour must be 0-23, got %d", next.IconRetryHour)
	}
	return next, nil
}

func (a *App) syncCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "sync [on|off]",
		Short:     "Show or change whether the page is kept in synced storage",
		Args:      cobra.MatchAll(cobra.RangeArgs(0, 1), cobra.OnlyValidArgs),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				state := "off"
				if a.session.Document().Settings.SyncEnabled {
					state = "on"
				}
				fmt.Fprintf(a.out, "Sync is %s.\n", state)
				return nil
			}

			winner, out, err := a.session.SetSync(cmd.Context(), args[0] == "on")
			if err != nil {
				return err
			}
			a.notify(out)
			if args[0] == "off" {
				fmt.Fprintln(a.out, "Sync is off.")
				return nil
			}
			if winner == reconcile.WinnerSynced {
				fmt.Fprintln(a.out, "Sync is on. A newer page from synced storage was loaded.")
			} else if a.session.Document().Settings.SyncEnabled {
				fmt.Fprintln(a.out, "Sync is on.")
			}
			return nil
		},
	}
}
