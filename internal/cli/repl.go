package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pixian5/homepage-sub000/internal/services"
)

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

func (a *App) replCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Run commands interactively in one session, so deletes can be undone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.REPL(cmd.Context())
		},
	}
}

// REPL reads command lines until end of input or "exit". The prompt is
// only printed when stdin is a terminal.
func (a *App) REPL(ctx context.Context) error {
	a.ensureLoaded(ctx)
	a.inREPL = true
	defer func() { a.inREPL = false }()

	interactive := false
	if f, ok := a.in.(*os.File); ok {
		interactive = isTerminal(int(f.Fd()))
	}
	if interactive {
		fmt.Fprintln(a.out, "homepage shell (type 'help' for commands, 'exit' to leave)")
	}

	prompt := func() string {
		if !interactive {
			return ""
		}
		return fmt.Sprintf("homepage %s> ", a.status())
	}
	next := func(p string) (string, error) {
		return GetSimpleText(a.reader, p, a.out)
	}
	exec := func(ctx context.Context, args []string) error {
		root := a.Command()
		root.SetArgs(args)
		root.SetOut(a.out)
		root.SetErr(a.errOut)
		return root.ExecuteContext(ctx)
	}
	return runREPL(ctx, exec, prompt, next, a.errOut)
}

// status summarizes the session for the prompt.
func (a *App) status() string {
	var parts []string
	if d := a.session.Document(); d != nil && d.Settings.SyncEnabled {
		parts = append(parts, "sync")
	}
	if len(a.session.PendingDelete()) > 0 {
		parts = append(parts, "undo")
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// runREPL is the read-eval-print loop. Command errors are reported to
// errOut and never end the loop; only exit, quit or end of input do.
func runREPL(ctx context.Context, exec func(context.Context, []string) error,
	prompt func() string, next func(string) (string, error), errOut io.Writer) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := next(prompt())
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		args, err := splitLine(line)
		if err != nil {
			fmt.Fprintln(errOut, services.ErrorNotice(err))
			continue
		}
		if len(args) == 0 {
			continue
		}

		switch args[0] {
		case "exit", "quit":
			return nil
		case "repl":
			fmt.Fprintln(errOut, "Already in the shell.")
			continue
		}
		if err := exec(ctx, args); err != nil {
			fmt.Fprintln(errOut, services.ErrorNotice(err))
		}
	}
}
