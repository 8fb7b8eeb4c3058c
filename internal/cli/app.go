package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pixian5/homepage-sub000/internal/persist"
	"github.com/pixian5/homepage-sub000/internal/services"
)

type App struct {
	session services.Session
	reader  *bufio.Reader
	in      io.Reader
	out     io.Writer
	errOut  io.Writer
	inREPL  bool
}

// NewApp returns an App reading from in and writing to out and errOut.
// Nil streams default to the process stdio.
func NewApp(s services.Session, in io.Reader, out, errOut io.Writer) *App {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	return &App{session: s, in: in, reader: bufio.NewReader(in), out: out, errOut: errOut}
}

// Run executes one command line.
func (a *App) Run(ctx context.Context, args []string) error {
	root := a.Command()
	root.SetArgs(args)
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	return root.ExecuteContext(ctx)
}

// ensureLoaded loads the session once and reports anything notable about
// where the document came from.
func (a *App) ensureLoaded(ctx context.Context) {
	if a.session.Loaded() {
		return
	}
	res, sweep := a.session.Load(ctx)
	if res.Corrupt {
		fmt.Fprintln(a.errOut, "The stored page was unreadable; it was set aside and a fresh page was created.")
	}
	if res.LocalErr != nil {
		fmt.Fprintln(a.errOut, "Local storage could not be read; changes may not be saved.")
	}
	if sweep.Ran && sweep.Recovered > 0 {
		fmt.Fprintf(a.errOut, "Recovered %d of %d icons.\n", sweep.Recovered, sweep.Retried)
	}
}

// notify prints the user notice for out, if any.
func (a *App) notify(out persist.Outcome) {
	if msg := services.Notice(out); msg != "" {
		fmt.Fprintln(a.errOut, msg)
	}
}
