package browser

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/pixian5/homepage-sub000/internal/models"
)

// SystemOpener hands URLs to the desktop's default handler. A desktop
// handler has no notion of tabs, so every mode opens the same way.
type SystemOpener struct {
	// command overrides the platform launcher; used in tests.
	command func(url string) *exec.Cmd
}

func (o SystemOpener) Open(ctx context.Context, url string, mode models.OpenMode) error {
	if _, err := ParseOpenMode(string(mode)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	// The launcher must outlive ctx, so it is not bound to it.
	cmd := o.cmd(url)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

func (o SystemOpener) cmd(url string) *exec.Cmd {
	if o.command != nil {
		return o.command(url)
	}
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url)
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return exec.Command("xdg-open", url)
	}
}
