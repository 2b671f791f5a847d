// Package browser opens URLs in the user's default browser.
package browser

import (
	"fmt"
	"os/exec"
	"runtime"
)

// Opener opens a URL somewhere the user can see it.
type Opener interface {
	Open(url string) error
}

// SystemOpener hands the URL to the operating system's URL handler. The
// command is started but not waited on, same as the shell's `start`.
type SystemOpener struct {
	goos  string
	start func(name string, args ...string) error
}

func NewSystemOpener() *SystemOpener {
	return &SystemOpener{
		goos:  runtime.GOOS,
		start: startDetached,
	}
}

func (o *SystemOpener) Open(url string) error {
	name, args := Command(o.goos, url)
	if err := o.start(name, args...); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}

// Command returns the program and arguments used to open url on goos.
func Command(goos, url string) (string, []string) {
	switch goos {
	case "windows":
		// The empty string is the window title; without it start would treat
		// a quoted URL as the title.
		return "cmd", []string{"/c", "start", "", url}
	case "darwin":
		return "open", []string{url}
	default:
		return "xdg-open", []string{url}
	}
}

func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}

var _ Opener = (*SystemOpener)(nil)
