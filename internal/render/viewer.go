package render

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
)

// Viewer opens images with the desktop's default application.
type Viewer struct {
	command string
	args    []string
}

// NewViewer returns the opener for the current operating system.
func NewViewer() *Viewer {
	return viewerFor(runtime.GOOS)
}

func viewerFor(goos string) *Viewer {
	switch goos {
	case "darwin":
		return &Viewer{command: "open"}
	case "windows":
		// The empty argument is the window title expected by start.
		return &Viewer{command: "cmd", args: []string{"/c", "start", ""}}
	default:
		return &Viewer{command: "xdg-open"}
	}
}

// Show starts the viewer for each path. It does not wait for the viewer
// windows to close.
func (v *Viewer) Show(ctx context.Context, paths ...string) error {
	for _, path := range paths {
		args := append(append([]string{}, v.args...), path)
		cmd := exec.CommandContext(ctx, v.command, args...) //nolint:gosec // fixed opener, path comes from the renderer
		if err := cmd.Start(); err != nil {
			return fmt.Errorf("open %s with %s: %w", path, v.command, err)
		}
		go cmd.Wait() //nolint:errcheck // reap the opener process
	}
	return nil
}
