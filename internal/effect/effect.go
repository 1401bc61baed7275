// Package effect triggers the external side-effect after a successful
// transformation, typically a simulated paste keystroke delivered by a
// helper binary (xdotool, wtype, osascript).
package effect

import (
	"fmt"
	"os/exec"
	"time"
)

// Command runs a configured helper process to perform the paste. The
// permission check probes that the helper exists; platforms gate the actual
// keystroke injection themselves.
type Command struct {
	path    string
	args    []string
	timeout time.Duration
}

func NewCommand(path string, args []string) *Command {
	return &Command{path: path, args: args, timeout: 3 * time.Second}
}

func (c *Command) PermissionGranted() bool {
	_, err := exec.LookPath(c.path)
	return err == nil
}

// Perform fails fast rather than hang: the helper is a local, short-lived
// process.
func (c *Command) Perform() error {
	cmd := exec.Command(c.path, c.args...)
	errc := make(chan error, 1)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("effect: start %s: %w", c.path, err)
	}
	go func() { errc <- cmd.Wait() }()
	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("effect: %s: %w", c.path, err)
		}
		return nil
	case <-time.After(c.timeout):
		_ = cmd.Process.Kill()
		return fmt.Errorf("effect: %s did not finish within %s", c.path, c.timeout)
	}
}

// Noop satisfies the side-effect interface for headless runs and tests.
type Noop struct {
	// Granted lets tests model a missing permission.
	Granted bool
}

func NewNoop() *Noop { return &Noop{Granted: true} }

func (n *Noop) PermissionGranted() bool { return n.Granted }
func (n *Noop) Perform() error          { return nil }
