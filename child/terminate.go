package child

import (
	"errors"
	"log/slog"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// Terminate sends SIGTERM to the child's process group, then reaps it.
// A no-op (returns nil) if the child has already been reaped, including
// the race where it exited naturally just before this call.
func (c *Child) Terminate() error {
	return c.signalAndReap(unix.SIGTERM)
}

// Kill sends SIGKILL to the child's process group, then reaps it.
func (c *Child) Kill() error {
	return c.signalAndReap(unix.SIGKILL)
}

func (c *Child) signalAndReap(sig syscall.Signal) error {
	c.mu.Lock()
	// Reaped (or never started) children have nothing left to signal; this
	// keeps a second Terminate/Kill call, or one that loses a race against
	// a natural exit, a harmless no-op rather than an error.
	if c.state == StateReaped || c.state == StateNew {
		c.mu.Unlock()
		return nil
	}
	pgid := c.pgid
	c.mu.Unlock()

	if err := unix.Kill(-pgid, sig); err != nil && err != unix.ESRCH {
		slog.Warn("child: signal failed", "pgid", pgid, "signal", sig, "err", err)
	}

	return c.Join()
}

// Join waits for the child to exit, collects its exit status into
// ReturnCode, closes every owned fd exactly once, and transitions the
// child to REAPED. Idempotent once REAPED.
func (c *Child) Join() error {
	c.mu.Lock()
	if c.state == StateReaped || c.state == StateNew {
		c.mu.Unlock()
		return nil
	}
	exited := c.exited
	c.mu.Unlock()

	<-exited

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateReaped {
		return nil
	}

	code := exitCodeFromError(c.waitErr)
	c.returnCode = &code
	c.state = StateReaped

	c.closeFDsLocked()

	if c.cleanupSet {
		c.cleanup.Stop()
		c.cleanupSet = false
	}

	slog.Info("child: reaped", "pid", c.pid, "code", code)
	return nil
}

func (c *Child) closeFDsLocked() {
	if c.stdoutR != nil {
		c.stdoutClose.Do(func() { c.stdoutR.Close() })
	}
	if c.stderrR != nil {
		c.stderrClose.Do(func() { c.stderrR.Close() })
	}
	if c.stdinW != nil {
		c.stdinClose.Do(func() { c.stdinW.Close() })
	}
	if c.ptyMaster != nil {
		c.ptyClose.Do(func() { c.ptyMaster.Close() })
	}
	if c.cmd != nil && c.cmd.Process != nil {
		c.cmd.Process.Release()
	}
}

func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
