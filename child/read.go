package child

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/nick/procdrive/internal/pipereader"
)

// ReadAvailable polls stdout and stderr (or, for a pty child, the single
// master fd) with a zero timeout and drains whichever are ready. It
// returns a non-nil *Observation only when at least one byte was read;
// otherwise it returns (nil, nil).
//
// Requires the child to be RUNNING; otherwise returns ProcessAlreadyDeadError.
func (c *Child) ReadAvailable() (*Observation, error) {
	c.mu.Lock()
	if c.state != StateRunning {
		pid := c.pid
		c.mu.Unlock()
		return nil, &ProcessAlreadyDeadError{Pid: pid}
	}
	stdoutR, stderrR, ptyMaster := c.stdoutR, c.stderrR, c.ptyMaster
	chunkSize := c.readChunkSize
	c.mu.Unlock()

	if ptyMaster != nil {
		out, err := c.pollAndDrain([]*os.File{ptyMaster}, chunkSize)
		if err != nil {
			return nil, err
		}
		if len(out[0]) == 0 {
			return nil, nil
		}
		return &Observation{Stdout: out[0]}, nil
	}

	out, err := c.pollAndDrain([]*os.File{stdoutR, stderrR}, chunkSize)
	if err != nil {
		return nil, err
	}
	obs := Observation{Stdout: out[0], Stderr: out[1]}
	if obs.empty() {
		return nil, nil
	}
	return &obs, nil
}

// DrainExited performs one last poll-and-drain against whatever stdio fds
// are still open, without requiring the child to be RUNNING. It exists for
// the post-exit final read spec.md §4.2 step 4 requires: cmd.Wait has
// already returned by the time a caller observes !Alive(), but the pipes
// (or pty master) are not closed until Join runs, so any bytes the child
// wrote right before exiting are still sitting in the fd and must be
// drained through this path rather than the RUNNING-only ReadAvailable.
// Both Iterator (this package) and driver.Iterator call this for their
// respective post-exit final drains.
func (c *Child) DrainExited() (*Observation, error) {
	c.mu.Lock()
	stdoutR, stderrR, ptyMaster := c.stdoutR, c.stderrR, c.ptyMaster
	chunkSize := c.readChunkSize
	c.mu.Unlock()

	if ptyMaster != nil {
		out, err := c.pollAndDrain([]*os.File{ptyMaster}, chunkSize)
		if err != nil {
			return nil, err
		}
		if len(out[0]) == 0 {
			return nil, nil
		}
		return &Observation{Stdout: out[0]}, nil
	}

	out, err := c.pollAndDrain([]*os.File{stdoutR, stderrR}, chunkSize)
	if err != nil {
		return nil, err
	}
	obs := Observation{Stdout: out[0], Stderr: out[1]}
	if obs.empty() {
		return nil, nil
	}
	return &obs, nil
}

// pollAndDrain polls every file with timeout 0, and for each that is
// readable (or hung up, which must still be drained for any final bytes)
// flips it to non-blocking, drains it via pipereader.Drain, and restores
// its blocking mode. The non-blocking flag is restored on every exit path,
// including early returns on error, per the fd-discipline invariant.
func (c *Child) pollAndDrain(files []*os.File, chunkSize int) ([][]byte, error) {
	results := make([][]byte, len(files))

	fds := make([]unix.PollFd, 0, len(files))
	idx := make([]int, 0, len(files))
	for i, f := range files {
		if f == nil {
			continue
		}
		fds = append(fds, unix.PollFd{Fd: int32(f.Fd()), Events: unix.POLLIN})
		idx = append(idx, i)
	}
	if len(fds) == 0 {
		return results, nil
	}

	if _, err := unix.Poll(fds, 0); err != nil && err != unix.EINTR {
		return results, err
	}

	for k, pfd := range fds {
		if pfd.Revents == 0 {
			continue
		}
		i := idx[k]
		f := files[i]
		fd := int(f.Fd())

		if err := unix.SetNonblock(fd, true); err != nil {
			return results, err
		}
		data, err := pipereader.Drain(fd, chunkSize)
		// Always restore blocking mode before propagating any error, so a
		// caller observing this fd through another path never sees it
		// left in non-blocking mode.
		_ = unix.SetNonblock(fd, false)
		if err != nil {
			return results, err
		}
		results[i] = data
	}

	return results, nil
}
