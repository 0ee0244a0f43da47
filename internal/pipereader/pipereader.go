// Package pipereader drains a single non-blocking file descriptor.
//
// It is the leaf component of the supervisor: no timers, no process
// knowledge, just "read everything available without blocking."
package pipereader

import (
	"errors"

	"golang.org/x/sys/unix"
)

// Drain reads repeatedly from fd in chunkSize-byte requests, concatenating
// the results, until a read returns 0 bytes (EOF), would block, or returns
// fewer than chunkSize bytes. fd must already be in non-blocking mode;
// Drain never toggles it and never blocks.
//
// A would-block condition (EAGAIN/EWOULDBLOCK) on the first read simply
// yields an empty (nil) buffer; it is not an error. EINTR is retried and
// EIO is treated as EOF; any other errno propagates.
func Drain(fd int, chunkSize int) ([]byte, error) {
	if chunkSize <= 0 {
		chunkSize = 4096
	}

	var out []byte
	buf := make([]byte, chunkSize)

	for {
		n, err := unix.Read(fd, buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
				return out, nil
			}
			if errors.Is(err, unix.EINTR) {
				continue
			}
			if errors.Is(err, unix.EIO) {
				// A pty master returns EIO once its slave side has been
				// closed; treat it the same as EOF on a plain pipe.
				// https://github.com/creack/pty/issues/21
				return out, nil
			}
			return out, err
		}
		if n == 0 {
			// EOF: the write end has been closed.
			return out, nil
		}
		if n < len(buf) {
			// Short read on a pipe means we drained it for this cycle;
			// looping again would just hit EAGAIN. Avoid the extra syscall.
			return out, nil
		}
	}
}
