//go:build unix

package child

import (
	"os"

	"golang.org/x/sys/unix"
)

// setRawMode configures a pty master to raw mode, adapted from the
// teacher's internal/process/pty.go: no input/output/local processing,
// so bytes pass through the master transparently while the slave side
// still behaves like a real terminal for the child (isatty, ioctl
// TIOCGWINSZ, etc).
func setRawMode(f *os.File) error {
	fd := int(f.Fd())

	termios, err := unix.IoctlGetTermios(fd, ioctlReadTermios)
	if err != nil {
		return err
	}

	termios.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.IXON
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	termios.Cflag &^= unix.CSIZE | unix.PARENB
	termios.Cflag |= unix.CS8

	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0

	return unix.IoctlSetTermios(fd, ioctlWriteTermios, termios)
}
