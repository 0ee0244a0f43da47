// Package child implements the Managed Child component: a single
// supervised process with its pid/pgid, stdio pipes (or a pty), a
// chunk/total timeout pair, and the NEW -> RUNNING -> EXITED -> REAPED
// lifecycle.
//
// Command construction and process-group signaling follow
// internal/process/builder.go and internal/process/controller.go in this
// module's teacher repository; the non-blocking read cycle is new, grounded
// on the retrieval pack's karolba/gparallel runner (unix.SetNonblock around
// reads) rather than the teacher's own blocking io.Copy goroutine, since
// the spec requires a single-threaded poll loop rather than one reader
// goroutine per fd.
package child

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"github.com/nick/procdrive/internal/redact"
	"github.com/nick/procdrive/internal/shellsplit"
)

// State is the Managed Child lifecycle state.
type State int

const (
	StateNew State = iota
	StateRunning
	StateExited
	StateReaped
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateReaped:
		return "reaped"
	default:
		return "unknown"
	}
}

// DefaultReadChunkSize is the default maximum number of bytes requested
// per read syscall.
const DefaultReadChunkSize = 4096

// Observation bundles the stdout/stderr bytes drained during one poll
// cycle. At least one of the two fields is non-empty.
type Observation struct {
	Stdout []byte
	Stderr []byte
}

func (o Observation) empty() bool {
	return len(o.Stdout) == 0 && len(o.Stderr) == 0
}

// Child owns one launched process.
type Child struct {
	mu sync.Mutex

	cmdStr   string   // used when cmd was given as a single string
	cmdArgv  []string // used when cmd was given as a pre-tokenized vector
	isString bool

	useShell      bool
	shellCmd      []string
	cwd           string
	env           map[string]string
	stdinTerminal bool
	readChunkSize int

	chunkTimeout    time.Duration
	chunkTimeoutSet bool
	totalTimeout    time.Duration
	totalTimeoutSet bool

	state      State
	pid        int
	pgid       int
	returnCode *int

	cmd       *exec.Cmd
	stdoutR   *os.File
	stderrR   *os.File
	stdinW    *os.File
	ptyMaster *os.File

	stdoutClose sync.Once
	stderrClose sync.Once
	stdinClose  sync.Once
	ptyClose    sync.Once

	exited  chan struct{}
	waitErr error

	cleanup    runtime.Cleanup
	cleanupSet bool
}

// Option configures a Child at construction time.
type Option func(*Child)

// WithShell causes cmd to be string and always interpreted by the shell
// (this is also the default when cmd is a plain string).
func WithShell(shellArgv ...string) Option {
	return func(c *Child) {
		c.useShell = true
		if len(shellArgv) > 0 {
			c.shellCmd = shellArgv
		}
	}
}

// WithoutShell disables shell interpretation. If cmd is a string it will
// be word-split with POSIX shell lexical rules at Start.
func WithoutShell() Option {
	return func(c *Child) { c.useShell = false }
}

// WithCwd sets the child's working directory.
func WithCwd(dir string) Option {
	return func(c *Child) { c.cwd = dir }
}

// WithEnv adds/overrides environment variables on top of the parent's
// environment.
func WithEnv(env map[string]string) Option {
	return func(c *Child) { c.env = env }
}

// WithStdinTerminal connects the child's stdin (and stdout/stderr) to the
// slave end of a freshly allocated pty, rather than plain pipes.
func WithStdinTerminal() Option {
	return func(c *Child) { c.stdinTerminal = true }
}

// WithReadChunkSize overrides the maximum bytes requested per read
// syscall (default DefaultReadChunkSize).
func WithReadChunkSize(n int) Option {
	return func(c *Child) {
		if n > 0 {
			c.readChunkSize = n
		}
	}
}

// WithTimeouts stores per-child default chunk/total timeouts that a
// driver.Driver should prefer over its own defaults when this Child is
// iterated as part of a set. A zero duration disables that timeout.
func WithTimeouts(chunk, total time.Duration) Option {
	return func(c *Child) {
		if chunk > 0 {
			c.chunkTimeout, c.chunkTimeoutSet = chunk, true
		}
		if total > 0 {
			c.totalTimeout, c.totalTimeoutSet = total, true
		}
	}
}

// NewChild constructs a Child in the NEW state. cmd is either a shell
// string (the common case, use_shell defaults to true) or a pre-tokenized
// argument vector.
func NewChild(cmd any, opts ...Option) (*Child, error) {
	c := &Child{
		useShell:      true,
		readChunkSize: DefaultReadChunkSize,
		state:         StateNew,
	}

	switch v := cmd.(type) {
	case string:
		c.cmdStr = v
		c.isString = true
	case []string:
		c.cmdArgv = append([]string(nil), v...)
	default:
		return nil, fmt.Errorf("child: cmd must be a string or []string, got %T", cmd)
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// ChunkTimeout implements driver.TimeoutCapable.
func (c *Child) ChunkTimeout() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chunkTimeout, c.chunkTimeoutSet
}

// TotalTimeout implements driver.TimeoutCapable.
func (c *Child) TotalTimeout() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalTimeout, c.totalTimeoutSet
}

// Pid returns the OS process id, or 0 before the first Start.
func (c *Child) Pid() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pid
}

// ReturnCode returns the exit code collected at the last reap, or nil if
// the child has never been reaped (or was restarted since).
func (c *Child) ReturnCode() *int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.returnCode
}

// Alive reports whether the child is RUNNING and has not yet been
// observed to exit.
func (c *Child) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRunning {
		return false
	}
	select {
	case <-c.exited:
		return false
	default:
		return true
	}
}

func (c *Child) neverStarted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateNew
}

func (c *Child) commandLine() []string {
	if c.useShell {
		shellArgv := c.shellCmd
		if len(shellArgv) == 0 {
			shellArgv = []string{"sh", "-c"}
		}
		script := c.cmdStr
		if !c.isString {
			script = joinArgv(c.cmdArgv)
		}
		argv := append(append([]string(nil), shellArgv...), script)
		return argv
	}

	if c.isString {
		tokens, err := shellsplit.Split(c.cmdStr)
		if err != nil {
			// Fall back to passing the whole string as argv[0]; Start
			// will surface the resulting exec error to the caller.
			return []string{c.cmdStr}
		}
		return tokens
	}

	return append([]string(nil), c.cmdArgv...)
}

func joinArgv(argv []string) string {
	out := ""
	for i, a := range argv {
		if i > 0 {
			out += " "
		}
		out += a
	}
	return out
}

func (c *Child) buildEnviron() []string {
	environ := os.Environ()
	if len(c.env) == 0 {
		return environ
	}
	out := append([]string(nil), environ...)
	for k, v := range c.env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	return out
}

// Start spawns the child process. Calling Start on a NEW or REAPED child
// is valid (REAPED allows re-use); calling it on a RUNNING child is an
// error.
func (c *Child) Start() error {
	c.mu.Lock()
	if c.state == StateRunning {
		c.mu.Unlock()
		return &ProcessNotStartedError{Op: "start"}
	}

	argv := c.commandLine()
	if len(argv) == 0 {
		c.mu.Unlock()
		return fmt.Errorf("child: empty command")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	if c.cwd != "" {
		cmd.Dir = c.cwd
	}
	cmd.Env = c.buildEnviron()
	// The child becomes the leader of its own process group so that every
	// signal this package sends can target the whole group, not just the
	// (possibly shell-wrapped) pid.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true, Pgid: 0}

	slog.Info("child: starting", "cmd", redact.CommandLine(argv), "shell", c.useShell, "pty", c.stdinTerminal)

	var ptmx *os.File
	var stdoutR, stderrR, stdinW *os.File
	var err error

	if c.stdinTerminal {
		ptmx, err = pty.Start(cmd)
		if err != nil {
			c.mu.Unlock()
			return fmt.Errorf("child: pty start: %w", err)
		}
		if err := setRawMode(ptmx); err != nil {
			slog.Warn("child: failed to set pty raw mode", "err", err)
		}
	} else {
		// Pipes are built by hand with os.Pipe rather than
		// cmd.StdoutPipe/StderrPipe/StdinPipe, for two reasons: those
		// helpers hand back io.ReadCloser/io.WriteCloser, not the *os.File
		// this package's non-blocking poll loop needs, and os/exec's own
		// docs warn that Cmd.Wait closes pipes it created the moment the
		// process exits -- racing our own reads and closeFDsLocked. Owning
		// the fds end-to-end avoids both problems.
		var stdoutW, stderrW, stdinR *os.File

		stdoutR, stdoutW, err = os.Pipe()
		if err != nil {
			c.mu.Unlock()
			return fmt.Errorf("child: stdout pipe: %w", err)
		}
		stderrR, stderrW, err = os.Pipe()
		if err != nil {
			stdoutR.Close()
			stdoutW.Close()
			c.mu.Unlock()
			return fmt.Errorf("child: stderr pipe: %w", err)
		}
		stdinR, stdinW, err = os.Pipe()
		if err != nil {
			stdoutR.Close()
			stdoutW.Close()
			stderrR.Close()
			stderrW.Close()
			c.mu.Unlock()
			return fmt.Errorf("child: stdin pipe: %w", err)
		}

		cmd.Stdout = stdoutW
		cmd.Stderr = stderrW
		cmd.Stdin = stdinR

		if err = cmd.Start(); err != nil {
			stdoutR.Close()
			stdoutW.Close()
			stderrR.Close()
			stderrW.Close()
			stdinR.Close()
			stdinW.Close()
			c.mu.Unlock()
			return fmt.Errorf("child: start: %w", err)
		}

		// The parent's copies of the ends that now belong to the child
		// must be closed, so the parent's own ends observe EOF once the
		// child exits instead of being held open by this lingering
		// duplicate.
		stdoutW.Close()
		stderrW.Close()
		stdinR.Close()
	}

	pgid, err := unix.Getpgid(cmd.Process.Pid)
	if err != nil {
		pgid = cmd.Process.Pid
	}

	c.cmd = cmd
	c.pid = cmd.Process.Pid
	c.pgid = pgid
	c.returnCode = nil
	c.state = StateRunning
	c.exited = make(chan struct{})
	c.stdoutR, c.stderrR, c.stdinW, c.ptyMaster = stdoutR, stderrR, stdinW, ptmx
	c.stdoutClose, c.stderrClose, c.stdinClose, c.ptyClose = sync.Once{}, sync.Once{}, sync.Once{}, sync.Once{}

	exitedCh := c.exited
	pid := c.pid
	c.mu.Unlock()

	go func() {
		err := cmd.Wait()
		c.mu.Lock()
		c.waitErr = err
		if c.state == StateRunning {
			c.state = StateExited
		}
		close(exitedCh)
		c.mu.Unlock()
		if err != nil {
			slog.Info("child: exited", "pid", pid, "err", err)
		} else {
			slog.Info("child: exited", "pid", pid, "code", 0)
		}
	}()

	c.registerCleanup()

	return nil
}

func (c *Child) registerCleanup() {
	pid := c.pid
	pgid := c.pgid
	cleanup := runtime.AddCleanup(c, func(g int) {
		// Best-effort: a Child discarded while still RUNNING is killed so
		// its process group is not leaked. Errors are deliberately
		// swallowed here -- there is no caller left to report them to.
		_ = unix.Kill(-g, unix.SIGKILL)
	}, pgid)
	_ = pid
	c.mu.Lock()
	c.cleanup = cleanup
	c.cleanupSet = true
	c.mu.Unlock()
}
