// Command procdrive loads a YAML spec of child processes, supervises them
// with the child and driver packages, and shows a live dashboard of their
// output. Flag handling and log-file setup are adapted from this module's
// teacher repository's cmd/proctmux/main.go.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nick/procdrive/child"
	"github.com/nick/procdrive/driver"
	"github.com/nick/procdrive/internal/config"
)

// setupLogger configures the logger to write to the specified file path.
// It returns an error if the log file cannot be opened.
func setupLogger(logPath string) (*os.File, error) {
	if logPath == "" {
		log.SetOutput(io.Discard)
		slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
		return nil, nil
	}

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, err
	}
	log.SetOutput(logFile)
	slog.SetDefault(slog.New(slog.NewTextHandler(logFile, nil)))
	return logFile, nil
}

func buildChildren(spec *config.Spec) (map[string]*child.Child, error) {
	children := make(map[string]*child.Child, len(spec.Children))
	for name, cs := range spec.Children {
		opts := []child.Option{}
		if cs.Cwd != "" {
			opts = append(opts, child.WithCwd(cs.Cwd))
		}
		if len(cs.Env) > 0 {
			opts = append(opts, child.WithEnv(cs.Env))
		}
		if cs.StdinTerminal {
			opts = append(opts, child.WithStdinTerminal())
		}
		if cs.ReadChunkSize > 0 {
			opts = append(opts, child.WithReadChunkSize(cs.ReadChunkSize))
		}
		if cs.ChunkTimeoutMS > 0 || cs.TotalTimeoutMS > 0 {
			opts = append(opts, child.WithTimeouts(
				time.Duration(cs.ChunkTimeoutMS)*time.Millisecond,
				time.Duration(cs.TotalTimeoutMS)*time.Millisecond,
			))
		}
		if len(spec.ShellCmd) > 0 {
			opts = append(opts, child.WithShell(spec.ShellCmd...))
		}

		var cmd any
		switch {
		case cs.Shell != "":
			cmd = cs.Shell
		case len(cs.Cmd) > 0:
			cmd = cs.Cmd
			opts = append(opts, child.WithoutShell())
		default:
			return nil, fmt.Errorf("procdrive: child %q has neither shell nor cmd set", name)
		}

		c, err := child.NewChild(cmd, opts...)
		if err != nil {
			return nil, fmt.Errorf("procdrive: building child %q: %w", name, err)
		}
		children[name] = c
	}
	return children, nil
}

func main() {
	var configFile, logPath string
	flag.StringVar(&configFile, "f", "", "path to config file (default: searches for procdrive.yaml in current directory)")
	flag.StringVar(&logPath, "log", "", "path to log file (default: logging disabled)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	logFile, err := setupLogger(logPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to open log file:", err)
		os.Exit(1)
	}
	defer func() {
		if logFile != nil {
			logFile.Close()
		}
	}()

	spec, err := config.LoadConfig(configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}
	slog.Info("config loaded", "children", len(spec.Children))

	children, err := buildChildren(spec)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	named := make([]*child.Child, 0, len(children))
	labels := make(map[*child.Child]string, len(children))
	for name, c := range children {
		named = append(named, c)
		labels[c] = name
	}
	drv := driver.New(named...)

	if failed, firstErr := drv.StartAll(); firstErr != nil {
		slog.Error("failed to start child", "label", labels[failed], "error", firstErr)
		os.Exit(1)
	}

	p := tea.NewProgram(newDashboard(drv, labels), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		slog.Error("dashboard exited with error", "error", err)
		os.Exit(1)
	}

	if failed, firstErr := drv.TerminateAll(); firstErr != nil {
		slog.Error("failed to terminate child on shutdown", "label", labels[failed], "error", firstErr)
	}
}
