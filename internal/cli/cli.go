package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/vk/nodeweave/internal/app"
)

const usage = `
nodeweave - Evaluates self-describing dependency graphs.

Usage:
  nodeweave [options] [GRID_PATH]

Arguments:
  GRID_PATH
    An .hcl grid file, or a directory whose .hcl files form one grid.

Options:
`

// ExitError carries the exit code the process should terminate with.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// stringList collects a repeatable flag. Each occurrence may also hold a
// comma separated list.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*s = append(*s, part)
		}
	}
	return nil
}

type options struct {
	grid        string
	gridShort   string
	targets     stringList
	healthPort  int
	logFormat   string
	logLevel    string
	uiURL       string
	uiNamespace string
}

func (o *options) bind(fs *flag.FlagSet) {
	fs.StringVar(&o.grid, "grid", "", "Path to the grid file or directory.")
	fs.StringVar(&o.gridShort, "g", "", "Shorthand for -grid.")
	fs.Var(&o.targets, "target", "Node name or uid to evaluate. Repeatable or comma separated. Defaults to the grid's evaluate blocks.")
	fs.IntVar(&o.healthPort, "healthcheck-port", 0, "Port serving /health and /metrics. 0 disables the server.")
	fs.StringVar(&o.logFormat, "log-format", "text", "Log format: 'text' or 'json'.")
	fs.StringVar(&o.logLevel, "log-level", "info", "Log level: 'debug', 'info', 'warn' or 'error'.")
	fs.StringVar(&o.uiURL, "ui-url", "", "socket.io URL of a UI that receives graph changes, e.g. http://localhost:3000/socket.io/.")
	fs.StringVar(&o.uiNamespace, "ui-namespace", "/", "socket.io namespace of the UI.")
}

// gridPath picks -grid, then -g, then the first positional argument.
func (o *options) gridPath(fs *flag.FlagSet) string {
	for _, p := range []string{o.grid, o.gridShort, fs.Arg(0)} {
		if p != "" {
			return p
		}
	}
	return ""
}

func oneOf(flagName, value string, allowed ...string) (string, error) {
	v := strings.ToLower(value)
	if !slices.Contains(allowed, v) {
		return "", usageError("invalid %s '%s': want one of %s", flagName, value, strings.Join(allowed, ", "))
	}
	return v, nil
}

// Parse processes command-line arguments. The boolean result reports that the
// program should exit cleanly without running, as after -help.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	fs := flag.NewFlagSet("nodeweave", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprint(output, usage)
		fs.PrintDefaults()
	}

	var opts options
	opts.bind(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, usageError("%s", err.Error())
	}

	path := opts.gridPath(fs)
	if path == "" {
		fs.Usage()
		return nil, true, nil
	}

	logFormat, err := oneOf("log-format", opts.logFormat, "text", "json")
	if err != nil {
		return nil, false, err
	}
	logLevel, err := oneOf("log-level", opts.logLevel, "debug", "info", "warn", "error")
	if err != nil {
		return nil, false, err
	}

	cfg, err := app.NewConfig(app.Config{
		GridPath:        path,
		Targets:         opts.targets,
		HealthcheckPort: opts.healthPort,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		UIURL:           opts.uiURL,
		UINamespace:     opts.uiNamespace,
	})
	if err != nil {
		return nil, false, usageError("%s", err.Error())
	}

	slog.Debug("Parsed command line.", "grid", cfg.GridPath, "targets", cfg.Targets)
	return cfg, false, nil
}
