// Package cli implements the lumen command line: run a script file, a -e
// expression, or piped stdin on a fresh VM instance configured from
// lumen.yaml.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	slogmulti "github.com/samber/slog-multi"

	"github.com/lumenlang/lumen/internal/config"
	"github.com/lumenlang/lumen/pkg/libs"
	"github.com/lumenlang/lumen/pkg/lumen"
)

var level = new(slog.LevelVar)

// options are the host-side flags; everything after the script path
// belongs to the script.
type options struct {
	configPath string
	logPath    string
	evalCode   string
	scriptPath string
	scriptArgs []string
}

func usage(out io.Writer, prog string) {
	fmt.Fprintf(out, "Usage: %s [options] <script> [args...]\n", prog)
	fmt.Fprintf(out, "       %s -e 'code'\n", prog)
	fmt.Fprintf(out, "       <stdin> | %s\n\n", prog)
	fmt.Fprintln(out, "Options:")
	fmt.Fprintln(out, "  -e <code>        run the given chunk instead of a file")
	fmt.Fprintln(out, "  -config <path>   configuration file (default lumen.yaml)")
	fmt.Fprintln(out, "  -log <path>      append structured logs to a file")
	fmt.Fprintln(out, "  -log-debug       lower the log level to debug")
	fmt.Fprintln(out, "  -help            show this help")
}

func parseArgs(args []string) (*options, error) {
	opts := &options{configPath: "lumen.yaml"}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-help", "--help", "help":
			return nil, nil
		case "-e":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("-e requires a code argument")
			}
			opts.evalCode = args[i+1]
			i++
		case "-config", "--config":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("-config requires a path argument")
			}
			opts.configPath = args[i+1]
			i++
		case "-log":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("-log requires a path argument")
			}
			opts.logPath = args[i+1]
			i++
		case "-log-debug", "--log-debug":
			level.Set(slog.LevelDebug)
		default:
			if opts.scriptPath == "" {
				opts.scriptPath = args[i]
			} else {
				opts.scriptArgs = append(opts.scriptArgs, args[i])
			}
		}
	}
	return opts, nil
}

// newLogger fans the log stream out to stderr (text on a terminal, JSON
// otherwise) and optionally to a JSON log file.
func newLogger(logPath string) (*slog.Logger, func(), error) {
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handlers []slog.Handler
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		handlers = append(handlers, slog.NewTextHandler(os.Stderr, handlerOpts))
	} else {
		handlers = append(handlers, slog.NewJSONHandler(os.Stderr, handlerOpts))
	}

	closer := func() {}
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		handlers = append(handlers, slog.NewJSONHandler(f, handlerOpts))
		closer = func() { f.Close() }
	}

	return slog.New(slogmulti.Fanout(handlers...)), closer, nil
}

// Main runs the command line and returns the process exit code.
func Main(args []string) int {
	prog := "lumen"
	if len(os.Args) > 0 {
		prog = os.Args[0]
	}

	opts, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n\n", err)
		usage(os.Stderr, prog)
		return 1
	}
	if opts == nil {
		usage(os.Stdout, prog)
		return 0
	}

	logger, closeLog, err := newLogger(opts.logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return 1
	}
	defer closeLog()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		logger.Error("configuration rejected", "error", err)
		return 1
	}

	l := lumen.NewStateWithLimits(cfg.Limits)
	defer l.Close()

	if err := libs.OpenLibs(l, cfg.Libraries...); err != nil {
		logger.Error("library registration failed", "error", err)
		return 1
	}
	logger.Debug("instance ready",
		"instance", l.InstanceID(),
		"max_stack", cfg.Limits.MaxStack,
		"max_call_depth", cfg.Limits.MaxCallDepth)

	pushScriptArgs(l, opts)

	status := lumen.Ok
	switch {
	case opts.evalCode != "":
		status = l.DoString(opts.evalCode)
	case opts.scriptPath != "":
		status = l.DoFile(opts.scriptPath)
	default:
		code, err := readStdin()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n\n", err)
			usage(os.Stderr, prog)
			return 1
		}
		status = l.DoString(code)
	}

	if status != lumen.Ok {
		msg, _ := l.ToString(-1)
		logger.Error("script failed", "instance", l.InstanceID(), "status", status, "error", msg)
		fmt.Fprintf(os.Stderr, "%s: %s\n", prog, msg)
		return 1
	}
	return 0
}

// pushScriptArgs exposes the script path and trailing arguments as the
// global arg table: arg[0] is the script path, arg[1..n] the arguments.
func pushScriptArgs(l *lumen.State, opts *options) {
	l.CreateTable(len(opts.scriptArgs), 1)
	l.PushString(opts.scriptPath)
	l.RawSetInt(-2, 0)
	for i, a := range opts.scriptArgs {
		l.PushString(a)
		l.RawSetInt(-2, i+1)
	}
	l.SetField(lumen.GlobalsIndex, "arg")
}

func readStdin() (string, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return "", err
	}
	if (stat.Mode() & os.ModeCharDevice) != 0 {
		return "", fmt.Errorf("no script given and stdin is a terminal")
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(data), nil
}
