// Package cli parses the vrpc-agent command line.
package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Options is the parsed command line.
type Options struct {
	Transport    string
	Bindings     []string
	ManifestPath string
	LogFormat    string
	LogLevel     string
	Demo         bool
}

// Parse processes command-line arguments. It returns the parsed options, a
// boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*Options, bool, error) {
	flagSet := flag.NewFlagSet("vrpc-agent", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
vrpc-agent - serves registered classes as remotely callable endpoints.

Usage:
  vrpc-agent [options]

Broker and domain settings come from the environment (VRPC_BROKER_URL,
VRPC_DOMAIN, VRPC_AGENT, ...).

Options:
`)
		flagSet.PrintDefaults()
	}

	transportFlag := flagSet.String("transport", "nats", "Transport to serve on. Options: 'nats' or 'socketio'.")
	bindingsFlag := flagSet.String("bindings", "", "Comma-separated list of binding plugins to load.")
	manifestFlag := flagSet.String("manifests", "", "Path to a directory of metadata manifest .hcl files.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	demoFlag := flagSet.Bool("demo", false, "Register the built-in demo bindings.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	transport := strings.ToLower(*transportFlag)
	if transport != "nats" && transport != "socketio" {
		return nil, false, &ExitError{Code: 2, Message: "invalid transport: must be 'nats' or 'socketio'"}
	}

	var bindings []string
	for _, path := range strings.Split(*bindingsFlag, ",") {
		if path = strings.TrimSpace(path); path != "" {
			bindings = append(bindings, path)
		}
	}

	return &Options{
		Transport:    transport,
		Bindings:     bindings,
		ManifestPath: *manifestFlag,
		LogFormat:    logFormat,
		LogLevel:     logLevel,
		Demo:         *demoFlag,
	}, false, nil
}

// NewLogger creates and configures a new slog.Logger instance. It does not
// set the global logger, allowing for isolated logger instances.
func NewLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if formatStr == "json" {
		handler = slog.NewJSONHandler(outW, handlerOpts)
	} else {
		handler = slog.NewTextHandler(outW, handlerOpts)
	}
	return slog.New(handler)
}
