package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/heisenware/vrpc-go"
	"github.com/heisenware/vrpc-go/agent/natsagent"
	"github.com/heisenware/vrpc-go/agent/sioagent"
	"github.com/heisenware/vrpc-go/internal/cli"
	"github.com/heisenware/vrpc-go/internal/ctxlog"
	"github.com/heisenware/vrpc-go/manifest"
	"github.com/heisenware/vrpc-go/modules/bar"
)

// main is the entrypoint for the vrpc-agent daemon.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(os.Stderr, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the daemon logic for easier testing and error handling.
func run(outW io.Writer, args []string) error {
	opts, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	logger := cli.NewLogger(opts.LogLevel, opts.LogFormat, outW)
	slog.SetDefault(logger)

	if opts.Demo {
		bar.Register()
	}
	for _, path := range opts.Bindings {
		if err := vrpc.LoadBindings(path); err != nil {
			return err
		}
		slog.Info("Loaded bindings.", "path", path)
	}
	if opts.ManifestPath != "" {
		f, err := manifest.LoadDir(opts.ManifestPath)
		if err != nil {
			return err
		}
		if err := f.Apply(vrpc.Default()); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = ctxlog.WithLogger(ctx, logger)

	switch opts.Transport {
	case "socketio":
		cfg, err := sioagent.LoadConfig()
		if err != nil {
			return err
		}
		a := sioagent.New(*cfg, vrpc.Default())
		if err := a.Start(ctx); err != nil {
			return err
		}
		defer a.Close()
	default:
		cfg, err := natsagent.LoadConfig()
		if err != nil {
			return err
		}
		a := natsagent.New(*cfg, vrpc.Default())
		if err := a.Start(ctx); err != nil {
			return err
		}
		defer a.Close()
	}

	<-ctx.Done()
	slog.Info("Shutting down.")
	return nil
}
