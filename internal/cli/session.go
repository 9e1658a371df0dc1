package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fennward/factorytwin/internal/engine"
	"github.com/fennward/factorytwin/internal/sim"
	"github.com/fennward/factorytwin/internal/store"
)

// withEngine opens the database, restores the engine and runs fn against
// it. Every command goes through here, so the restore-on-open behavior is
// uniform: state is always the latest snapshot plus the history tail.
func withEngine(opts *RootOptions, cmd *cobra.Command, fn func(ctx context.Context, eng *engine.Engine) error) error {
	logLevel := slog.LevelWarn
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	cfg, err := LoadConfig(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	eng, err := engine.New(ctx, st, cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to restore engine", err)
	}

	return fn(ctx, eng)
}

// formatter builds the output formatter for a command.
func formatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// renderDomainError prints a domain failure and converts it to an
// ExitError so the process exit code reflects the outcome.
func renderDomainError(f *OutputFormatter, err error) error {
	var se *sim.Error
	if errors.As(err, &se) {
		_ = f.Error(string(se.Code), se.Message, nil)
		return NewExitError(ExitFailure, se.Error())
	}
	return WrapExitError(ExitCommandError, "operation failed", err)
}
