package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prepflight/prepflight/internal/app"
	"github.com/prepflight/prepflight/internal/cli"
	"github.com/prepflight/prepflight/internal/invoke"
)

// main is the entrypoint for the prepflight launcher.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// The real main function handles errors and exit codes.
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error
// handling; opts let tests substitute the app's external collaborators. A
// failing preprocessing subprocess is translated into an ExitError carrying
// the subprocess's own exit code, so the launcher terminates with exactly
// that status.
func run(outW io.Writer, args []string, opts ...app.Option) (err error) {
	appConfig, shouldExit, parseErr := cli.Parse(args, outW)
	if parseErr != nil {
		return parseErr
	}
	if shouldExit {
		return nil
	}

	// The app panics on critical startup errors (unreadable profile), so we
	// recover here to provide a clean exit message to the user.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("application startup panicked: %v", r)
		}
	}()

	launcher := app.NewApp(outW, appConfig, opts...)

	if runErr := launcher.Run(context.Background()); runErr != nil {
		var subErr *invoke.SubprocessError
		if errors.As(runErr, &subErr) {
			return &cli.ExitError{Code: subErr.Code, Message: runErr.Error()}
		}
		return runErr
	}
	return nil
}
