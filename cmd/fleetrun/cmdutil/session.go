// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package cmdutil

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/matt-FFFFFF/fleetrun/internal/ctxlog"
	"github.com/matt-FFFFFF/fleetrun/internal/progress"
	"github.com/matt-FFFFFF/fleetrun/internal/remote"
	"github.com/matt-FFFFFF/fleetrun/internal/tui"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
)

const debugEventBuffer = 1024

// ErrSomeFailed is returned when at least one machine did not succeed.
var ErrSomeFailed = errors.New("some machines failed, see above for details")

// FsFactory returns the filesystem results files are written to.
var FsFactory = func() afero.Fs {
	return afero.NewOsFs()
}

// Session builds runners wired to the current output mode.
type Session struct {
	cmd      *cli.Command
	reporter progress.Reporter
	tui      bool
}

// Runner returns a remote runner configured from the client flags. opts are
// applied last. In TUI mode console and inherited output are discarded since
// the terminal belongs to the UI; output lines still reach it as events.
func (s *Session) Runner(opts ...remote.Option) *remote.Runner {
	base := []remote.Option{
		remote.WithUser(s.cmd.String(UserFlag)),
		remote.WithBinaries(s.cmd.String(SSHFlag), s.cmd.String(SCPFlag)),
		remote.WithReporter(s.reporter),
	}

	if s.tui {
		base = append(base,
			remote.WithConsole(io.Discard),
			remote.WithStreams(nil, io.Discard, io.Discard),
		)
	} else {
		base = append(base,
			remote.WithConsole(s.cmd.Writer),
			remote.WithStreams(os.Stdin, s.cmd.Writer, s.cmd.ErrWriter),
		)
	}

	return remote.New(append(base, opts...)...)
}

// SessionFunc performs the work of a subcommand.
type SessionFunc func(ctx context.Context, s *Session) (remote.Outcomes, error)

// Execute runs fn, inside the TUI when --tui is set, then saves and prints
// the outcomes. It returns a cli exit error when anything failed.
func Execute(ctx context.Context, cmd *cli.Command, title string, fn SessionFunc) error {
	logger := ctxlog.Logger(ctx).With("command", cmd.Name)

	var (
		outcomes remote.Outcomes
		err      error
	)

	if cmd.Bool(TUIFlag) {
		logger.Info("starting interactive TUI mode")

		buf := new(bytes.Buffer)
		tuiCtx := ctxlog.NewForTUI(ctx, buf)

		runner := tui.NewRunner(tuiCtx, title)
		outcomes, err = runner.Run(tuiCtx, func(ctx context.Context, rep progress.Reporter) (remote.Outcomes, error) {
			return fn(ctx, &Session{cmd: cmd, reporter: rep, tui: true})
		})

		buf.WriteTo(cmd.ErrWriter) //nolint:errcheck
	} else {
		rep := debugReporter(ctx)

		outcomes, err = tui.RunWithoutTUI(ctx, func(ctx context.Context, rep progress.Reporter) (remote.Outcomes, error) {
			return fn(ctx, &Session{cmd: cmd, reporter: rep})
		}, rep)

		rep.Close()
	}

	return Finish(ctx, cmd, outcomes, err)
}

// Finish writes the results file when --out is set, prints the outcomes and
// maps failures to exit code 1.
func Finish(ctx context.Context, cmd *cli.Command, outcomes remote.Outcomes, runErr error) error {
	logger := ctxlog.Logger(ctx).With("command", cmd.Name)

	if name := cmd.String(OutFlag); name != "" {
		if err := save(name, outcomes); err != nil {
			logger.Error("failed to write results", "file", name, "error", err)
			return exitf("failed to write results to %s", name)
		}

		logger.Info("results written", "file", name)
	}

	opts := remote.DefaultOutputOptions()
	opts.OnlyFailures = cmd.Bool(FailuresFlag)

	if len(outcomes) > 0 {
		if _, err := io.WriteString(cmd.Writer, "\n"); err != nil {
			return exitf("failed to write results: %s", err)
		}

		if err := outcomes.WriteText(cmd.Writer, opts); err != nil {
			return exitf("failed to write results: %s", err)
		}
	}

	if runErr != nil {
		logger.Error("run failed", "error", runErr)
		return cli.Exit(runErr.Error(), 1)
	}

	if timedOut := outcomes.TimedOut(); len(timedOut) > 0 {
		logger.Warn("machines timed out", "machines", timedOut)
	}

	if outcomes.HasError() {
		logger.Debug("machine errors", "error", outcomes.Err())
		return cli.Exit(ErrSomeFailed.Error(), 1)
	}

	return nil
}

func save(name string, outcomes remote.Outcomes) error {
	f, err := FsFactory().Create(name)
	if err != nil {
		return err //nolint:wrapcheck
	}

	if err := outcomes.WriteBinary(f); err != nil {
		_ = f.Close()
		return err //nolint:wrapcheck
	}

	return f.Close() //nolint:wrapcheck
}

// debugReporter logs every progress event, output lines included, when
// debug logging is on. Otherwise it discards them.
func debugReporter(ctx context.Context) progress.Reporter {
	logger := ctxlog.Logger(ctx)
	if !logger.Enabled(ctx, slog.LevelDebug) {
		return progress.NewNullReporter()
	}

	cr := progress.NewChannelReporter(ctx, debugEventBuffer)
	cr.Listen(progress.ListenerFunc(func(e progress.Event) {
		logger.Debug("progress",
			"machine", e.Machine,
			"event", e.Type.String(),
			"line", e.Data.OutputLine,
			"exit_code", e.Data.ExitCode,
		)
	}))

	return cr
}
