// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package tty provides the tty command, which runs a command on one machine
// with a forced pseudo-terminal.
package tty

import (
	"context"
	"errors"
	"strings"

	"github.com/matt-FFFFFF/fleetrun/cmd/fleetrun/cmdutil"
	"github.com/matt-FFFFFF/fleetrun/internal/ctxlog"
	"github.com/matt-FFFFFF/fleetrun/internal/remote"
	"github.com/urfave/cli/v3"
)

// TTYCmd runs a command in terminal mode and exits with its exit code.
var TTYCmd = &cli.Command{
	Name:      "tty",
	Usage:     "fleetrun tty web-1 -- sudo systemctl status nginx",
	ArgsUsage: "MACHINE COMMAND...",
	Description: `Run a command on a single machine with a forced pseudo-terminal (ssh -tt),
for programs that refuse to run without one. Stdin is not forwarded.
fleetrun exits with the remote exit code.`,
	Flags: cmdutil.Flags(
		cmdutil.ClientFlags(),
		cmdutil.TimeoutFlags(),
	),
	Action: actionFunc,
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) < 2 { //nolint:mnd
		return cli.Exit("usage: fleetrun tty MACHINE COMMAND...", 1)
	}

	machine, command := args[0], strings.Join(args[1:], " ")
	timeout := cmd.Duration(cmdutil.TimeoutFlag)

	r := remote.New(
		remote.WithUser(cmd.String(cmdutil.UserFlag)),
		remote.WithBinaries(cmd.String(cmdutil.SSHFlag), cmd.String(cmdutil.SCPFlag)),
		remote.WithConsole(cmd.Writer),
		remote.WithStreams(nil, cmd.Writer, cmd.ErrWriter),
	)

	job, err := r.RunSSHTerminal(ctx, machine, command)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	rc, err := job.Wait(ctx, timeout)
	if err != nil {
		if errors.Is(err, remote.ErrWaitTimeout) {
			ctxlog.Warn(ctx, "timed out, terminating", "machine", machine, "timeout", timeout)
		}

		if terr := job.Terminate(); terr != nil {
			ctxlog.Error(ctx, "terminate failed", "machine", machine, "error", terr)
		}

		_, _ = job.Wait(context.WithoutCancel(ctx), 0)

		return cli.Exit(err.Error(), 1)
	}

	if rc != 0 {
		return cli.Exit("", rc)
	}

	return nil
}
