// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package exec provides the exec command, which runs one shell command on many machines.
package exec

import (
	"context"
	"strings"

	"github.com/matt-FFFFFF/fleetrun/cmd/fleetrun/cmdutil"
	"github.com/matt-FFFFFF/fleetrun/internal/ctxlog"
	"github.com/matt-FFFFFF/fleetrun/internal/remote"
	"github.com/urfave/cli/v3"
)

// ExecCmd runs the trailing arguments as one command on every machine.
var ExecCmd = &cli.Command{
	Name:      "exec",
	Usage:     "fleetrun exec -m web-1 -m web-2 -- uptime",
	ArgsUsage: "COMMAND...",
	Description: `Run a shell command on every machine at once and wait for all of them.
Exit codes are reported in the order the machines were given.

Without --timeout the command waits for every machine however long it takes.
With --timeout each machine gets that long, measured from when its turn to be
waited on comes; a machine that runs over has its ssh client terminated.`,
	Flags: cmdutil.Flags(
		cmdutil.TargetFlags(),
		cmdutil.ClientFlags(),
		cmdutil.TimeoutFlags(),
		cmdutil.OutputFlags(),
		cmdutil.ResultFlags(),
	),
	Action: actionFunc,
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	logger := ctxlog.Logger(ctx).With("command", cmd.Name)

	command := strings.Join(cmd.Args().Slice(), " ")
	if command == "" {
		return cli.Exit("no command given", 1)
	}

	machines, err := cmdutil.Machines(cmd)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	tmpl := cmdutil.Templates(cmd)
	timeout := cmd.Duration(cmdutil.TimeoutFlag)

	logger.Debug("executing", "machines", len(machines), "timeout", timeout)

	return cmdutil.Execute(ctx, cmd, "fleetrun exec: "+command,
		func(ctx context.Context, s *cmdutil.Session) (remote.Outcomes, error) {
			r := s.Runner()

			if timeout <= 0 {
				codes, err := r.RunSSHInParallel(ctx, machines, command, tmpl)
				return remote.FromExitCodes(machines, command, codes), err
			}

			commands := make([]string, len(machines))
			for i := range commands {
				commands[i] = command
			}

			return r.RunAllSSHInParallel(ctx, machines, commands, tmpl, timeout)
		})
}
