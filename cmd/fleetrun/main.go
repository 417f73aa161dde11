// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main contains the fleetrun command-line interface (CLI).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/matt-FFFFFF/fleetrun"
	"github.com/matt-FFFFFF/fleetrun/cmd/fleetrun/config"
	"github.com/matt-FFFFFF/fleetrun/cmd/fleetrun/cp"
	"github.com/matt-FFFFFF/fleetrun/cmd/fleetrun/exec"
	"github.com/matt-FFFFFF/fleetrun/cmd/fleetrun/run"
	"github.com/matt-FFFFFF/fleetrun/cmd/fleetrun/show"
	"github.com/matt-FFFFFF/fleetrun/cmd/fleetrun/tty"
	"github.com/matt-FFFFFF/fleetrun/internal/ctxlog"
	"github.com/matt-FFFFFF/fleetrun/internal/signalbroker"
	"github.com/urfave/cli/v3"
)

// rootCmd is the root command for the CLI.
var rootCmd = &cli.Command{
	Commands: []*cli.Command{
		exec.ExecCmd,
		cp.CopyCmd,
		tty.TTYCmd,
		run.RunCmd,
		show.ShowCmd,
		config.ConfigCmd,
	},
	Writer:    os.Stdout,
	ErrWriter: os.Stderr,
	Name:      "fleetrun",
	Description: `fleetrun runs shell commands and file copies on many machines at once
using the system ssh and scp clients. Commands are started on every machine
together and their exit codes collected in the order the machines were given.
Steps can also be described in a YAML or HCL plan file.

Set FLEETRUN_LOG_LEVEL to DEBUG, INFO, WARN or ERROR to change log verbosity.`,
	Usage:     "fleetrun exec -m web-1 -m web-2 -- uptime",
	Copyright: "Copyright (c) matt-FFFFFF 2025. All rights reserved.",
	Authors: []any{
		"Matt White (matt-FFFFFF)",
	},
	EnableShellCompletion: true,
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	ctx = ctxlog.New(ctx, ctxlog.DefaultLogger)
	defer cancel()

	sigCh := signalbroker.New(ctx)

	go signalbroker.Watch(ctx, sigCh, cancel)

	rootCmd.Version = fmt.Sprintf("%s (commit: %s)", fleetrun.Version, fleetrun.Commit)

	err := rootCmd.Run(ctx, os.Args) // Err is handled by cli framework

	if ctx.Err() != nil {
		ctxlog.Logger(ctx).Error("command terminated due to cancellation", "error", ctx.Err())
		os.Exit(1)
	}

	if err != nil {
		ctxlog.Logger(ctx).Error("command execution failed", "error", err)
		os.Exit(1)
	}

	ctxlog.Logger(ctx).Info("command completed successfully")
}
