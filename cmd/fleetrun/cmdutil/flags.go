// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package cmdutil holds the flags and plumbing shared by the fleetrun subcommands.
package cmdutil

import (
	"errors"
	"fmt"

	"github.com/matt-FFFFFF/fleetrun/internal/plan"
	"github.com/matt-FFFFFF/fleetrun/internal/remote"
	"github.com/urfave/cli/v3"
)

// Flag names.
const (
	MachineFlag      = "machine"
	MachinesFileFlag = "machines-file"
	UserFlag         = "user"
	TimeoutFlag      = "timeout"
	StdoutFlag       = "stdout"
	StderrFlag       = "stderr"
	OutFlag          = "out"
	TUIFlag          = "tui"
	SSHFlag          = "ssh"
	SCPFlag          = "scp"
	FailuresFlag     = "failures-only"
)

// ErrNoMachines is returned when neither --machine nor --machines-file names a machine.
var ErrNoMachines = errors.New("no machines given, use --machine or --machines-file")

// TargetFlags select the machines to run on.
func TargetFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    MachineFlag,
			Aliases: []string{"m"},
			Usage:   "Machine to run on. Specify multiple times for more machines.",
		},
		&cli.StringFlag{
			Name:      MachinesFileFlag,
			Aliases:   []string{"M"},
			Usage:     "File listing one machine per line. Lines starting with '#' are ignored.",
			TakesFile: true,
			OnlyOnce:  true,
		},
	}
}

// ClientFlags configure the ssh and scp clients.
func ClientFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     UserFlag,
			Aliases:  []string{"u"},
			Usage:    "Remote user",
			Value:    remote.DefaultUser,
			OnlyOnce: true,
		},
		&cli.StringFlag{
			Name:     SSHFlag,
			Usage:    "Path of the ssh client",
			Value:    remote.DefaultSSHPath,
			OnlyOnce: true,
		},
		&cli.StringFlag{
			Name:     SCPFlag,
			Usage:    "Path of the scp client",
			Value:    remote.DefaultSCPPath,
			OnlyOnce: true,
		},
	}
}

// OutputFlags control redirection of remote output.
func OutputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:      StdoutFlag,
			Usage:     "Write each machine's stdout to this file. '{}' or '{machine}' is replaced by the machine name.",
			TakesFile: true,
			OnlyOnce:  true,
		},
		&cli.StringFlag{
			Name:      StderrFlag,
			Usage:     "Write each machine's stderr to this file. '{}' or '{machine}' is replaced by the machine name.",
			TakesFile: true,
			OnlyOnce:  true,
		},
	}
}

// ResultFlags control how results are presented and saved.
func ResultFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:      OutFlag,
			Usage:     "Save the results to this file, see the show command",
			TakesFile: true,
			OnlyOnce:  true,
		},
		&cli.BoolFlag{
			Name:        TUIFlag,
			Aliases:     []string{"t", "interactive"},
			Usage:       "Show live progress in an interactive terminal UI",
			DefaultText: "false",
			OnlyOnce:    true,
		},
		&cli.BoolFlag{
			Name:        FailuresFlag,
			Usage:       "Only list machines that did not succeed",
			DefaultText: "false",
			OnlyOnce:    true,
		},
	}
}

// TimeoutFlags limit each wait. Zero waits forever.
func TimeoutFlags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:     TimeoutFlag,
			Usage:    "Give up on a machine after this long and terminate its client, e.g. 30s. 0 waits forever.",
			OnlyOnce: true,
		},
	}
}

// Machines returns the machines named on the command line followed by
// those in the machines file.
func Machines(cmd *cli.Command) ([]string, error) {
	machines := cmd.StringSlice(MachineFlag)

	if path := cmd.String(MachinesFileFlag); path != "" {
		fromFile, err := plan.ReadMachinesFile(path)
		if err != nil {
			return nil, err
		}

		machines = append(machines, fromFile...)
	}

	if len(machines) == 0 {
		return nil, ErrNoMachines
	}

	return machines, nil
}

// Templates returns the output redirect templates.
func Templates(cmd *cli.Command) remote.OutputTemplates {
	return remote.OutputTemplates{
		Stdout: cmd.String(StdoutFlag),
		Stderr: cmd.String(StderrFlag),
	}
}

// Flags concatenates flag groups.
func Flags(groups ...[]cli.Flag) []cli.Flag {
	var flags []cli.Flag
	for _, g := range groups {
		flags = append(flags, g...)
	}

	return flags
}

// exitf logs nothing and returns a cli exit error with code 1.
func exitf(format string, args ...any) cli.ExitCoder {
	return cli.Exit(fmt.Sprintf(format, args...), 1)
}
