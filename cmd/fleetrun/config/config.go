// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package config provides the config command, which documents and checks plan files.
package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/matt-FFFFFF/fleetrun/internal/plan"
	"github.com/urfave/cli/v3"
)

const (
	formatFlag = "format"
	fileArg    = "file"
)

// ConfigCmd groups the plan file helpers.
var ConfigCmd = &cli.Command{
	Name:  "config",
	Usage: "Get info on the plan file format",
	Commands: []*cli.Command{
		exampleCmd,
		validateCmd,
	},
}

var exampleCmd = &cli.Command{
	Name:  "example",
	Usage: "Print an example plan",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    formatFlag,
			Aliases: []string{"o"},
			Usage:   "yaml or hcl",
			Value:   "yaml",
		},
	},
	Action: func(_ context.Context, cmd *cli.Command) error {
		switch strings.ToLower(cmd.String(formatFlag)) {
		case "yaml", "yml":
			fmt.Fprint(cmd.Writer, plan.ExampleYAML) //nolint:errcheck
		case "hcl":
			fmt.Fprint(cmd.Writer, plan.ExampleHCL) //nolint:errcheck
		default:
			return cli.Exit(fmt.Sprintf("unknown format %q, expected yaml or hcl", cmd.String(formatFlag)), 1)
		}

		return nil
	},
}

var validateCmd = &cli.Command{
	Name:  "validate",
	Usage: "Check a local plan file without running it",
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name: fileArg,
		},
	},
	Action: func(_ context.Context, cmd *cli.Command) error {
		name := cmd.StringArg(fileArg)
		if name == "" {
			return cli.Exit("no plan file given", 1)
		}

		p, err := plan.Load(name)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}

		machines, err := p.ResolveMachines()
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}

		if err := p.Validate(machines); err != nil {
			return cli.Exit(err.Error(), 1)
		}

		fmt.Fprintf(cmd.Writer, "%s: ok, %d machines, %d steps\n", name, len(machines), len(p.Steps)) //nolint:errcheck

		return nil
	},
}
