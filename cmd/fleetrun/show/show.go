// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package show provides the show command, which prints a saved results file.
package show

import (
	"context"
	"errors"

	"github.com/matt-FFFFFF/fleetrun/cmd/fleetrun/cmdutil"
	"github.com/matt-FFFFFF/fleetrun/internal/remote"
	"github.com/urfave/cli/v3"
)

const (
	fileArg = "file"
)

var (
	// ErrReadFile is returned when the file cannot be read.
	ErrReadFile = errors.New("failed to read file")
	// ErrWriteResults is returned when the results cannot be written.
	ErrWriteResults = errors.New("failed to write results")
)

// ShowCmd prints results saved with --out.
var ShowCmd = &cli.Command{
	Name:        "show",
	Usage:       "fleetrun show results.bin",
	Description: "Show previously saved results.",
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name: fileArg,
		},
	},
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  cmdutil.FailuresFlag,
			Usage: "Only list machines that did not succeed",
		},
	},
	Action: func(_ context.Context, cmd *cli.Command) error {
		file, err := cmdutil.FsFactory().Open(cmd.StringArg(fileArg))
		if err != nil {
			return errors.Join(ErrReadFile, err)
		}
		defer file.Close() // nolint:errcheck

		outcomes, err := remote.ReadBinary(file)
		if err != nil {
			return err //nolint:wrapcheck
		}

		opts := remote.DefaultOutputOptions()
		opts.OnlyFailures = cmd.Bool(cmdutil.FailuresFlag)

		if err := outcomes.WriteText(cmd.Writer, opts); err != nil {
			return errors.Join(ErrWriteResults, err)
		}

		return nil
	},
}
