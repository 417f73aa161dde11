// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package cp provides the copy command, which runs many scp transfers at once.
package cp

import (
	"context"
	"fmt"

	"github.com/matt-FFFFFF/fleetrun/cmd/fleetrun/cmdutil"
	"github.com/matt-FFFFFF/fleetrun/internal/remote"
	"github.com/urfave/cli/v3"
)

const (
	srcFlag = "src"
	dstFlag = "dst"
	toFlag  = "to"
)

// CopyCmd copies source/destination pairs, or one source to every machine.
var CopyCmd = &cli.Command{
	Name:  "copy",
	Usage: "fleetrun copy --src a.tar --dst admin@web-1:/tmp/a.tar",
	Description: `Copy files with scp, all transfers at once.

Pairs: give --src and --dst the same number of times; the n-th source is
copied to the n-th destination. Either side may be remote (user@host:path).

Upload: give one --src, a --to path and machines with --machine or
--machines-file; the source is copied to that path on every machine.`,
	Flags: cmdutil.Flags(
		[]cli.Flag{
			&cli.StringSliceFlag{Name: srcFlag, Aliases: []string{"s"}, Usage: "Source path, repeatable"},
			&cli.StringSliceFlag{Name: dstFlag, Aliases: []string{"d"}, Usage: "Destination path, repeatable"},
			&cli.StringFlag{Name: toFlag, Usage: "Remote path to upload the single source to", OnlyOnce: true},
		},
		cmdutil.TargetFlags(),
		cmdutil.ClientFlags(),
		cmdutil.ResultFlags(),
	),
	Action: actionFunc,
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	sources := cmd.StringSlice(srcFlag)
	destinations := cmd.StringSlice(dstFlag)
	to := cmd.String(toFlag)

	var machines []string

	switch {
	case to != "":
		if len(sources) != 1 || len(destinations) != 0 {
			return cli.Exit("--to needs exactly one --src and no --dst", 1)
		}

		var err error

		if machines, err = cmdutil.Machines(cmd); err != nil {
			return cli.Exit(err.Error(), 1)
		}
	case len(sources) == 0:
		return cli.Exit("nothing to copy, use --src with --dst or --to", 1)
	case len(sources) != len(destinations):
		return cli.Exit(fmt.Sprintf("%d sources but %d destinations", len(sources), len(destinations)), 1)
	}

	return cmdutil.Execute(ctx, cmd, "fleetrun copy",
		func(ctx context.Context, s *cmdutil.Session) (remote.Outcomes, error) {
			r := s.Runner()

			src, dst := sources, destinations
			if to != "" {
				src = make([]string, len(machines))
				dst = make([]string, len(machines))

				for i, m := range machines {
					src[i] = sources[0]
					dst[i] = r.Remote(m, to)
				}
			}

			codes, err := r.SCPInParallel(ctx, src, dst)

			return remote.FromCopies(src, dst, codes), err
		})
}
