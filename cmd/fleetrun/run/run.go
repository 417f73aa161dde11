// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package run provides the run command, which executes plan files.
package run

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-getter/v2"
	"github.com/hashicorp/go-multierror"
	"github.com/matt-FFFFFF/fleetrun/cmd/fleetrun/cmdutil"
	"github.com/matt-FFFFFF/fleetrun/internal/ctxlog"
	"github.com/matt-FFFFFF/fleetrun/internal/plan"
	"github.com/matt-FFFFFF/fleetrun/internal/remote"
	"github.com/urfave/cli/v3"
)

const (
	fileFlag   = "file"
	cliExitStr = ""
)

// ErrGetConfigFile is returned when a plan file cannot be fetched.
var ErrGetConfigFile = errors.New("failed to get plan file")

// RunCmd runs one or more plan files.
var RunCmd = &cli.Command{
	Name:  "run",
	Usage: "fleetrun run -f deploy.yaml",
	Description: `Run the steps of one or more plan files, in order.

Plan file URLs use Hashicorp's go-getter syntax, which allows for fetching files from various sources.
See https://github.com/hashicorp/go-getter. Files ending in .yaml or .yml are read as YAML,
files ending in .hcl as HCL. See 'fleetrun config example' for the format.

The user in the plan is used unless --user is given.`,
	Flags: cmdutil.Flags(
		[]cli.Flag{
			&cli.StringSliceFlag{
				Name:    fileFlag,
				Aliases: []string{"f"},
				Usage: "URL of the plan file to run. " +
					"Supports Hashicorp's go-getter syntax for fetching files from various sources. " +
					"Specify multiple times to run multiple files.",
			},
		},
		cmdutil.ClientFlags(),
		cmdutil.ResultFlags(),
	),
	Action: actionFunc,
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	logger := ctxlog.Logger(ctx).With("command", cmd.Name)
	logger.Debug("Running run command")

	urls := cmd.StringSlice(fileFlag)
	if len(urls) == 0 {
		logger.Error("Please specify at least one plan file using the --file or -f flag.")
		return cli.Exit(cliExitStr, 1)
	}

	plans := make([]*plan.Plan, 0, len(urls))

	for i, u := range urls {
		if u == "" {
			logger.Error(fmt.Sprintf("The URL at index %d is empty. Please provide a valid URL.", i))
			return cli.Exit(cliExitStr, 1)
		}

		p, err := getPlan(ctx, u)
		if err != nil {
			logger.Error(fmt.Sprintf("Failed to read plan %s: %s", u, err.Error()))
			return cli.Exit(cliExitStr, 1)
		}

		plans = append(plans, p)
	}

	title := "fleetrun run"
	if len(plans) == 1 && plans[0].Name != "" {
		title += ": " + plans[0].Name
	}

	return cmdutil.Execute(ctx, cmd, title, func(ctx context.Context, s *cmdutil.Session) (remote.Outcomes, error) {
		var (
			all  remote.Outcomes
			merr *multierror.Error
		)

		for i, p := range plans {
			var opts []remote.Option
			if !cmd.IsSet(cmdutil.UserFlag) {
				opts = append(opts, remote.WithUser(p.User))
			}

			ctxlog.Info(ctx, "running plan", "plan", p.Name, "file", urls[i])

			outcomes, err := plan.Execute(ctx, s.Runner(opts...), p)
			all = append(all, outcomes...)

			if err != nil {
				merr = multierror.Append(merr, fmt.Errorf("%s: %w", urls[i], err))
			}
		}

		return all, merr.ErrorOrNil()
	})
}

// getPlan loads the plan at url. A path to an existing local file is read
// directly, so a relative machines file resolves against its directory.
// Anything else is fetched with Hashicorp's go-getter into a temporary
// directory that is removed again.
func getPlan(ctx context.Context, url string) (*plan.Plan, error) {
	if url == "" {
		return nil, ErrGetConfigFile
	}

	if !strings.Contains(url, "::") && !strings.Contains(url, "://") {
		_, err := plan.FsFactory().Stat(url)
		if err == nil {
			return plan.Load(url)
		}

		if !strings.Contains(url, goGetterPathSeparator) {
			return nil, errors.Join(ErrGetConfigFile, err)
		}
	}

	tmpDir, err := os.MkdirTemp("", "fleetrun-getter-*")
	if err != nil {
		return nil, errors.Join(ErrGetConfigFile, err)
	}

	defer os.RemoveAll(tmpDir) //nolint:errcheck

	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Join(ErrGetConfigFile, err)
	}

	req := &getter.Request{
		Src:     url,
		Dst:     filepath.Join(tmpDir, "g"),
		Pwd:     wd,
		GetMode: getter.ModeDir,
	}

	// Sources are fetched as a directory and the plan read from it.
	// https://github.com/hashicorp/go-getter/issues/98
	dir, fileName := splitFileNameFromGetterURL(url)
	if dir == "" || fileName == "" {
		return nil, fmt.Errorf("%w: expected a go-getter URL ending in //path/to/plan: %s", ErrGetConfigFile, url)
	}

	req.Src = dir

	client := getter.Client{
		DisableSymlinks: true,
	}

	res, err := client.Get(ctx, req)
	if err != nil {
		return nil, errors.Join(ErrGetConfigFile, err)
	}

	data, err := os.ReadFile(filepath.Join(res.Dst, fileName))
	if err != nil {
		return nil, errors.Join(ErrGetConfigFile, err)
	}

	return plan.Parse(fileName, data)
}

const (
	goGetterPathSeparator = "//"
	goGetterRefSeparator  = "?"
	minimumGetterParts    = 3 // scheme, host and path
)

// splitFileNameFromGetterURL splits the URL into the directory and file name.
// It returns the new getter URL without the file name and the file name itself.
// Any ref query parameter is kept on the new URL.
func splitFileNameFromGetterURL(url string) (string, string) {
	var ref, fileName string

	parts := strings.Split(url, goGetterPathSeparator)
	if len(parts) < minimumGetterParts {
		return "", ""
	}

	last := len(parts) - 1

	if strings.Contains(parts[last], goGetterRefSeparator) {
		refSplit := strings.Split(parts[last], goGetterRefSeparator)
		if len(refSplit) > 1 {
			ref = strings.Join(refSplit[1:], "")
		}

		parts[last] = refSplit[0]
	}

	if filepath.Clean(parts[last]) == filepath.Dir(parts[last]) {
		return "", ""
	}

	fileName = filepath.Base(parts[last])
	parts[last] = filepath.Dir(parts[last])

	if parts[last] == "." {
		parts = parts[:last]
	}

	newURL := strings.Join(parts, goGetterPathSeparator)

	if ref != "" {
		newURL += goGetterRefSeparator + ref
	}

	return newURL, fileName
}
