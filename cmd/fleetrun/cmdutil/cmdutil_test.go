// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package cmdutil

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/matt-FFFFFF/fleetrun/internal/ctxlog"
	"github.com/matt-FFFFFF/fleetrun/internal/plan"
	"github.com/matt-FFFFFF/fleetrun/internal/remote"
	"github.com/prashantv/gostub"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

// runWith parses args against the shared flags and calls action.
func runWith(t *testing.T, args []string, action cli.ActionFunc) *bytes.Buffer {
	t.Helper()

	out := &bytes.Buffer{}
	cmd := &cli.Command{
		Name:      "test",
		Writer:    out,
		ErrWriter: io.Discard,
		Flags: Flags(
			TargetFlags(), ClientFlags(), TimeoutFlags(), OutputFlags(), ResultFlags(),
		),
		Action: action,
	}

	require.NoError(t, cmd.Run(context.Background(), append([]string{"test"}, args...)))

	return out
}

func TestMachines(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/hosts", []byte("c\n# d\n"), 0o644))

	stub := gostub.Stub(&plan.FsFactory, func() afero.Fs { return fs })
	defer stub.Reset()

	var got []string

	runWith(t, []string{"-m", "a", "--machine", "b", "-M", "/hosts"}, func(_ context.Context, cmd *cli.Command) error {
		var err error
		got, err = Machines(cmd)

		return err
	})

	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestMachines_None(t *testing.T) {
	runWith(t, nil, func(_ context.Context, cmd *cli.Command) error {
		_, err := Machines(cmd)
		assert.ErrorIs(t, err, ErrNoMachines)

		return nil
	})
}

func TestTemplates(t *testing.T) {
	runWith(t, []string{"--stdout", "/tmp/{}.out"}, func(_ context.Context, cmd *cli.Command) error {
		assert.Equal(t, remote.OutputTemplates{Stdout: "/tmp/{}.out"}, Templates(cmd))
		return nil
	})
}

func TestFinish_SavesAndPrints(t *testing.T) {
	fs := afero.NewMemMapFs()

	stub := gostub.Stub(&FsFactory, func() afero.Fs { return fs })
	defer stub.Reset()

	outcomes := remote.Outcomes{{Machine: "m1", Command: "ls", Status: remote.StatusCompleted}}

	out := runWith(t, []string{"--out", "/res.bin"}, func(ctx context.Context, cmd *cli.Command) error {
		return Finish(ctx, cmd, outcomes, nil)
	})

	assert.Contains(t, out.String(), "m1")

	f, err := fs.Open("/res.bin")
	require.NoError(t, err)

	defer f.Close() //nolint:errcheck

	got, err := remote.ReadBinary(f)
	require.NoError(t, err)
	assert.Equal(t, outcomes, got)
}

func TestFinish_FailureExitCode(t *testing.T) {
	outcomes := remote.Outcomes{
		{Machine: "m1", Command: "ls", Status: remote.StatusTimedOut, ExitCode: -1},
		{Machine: "m2", Command: "ls", Status: remote.StatusCompleted},
	}

	var logs bytes.Buffer

	runWith(t, nil, func(ctx context.Context, cmd *cli.Command) error {
		ctx = ctxlog.New(ctx, slog.New(slog.NewTextHandler(&logs, nil)))
		err := Finish(ctx, cmd, outcomes, nil)

		var exitErr cli.ExitCoder
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 1, exitErr.ExitCode())
		assert.Contains(t, logs.String(), "machines timed out")
		assert.Contains(t, logs.String(), "machines=[m1]")

		return nil
	})
}

func TestSession_Runner(t *testing.T) {
	runWith(t, []string{"--user", "deploy"}, func(_ context.Context, cmd *cli.Command) error {
		s := &Session{cmd: cmd}
		r := s.Runner()
		assert.Equal(t, "deploy", r.User())
		assert.Equal(t, "root", s.Runner(remote.WithUser("root")).User(), "later options win")

		return nil
	})
}
