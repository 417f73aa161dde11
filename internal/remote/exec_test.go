// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build !windows

package remote

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/matt-FFFFFF/fleetrun/internal/progress"
	"github.com/prashantv/gostub"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// fakeSSH stands in for the ssh client: it ignores every option and runs
// the final argument as a local shell command.
const fakeSSH = `#!/bin/sh
for last; do :; done
exec /bin/sh -c "$last"
`

// fakeSCP copies the second to last argument to the last.
const fakeSCP = `#!/bin/sh
n=$#
eval "src=\${$((n-1))}"
eval "dst=\${$n}"
exec cp "$src" "$dst"
`

func newLocalRunner(t *testing.T, opts ...Option) *Runner {
	t.Helper()

	dir := t.TempDir()
	ssh := filepath.Join(dir, "ssh")
	scp := filepath.Join(dir, "scp")
	require.NoError(t, os.WriteFile(ssh, []byte(fakeSSH), 0o755))
	require.NoError(t, os.WriteFile(scp, []byte(fakeSCP), 0o755))

	base := []Option{
		WithBinaries(ssh, scp),
		WithFs(afero.NewOsFs()),
		WithStreams(nil, io.Discard, io.Discard),
		WithConsole(io.Discard),
	}

	return New(append(base, opts...)...)
}

func TestExec_ExitCodesInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := newLocalRunner(t)

	outcomes, err := r.RunAllSSHInParallel(context.Background(),
		[]string{"m1", "m2", "m3"},
		[]string{"sleep 0.2; exit 0", "exit 7", "exit 0"},
		OutputTemplates{}, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 7, 0}, outcomes.ExitCodes())
}

func TestExec_TimeoutTerminates(t *testing.T) {
	defer goleak.VerifyNone(t)

	rep := &recordingReporter{}
	r := newLocalRunner(t, WithReporter(rep))

	start := time.Now()
	outcomes, err := r.RunAllSSHInParallel(context.Background(),
		[]string{"m1", "m2"},
		[]string{"exec sleep 30", "exit 0"},
		OutputTemplates{}, 300*time.Millisecond)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)

	require.Len(t, outcomes, 2)
	assert.Equal(t, StatusTimedOut, outcomes[0].Status)
	assert.Equal(t, StatusCompleted, outcomes[1].Status)
	assert.Equal(t, []int{0}, outcomes.ExitCodes())

	pid := startedPid(t, rep, "m1")
	assert.ErrorIs(t, syscall.Kill(pid, 0), syscall.ESRCH, "timed out process must be gone once the call returns")
}

func TestExec_TimeoutBoundedWhenDescendantHoldsOutput(t *testing.T) {
	defer goleak.VerifyNone(t)

	stub := gostub.Stub(&pipeWaitDelay, 200*time.Millisecond)
	defer stub.Reset()

	rep := &recordingReporter{}
	r := newLocalRunner(t, WithReporter(rep))

	start := time.Now()
	outcomes, err := r.RunAllSSHInParallel(context.Background(),
		[]string{"m1", "m2"},
		[]string{"sleep 4; true", "exit 0"},
		OutputTemplates{}, 300*time.Millisecond)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	require.Len(t, outcomes, 2)
	assert.Equal(t, StatusTimedOut, outcomes[0].Status)
	assert.Equal(t, StatusCompleted, outcomes[1].Status)

	pid := startedPid(t, rep, "m1")
	assert.ErrorIs(t, syscall.Kill(pid, 0), syscall.ESRCH)
}

func TestExec_BackgroundChildDoesNotDelayExit(t *testing.T) {
	defer goleak.VerifyNone(t)

	stub := gostub.Stub(&pipeWaitDelay, 200*time.Millisecond)
	defer stub.Reset()

	rep := &recordingReporter{}
	r := newLocalRunner(t, WithReporter(rep))

	start := time.Now()
	codes, err := r.RunSSHInParallel(context.Background(), []string{"m1"}, "sleep 3 & exit 0", OutputTemplates{})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, codes)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Len(t, rep.of(progress.EventCompleted), 1)
}

func startedPid(t *testing.T, rep *recordingReporter, machine string) int {
	t.Helper()

	for _, e := range rep.of(progress.EventStarted) {
		if e.Machine == machine {
			require.Positive(t, e.Data.Pid)
			return e.Data.Pid
		}
	}

	require.FailNow(t, "no started event", "machine %s", machine)

	return 0
}

func TestExec_RedirectPerMachine(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := newLocalRunner(t)
	dir := t.TempDir()

	codes, err := r.RunSSHInParallel(context.Background(), []string{"m1", "m2"}, "echo hello; echo oops >&2",
		OutputTemplates{
			Stdout: filepath.Join(dir, "{}.out"),
			Stderr: filepath.Join(dir, "{machine}.err"),
		})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0}, codes)

	for _, m := range []string{"m1", "m2"} {
		out, err := os.ReadFile(filepath.Join(dir, m+".out"))
		require.NoError(t, err)
		assert.Equal(t, "hello\n", string(out))

		errOut, err := os.ReadFile(filepath.Join(dir, m+".err"))
		require.NoError(t, err)
		assert.Equal(t, "oops\n", string(errOut))
	}
}

func TestExec_OutputReported(t *testing.T) {
	defer goleak.VerifyNone(t)

	rep := &recordingReporter{}
	r := newLocalRunner(t, WithReporter(rep))

	_, err := r.RunSSHInParallel(context.Background(), []string{"m1"}, "printf 'a\\nb'", OutputTemplates{})
	require.NoError(t, err)

	var lines []string
	for _, e := range rep.of(progress.EventOutput) {
		lines = append(lines, e.Data.OutputLine)
	}

	assert.Equal(t, []string{"a", "b"}, lines)
	assert.Len(t, rep.of(progress.EventCompleted), 1)
}

func TestExec_SCPInParallel(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := newLocalRunner(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o600))

	dsts := []string{filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.txt")}

	codes, err := r.SCPInParallel(context.Background(), []string{src, src}, dsts)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0}, codes)

	for _, d := range dsts {
		data, err := os.ReadFile(d)
		require.NoError(t, err)
		assert.Equal(t, "payload", string(data))
	}
}

func TestExec_TerminalMode(t *testing.T) {
	defer goleak.VerifyNone(t)

	var out strings.Builder

	r := newLocalRunner(t, WithStreams(nil, &out, io.Discard))

	job, err := r.RunSSHTerminal(context.Background(), "m1", "cat; echo done")
	require.NoError(t, err)

	rc, err := job.Wait(context.Background(), 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 0, rc)
	assert.Equal(t, "done\n", out.String(), "stdin must be empty in terminal mode")
}

func TestExec_MissingBinary(t *testing.T) {
	r := New(WithBinaries("/not/a/real/ssh", ""), WithConsole(io.Discard))

	_, err := r.RunSSH(context.Background(), "m1", "true", Redirect{})
	require.ErrorIs(t, err, ErrCouldNotStartProcess)

	var pathErr *os.PathError
	assert.ErrorAs(t, err, &pathErr)
}
