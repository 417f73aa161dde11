// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package plan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matt-FFFFFF/fleetrun/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	method   string
	machines []string
	commands []string
	timeout  time.Duration
	tmpl     remote.OutputTemplates
}

// fakeFleet records calls and returns exit code 0 unless the command or
// destination is listed in fail.
type fakeFleet struct {
	calls []call
	fail  map[string]int
	err   error
}

func (f *fakeFleet) code(key string) int {
	return f.fail[key]
}

func (f *fakeFleet) Remote(machine, path string) string {
	return "admin@" + machine + ":" + path
}

func (f *fakeFleet) SCPInParallel(_ context.Context, sources, destinations []string) ([]int, error) {
	f.calls = append(f.calls, call{method: "scp", machines: destinations, commands: sources})

	codes := make([]int, len(destinations))
	for i, d := range destinations {
		codes[i] = f.code(d)
	}

	return codes, f.err
}

func (f *fakeFleet) RunSSHInParallel(
	_ context.Context, machines []string, command string, tmpl remote.OutputTemplates,
) ([]int, error) {
	f.calls = append(f.calls, call{method: "run", machines: machines, commands: []string{command}, tmpl: tmpl})

	codes := make([]int, len(machines))
	for i := range machines {
		codes[i] = f.code(command)
	}

	return codes, f.err
}

func (f *fakeFleet) RunAllSSHInParallel(
	_ context.Context, machines, commands []string, tmpl remote.OutputTemplates, timeout time.Duration,
) (remote.Outcomes, error) {
	f.calls = append(f.calls, call{method: "runall", machines: machines, commands: commands, timeout: timeout, tmpl: tmpl})

	var oc remote.Outcomes
	for i, m := range machines {
		oc = append(oc, &remote.Outcome{
			Machine: m, Command: commands[i], Status: remote.StatusCompleted, ExitCode: f.code(commands[i]),
		})
	}

	return oc, f.err
}

func TestExecute_Steps(t *testing.T) {
	p := &Plan{
		Machines: []string{"m1", "m2"},
		Stdout:   "/logs/{}.out",
		Steps: []*Step{
			{Type: StepCopy, Sources: []string{"a"}, Destinations: []string{"admin@m1:/a"}},
			{Type: StepUpload, Source: "bin", Destination: "/tmp/bin"},
			{Type: StepExec, Command: "uptime"},
			{Type: StepExec, Command: "df", Timeout: "5s"},
			{Type: StepExecEach, Commands: []string{"x", "y"}},
		},
	}
	f := &fakeFleet{}

	outcomes, err := Execute(context.Background(), f, p)
	require.NoError(t, err)
	assert.Len(t, outcomes, 1+2+2+2+2)

	require.Len(t, f.calls, 5)
	assert.Equal(t, "scp", f.calls[0].method)
	assert.Equal(t, []string{"admin@m1:/tmp/bin", "admin@m2:/tmp/bin"}, f.calls[1].machines)
	assert.Equal(t, []string{"bin", "bin"}, f.calls[1].commands)
	assert.Equal(t, "run", f.calls[2].method)
	assert.Equal(t, "/logs/{}.out", f.calls[2].tmpl.Stdout)
	assert.Equal(t, "runall", f.calls[3].method)
	assert.Equal(t, 5*time.Second, f.calls[3].timeout)
	assert.Equal(t, []string{"df", "df"}, f.calls[3].commands)
	assert.Equal(t, []string{"x", "y"}, f.calls[4].commands)
	assert.Zero(t, f.calls[4].timeout)
}

func TestExecute_StopsOnFailure(t *testing.T) {
	p := &Plan{
		Machines: []string{"m1"},
		Steps: []*Step{
			{Type: StepExec, Name: "first", Command: "false"},
			{Type: StepExec, Name: "second", Command: "true"},
		},
	}
	f := &fakeFleet{fail: map[string]int{"false": 1}}

	outcomes, err := Execute(context.Background(), f, p)
	require.ErrorIs(t, err, ErrStepFailed)
	require.ErrorIs(t, err, remote.ErrMachineFailed)
	assert.Contains(t, err.Error(), "first")
	assert.Len(t, f.calls, 1)
	assert.Equal(t, []int{1}, outcomes.ExitCodes())
}

func TestExecute_ContinueOnError(t *testing.T) {
	p := &Plan{
		Machines: []string{"m1"},
		Steps: []*Step{
			{Type: StepExec, Command: "false", ContinueOnError: true},
			{Type: StepExec, Command: "true"},
		},
	}
	f := &fakeFleet{fail: map[string]int{"false": 1}}

	outcomes, err := Execute(context.Background(), f, p)
	require.ErrorIs(t, err, ErrStepFailed)
	assert.Len(t, f.calls, 2)
	assert.Equal(t, []int{1, 0}, outcomes.ExitCodes())
}

func TestExecute_FleetError(t *testing.T) {
	spawnErr := errors.New("boom")
	p := &Plan{Machines: []string{"m1"}, Steps: []*Step{{Type: StepExec, Command: "true"}}}

	_, err := Execute(context.Background(), &fakeFleet{err: spawnErr}, p)
	require.ErrorIs(t, err, spawnErr)
}

func TestExecute_Invalid(t *testing.T) {
	f := &fakeFleet{}

	_, err := Execute(context.Background(), f, &Plan{Steps: []*Step{{Type: StepExec, Command: "true"}}})
	require.ErrorIs(t, err, ErrNoMachines)
	assert.Empty(t, f.calls)
}

func TestExecute_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := &fakeFleet{}
	p := &Plan{Machines: []string{"m1"}, Steps: []*Step{{Type: StepExec, Command: "true"}}}

	_, err := Execute(ctx, f, p)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.calls)
}
