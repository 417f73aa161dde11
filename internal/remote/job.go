// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package remote

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

var (
	// ErrCouldNotStartProcess is returned when the client binary cannot be spawned.
	ErrCouldNotStartProcess = errors.New("could not start process")
	// ErrWaitTimeout is returned by Job.Wait when the timeout elapses first.
	// The process keeps running.
	ErrWaitTimeout = errors.New("timed out waiting for process")
	// ErrTerminate is returned when the termination signal cannot be delivered.
	ErrTerminate = errors.New("could not terminate process")
	// ErrOpenOutput is returned when a redirect file cannot be opened.
	ErrOpenOutput = errors.New("could not open output file")
)

// pipeWaitDelay bounds how long a job keeps reading its output pipes after
// the process has exited. Descendants of the client, such as an ssh
// ControlPersist master, can hold them open indefinitely.
var pipeWaitDelay = 2 * time.Second

// Job is a spawned client process.
type Job interface {
	// Wait blocks until the process exits, timeout elapses (when positive)
	// or ctx is done, and returns the exit code. Wait may be called again
	// after a timeout.
	Wait(ctx context.Context, timeout time.Duration) (int, error)
	// Terminate asks the process to stop. It does not wait.
	Terminate() error
	// Pid returns the operating system process id.
	Pid() int
}

// ProcessSpec describes a process to spawn.
type ProcessSpec struct {
	Path    string
	Args    []string    // excluding the executable name
	Stdin   io.Reader   // nil reads from the null device
	Stdout  io.Writer   // nil discards
	Stderr  io.Writer   // nil discards
	Closers []io.Closer // closed in order once the process has exited
}

// Spawner starts processes. Tests substitute a fake.
type Spawner interface {
	Spawn(ctx context.Context, spec ProcessSpec) (Job, error)
}

var _ Spawner = ExecSpawner{}

// ExecSpawner starts real operating system processes with os/exec.
type ExecSpawner struct{}

// Spawn implements Spawner. The process is not tied to ctx: cancelling ctx
// does not kill it, callers terminate jobs explicitly.
func (ExecSpawner) Spawn(_ context.Context, spec ProcessSpec) (Job, error) {
	cmd := exec.Command(spec.Path, spec.Args...) //nolint:gosec
	cmd.Stdin = spec.Stdin
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr
	cmd.WaitDelay = pipeWaitDelay

	if err := cmd.Start(); err != nil {
		closeAll(spec.Closers)
		return nil, errors.Join(ErrCouldNotStartProcess, err)
	}

	j := &osJob{
		cmd:     cmd,
		closers: spec.Closers,
		done:    make(chan struct{}),
	}

	go j.reap()

	return j, nil
}

var _ Job = (*osJob)(nil)

type osJob struct {
	cmd      *exec.Cmd
	closers  []io.Closer
	done     chan struct{}
	exitCode int
	err      error
	once     sync.Once
}

// reap runs on its own goroutine for the lifetime of the process so that
// Wait can honour a timeout.
func (j *osJob) reap() {
	err := j.cmd.Wait()

	j.exitCode = -1
	if j.cmd.ProcessState != nil {
		j.exitCode = j.cmd.ProcessState.ExitCode()
	}

	// ErrWaitDelay only means output still held by a descendant was cut off.
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) && !errors.Is(err, exec.ErrWaitDelay) {
		j.err = err
	}

	closeAll(j.closers)
	close(j.done)
}

func (j *osJob) Wait(ctx context.Context, timeout time.Duration) (int, error) {
	var expired <-chan time.Time

	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()

		expired = t.C
	}

	select {
	case <-j.done:
		return j.exitCode, j.err
	case <-expired:
		return -1, ErrWaitTimeout
	case <-ctx.Done():
		return -1, ctx.Err() //nolint:wrapcheck
	}
}

func (j *osJob) Terminate() error {
	select {
	case <-j.done:
		return nil
	default:
	}

	var err error

	j.once.Do(func() {
		err = terminate(j.cmd.Process)
	})

	if err != nil && !errors.Is(err, os.ErrProcessDone) {
		return errors.Join(ErrTerminate, err)
	}

	return nil
}

func (j *osJob) Pid() int {
	return j.cmd.Process.Pid
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		_ = c.Close()
	}
}

type closerFunc func() error

func (f closerFunc) Close() error {
	return f()
}
