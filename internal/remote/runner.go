// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/matt-FFFFFF/fleetrun/internal/color"
	"github.com/matt-FFFFFF/fleetrun/internal/ctxlog"
	"github.com/matt-FFFFFF/fleetrun/internal/progress"
	"github.com/matt-FFFFFF/fleetrun/internal/teewriter"
	"github.com/spf13/afero"
)

const (
	// DefaultUser is the remote account every command runs as.
	DefaultUser = "admin"
	// DefaultSSHPath is resolved through PATH.
	DefaultSSHPath = "ssh"
	// DefaultSCPPath is resolved through PATH.
	DefaultSCPPath = "scp"

	outputFileMode = 0o644
)

// hostKeyOptions disable host key verification and known_hosts bookkeeping.
var hostKeyOptions = []string{
	"-o", "UserKnownHostsFile=/dev/null",
	"-o", "StrictHostKeyChecking=No",
}

// FsFactory returns the filesystem redirect files are created on.
var FsFactory = func() afero.Fs {
	return afero.NewOsFs()
}

// Runner spawns ssh and scp clients. The zero value is not usable, use New.
type Runner struct {
	user     string
	sshPath  string
	scpPath  string
	spawner  Spawner
	fs       afero.Fs
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
	console  io.Writer
	reporter progress.Reporter
}

// Option configures a Runner.
type Option func(r *Runner)

// WithUser sets the remote user. Defaults to DefaultUser.
func WithUser(user string) Option {
	return func(r *Runner) {
		if user != "" {
			r.user = user
		}
	}
}

// WithBinaries overrides the ssh and scp executables. Empty values keep the default.
func WithBinaries(sshPath, scpPath string) Option {
	return func(r *Runner) {
		if sshPath != "" {
			r.sshPath = sshPath
		}

		if scpPath != "" {
			r.scpPath = scpPath
		}
	}
}

// WithSpawner replaces the process spawner.
func WithSpawner(s Spawner) Option {
	return func(r *Runner) {
		r.spawner = s
	}
}

// WithFs sets the filesystem used for redirect files.
func WithFs(fs afero.Fs) Option {
	return func(r *Runner) {
		r.fs = fs
	}
}

// WithStreams sets the streams inherited by processes that are not redirected.
func WithStreams(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(r *Runner) {
		r.stdin = stdin
		r.stdout = stdout
		r.stderr = stderr
	}
}

// WithConsole sets where progress and status lines are printed.
func WithConsole(w io.Writer) Option {
	return func(r *Runner) {
		r.console = w
	}
}

// WithReporter attaches a progress reporter. Output lines are reported too,
// so output streams are teed; a NullReporter is treated as no reporter.
func WithReporter(rep progress.Reporter) Option {
	return func(r *Runner) {
		if _, ok := rep.(progress.NullReporter); ok {
			rep = nil
		}

		r.reporter = rep
	}
}

// New returns a Runner that talks to the system ssh and scp as DefaultUser.
func New(opts ...Option) *Runner {
	r := &Runner{
		user:    DefaultUser,
		sshPath: DefaultSSHPath,
		scpPath: DefaultSCPPath,
		spawner: ExecSpawner{},
		fs:      FsFactory(),
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		console: os.Stdout,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// User returns the remote user.
func (r *Runner) User() string {
	return r.user
}

// Remote returns the scp address of path on machine, e.g. admin@web-1:/tmp/x.
func (r *Runner) Remote(machine, path string) string {
	return r.target(machine) + ":" + path
}

func (r *Runner) target(machine string) string {
	return r.user + "@" + machine
}

// SSHArgs returns the client arguments that run command on machine.
func (r *Runner) SSHArgs(machine, command string, tty bool) []string {
	var args []string
	if tty {
		args = append(args, "-tt")
	}

	return slices.Concat(args, hostKeyOptions, []string{r.target(machine), command})
}

// SCPArgs returns the client arguments that copy source to destination.
func (r *Runner) SCPArgs(source, destination string) []string {
	return slices.Concat(hostKeyOptions, []string{"-q", source, destination})
}

// RunSSH starts command on machine and returns without waiting.
// Streams named in out are written to those files, truncating them;
// the others are inherited from the Runner.
func (r *Runner) RunSSH(ctx context.Context, machine, command string, out Redirect) (Job, error) {
	r.printf("%s: Running %s\n", color.Machine(machine), command)

	spec := ProcessSpec{
		Path:  r.sshPath,
		Args:  r.SSHArgs(machine, command, false),
		Stdin: r.stdin,
	}

	var err error

	spec.Stdout, err = r.output(&spec, out.Stdout, r.stdout, machine, command, false)
	if err != nil {
		closeAll(spec.Closers)
		return nil, err
	}

	spec.Stderr, err = r.output(&spec, out.Stderr, r.stderr, machine, command, true)
	if err != nil {
		closeAll(spec.Closers)
		return nil, err
	}

	return r.spawn(ctx, machine, command, spec)
}

// RunSSHTerminal starts command on machine with a forced pseudo-terminal.
// Stdin is the null device so the session never waits for input; output
// goes to the Runner's streams.
func (r *Runner) RunSSHTerminal(ctx context.Context, machine, command string) (Job, error) {
	r.printf("%s: Running in terminal mode %s\n", color.Machine(machine), command)

	spec := ProcessSpec{
		Path:   r.sshPath,
		Args:   r.SSHArgs(machine, command, true),
		Stdout: r.stdout,
		Stderr: r.stderr,
	}

	return r.spawn(ctx, machine, command, spec)
}

// SCP starts a quiet copy from source to destination and returns without
// waiting. Either side may be a remote address, see Remote.
func (r *Runner) SCP(ctx context.Context, source, destination string) (Job, error) {
	spec := ProcessSpec{
		Path:   r.scpPath,
		Args:   r.SCPArgs(source, destination),
		Stdin:  r.stdin,
		Stdout: r.stdout,
		Stderr: r.stderr,
	}

	return r.spawn(ctx, destination, copyLabel(source, destination), spec)
}

func (r *Runner) spawn(ctx context.Context, machine, command string, spec ProcessSpec) (Job, error) {
	logger := ctxlog.Logger(ctx).With("machine", machine)
	logger.Debug("spawning process", "path", spec.Path, "args", spec.Args)

	job, err := r.spawner.Spawn(ctx, spec)
	if err != nil {
		logger.Error("spawn failed", "error", err)
		r.report(progress.Event{
			Machine: machine,
			Command: command,
			Type:    progress.EventFailed,
			Data:    progress.EventData{ExitCode: -1, Error: err},
		})

		return nil, fmt.Errorf("%s: %w", machine, err)
	}

	logger.Debug("process started", "pid", job.Pid())
	r.report(progress.Event{
		Machine: machine,
		Command: command,
		Type:    progress.EventStarted,
		Data:    progress.EventData{Pid: job.Pid()},
	})

	return job, nil
}

// output resolves one stream: a truncated file when path is set, otherwise
// inherit. With a reporter attached the stream is teed so each line is
// reported as it is written.
func (r *Runner) output(
	spec *ProcessSpec, path string, inherit io.Writer, machine, command string, isStderr bool,
) (io.Writer, error) {
	w := inherit

	if path != "" {
		f, err := r.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, outputFileMode)
		if err != nil {
			return nil, errors.Join(ErrOpenOutput, fmt.Errorf("%s: %w", path, err))
		}

		spec.Closers = append(spec.Closers, f)
		w = f
	}

	if r.reporter == nil {
		return w, nil
	}

	lw := teewriter.New(w, func(line string) {
		r.report(progress.Event{
			Machine: machine,
			Command: command,
			Type:    progress.EventOutput,
			Data:    progress.EventData{OutputLine: line, IsStderr: isStderr},
		})
	})

	// Flush before the file closers run.
	spec.Closers = slices.Insert(spec.Closers, 0, io.Closer(closerFunc(func() error {
		lw.Flush()
		return nil
	})))

	return lw, nil
}

func (r *Runner) printf(format string, args ...any) {
	if r.console == nil {
		return
	}

	_, _ = fmt.Fprintf(r.console, format, args...)
}

func (r *Runner) report(e progress.Event) {
	progress.Emit(r.reporter, e)
}

func copyLabel(source, destination string) string {
	return source + " -> " + destination
}

func since(t time.Time) time.Duration {
	return time.Since(t).Round(time.Millisecond)
}
