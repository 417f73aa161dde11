// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/matt-FFFFFF/fleetrun/internal/color"
	"github.com/matt-FFFFFF/fleetrun/internal/ctxlog"
	"github.com/matt-FFFFFF/fleetrun/internal/progress"
)

// Execution is one spawned remote command.
type Execution struct {
	Machine string
	Command string
	Job     Job
	Started time.Time
}

// Batch is a set of executions in spawn order.
type Batch []Execution

// Machines returns the machine of every execution, in order.
func (b Batch) Machines() []string {
	machines := make([]string, len(b))
	for i, e := range b {
		machines[i] = e.Machine
	}

	return machines
}

// SCPInParallel copies sources[i] to destinations[i] for every i at once and
// returns the exit codes in input order.
//
// The slices must be the same length; anything else is a programming error
// and panics before a single copy is started.
func (r *Runner) SCPInParallel(ctx context.Context, sources, destinations []string) ([]int, error) {
	if len(sources) != len(destinations) {
		panic(fmt.Sprintf("remote: SCPInParallel called with %d sources and %d destinations",
			len(sources), len(destinations)))
	}

	batch := make(Batch, 0, len(sources))

	for i, src := range sources {
		dst := destinations[i]
		r.printf("Starting scp %s to %s\n", src, dst)

		started := time.Now()

		job, err := r.SCP(ctx, src, dst)
		if err != nil {
			r.abort(ctx, batch)
			return nil, err
		}

		batch = append(batch, Execution{Machine: dst, Command: src, Job: job, Started: started})
	}

	codes := make([]int, 0, len(batch))

	var merr *multierror.Error

	for i, e := range batch {
		rc, err := e.Job.Wait(ctx, 0)
		if err != nil && ctx.Err() != nil {
			r.abort(ctx, batch[i:])
			return codes, errors.Join(merr.ErrorOrNil(), ctx.Err())
		}

		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("%s: %w", copyLabel(e.Command, e.Machine), err))
		}

		r.printf("scp %s to %s done\n", e.Command, e.Machine)
		r.finished(e.Machine, copyLabel(e.Command, e.Machine), rc, err)

		codes = append(codes, rc)
	}

	return codes, merr.ErrorOrNil()
}

// SpawnSSHInParallel starts command on every machine and returns without
// waiting. Output is redirected per machine when tmpl names files.
// If a spawn fails, the jobs already started are terminated and reaped.
func (r *Runner) SpawnSSHInParallel(
	ctx context.Context, machines []string, command string, tmpl OutputTemplates,
) (Batch, error) {
	commands := make([]string, len(machines))
	for i := range commands {
		commands[i] = command
	}

	return r.spawnAll(ctx, machines, commands, tmpl)
}

// RunSSHInParallel runs command on every machine, waits for all of them in
// spawn order and returns their exit codes. There is no timeout: one stuck
// machine holds up the whole call. Cancelling ctx terminates what is left.
func (r *Runner) RunSSHInParallel(
	ctx context.Context, machines []string, command string, tmpl OutputTemplates,
) ([]int, error) {
	batch, err := r.SpawnSSHInParallel(ctx, machines, command, tmpl)
	if err != nil {
		return nil, err
	}

	codes := make([]int, 0, len(batch))

	var merr *multierror.Error

	for i, e := range batch {
		rc, err := e.Job.Wait(ctx, 0)
		if err != nil && ctx.Err() != nil {
			r.abort(ctx, batch[i:])
			return codes, errors.Join(merr.ErrorOrNil(), ctx.Err())
		}

		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("%s: %w", e.Machine, err))
		}

		codes = append(codes, rc)

		r.printf("Done running %s on %s\n", e.Command, e.Machine)
		r.finished(e.Machine, e.Command, rc, err)
	}

	return codes, merr.ErrorOrNil()
}

// RunAllSSHInParallel runs commands[i] on machines[i] for every pair and
// waits on each in turn, giving every wait up to timeout (no limit when
// timeout <= 0). The timeout applies per wait, so the call can block for up
// to timeout times the number of machines.
//
// A machine whose wait times out has its process terminated and reaped and
// is reported with StatusTimedOut. The returned error is only set when a
// process could not be spawned. If the slices differ in length the extra
// entries are ignored.
func (r *Runner) RunAllSSHInParallel(
	ctx context.Context, machines, commands []string, tmpl OutputTemplates, timeout time.Duration,
) (Outcomes, error) {
	n := min(len(machines), len(commands))
	if len(machines) != len(commands) {
		ctxlog.Warn(ctx, "machines and commands differ in length, extra entries ignored",
			"machines", len(machines), "commands", len(commands))
	}

	batch, err := r.spawnAll(ctx, machines[:n], commands[:n], tmpl)
	if err != nil {
		return nil, err
	}

	outcomes := make(Outcomes, 0, len(batch))

	for i, e := range batch {
		o := &Outcome{Machine: e.Machine, Command: e.Command, ExitCode: -1}
		outcomes = append(outcomes, o)

		rc, err := e.Job.Wait(ctx, timeout)

		switch {
		case errors.Is(err, ErrWaitTimeout):
			o.Status = StatusTimedOut
			r.timedOut(ctx, e, o)

		case err != nil && ctx.Err() != nil:
			r.abort(ctx, batch[i:])

			for _, rest := range batch[i+1:] {
				outcomes = append(outcomes, &Outcome{Machine: rest.Machine, Command: rest.Command, ExitCode: -1})
			}

			for _, c := range outcomes[i:] {
				c.Status = StatusFailed
				c.Error = ctx.Err().Error()
			}

			return outcomes, nil

		default:
			o.Status = StatusCompleted
			o.ExitCode = rc

			if err != nil {
				o.Error = err.Error()
			}

			r.printf("%s: %s Done running %s on %s\n", color.Machine(e.Machine), color.ExitStatus(rc), e.Command, e.Machine)
			r.finished(e.Machine, e.Command, rc, err)
		}

		o.Duration = since(e.Started)
	}

	return outcomes, nil
}

// timedOut stops a process whose wait expired. Giving up on the wait
// leaves the process running, so it is terminated and then waited on
// without a limit.
func (r *Runner) timedOut(ctx context.Context, e Execution, o *Outcome) {
	r.printf("%s: %s Timeout running %s on %s\n", color.Machine(e.Machine), color.Fail(), e.Command, e.Machine)
	r.report(progress.Event{Machine: e.Machine, Command: e.Command, Type: progress.EventTimedOut})

	r.printf("%s: Terminating %s \n", color.Machine(e.Machine), e.Command)

	if err := e.Job.Terminate(); err != nil {
		ctxlog.Error(ctx, "terminate failed", "machine", e.Machine, "pid", e.Job.Pid(), "error", err)
		o.Error = err.Error()
	}

	r.printf("%s: Waiting for termination %s \n", color.Machine(e.Machine), e.Command)

	if _, err := e.Job.Wait(context.WithoutCancel(ctx), 0); err != nil && o.Error == "" {
		o.Error = err.Error()
	}

	r.report(progress.Event{Machine: e.Machine, Command: e.Command, Type: progress.EventTerminated})
}

func (r *Runner) spawnAll(ctx context.Context, machines, commands []string, tmpl OutputTemplates) (Batch, error) {
	batch := make(Batch, 0, len(machines))

	for i, m := range machines {
		started := time.Now()

		job, err := r.RunSSH(ctx, m, commands[i], tmpl.For(m))
		if err != nil {
			r.abort(ctx, batch)
			return nil, err
		}

		batch = append(batch, Execution{Machine: m, Command: commands[i], Job: job, Started: started})
	}

	ctxlog.Debug(ctx, "spawned all", "machines", batch.Machines())

	return batch, nil
}

// abort terminates and reaps every execution. Used when a fan-out cannot
// continue, so no process outlives the call.
func (r *Runner) abort(ctx context.Context, batch Batch) {
	reapCtx := context.WithoutCancel(ctx)

	for _, e := range batch {
		if err := e.Job.Terminate(); err != nil {
			ctxlog.Error(ctx, "terminate failed", "machine", e.Machine, "pid", e.Job.Pid(), "error", err)
		}

		_, _ = e.Job.Wait(reapCtx, 0)
		ctxlog.Info(ctx, "process reaped after abort", "machine", e.Machine, "pid", e.Job.Pid())
	}
}

func (r *Runner) finished(machine, command string, rc int, err error) {
	et := progress.EventCompleted
	if rc != 0 || err != nil {
		et = progress.EventFailed
	}

	r.report(progress.Event{
		Machine: machine,
		Command: command,
		Type:    et,
		Data:    progress.EventData{ExitCode: rc, Error: err},
	})
}
