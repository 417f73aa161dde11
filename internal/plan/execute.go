// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package plan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/matt-FFFFFF/fleetrun/internal/ctxlog"
	"github.com/matt-FFFFFF/fleetrun/internal/remote"
)

// ErrStepFailed wraps the error of every step that did not fully succeed.
var ErrStepFailed = errors.New("step failed")

var _ Fleet = (*remote.Runner)(nil)

// Fleet is the subset of remote.Runner a plan needs.
type Fleet interface {
	Remote(machine, path string) string
	SCPInParallel(ctx context.Context, sources, destinations []string) ([]int, error)
	RunSSHInParallel(ctx context.Context, machines []string, command string, tmpl remote.OutputTemplates) ([]int, error)
	RunAllSSHInParallel(
		ctx context.Context, machines, commands []string, tmpl remote.OutputTemplates, timeout time.Duration,
	) (remote.Outcomes, error)
}

// Execute validates the plan and runs its steps in order on fleet.
// A failing step stops the plan unless it sets continue_on_error.
// The outcomes of every step that ran are returned, in order.
func Execute(ctx context.Context, fleet Fleet, p *Plan) (remote.Outcomes, error) {
	machines, err := p.ResolveMachines()
	if err != nil {
		return nil, err
	}

	if err := p.Validate(machines); err != nil {
		return nil, err
	}

	tmpl := remote.OutputTemplates{Stdout: p.Stdout, Stderr: p.Stderr}

	var (
		all  remote.Outcomes
		merr *multierror.Error
	)

	for i, s := range p.Steps {
		if ctx.Err() != nil {
			merr = multierror.Append(merr, ctx.Err())
			break
		}

		logger := ctxlog.Logger(ctx).With("step", s.Label(), "index", i)
		logger.Info("running step", "type", s.Type, "machines", len(machines))

		start := time.Now()
		outcomes, err := runStep(ctx, fleet, s, machines, tmpl)
		all = append(all, outcomes...)

		if err == nil {
			err = outcomes.Err()
		}

		if err == nil {
			logger.Info("step complete", "duration", time.Since(start))
			continue
		}

		logger.Warn("step failed", "error", err, "continue_on_error", s.ContinueOnError)
		merr = multierror.Append(merr, fmt.Errorf("%w: %s: %w", ErrStepFailed, s.Label(), err))

		if !s.ContinueOnError {
			break
		}
	}

	return all, merr.ErrorOrNil()
}

func runStep(
	ctx context.Context, fleet Fleet, s *Step, machines []string, tmpl remote.OutputTemplates,
) (remote.Outcomes, error) {
	timeout, err := s.TimeoutDuration()
	if err != nil {
		return nil, err
	}

	switch s.Type {
	case StepCopy:
		return copyPairs(ctx, fleet, s.Sources, s.Destinations)

	case StepUpload:
		sources := make([]string, len(machines))
		destinations := make([]string, len(machines))

		for i, m := range machines {
			sources[i] = s.Source
			destinations[i] = fleet.Remote(m, s.Destination)
		}

		return copyPairs(ctx, fleet, sources, destinations)

	case StepExec:
		if timeout == 0 {
			codes, err := fleet.RunSSHInParallel(ctx, machines, s.Command, tmpl)
			return remote.FromExitCodes(machines, s.Command, codes), err
		}

		commands := make([]string, len(machines))
		for i := range commands {
			commands[i] = s.Command
		}

		return fleet.RunAllSSHInParallel(ctx, machines, commands, tmpl, timeout)

	case StepExecEach:
		return fleet.RunAllSSHInParallel(ctx, machines, s.Commands, tmpl, timeout)
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownStepType, s.Type)
}

func copyPairs(ctx context.Context, fleet Fleet, sources, destinations []string) (remote.Outcomes, error) {
	codes, err := fleet.SCPInParallel(ctx, sources, destinations)

	return remote.FromCopies(sources, destinations, codes), err
}
