// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package plan

import (
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Step types.
const (
	StepCopy     = "copy"
	StepUpload   = "upload"
	StepExec     = "exec"
	StepExecEach = "exec_each"
)

var (
	// ErrInvalidPlan wraps every validation failure.
	ErrInvalidPlan = errors.New("invalid plan")
	// ErrNoMachines is returned when a plan resolves to zero machines.
	ErrNoMachines = errors.New("no machines specified")
	// ErrNoSteps is returned when a plan has no steps.
	ErrNoSteps = errors.New("no steps specified")
	// ErrUnknownStepType is returned for a step type other than the Step* constants.
	ErrUnknownStepType = errors.New("unknown step type")
	// ErrMissingField is returned when a step lacks an attribute its type needs.
	ErrMissingField = errors.New("missing required field")
	// ErrLengthMismatch is returned when paired lists differ in length.
	ErrLengthMismatch = errors.New("length mismatch")
	// ErrInvalidTimeout is returned when a timeout is not a positive Go duration.
	ErrInvalidTimeout = errors.New("invalid timeout")
)

// Plan is a set of machines and the steps to run on them.
type Plan struct {
	Name         string   `yaml:"name"                    hcl:"name,optional"`
	Description  string   `yaml:"description,omitempty"   hcl:"description,optional"`
	User         string   `yaml:"user,omitempty"          hcl:"user,optional"`
	Machines     []string `yaml:"machines,omitempty"      hcl:"machines,optional"`
	MachinesFile string   `yaml:"machines_file,omitempty" hcl:"machines_file,optional"`
	Stdout       string   `yaml:"stdout,omitempty"        hcl:"stdout,optional"`
	Stderr       string   `yaml:"stderr,omitempty"        hcl:"stderr,optional"`
	Steps        []*Step  `yaml:"steps"                   hcl:"step,block"`

	// directory of the file the plan was loaded from, for relative paths
	baseDir string
}

// Step is one fan-out.
//
//   - copy: Sources[i] to Destinations[i], all pairs at once.
//   - upload: Source to Destination on every machine.
//   - exec: Command on every machine.
//   - exec_each: Commands[i] on machine i.
type Step struct {
	Type            string   `yaml:"type"                        hcl:"type,label"`
	Name            string   `yaml:"name,omitempty"              hcl:"name,optional"`
	Command         string   `yaml:"command,omitempty"           hcl:"command,optional"`
	Commands        []string `yaml:"commands,omitempty"          hcl:"commands,optional"`
	Sources         []string `yaml:"sources,omitempty"           hcl:"sources,optional"`
	Destinations    []string `yaml:"destinations,omitempty"      hcl:"destinations,optional"`
	Source          string   `yaml:"source,omitempty"            hcl:"source,optional"`
	Destination     string   `yaml:"destination,omitempty"       hcl:"destination,optional"`
	Timeout         string   `yaml:"timeout,omitempty"           hcl:"timeout,optional"`
	ContinueOnError bool     `yaml:"continue_on_error,omitempty" hcl:"continue_on_error,optional"`
}

// Label returns the step name, or its type when unnamed.
func (s *Step) Label() string {
	if s.Name != "" {
		return s.Name
	}

	return s.Type
}

// TimeoutDuration parses Timeout. An empty timeout is zero, meaning no limit.
func (s *Step) TimeoutDuration() (time.Duration, error) {
	if s.Timeout == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return 0, errors.Join(ErrInvalidTimeout, err)
	}

	if d <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive", ErrInvalidTimeout, s.Timeout)
	}

	return d, nil
}

func (s *Step) validate(machines int) error {
	var err error

	missing := func(field string) {
		err = multierror.Append(err, fmt.Errorf("%w: %s", ErrMissingField, field))
	}

	switch s.Type {
	case StepCopy:
		if len(s.Sources) == 0 {
			missing("sources")
		}

		if len(s.Sources) != len(s.Destinations) {
			err = multierror.Append(err, fmt.Errorf("%w: %d sources and %d destinations",
				ErrLengthMismatch, len(s.Sources), len(s.Destinations)))
		}
	case StepUpload:
		if s.Source == "" {
			missing("source")
		}

		if s.Destination == "" {
			missing("destination")
		}
	case StepExec:
		if s.Command == "" {
			missing("command")
		}
	case StepExecEach:
		if len(s.Commands) != machines {
			err = multierror.Append(err, fmt.Errorf("%w: %d commands for %d machines",
				ErrLengthMismatch, len(s.Commands), machines))
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStepType, s.Type)
	}

	if _, terr := s.TimeoutDuration(); terr != nil {
		err = multierror.Append(err, terr)
	}

	return err
}

// Validate checks the plan against its resolved machine list.
func (p *Plan) Validate(machines []string) error {
	var err error

	if len(machines) == 0 {
		err = multierror.Append(err, ErrNoMachines)
	}

	if len(p.Steps) == 0 {
		err = multierror.Append(err, ErrNoSteps)
	}

	for i, s := range p.Steps {
		if serr := s.validate(len(machines)); serr != nil {
			err = multierror.Append(err, fmt.Errorf("step %d (%s): %w", i, s.Label(), serr))
		}
	}

	if err != nil {
		return errors.Join(ErrInvalidPlan, err)
	}

	return nil
}
