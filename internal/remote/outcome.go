// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package remote

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-multierror"
)

var (
	// ErrWriteResults is returned when outcomes cannot be encoded.
	ErrWriteResults = errors.New("failed to write binary results")
	// ErrReadResults is returned when a results file cannot be decoded.
	ErrReadResults = errors.New("failed to read binary results")
	// ErrMachineFailed is wrapped by Outcomes.Err for every non-successful machine.
	ErrMachineFailed = errors.New("machine failed")
)

// Status classifies how a machine's job ended.
type Status int

const (
	// StatusCompleted means the process exited on its own; see ExitCode.
	StatusCompleted Status = iota
	// StatusTimedOut means the wait timed out and the process was terminated.
	StatusTimedOut
	// StatusFailed means the process could not be waited on, e.g. the run was cancelled.
	StatusFailed
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusTimedOut:
		return "timed out"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the result of one (machine, command) entry.
type Outcome struct {
	Machine  string
	Command  string
	Status   Status
	ExitCode int           // -1 unless Status is StatusCompleted
	Error    string        // message of any error observed while waiting
	Duration time.Duration // from spawn until the wait resolved
}

// Success reports a completed entry with exit code zero and no error.
func (o *Outcome) Success() bool {
	return o.Status == StatusCompleted && o.ExitCode == 0 && o.Error == ""
}

func (o *Outcome) err() error {
	switch {
	case o.Status == StatusTimedOut:
		return fmt.Errorf("%w: %s: %s", ErrMachineFailed, o.Machine, ErrWaitTimeout)
	case o.Error != "":
		return fmt.Errorf("%w: %s: %s", ErrMachineFailed, o.Machine, o.Error)
	case o.ExitCode != 0:
		return fmt.Errorf("%w: %s: exit code %d", ErrMachineFailed, o.Machine, o.ExitCode)
	}

	return nil
}

// Outcomes holds one Outcome per entry, in input order.
type Outcomes []*Outcome

// ExitCodes returns the exit codes of completed entries only, in wait order.
// Timed out and failed entries are left out, so the result can be shorter
// than the input.
func (oc Outcomes) ExitCodes() []int {
	codes := make([]int, 0, len(oc))

	for _, o := range oc {
		if o.Status == StatusCompleted {
			codes = append(codes, o.ExitCode)
		}
	}

	return codes
}

// HasError reports whether any entry did not succeed.
func (oc Outcomes) HasError() bool {
	for _, o := range oc {
		if !o.Success() {
			return true
		}
	}

	return false
}

// TimedOut returns the machines whose wait timed out.
func (oc Outcomes) TimedOut() []string {
	var machines []string

	for _, o := range oc {
		if o.Status == StatusTimedOut {
			machines = append(machines, o.Machine)
		}
	}

	return machines
}

// Err aggregates one error per unsuccessful entry, or returns nil.
func (oc Outcomes) Err() error {
	var merr *multierror.Error

	for _, o := range oc {
		if err := o.err(); err != nil {
			merr = multierror.Append(merr, err)
		}
	}

	return merr.ErrorOrNil()
}

// WriteBinary gob-encodes the outcomes to w.
func (oc Outcomes) WriteBinary(w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(oc); err != nil {
		return errors.Join(ErrWriteResults, err)
	}

	return nil
}

// ReadBinary decodes outcomes written by WriteBinary.
func ReadBinary(r io.Reader) (Outcomes, error) {
	var oc Outcomes
	if err := gob.NewDecoder(r).Decode(&oc); err != nil {
		return nil, errors.Join(ErrReadResults, err)
	}

	return oc, nil
}

// FromExitCodes builds completed outcomes from parallel slices, as returned
// by the fan-outs that only report exit codes.
func FromExitCodes(labels []string, command string, codes []int) Outcomes {
	res := make(Outcomes, 0, len(codes))

	for i, code := range codes {
		label := ""
		if i < len(labels) {
			label = labels[i]
		}

		res = append(res, &Outcome{
			Machine:  label,
			Command:  command,
			Status:   StatusCompleted,
			ExitCode: code,
		})
	}

	return res
}

// FromCopies builds completed outcomes for a parallel copy. Each outcome is
// labelled with its destination.
func FromCopies(sources, destinations []string, codes []int) Outcomes {
	res := make(Outcomes, 0, len(codes))

	for i, code := range codes {
		res = append(res, &Outcome{
			Machine:  destinations[i],
			Command:  "scp " + sources[i],
			Status:   StatusCompleted,
			ExitCode: code,
		})
	}

	return res
}
