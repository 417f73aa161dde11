// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package remote

import (
	"fmt"
	"io"

	"github.com/matt-FFFFFF/fleetrun/internal/color"
)

// OutputOptions controls what WriteText includes.
type OutputOptions struct {
	ShowCommand  bool // print the command next to each machine
	ShowDuration bool // print how long each entry took
	OnlyFailures bool // skip entries that succeeded
}

// DefaultOutputOptions returns the options used by the CLI.
func DefaultOutputOptions() *OutputOptions {
	return &OutputOptions{
		ShowCommand:  true,
		ShowDuration: true,
	}
}

// WriteText writes one line per outcome, followed by any error message.
func (oc Outcomes) WriteText(w io.Writer, options *OutputOptions) error {
	if options == nil {
		options = DefaultOutputOptions()
	}

	for _, o := range oc {
		if options.OnlyFailures && o.Success() {
			continue
		}

		if err := writeOutcome(w, o, options); err != nil {
			return err
		}
	}

	return nil
}

func writeOutcome(w io.Writer, o *Outcome, options *OutputOptions) error {
	var (
		marker string
		fg     color.Code
	)

	switch {
	case o.Status == StatusTimedOut:
		marker, fg = "⏱", color.FgYellow
	case o.Success():
		marker, fg = "✓", color.FgGreen
	default:
		marker, fg = "✗", color.FgRed
	}

	machine := o.Machine
	if machine == "" {
		machine = "[unnamed]"
	}

	if _, err := fmt.Fprintf(w, "%s %s", color.Colorize(marker, fg), color.Colorize(machine, color.Bold, fg)); err != nil {
		return err
	}

	if options.ShowCommand && o.Command != "" {
		fmt.Fprintf(w, " %s", color.Colorize(o.Command, color.Faint)) // nolint:errcheck
	}

	switch o.Status {
	case StatusTimedOut:
		fmt.Fprint(w, " (timed out)") // nolint:errcheck
	case StatusCompleted:
		if o.ExitCode != 0 {
			fmt.Fprintf(w, " (exit code: %d)", o.ExitCode) // nolint:errcheck
		}
	}

	if options.ShowDuration && o.Duration > 0 {
		fmt.Fprintf(w, " [%s]", o.Duration) // nolint:errcheck
	}

	fmt.Fprintln(w) // nolint:errcheck

	if o.Error != "" {
		_, err := fmt.Fprintf(w, "  %s %s\n", color.Colorize("➜ Error:", color.FgRed), o.Error)
		return err
	}

	return nil
}
