// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package remote

import "strings"

// OutputTemplates are per-machine redirect path templates. Any of the
// placeholders "{}", "{0}" or "{machine}" is replaced by the machine name.
// An empty template leaves that stream inherited.
type OutputTemplates struct {
	Stdout string
	Stderr string
}

// Redirect holds concrete output file paths for one machine.
type Redirect struct {
	Stdout string
	Stderr string
}

// For expands both templates for machine.
func (t OutputTemplates) For(machine string) Redirect {
	return Redirect{
		Stdout: expandTemplate(t.Stdout, machine),
		Stderr: expandTemplate(t.Stderr, machine),
	}
}

func expandTemplate(tmpl, machine string) string {
	if tmpl == "" {
		return ""
	}

	return strings.NewReplacer("{}", machine, "{0}", machine, "{machine}", machine).Replace(tmpl)
}
