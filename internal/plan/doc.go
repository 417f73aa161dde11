// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package plan reads fleet plans from YAML or HCL files and runs them.
//
// A plan names a set of machines and an ordered list of steps. Each step is
// one fan-out (a copy, an upload or a command) and steps run one after the
// other.
package plan
