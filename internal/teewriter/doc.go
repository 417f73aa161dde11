// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package teewriter provides an io.Writer that forwards everything to a
// destination while reporting each complete line to a callback. The runner
// uses it to surface the latest output of every machine in the TUI while the
// same bytes still land in the machine's redirect file.
package teewriter
