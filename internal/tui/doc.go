// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package tui shows a running fan-out in the terminal: one row per machine
// with its status, elapsed time and the last line of output. It is fed by
// progress events from the remote runner.
package tui
