// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package progress defines the per-machine events a fan-out emits while it
// runs, and reporters that deliver them to a listener such as the TUI.
package progress
