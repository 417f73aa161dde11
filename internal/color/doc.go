// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package color formats console text with ANSI escape codes.
//
// Colour is switched on when stdout is a terminal, or when FORCE_COLOR is set.
// NO_COLOR always wins. The decision is made once at package init, after which
// every function here is a pure string transformation.
package color
