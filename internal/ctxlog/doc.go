// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package ctxlog carries a *slog.Logger in a context.Context.
//
// The default logger writes through PrettyHandler: a timestamp, a coloured
// level, the message and the attributes rendered as indented JSON. The level
// is read once from FLEETRUN_LOG_LEVEL (DEBUG, INFO, WARN, ERROR) and can be
// changed at runtime through LevelVar.
package ctxlog
