// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package remote fans shell commands and file copies out to a fleet of
// machines through the system ssh and scp clients.
//
// Every fan-out follows the same shape: spawn one client process per machine
// in a tight loop so they all run concurrently, then wait on them one at a
// time in input order. Results are plain exit codes, or Outcomes when a
// per-wait timeout is in play. A wait that times out does not stop the
// process, so the runner terminates it and reaps it before moving on.
//
// Host key checking is disabled on every invocation; authentication is left
// to the ssh client configuration of the calling user.
package remote
