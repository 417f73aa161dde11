// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build !windows

package remote

import (
	"os"
	"syscall"
)

// terminate sends SIGTERM so the ssh client can tear down its session.
func terminate(p *os.Process) error {
	return p.Signal(syscall.SIGTERM) //nolint:wrapcheck
}
