// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build windows

package remote

import "os"

// terminate kills the process; Windows has no SIGTERM delivery.
func terminate(p *os.Process) error {
	return p.Kill() //nolint:wrapcheck
}
