//go:build deadlock

// MiniDisplay Core
// Copyright (c) 2026 The MiniDisplay Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of MiniDisplay Core.
//
// MiniDisplay Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// MiniDisplay Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with MiniDisplay Core.  If not, see <http://www.gnu.org/licenses/>.

// Package syncutil holds the mutex types used across the module. Building
// with -tags=deadlock swaps them for go-deadlock versions that report lock
// ordering problems and locks held for too long.
package syncutil

import (
	"time"

	"github.com/rs/zerolog/log"
	deadlock "github.com/sasha-s/go-deadlock"
)

// DeadlockEnabled is true if the deadlock detector is enabled.
const DeadlockEnabled = true

func init() {
	// A device sequence lock is held for a whole redraw, which is bounded by
	// the I/O timeout. Keep the detector well above that.
	deadlock.Opts.DeadlockTimeout = 30 * time.Second
	deadlock.Opts.LogBuf = log.Logger
	deadlock.Opts.OnPotentialDeadlock = func() {
		log.Error().Msg("syncutil: potential deadlock detected")
	}
}

// A Mutex is a mutual exclusion lock.
type Mutex struct {
	deadlock.Mutex
}

// An RWMutex is a reader/writer mutual exclusion lock.
type RWMutex struct {
	deadlock.RWMutex
}

// SetDeadlockTimeout raises the detector timeout in milliseconds. Callers
// pass a value derived from the configured device I/O timeout.
func SetDeadlockTimeout(ms int64) {
	d := time.Duration(ms) * time.Millisecond
	if d > deadlock.Opts.DeadlockTimeout {
		deadlock.Opts.DeadlockTimeout = d
	}
}
