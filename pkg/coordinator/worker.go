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

package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/minidisplay/minidisplay-core/pkg/errcode"
	"github.com/rs/zerolog/log"
)

type job struct {
	run  func() error
	done chan error
}

// worker owns one device. Jobs run one at a time on its goroutine, so two
// writes to the same device can never overlap.
type worker struct {
	clock   clockwork.Clock
	jobs    chan job
	quit    chan struct{}
	exited  chan struct{}
	name    string
	timeout time.Duration
}

func newWorker(name string, clock clockwork.Clock, timeout time.Duration) *worker {
	w := &worker{
		name:    name,
		clock:   clock,
		timeout: timeout,
		jobs:    make(chan job),
		quit:    make(chan struct{}),
		exited:  make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *worker) loop() {
	defer close(w.exited)
	for {
		select {
		case <-w.quit:
			return
		case j := <-w.jobs:
			j.done <- j.run()
		}
	}
}

// do hands fn to the worker and waits for it. The wait, including time
// spent queued behind a slow job, is bounded by the worker timeout. ctx is
// only honoured until the worker picks the job up. A started job is never
// interrupted: on timeout it keeps running and its result is discarded.
func (w *worker) do(ctx context.Context, op string, fn func() error) error {
	j := job{run: fn, done: make(chan error, 1)}
	timer := w.clock.NewTimer(w.timeout)
	defer timer.Stop()

	select {
	case w.jobs <- j:
	case <-timer.Chan():
		return w.timedOut(op, "queued")
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	case <-w.quit:
		return errcode.New(errcode.Closed, op, "device worker stopped")
	}

	select {
	case err := <-j.done:
		return err
	case <-timer.Chan():
		return w.timedOut(op, "running")
	case <-w.quit:
		return errcode.New(errcode.Closed, op, "device worker stopped")
	}
}

func (w *worker) timedOut(op, stage string) error {
	log.Warn().
		Str("device", w.name).
		Str("op", op).
		Str("stage", stage).
		Dur("timeout", w.timeout).
		Msg("device operation timed out")
	return errcode.New(errcode.Timeout, op, fmt.Sprintf("%s: no response within %s", w.name, w.timeout))
}

// stop ends the worker loop and waits up to the timeout for a running job
// to return.
func (w *worker) stop() bool {
	close(w.quit)
	select {
	case <-w.exited:
		return true
	case <-w.clock.After(w.timeout):
		log.Warn().Str("device", w.name).Msg("device worker still busy at shutdown")
		return false
	}
}
