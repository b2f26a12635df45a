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
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/minidisplay/minidisplay-core/pkg/devices/lcd"
	"github.com/minidisplay/minidisplay-core/pkg/devices/led"
	"github.com/minidisplay/minidisplay-core/pkg/framebuffer"
	"github.com/minidisplay/minidisplay-core/pkg/orientation"
)

// blockingLink hangs in Redraw until release is closed and records
// heartbeat times.
type blockingLink struct {
	started chan struct{}
	release chan struct{}
	beats   []time.Time
	mu      sync.Mutex
}

var _ lcd.Link = (*blockingLink)(nil)

func newBlockingLink() *blockingLink {
	return &blockingLink{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (*blockingLink) Connected() bool { return true }

func (*blockingLink) SetOrientation(orientation.Orientation) error { return nil }

func (l *blockingLink) Heartbeat(now time.Time) error {
	l.mu.Lock()
	l.beats = append(l.beats, now)
	l.mu.Unlock()
	return nil
}

func (l *blockingLink) heartbeats() []time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.beats)
}

func (l *blockingLink) Redraw(orientation.Orientation, []uint16) error {
	close(l.started)
	<-l.release
	return nil
}

func (*blockingLink) Refresh(orientation.Orientation, uint16, uint16, uint8, uint8, []uint16) error {
	return nil
}

func (*blockingLink) Clear(framebuffer.RGB565) error { return nil }

func (*blockingLink) Close() error { return nil }

// overlap tracks how many calls are inside a device at once.
type overlap struct {
	active atomic.Int32
	peak   atomic.Int32
}

func (o *overlap) enter() (leave func()) {
	n := o.active.Add(1)
	for {
		peak := o.peak.Load()
		if n <= peak || o.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	// give a second writer the chance to show up
	runtime.Gosched()
	return func() { o.active.Add(-1) }
}

// gatedDevice is an lcd.Device that records every frame. When gate is set
// the first write blocks until gate is closed.
type gatedDevice struct {
	gate              chan struct{}
	entered           chan struct{}
	frames            [][]byte
	calls             overlap
	once              sync.Once
	mu                sync.Mutex
	closed            atomic.Bool
	closedDuringWrite atomic.Bool
}

var _ lcd.Device = (*gatedDevice)(nil)

func newGatedDevice() *gatedDevice {
	return &gatedDevice{
		gate:    make(chan struct{}),
		entered: make(chan struct{}),
	}
}

func (d *gatedDevice) Write(p []byte) (int, error) {
	defer d.calls.enter()()
	if d.gate != nil {
		d.once.Do(func() {
			close(d.entered)
			<-d.gate
		})
	}
	d.mu.Lock()
	d.frames = append(d.frames, slices.Clone(p))
	d.mu.Unlock()
	return len(p), nil
}

func (d *gatedDevice) Close() error {
	if d.calls.active.Load() > 0 {
		d.closedDuringWrite.Store(true)
	}
	d.closed.Store(true)
	return nil
}

func (d *gatedDevice) written() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.frames)
}

// countingStrip is a Strip that only tracks overlapping calls.
type countingStrip struct {
	calls overlap
}

func (s *countingStrip) Apply(led.Settings) error {
	defer s.calls.enter()()
	return nil
}

func (s *countingStrip) SetOff() error {
	defer s.calls.enter()()
	return nil
}
