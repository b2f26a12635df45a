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

// Package coordinator owns the pixel canvas, the LED settings cache and both
// device links. It serializes every hardware write per device while status
// reads stay lock-cheap and never wait on device I/O.
//
// LOCKING RULES:
//   - lcdSeq / ledSeq are held for a whole snapshot, submit and await
//     sequence on one device, so orientation changes, redraws and
//     heartbeats are totally ordered.
//   - statusMu guards orientation, LED cache and flags. It is never held
//     while waiting on a device.
//   - canvasMu guards the framebuffer and is only held for memory copies.
//   - orientResync is only touched with lcdSeq held.
//   - Lock order is lcdSeq or ledSeq, then canvasMu, then statusMu.
//   - Notifications are sent after every lock is released.
package coordinator

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/minidisplay/minidisplay-core/pkg/api/models"
	"github.com/minidisplay/minidisplay-core/pkg/config"
	"github.com/minidisplay/minidisplay-core/pkg/devices/lcd"
	"github.com/minidisplay/minidisplay-core/pkg/devices/led"
	"github.com/minidisplay/minidisplay-core/pkg/errcode"
	"github.com/minidisplay/minidisplay-core/pkg/framebuffer"
	"github.com/minidisplay/minidisplay-core/pkg/helpers/syncutil"
	"github.com/minidisplay/minidisplay-core/pkg/orientation"
	"github.com/rs/zerolog/log"
)

// DefaultNotificationBuffer is sized for bursts of control requests from
// several front ends at once.
const DefaultNotificationBuffer = 64

// Strip is the LED side as seen by the coordinator. *led.Session
// satisfies it.
type Strip interface {
	Apply(s led.Settings) error
	SetOff() error
}

type RenderState uint8

const (
	Idle RenderState = iota
	Dirty
	InFlight
)

func (r RenderState) String() string {
	switch r {
	case Idle:
		return "idle"
	case Dirty:
		return "dirty"
	case InFlight:
		return "in-flight"
	default:
		return fmt.Sprintf("render-state(%d)", uint8(r))
	}
}

func (r RenderState) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

type Option func(*AppState)

// WithClock replaces the clock used for timeouts and heartbeats.
func WithClock(c clockwork.Clock) Option {
	return func(a *AppState) { a.clock = c }
}

// WithNotificationBuffer sets the capacity of the notification channel.
func WithNotificationBuffer(n int) Option {
	return func(a *AppState) { a.notifyBuffer = n }
}

type AppState struct {
	clock         clockwork.Clock
	lcd           lcd.Link
	strip         Strip
	lcdWorker     *worker
	ledWorker     *worker
	canvas        *framebuffer.Framebuffer
	notifications chan models.Notification
	done          chan struct{}
	gen           atomic.Uint64
	renderedGen   atomic.Uint64
	closeOnce     sync.Once
	timeout       time.Duration
	notifyBuffer  int
	lcdSeq        syncutil.Mutex
	ledSeq        syncutil.Mutex
	canvasMu      syncutil.RWMutex
	statusMu      syncutil.RWMutex
	closed        atomic.Bool
	clockWarned   atomic.Bool
	connected     bool
	orient        orientation.Orientation
	ledSettings   led.Settings
	ledDirty      bool
	inFlight      bool
	orientResync  bool
}

// New builds the coordinator from resolved configuration and the links
// opened at startup. A nil link runs headless; a nil strip disables LED
// control. The returned channel carries state change notifications.
//
//nolint:gocritic // config values are passed by value on purpose
func New(
	cfg config.Values,
	link lcd.Link,
	strip Strip,
	opts ...Option,
) (state *AppState, notificationCh <-chan models.Notification) {
	if link == nil {
		link = lcd.Headless{}
	}

	a := &AppState{
		clock:        clockwork.NewRealClock(),
		lcd:          link,
		strip:        strip,
		connected:    link.Connected(),
		timeout:      cfg.IOTimeout(),
		notifyBuffer: DefaultNotificationBuffer,
		orient:       cfg.LCD.Orientation,
		ledSettings:  cfg.LEDSettings(),
		ledDirty:     strip != nil,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.timeout <= 0 {
		a.timeout = 2 * time.Second
	}

	w, h := a.orient.Dimensions()
	a.canvas = framebuffer.New(int(w), int(h))
	// nothing has been drawn yet, so the first tick sends the blank canvas
	a.gen.Store(1)

	a.notifications = make(chan models.Notification, a.notifyBuffer)
	a.lcdWorker = newWorker("lcd", a.clock, a.timeout)
	a.ledWorker = newWorker("led", a.clock, a.timeout)

	syncutil.SetDeadlockTimeout(4 * a.timeout.Milliseconds())

	log.Info().
		Bool("lcd", a.connected).
		Bool("led", strip != nil).
		Stringer("orientation", a.orient).
		Dur("ioTimeout", a.timeout).
		Msg("coordinator started")

	return a, a.notifications
}

func (a *AppState) checkOpen(op string) error {
	if a.closed.Load() {
		return errcode.New(errcode.Closed, op, "coordinator closed")
	}
	return nil
}

// Done is closed once Close has finished.
func (a *AppState) Done() <-chan struct{} {
	return a.done
}

// Close stops both workers and releases the LCD handle. Operations already
// waiting on a device are allowed to finish or time out first. If a write is
// still running after the timeout, the handle is closed once it returns.
func (a *AppState) Close() error {
	var err error
	a.closeOnce.Do(func() {
		a.closed.Store(true)

		a.lcdSeq.Lock()
		lcdIdle := a.lcdWorker.stop()
		a.lcdSeq.Unlock()

		a.ledSeq.Lock()
		a.ledWorker.stop()
		a.ledSeq.Unlock()

		if lcdIdle {
			if closeErr := a.lcd.Close(); closeErr != nil {
				err = fmt.Errorf("failed to close lcd link: %w", closeErr)
			}
		} else {
			log.Warn().Msg("lcd write still running, closing the link once it returns")
			go func() {
				<-a.lcdWorker.exited
				if closeErr := a.lcd.Close(); closeErr != nil {
					log.Error().Err(closeErr).Msg("failed to close lcd link")
				}
			}()
		}
		close(a.done)
		log.Info().Msg("coordinator closed")
	})
	return err
}

func (a *AppState) Orientation() orientation.Orientation {
	a.statusMu.RLock()
	defer a.statusMu.RUnlock()
	return a.orient
}

func (a *AppState) LEDSettings() led.Settings {
	a.statusMu.RLock()
	defer a.statusMu.RUnlock()
	return a.ledSettings
}

// IsConnected reports whether a panel was opened at startup. It never
// changes afterwards.
func (a *AppState) IsConnected() bool {
	return a.connected
}

// LEDEnabled reports whether an LED strip is configured.
func (a *AppState) LEDEnabled() bool {
	return a.strip != nil
}

// IsDirty reports whether the canvas changed since the last successful
// redraw.
func (a *AppState) IsDirty() bool {
	return a.gen.Load() != a.renderedGen.Load()
}

// IsLEDDirty reports whether the strip may not show the cached settings.
func (a *AppState) IsLEDDirty() bool {
	a.statusMu.RLock()
	defer a.statusMu.RUnlock()
	return a.ledDirty
}

func (a *AppState) RenderState() RenderState {
	a.statusMu.RLock()
	inFlight := a.inFlight
	a.statusMu.RUnlock()
	switch {
	case inFlight:
		return InFlight
	case a.IsDirty():
		return Dirty
	default:
		return Idle
	}
}

func (a *AppState) displayStatus() models.DisplayResponse {
	o := a.Orientation()
	w, h := o.Dimensions()
	return models.DisplayResponse{
		Orientation: o.String(),
		Width:       int(w),
		Height:      int(h),
		Connected:   a.connected,
		Dirty:       a.IsDirty(),
		RenderState: a.RenderState().String(),
	}
}

func (a *AppState) ledStatus() models.LEDResponse {
	a.statusMu.RLock()
	s := a.ledSettings
	dirty := a.ledDirty
	a.statusMu.RUnlock()
	return models.LEDResponse{
		Theme:     uint8(s.Theme),
		ThemeName: s.Theme.String(),
		Intensity: s.Intensity,
		Speed:     s.Speed,
		Enabled:   a.strip != nil,
		Dirty:     dirty,
	}
}

// Status is a consistent-enough view for front ends. It never touches a
// device.
func (a *AppState) Status() models.StatusResponse {
	return models.StatusResponse{
		Display: a.displayStatus(),
		LED:     a.ledStatus(),
	}
}

// logDeviceError keeps an unplugged device from flooding the log on every
// tick.
func logDeviceError(err error, msg string) {
	if errors.Is(err, errcode.DeviceNotFound) {
		log.Debug().Err(err).Msg(msg)
		return
	}
	log.Warn().Err(err).Msg(msg)
}
