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
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/minidisplay/minidisplay-core/pkg/api/models"
	"github.com/minidisplay/minidisplay-core/pkg/config"
	"github.com/minidisplay/minidisplay-core/pkg/devices/lcd"
	"github.com/minidisplay/minidisplay-core/pkg/devices/led"
	"github.com/minidisplay/minidisplay-core/pkg/errcode"
	"github.com/minidisplay/minidisplay-core/pkg/framebuffer"
	"github.com/minidisplay/minidisplay-core/pkg/orientation"
	"github.com/minidisplay/minidisplay-core/pkg/testing/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeStrip records what reached the strip and fails while err is set.
type fakeStrip struct {
	err     error
	applied []led.Settings
	offs    int
	mu      sync.Mutex
}

func (s *fakeStrip) Apply(settings led.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.applied = append(s.applied, settings)
	return nil
}

func (s *fakeStrip) SetOff() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.offs++
	return nil
}

func (s *fakeStrip) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *fakeStrip) snapshot() (applied []led.Settings, offs int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]led.Settings(nil), s.applied...), s.offs
}

func newTestState(t *testing.T, link lcd.Link, strip Strip, opts ...Option) (*AppState, <-chan models.Notification) {
	t.Helper()
	a, ns := New(config.BaseDefaults, link, strip, opts...)
	t.Cleanup(func() {
		_ = a.Close()
	})
	return a, ns
}

func drain(ns <-chan models.Notification) []models.Notification {
	var out []models.Notification
	for {
		select {
		case n := <-ns:
			out = append(out, n)
		default:
			return out
		}
	}
}

func TestHeadlessDegradation(t *testing.T) {
	t.Parallel()

	a, _ := newTestState(t, nil, nil)
	ctx := context.Background()

	assert.False(t, a.IsConnected())
	assert.True(t, a.IsDirty(), "nothing rendered yet")

	require.NoError(t, a.ClearDisplay(ctx, "#00FF00"))
	assert.False(t, a.IsDirty())
	assert.Equal(t, framebuffer.Green, InspectCanvas(a, func(fb *framebuffer.Framebuffer) framebuffer.RGB565 {
		return fb.Pixel(5, 5)
	}))

	require.NoError(t, a.SetOrientation(ctx, "portrait"))
	assert.Equal(t, orientation.Portrait, a.Orientation())
	require.NoError(t, a.SendHeartbeat(ctx))
	require.NoError(t, a.RenderFrame(ctx))
	assert.Equal(t, Idle, a.RenderState())

	screen, err := a.ScreenPNG()
	require.NoError(t, err)
	assert.Equal(t, 170, screen.Width)
	assert.Equal(t, 320, screen.Height)
	assert.NotEmpty(t, screen.PNG)

	err = a.SetLED(ctx, 1, 3, 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, errcode.DeviceNotFound)
	assert.False(t, a.IsLEDDirty())
	assert.False(t, a.IsConnected(), "connection state is fixed at startup")
}

func TestRenderFrame_DirtyRetry(t *testing.T) {
	t.Parallel()

	link := &mocks.MockLCDLink{}
	link.On("Connected").Return(true)
	link.On("Redraw", mock.Anything, mock.Anything).Return(errors.New("usb stall")).Once()
	link.On("Redraw", mock.Anything, mock.Anything).Return(nil)
	link.On("Close").Return(nil)

	a, _ := newTestState(t, link, nil)
	ctx := context.Background()

	err := a.RenderFrame(ctx)
	require.Error(t, err)
	assert.True(t, a.IsDirty(), "failed redraw keeps the canvas dirty")
	assert.Equal(t, Dirty, a.RenderState())

	require.NoError(t, a.RenderFrame(ctx))
	assert.False(t, a.IsDirty())
	assert.Equal(t, Idle, a.RenderState())

	require.NoError(t, a.RenderFrame(ctx))
	link.AssertNumberOfCalls(t, "Redraw", 2)
}

func TestRenderFrame_SendsCanvas(t *testing.T) {
	t.Parallel()

	link := mocks.NewMockLCDLink()
	a, _ := newTestState(t, link, nil)

	a.WithCanvas(func(fb *framebuffer.Framebuffer) {
		fb.SetPixel(0, 0, framebuffer.Red)
	})
	require.NoError(t, a.RenderFrame(context.Background()))

	want := make([]uint16, lcd.ScreenPixels)
	want[0] = uint16(framebuffer.Red)
	link.AssertCalled(t, "Redraw", orientation.Landscape, want)
}

func TestClearDisplay(t *testing.T) {
	t.Parallel()

	link := mocks.NewMockLCDLink()
	a, ns := newTestState(t, link, nil)

	require.NoError(t, a.ClearDisplay(context.Background(), "FF0000"))

	want := make([]uint16, lcd.ScreenPixels)
	for i := range want {
		want[i] = uint16(framebuffer.Red)
	}
	link.AssertCalled(t, "Redraw", orientation.Landscape, want)
	assert.False(t, a.IsDirty())

	notes := drain(ns)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationDisplayChanged, notes[0].Method)
}

func TestClearDisplay_InvalidColor(t *testing.T) {
	t.Parallel()

	link := mocks.NewMockLCDLink()
	a, _ := newTestState(t, link, nil)

	for _, c := range []string{"", "#FFF", "red", "#GG0000", "#FF00001"} {
		err := a.ClearDisplay(context.Background(), c)
		require.Error(t, err, c)
		assert.ErrorIs(t, err, errcode.InvalidArgument, c)
	}
	link.AssertNotCalled(t, "Redraw", mock.Anything, mock.Anything)
}

func TestSetOrientation(t *testing.T) {
	t.Parallel()

	link := mocks.NewMockLCDLink()
	a, ns := newTestState(t, link, nil)
	ctx := context.Background()

	require.NoError(t, a.RenderFrame(ctx))
	require.NoError(t, a.SetOrientation(ctx, " Portrait_Upside_Down "))

	assert.Equal(t, orientation.PortraitUpsideDown, a.Orientation())
	assert.True(t, a.IsDirty(), "orientation change forces a redraw")
	bounds := a.Drawer().Bounds()
	assert.Equal(t, image.Rect(0, 0, 170, 320), bounds)

	require.NoError(t, a.RenderFrame(ctx))

	var methods []string
	for _, c := range link.Calls {
		if c.Method == "SetOrientation" || c.Method == "Redraw" {
			methods = append(methods, c.Method)
		}
	}
	assert.Equal(t, []string{"Redraw", "SetOrientation", "Redraw"}, methods)
	link.AssertCalled(t, "SetOrientation", orientation.PortraitUpsideDown)

	notes := drain(ns)
	require.Len(t, notes, 1)
	payload, ok := notes[0].Params.(models.DisplayResponse)
	require.True(t, ok)
	assert.Equal(t, "portrait-upside-down", payload.Orientation)
	assert.Equal(t, 170, payload.Width)
}

func TestSetOrientation_FailureKeepsState(t *testing.T) {
	t.Parallel()

	link := &mocks.MockLCDLink{}
	link.On("Connected").Return(true)
	link.On("SetOrientation", mock.Anything).Return(errors.New("stall"))
	link.On("Close").Return(nil)

	a, ns := newTestState(t, link, nil)

	err := a.SetOrientation(context.Background(), "portrait")
	require.Error(t, err)
	assert.Equal(t, orientation.Landscape, a.Orientation())
	assert.Equal(t, image.Rect(0, 0, 320, 170), a.Drawer().Bounds())
	assert.Empty(t, drain(ns))
}

func TestSetOrientation_Invalid(t *testing.T) {
	t.Parallel()

	link := mocks.NewMockLCDLink()
	a, _ := newTestState(t, link, nil)

	err := a.SetOrientation(context.Background(), "sideways")
	require.Error(t, err)
	assert.ErrorIs(t, err, errcode.InvalidArgument)
	link.AssertNotCalled(t, "SetOrientation", mock.Anything)
}

func TestSendHeartbeat_UsesClock(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 17, 21, 4, 5, 0, time.UTC)
	link := mocks.NewMockLCDLink()
	a, _ := newTestState(t, link, nil, WithClock(clockwork.NewFakeClockAt(now)))

	require.NoError(t, a.SendHeartbeat(context.Background()))
	link.AssertCalled(t, "Heartbeat", now)
}

func TestRefreshRegion(t *testing.T) {
	t.Parallel()

	link := mocks.NewMockLCDLink()
	a, _ := newTestState(t, link, nil)
	ctx := context.Background()

	a.WithCanvas(func(fb *framebuffer.Framebuffer) {
		fb.FillRect(image.Rect(10, 20, 12, 21), framebuffer.Blue)
	})
	require.NoError(t, a.RefreshRegion(ctx, image.Rect(10, 20, 12, 21)))
	link.AssertCalled(t, "Refresh", orientation.Landscape, uint16(10), uint16(20), uint8(2), uint8(1),
		[]uint16{uint16(framebuffer.Blue), uint16(framebuffer.Blue)})
	assert.True(t, a.IsDirty(), "partial refresh does not clear dirty")

	for _, r := range []image.Rectangle{
		image.Rect(0, 0, 0, 5),
		image.Rect(0, 0, 256, 1),
		image.Rect(0, 0, 100, 100),
		image.Rect(310, 160, 330, 170),
	} {
		err := a.RefreshRegion(ctx, r)
		require.Error(t, err, r.String())
		assert.ErrorIs(t, err, errcode.InvalidArgument)
	}
}

func TestTimeout_StatusStaysResponsive(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	link := newBlockingLink()
	a, _ := newTestState(t, link, nil, WithClock(clock))

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.RenderFrame(context.Background())
	}()

	<-link.started
	assert.Equal(t, InFlight, a.RenderState())

	statusDone := make(chan models.StatusResponse, 1)
	go func() {
		statusDone <- a.Status()
	}()
	select {
	case st := <-statusDone:
		assert.Equal(t, "in-flight", st.Display.RenderState)
	case <-time.After(time.Second):
		t.Fatal("status read blocked behind device I/O")
	}
	assert.Equal(t, orientation.Landscape, a.Orientation())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(2 * time.Second)

	err := <-errCh
	require.Error(t, err)
	assert.ErrorIs(t, err, errcode.Timeout)
	assert.True(t, a.IsDirty())
	assert.Equal(t, Dirty, a.RenderState())

	close(link.release)
}

func TestLED_StartupReapply(t *testing.T) {
	t.Parallel()

	strip := &fakeStrip{}
	a, _ := newTestState(t, nil, strip)

	assert.True(t, a.IsLEDDirty(), "strip state is unknown at startup")
	require.NoError(t, a.RenderFrame(context.Background()))
	assert.False(t, a.IsLEDDirty())

	applied, _ := strip.snapshot()
	assert.Equal(t, []led.Settings{led.DefaultSettings}, applied)
}

func TestMarkLEDDirty(t *testing.T) {
	t.Parallel()

	strip := &fakeStrip{}
	a, _ := newTestState(t, nil, strip)
	require.NoError(t, a.RenderFrame(context.Background()))
	require.False(t, a.IsLEDDirty())

	a.MarkLEDDirty()
	assert.True(t, a.IsLEDDirty())
	require.NoError(t, a.RenderFrame(context.Background()))
	assert.False(t, a.IsLEDDirty())

	applied, _ := strip.snapshot()
	assert.Equal(t, []led.Settings{led.DefaultSettings, led.DefaultSettings}, applied)

	headless, _ := newTestState(t, nil, nil)
	headless.MarkLEDDirty()
	assert.False(t, headless.IsLEDDirty(), "no strip, nothing to reapply")
}

func TestSetLED(t *testing.T) {
	t.Parallel()

	strip := &fakeStrip{}
	a, ns := newTestState(t, nil, strip)

	require.NoError(t, a.SetLED(context.Background(), 2, 5, 1))

	want := led.Settings{Theme: led.ThemeBreathing, Intensity: 5, Speed: 1}
	assert.Equal(t, want, a.LEDSettings())
	assert.False(t, a.IsLEDDirty())
	applied, _ := strip.snapshot()
	assert.Equal(t, []led.Settings{want}, applied)

	notes := drain(ns)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationLEDChanged, notes[0].Method)
}

func TestSetLED_Invalid(t *testing.T) {
	t.Parallel()

	strip := &fakeStrip{}
	a, _ := newTestState(t, nil, strip)

	for _, v := range [][3]uint8{{0, 3, 3}, {6, 3, 3}, {1, 0, 3}, {1, 3, 6}} {
		err := a.SetLED(context.Background(), v[0], v[1], v[2])
		require.Error(t, err)
		assert.ErrorIs(t, err, errcode.InvalidArgument)
	}
	applied, offs := strip.snapshot()
	assert.Empty(t, applied)
	assert.Zero(t, offs)
}

func TestSetLED_FailureReappliesLastKnown(t *testing.T) {
	t.Parallel()

	strip := &fakeStrip{}
	a, _ := newTestState(t, nil, strip)
	ctx := context.Background()
	require.NoError(t, a.RenderFrame(ctx))

	strip.setErr(errcode.NotFound("led write", "/dev/ttyUSB0", errors.New("gone")))
	err := a.SetLED(ctx, 3, 1, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, errcode.DeviceNotFound)
	assert.Equal(t, led.DefaultSettings, a.LEDSettings(), "cache unchanged on failure")
	assert.True(t, a.IsLEDDirty())

	err = a.RenderFrame(ctx)
	require.Error(t, err, "reapply fails while the strip is gone")
	assert.True(t, a.IsLEDDirty())

	strip.setErr(nil)
	require.NoError(t, a.RenderFrame(ctx))
	assert.False(t, a.IsLEDDirty())

	applied, _ := strip.snapshot()
	assert.Equal(t, []led.Settings{led.DefaultSettings, led.DefaultSettings}, applied)
}

func TestLEDOff(t *testing.T) {
	t.Parallel()

	strip := &fakeStrip{}
	a, _ := newTestState(t, nil, strip)
	ctx := context.Background()

	require.NoError(t, a.SetLED(ctx, 1, 4, 2))
	require.NoError(t, a.LEDOff(ctx))

	s := a.LEDSettings()
	assert.Equal(t, led.ThemeOff, s.Theme)
	assert.Equal(t, uint8(4), s.Intensity, "intensity kept for the UI")
	assert.Equal(t, uint8(2), s.Speed)
	_, offs := strip.snapshot()
	assert.Equal(t, 1, offs)

	st := a.Status()
	assert.Equal(t, "off", st.LED.ThemeName)
	assert.True(t, st.LED.Enabled)
}

func TestCanvasHelpers(t *testing.T) {
	t.Parallel()

	a, _ := newTestState(t, nil, nil)
	require.NoError(t, a.RenderFrame(context.Background()))

	n := InspectCanvas(a, func(fb *framebuffer.Framebuffer) int { return fb.Len() })
	assert.Equal(t, lcd.ScreenPixels, n)
	assert.False(t, a.IsDirty(), "reads do not dirty the canvas")

	old := MutateCanvas(a, func(fb *framebuffer.Framebuffer) framebuffer.RGB565 {
		prev := fb.Pixel(1, 1)
		fb.SetPixel(1, 1, framebuffer.White)
		return prev
	})
	assert.Equal(t, framebuffer.Black, old)
	assert.True(t, a.IsDirty())
}

func TestDrawer(t *testing.T) {
	t.Parallel()

	a, _ := newTestState(t, nil, nil)
	d := a.Drawer()

	assert.Equal(t, "minidisplay.Canvas", d.String())
	assert.Equal(t, framebuffer.RGB565Model, d.ColorModel())
	require.NoError(t, d.Halt())

	src := image.NewUniform(color.RGBA{R: 255, A: 255})
	require.NoError(t, d.Draw(image.Rect(300, 150, 400, 400), src, image.Point{}))

	got := InspectCanvas(a, func(fb *framebuffer.Framebuffer) [2]framebuffer.RGB565 {
		return [2]framebuffer.RGB565{fb.Pixel(319, 169), fb.Pixel(299, 149)}
	})
	assert.Equal(t, framebuffer.Red, got[0])
	assert.Equal(t, framebuffer.Black, got[1])
}

func TestClose(t *testing.T) {
	t.Parallel()

	link := mocks.NewMockLCDLink()
	strip := &fakeStrip{}
	a, _ := New(config.BaseDefaults, link, strip)
	ctx := context.Background()

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	link.AssertNumberOfCalls(t, "Close", 1)

	select {
	case <-a.Done():
	default:
		t.Fatal("done channel not closed")
	}

	for _, err := range []error{
		a.RenderFrame(ctx),
		a.SendHeartbeat(ctx),
		a.SetOrientation(ctx, "portrait"),
		a.ClearDisplay(ctx, "#000000"),
		a.SetLED(ctx, 1, 1, 1),
		a.LEDOff(ctx),
		a.Drawer().Draw(image.Rect(0, 0, 1, 1), image.Black, image.Point{}),
	} {
		assert.ErrorIs(t, err, errcode.Closed)
	}

	// status reads keep working after close
	assert.Equal(t, orientation.Landscape, a.Orientation())
}

func TestRenderStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "dirty", Dirty.String())
	assert.Equal(t, "in-flight", InFlight.String())
	assert.Equal(t, "render-state(9)", RenderState(9).String())
}
