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

package cli

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/minidisplay/minidisplay-core/internal/telemetry"
	"github.com/minidisplay/minidisplay-core/pkg/api/client"
	"github.com/minidisplay/minidisplay-core/pkg/api/models"
	"github.com/minidisplay/minidisplay-core/pkg/config"
	"github.com/minidisplay/minidisplay-core/pkg/helpers"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// ErrNoAction is returned by Run when none of the client flags were given.
var ErrNoAction = errors.New("no client action requested")

type Flags struct {
	set         *flag.FlagSet
	Orientation *string
	Clear       *string
	LED         *string
	Screenshot  *string
	API         *string
	Service     *string
	LEDOff      *bool
	Status      *bool
	Ports       *bool
	Version     *bool
	Tray        *bool
}

// SetupFlags defines every command line flag on set.
func SetupFlags(set *flag.FlagSet) *Flags {
	return &Flags{
		set: set,
		Orientation: set.String(
			"orientation",
			"",
			"set the panel orientation (landscape, portrait, landscape-upside-down, portrait-upside-down)",
		),
		Clear: set.String(
			"clear",
			"",
			"clear the panel to a colour given as RRGGBB",
		),
		LED: set.String(
			"led",
			"",
			"set the led strip as theme,intensity,speed (each 1-5)",
		),
		LEDOff: set.Bool(
			"led-off",
			false,
			"turn the led strip off",
		),
		Status: set.Bool(
			"status",
			false,
			"print display and led status",
		),
		Screenshot: set.String(
			"screenshot",
			"",
			"save the current canvas as a PNG file",
		),
		API: set.String(
			"api",
			"",
			"send method and params to API and print response",
		),
		Ports: set.Bool(
			"ports",
			false,
			"list serial ports and mark likely led controllers",
		),
		Version: set.Bool(
			"version",
			false,
			"print version and exit",
		),
		Service: set.String(
			"service",
			"",
			"manage the background service (exec, start, stop, restart, status)",
		),
		Tray: set.Bool(
			"tray",
			false,
			"start the system tray helper",
		),
	}
}

func (f *Flags) Parse(args []string) error {
	if err := f.set.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}
	return nil
}

// Passed reports whether the named flag was set on the command line.
func (f *Flags) Passed(name string) bool {
	found := false
	f.set.Visit(func(fl *flag.Flag) {
		if fl.Name == name {
			found = true
		}
	})
	return found
}

// ParseLED reads "theme,intensity,speed". Range checks are left to the
// service so the CLI and API report the same errors.
func ParseLED(value string) (models.LEDSetParams, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 3 {
		return models.LEDSetParams{}, fmt.Errorf("led value %q must be theme,intensity,speed", value)
	}
	var nums [3]uint8
	for i, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return models.LEDSetParams{}, fmt.Errorf("led value %q: %w", p, err)
		}
		nums[i] = uint8(n)
	}
	return models.LEDSetParams{Theme: nums[0], Intensity: nums[1], Speed: nums[2]}, nil
}

func encode(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("error encoding params: %w", err)
	}
	return string(data), nil
}

// Run performs the client action selected on the command line. Output goes
// to out; screenshots are written through fs. It returns ErrNoAction when
// nothing was asked of the service.
func (f *Flags) Run(ctx context.Context, c client.APIClient, fs afero.Fs, out io.Writer) error {
	switch {
	case *f.Version:
		_, _ = fmt.Fprintf(out, "MiniDisplay Core v%s (%s)\n", config.AppVersion, runtime.GOOS)
		return nil
	case f.Passed("orientation"):
		params, err := encode(models.OrientationParams{Orientation: *f.Orientation})
		if err != nil {
			return err
		}
		return printCall(ctx, c, out, models.MethodDisplayOrientation, params)
	case f.Passed("clear"):
		params, err := encode(models.ClearParams{Color: *f.Clear})
		if err != nil {
			return err
		}
		return printCall(ctx, c, out, models.MethodDisplayClear, params)
	case f.Passed("led"):
		p, err := ParseLED(*f.LED)
		if err != nil {
			return err
		}
		params, err := encode(p)
		if err != nil {
			return err
		}
		return printCall(ctx, c, out, models.MethodLEDSet, params)
	case *f.LEDOff:
		return printCall(ctx, c, out, models.MethodLEDOff, "")
	case *f.Status:
		return status(ctx, c, out)
	case f.Passed("screenshot"):
		if *f.Screenshot == "" {
			return errors.New("screenshot flag requires a path")
		}
		return screenshot(ctx, c, fs, *f.Screenshot, out)
	case *f.Ports:
		return ports(ctx, c, out)
	case f.Passed("api"):
		if *f.API == "" {
			return errors.New("api flag requires a value")
		}
		ps := strings.SplitN(*f.API, ":", 2)
		method := ps[0]
		params := ""
		if len(ps) > 1 {
			params = ps[1]
		}
		return printCall(ctx, c, out, method, params)
	default:
		return ErrNoAction
	}
}

func printCall(ctx context.Context, c client.APIClient, out io.Writer, method, params string) error {
	resp, err := c.Call(ctx, method, params)
	if err != nil {
		log.Error().Err(err).Str("method", method).Msg("error calling API")
		return fmt.Errorf("error calling %s: %w", method, err)
	}
	_, _ = fmt.Fprintln(out, resp)
	return nil
}

func status(ctx context.Context, c client.APIClient, out io.Writer) error {
	resp, err := c.Call(ctx, models.MethodStatus, "")
	if err != nil {
		return fmt.Errorf("error getting status: %w", err)
	}
	var s models.StatusResponse
	if err := json.Unmarshal([]byte(resp), &s); err != nil {
		return fmt.Errorf("error decoding status: %w", err)
	}

	panel := "headless"
	if s.Display.Connected {
		panel = "connected"
	}
	_, _ = fmt.Fprintf(out, "display: %s, %s %dx%d, %s\n",
		panel, s.Display.Orientation, s.Display.Width, s.Display.Height, s.Display.RenderState)

	if !s.LED.Enabled {
		_, _ = fmt.Fprintln(out, "led: disabled")
		return nil
	}
	line := fmt.Sprintf("led: %s, intensity %d, speed %d", s.LED.ThemeName, s.LED.Intensity, s.LED.Speed)
	if s.LED.Dirty {
		line += " (pending resync)"
	}
	_, _ = fmt.Fprintln(out, line)
	return nil
}

func screenshot(ctx context.Context, c client.APIClient, fs afero.Fs, path string, out io.Writer) error {
	resp, err := c.Call(ctx, models.MethodDisplayScreen, "")
	if err != nil {
		return fmt.Errorf("error getting screen: %w", err)
	}
	var s models.ScreenResponse
	if err := json.Unmarshal([]byte(resp), &s); err != nil {
		return fmt.Errorf("error decoding screen: %w", err)
	}
	data, err := base64.StdEncoding.DecodeString(s.PNG)
	if err != nil {
		return fmt.Errorf("error decoding png: %w", err)
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write screenshot: %w", err)
	}
	_, _ = fmt.Fprintf(out, "saved %dx%d screenshot to %s\n", s.Width, s.Height, path)
	return nil
}

func ports(ctx context.Context, c client.APIClient, out io.Writer) error {
	resp, err := c.Call(ctx, models.MethodPorts, "")
	if err != nil {
		return fmt.Errorf("error listing ports: %w", err)
	}
	var p models.PortsResponse
	if err := json.Unmarshal([]byte(resp), &p); err != nil {
		return fmt.Errorf("error decoding ports: %w", err)
	}
	if len(p.Ports) == 0 {
		_, _ = fmt.Fprintln(out, "no serial ports found")
		return nil
	}
	for _, port := range p.Ports {
		mark := " "
		if port.LEDController {
			mark = "*"
		}
		_, _ = fmt.Fprintf(out, "%s %s\n", mark, port.Description)
	}
	return nil
}

// Setup initializes logging, resolves the config and starts opt-in error
// reporting. Console output is added when the process runs in the
// foreground.
func Setup(fs afero.Fs, lookup config.LookupEnv, console bool) (config.Values, error) {
	var writers []io.Writer
	if console {
		writers = append(writers, helpers.ConsoleWriter(os.Stderr))
	}

	// config errors are logged too, so logging comes first at info level
	if err := helpers.InitLogging(helpers.TempDir(), false, writers...); err != nil {
		return config.Values{}, fmt.Errorf("error initializing logging: %w", err)
	}

	cfg, err := config.Resolve(fs, helpers.ConfigDir(), lookup)
	if err != nil {
		return config.Values{}, fmt.Errorf("error loading config: %w", err)
	}

	zerolog.SetGlobalLevel(helpers.LogLevel(cfg.DebugLogging))

	if err := telemetry.Init(telemetry.Options{
		Enabled:    cfg.Service.ErrorReporting,
		DSN:        cfg.Service.SentryDSN,
		AppVersion: config.AppVersion,
	}); err != nil {
		log.Warn().Err(err).Msg("failed to initialize error reporting")
	}

	return cfg, nil
}
