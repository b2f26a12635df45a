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

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/minidisplay/minidisplay-core/pkg/devices/led"
	"github.com/minidisplay/minidisplay-core/pkg/errcode"
	"github.com/minidisplay/minidisplay-core/pkg/orientation"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	SchemaVersion  = 1
	CfgFile        = "config.toml"
	AppDir         = "minidisplay"
	CfgEnv         = "MINIDISPLAY_CFG"
	LEDPortEnv     = "MINIDISPLAY_LED_PORT"
	APIPortEnv     = "MINIDISPLAY_API_PORT"
	OrientationEnv = "MINIDISPLAY_ORIENTATION"
	DebugEnv       = "MINIDISPLAY_DEBUG"
)

// Values is the resolved configuration. It is built once at startup and
// passed by value; nothing in the process writes it back to disk.
type Values struct {
	Service      Service `toml:"service"`
	LED          LED     `toml:"led"`
	LCD          LCD     `toml:"lcd"`
	ConfigSchema int     `toml:"config_schema" validate:"eq=1"`
	DebugLogging bool    `toml:"debug_logging"`
}

// USB identifiers of the panel's HID interface.
const (
	DefaultLCDVendorID  uint16 = 0x0416
	DefaultLCDProductID uint16 = 0x5302
)

type LCD struct {
	VendorID            uint16                  `toml:"vendor_id" validate:"required"`
	ProductID           uint16                  `toml:"product_id" validate:"required"`
	Orientation         orientation.Orientation `toml:"orientation"`
	RenderIntervalMs    int                     `toml:"render_interval_ms" validate:"min=50,max=60000"`
	HeartbeatIntervalMs int                     `toml:"heartbeat_interval_ms" validate:"min=100,max=60000"`
	IOTimeoutMs         int                     `toml:"io_timeout_ms" validate:"min=100,max=60000"`
}

type LED struct {
	Port      string `toml:"port" validate:"required_if=Enabled true"`
	BaudRate  int    `toml:"baud_rate" validate:"min=300,max=4000000"`
	Enabled   bool   `toml:"enabled"`
	Theme     uint8  `toml:"theme" validate:"min=1,max=5"`
	Intensity uint8  `toml:"intensity" validate:"min=1,max=5"`
	Speed     uint8  `toml:"speed" validate:"min=1,max=5"`
}

const DefaultAPIPort = 7498

// Service holds the API and integration settings. AllowedIPs lists remote
// addresses or CIDRs allowed to reach the API besides loopback; empty means
// loopback only.
type Service struct {
	APIListen      string          `toml:"api_listen,omitempty" validate:"omitempty,hostname_port"`
	SentryDSN      string          `toml:"sentry_dsn,omitempty" validate:"omitempty,url"`
	AllowedIPs     []string        `toml:"allowed_ips,omitempty" validate:"dive,ip|cidr"`
	MQTT           []MQTTPublisher `toml:"mqtt,omitempty" validate:"dive"`
	Discovery      Discovery       `toml:"discovery"`
	APIPort        int             `toml:"api_port" validate:"min=1,max=65535"`
	ErrorReporting bool            `toml:"error_reporting"`
}

// Discovery advertises the API over mDNS. Only useful when api_listen is
// reachable from the network.
type Discovery struct {
	InstanceName string `toml:"instance_name,omitempty"`
	Enabled      bool   `toml:"enabled"`
}

// MQTTPublisher forwards state change notifications to an MQTT broker.
// An empty filter forwards every notification.
type MQTTPublisher struct {
	Broker string   `toml:"broker" validate:"required,hostname_port"`
	Topic  string   `toml:"topic" validate:"required"`
	Filter []string `toml:"filter,omitempty" validate:"dive,oneof=display.changed led.changed"`
}

var BaseDefaults = Values{
	ConfigSchema: SchemaVersion,
	LCD: LCD{
		VendorID:            DefaultLCDVendorID,
		ProductID:           DefaultLCDProductID,
		Orientation:         orientation.Landscape,
		RenderIntervalMs:    500,
		HeartbeatIntervalMs: 1000,
		IOTimeoutMs:         2000,
	},
	LED: LED{
		Enabled:   true,
		Port:      led.DefaultPort,
		BaudRate:  led.DefaultBaudRate,
		Theme:     uint8(led.DefaultSettings.Theme),
		Intensity: led.DefaultSettings.Intensity,
		Speed:     led.DefaultSettings.Speed,
	},
	Service: Service{
		APIPort: DefaultAPIPort,
	},
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LookupEnv matches os.LookupEnv.
type LookupEnv func(key string) (string, bool)

// DefaultDir returns the per-user config directory.
func DefaultDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config dir: %w", err)
	}
	return filepath.Join(dir, AppDir), nil
}

// Path returns the config file location, honouring MINIDISPLAY_CFG.
func Path(configDir string, lookup LookupEnv) string {
	if p, ok := lookup(CfgEnv); ok && p != "" {
		return p
	}
	return filepath.Join(configDir, CfgFile)
}

// Resolve builds the configuration from defaults, then the TOML file if it
// exists, then environment overrides, and validates the result.
func Resolve(fs afero.Fs, configDir string, lookup LookupEnv) (Values, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	vals := BaseDefaults

	cfgPath := Path(configDir, lookup)
	data, err := afero.ReadFile(fs, cfgPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Info().Str("path", cfgPath).Msg("config file not found, using defaults")
	case err != nil:
		return Values{}, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := toml.Unmarshal(data, &vals); err != nil {
			return Values{}, errcode.Wrap(errcode.InvalidArgument, "config load",
				fmt.Errorf("failed to unmarshal config: %w", err))
		}
		log.Debug().Str("path", cfgPath).Msg("config file loaded")
	}

	if vals.ConfigSchema != SchemaVersion {
		return Values{}, errcode.New(errcode.InvalidArgument, "config load",
			fmt.Sprintf("schema version mismatch: got %d, expecting %d",
				vals.ConfigSchema, SchemaVersion))
	}

	if err := applyEnv(&vals, lookup); err != nil {
		return Values{}, err
	}

	if err := vals.Validate(); err != nil {
		return Values{}, err
	}
	return vals, nil
}

func applyEnv(vals *Values, lookup LookupEnv) error {
	if v, ok := lookup(LEDPortEnv); ok && v != "" {
		vals.LED.Port = v
	}
	if v, ok := lookup(APIPortEnv); ok && v != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return errcode.Wrap(errcode.InvalidArgument, "config env",
				fmt.Errorf("%s: %w", APIPortEnv, err))
		}
		vals.Service.APIPort = port
	}
	if v, ok := lookup(OrientationEnv); ok && v != "" {
		o, err := orientation.Parse(v)
		if err != nil {
			return fmt.Errorf("%s: %w", OrientationEnv, err)
		}
		vals.LCD.Orientation = o
	}
	if v, ok := lookup(DebugEnv); ok && v != "" {
		debug, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return errcode.Wrap(errcode.InvalidArgument, "config env",
				fmt.Errorf("%s: %w", DebugEnv, err))
		}
		vals.DebugLogging = debug
	}
	return nil
}

// Validate checks every field against its bounds.
//
//nolint:gocritic // value receiver keeps Values immutable
func (v Values) Validate() error {
	if !v.LCD.Orientation.Valid() {
		return errcode.New(errcode.InvalidArgument, "config validate",
			fmt.Sprintf("invalid orientation %d", v.LCD.Orientation))
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return errcode.New(errcode.InvalidArgument, "config validate", strings.Join(fields, "; "))
		}
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

//nolint:gocritic // value receiver keeps Values immutable
func (v Values) RenderInterval() time.Duration {
	return time.Duration(v.LCD.RenderIntervalMs) * time.Millisecond
}

//nolint:gocritic // value receiver keeps Values immutable
func (v Values) HeartbeatInterval() time.Duration {
	return time.Duration(v.LCD.HeartbeatIntervalMs) * time.Millisecond
}

//nolint:gocritic // value receiver keeps Values immutable
func (v Values) IOTimeout() time.Duration {
	return time.Duration(v.LCD.IOTimeoutMs) * time.Millisecond
}

// LEDSettings returns the configured startup settings for the strip.
//
//nolint:gocritic // value receiver keeps Values immutable
func (v Values) LEDSettings() led.Settings {
	return led.Settings{
		Theme:     led.Theme(v.LED.Theme),
		Intensity: v.LED.Intensity,
		Speed:     v.LED.Speed,
	}
}

// APIListen returns the address the API server binds to.
//
//nolint:gocritic // value receiver keeps Values immutable
func (v Values) APIListen() string {
	if v.Service.APIListen == "" {
		return "localhost:" + strconv.Itoa(v.Service.APIPort)
	}
	return v.Service.APIListen
}

// APIURL is the websocket endpoint clients connect to.
//
//nolint:gocritic // value receiver keeps Values immutable
func (v Values) APIURL() string {
	return "ws://localhost:" + strconv.Itoa(v.Service.APIPort) + "/api"
}
