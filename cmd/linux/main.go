//go:build linux

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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/minidisplay/minidisplay-core/internal/telemetry"
	"github.com/minidisplay/minidisplay-core/pkg/api/client"
	"github.com/minidisplay/minidisplay-core/pkg/cli"
	"github.com/minidisplay/minidisplay-core/pkg/config"
	"github.com/minidisplay/minidisplay-core/pkg/helpers"
	"github.com/minidisplay/minidisplay-core/pkg/service"
	"github.com/minidisplay/minidisplay-core/pkg/ui/systray"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := cli.SetupFlags(flag.CommandLine)
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *flags.Version {
		return flags.Run(ctx, nil, nil, os.Stdout)
	}

	fs := afero.NewOsFs()
	foreground := flags.Passed("service") && *flags.Service == "exec"
	cfg, err := cli.Setup(fs, os.LookupEnv, foreground)
	if err != nil {
		return err
	}
	defer telemetry.Close()

	defer func() {
		if err := recover(); err != nil {
			telemetry.Flush()
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %s\n", err)
			log.Fatal().Msgf("panic: %v", err)
		}
	}()

	if flags.Passed("service") {
		svc, err := helpers.NewService(helpers.ServiceArgs{
			Fs:      fs,
			TempDir: helpers.TempDir(),
			CfgPath: config.Path(helpers.ConfigDir(), os.LookupEnv),
			Entry: func() (func() error, <-chan struct{}, error) {
				return service.Start(cfg)
			},
		})
		if err != nil {
			return fmt.Errorf("error creating service: %w", err)
		}
		return svc.ServiceHandler(*flags.Service)
	}

	api := client.NewLocalAPIClient(cfg)

	if *flags.Tray {
		systray.New(api, cfg.APIURL()).Run(func() {
			log.Info().Msg("tray helper exited")
		})
		return nil
	}

	err = flags.Run(ctx, api, fs, os.Stdout)
	if errors.Is(err, cli.ErrNoAction) {
		flag.Usage()
		return nil
	}
	return err
}
