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

// Package service wires the devices, the coordinator and the API into the
// long running background process.
package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/minidisplay/minidisplay-core/pkg/api"
	"github.com/minidisplay/minidisplay-core/pkg/api/methods"
	"github.com/minidisplay/minidisplay-core/pkg/config"
	"github.com/minidisplay/minidisplay-core/pkg/coordinator"
	"github.com/minidisplay/minidisplay-core/pkg/devices/lcd"
	"github.com/minidisplay/minidisplay-core/pkg/devices/led"
	"github.com/minidisplay/minidisplay-core/pkg/errcode"
	"github.com/minidisplay/minidisplay-core/pkg/service/broker"
	"github.com/minidisplay/minidisplay-core/pkg/service/discovery"
	"github.com/minidisplay/minidisplay-core/pkg/service/publishers"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const subscriberBuffer = 100

type options struct {
	clock      clockwork.Clock
	openLCD    lcd.Opener
	listener   net.Listener
	portLister methods.PortLister
	ledOpts    []led.Option
}

type Option func(*options)

// WithClock drives the render and heartbeat tickers and the coordinator's
// timeouts from c.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLCDOpener replaces the HID open call.
func WithLCDOpener(open lcd.Opener) Option {
	return func(o *options) { o.openLCD = open }
}

// WithLEDOptions are passed to the LED session.
func WithLEDOptions(opts ...led.Option) Option {
	return func(o *options) { o.ledOpts = append(o.ledOpts, opts...) }
}

// WithListener serves the API on l instead of listening on the configured
// address.
func WithListener(l net.Listener) Option {
	return func(o *options) { o.listener = l }
}

func WithPortLister(list methods.PortLister) Option {
	return func(o *options) { o.portLister = list }
}

// Start brings the service up. The panel and strip are optional: a missing
// panel runs headless and a disabled strip is never touched. The returned
// stop function shuts everything down and waits for it; done is closed once
// the service has fully stopped, including after an internal failure.
//
//nolint:gocritic // config values are passed by value on purpose
func Start(cfg config.Values, opts ...Option) (stop func() error, done <-chan struct{}, err error) {
	o := options{
		clock:   clockwork.NewRealClock(),
		openLCD: lcd.OpenHID,
	}
	for _, opt := range opts {
		opt(&o)
	}

	log.Info().Str("version", config.AppVersion).Msg("starting service")

	link, err := lcd.Open(o.openLCD, cfg.LCD.VendorID, cfg.LCD.ProductID, cfg.LCD.Orientation)
	if err != nil {
		log.Warn().Err(err).Msg("lcd panel not available, running headless")
	}

	var strip coordinator.Strip
	if cfg.LED.Enabled {
		strip = led.NewSession(cfg.LED.Port, cfg.LED.BaudRate, o.ledOpts...)
	} else {
		log.Info().Msg("led strip disabled by configuration")
	}

	st, ns := coordinator.New(cfg, link, strip, coordinator.WithClock(o.clock))

	l := o.listener
	if l == nil {
		var lc net.ListenConfig
		l, err = lc.Listen(context.Background(), "tcp", cfg.APIListen())
		if err != nil {
			if closeErr := st.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("error closing coordinator")
			}
			return nil, nil, fmt.Errorf("failed to listen on %s: %w", cfg.APIListen(), err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	notifBroker := broker.NewBroker(ctx, ns)
	apiNotifications, _ := notifBroker.Subscribe(subscriberBuffer)
	activePublishers := startPublishers(cfg, notifBroker)
	notifBroker.Start()

	var watcher *portWatcher
	if cfg.LED.Enabled {
		watcher = newPortWatcher(cfg.LED.Port, st.MarkLEDDirty)
		if err := watcher.Start(); err != nil {
			log.Warn().Err(err).Msg("led hotplug detection not available")
			watcher = nil
		}
	}

	discoveryService := discovery.New(cfg)
	if err := discoveryService.Start(); err != nil {
		log.Error().Err(err).Msg("mDNS discovery failed to start, continuing without it")
	}

	var serverOpts []api.Option
	if o.portLister != nil {
		serverOpts = append(serverOpts, api.WithPortLister(o.portLister))
	}
	server := api.NewServer(cfg, st, apiNotifications, serverOpts...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Serve(gctx, l)
	})
	g.Go(func() error {
		runScheduler(gctx, o.clock, st, cfg.RenderInterval(), cfg.HeartbeatInterval())
		return nil
	})

	doneCh := make(chan struct{})
	var runErr error
	go func() {
		defer close(doneCh)
		runErr = g.Wait()
		if runErr != nil {
			log.Error().Err(runErr).Msg("service stopped with error")
		}
		cancel()

		discoveryService.Stop()
		if watcher != nil {
			watcher.Stop()
		}
		for _, p := range activePublishers {
			p.Stop()
		}
		<-notifBroker.Done()
		if err := st.Close(); err != nil {
			runErr = errors.Join(runErr, err)
		}
		log.Info().Msg("service stopped")
	}()

	log.Info().Str("api", l.Addr().String()).Msg("service started")

	return func() error {
		log.Info().Msg("stopping service")
		cancel()
		<-doneCh
		return runErr
	}, doneCh, nil
}

//nolint:gocritic // config values are passed by value on purpose
func startPublishers(cfg config.Values, b *broker.Broker) []*publishers.MQTTPublisher {
	active := make([]*publishers.MQTTPublisher, 0, len(cfg.Service.MQTT))
	for _, pc := range cfg.Service.MQTT {
		ch, id := b.Subscribe(subscriberBuffer)
		p := publishers.NewMQTTPublisher(pc)
		if err := p.Start(ch); err != nil {
			log.Error().Err(err).Str("broker", pc.Broker).Msg("failed to start mqtt publisher")
			b.Unsubscribe(id)
			continue
		}
		active = append(active, p)
	}
	return active
}

// runScheduler drives the periodic work: redraw and LED resync on the render
// interval, the panel clock on the heartbeat interval. A tick that fails is
// retried on the next one.
func runScheduler(
	ctx context.Context,
	clock clockwork.Clock,
	st *coordinator.AppState,
	renderEvery, heartbeatEvery time.Duration,
) {
	render := clock.NewTicker(renderEvery)
	defer render.Stop()
	heartbeat := clock.NewTicker(heartbeatEvery)
	defer heartbeat.Stop()

	log.Debug().Dur("render", renderEvery).Dur("heartbeat", heartbeatEvery).Msg("scheduler started")

	for {
		var err error
		select {
		case <-ctx.Done():
			log.Debug().Msg("scheduler stopped")
			return
		case <-st.Done():
			log.Debug().Msg("coordinator closed, scheduler stopped")
			return
		case <-render.Chan():
			err = st.RenderFrame(ctx)
		case <-heartbeat.Chan():
			err = st.SendHeartbeat(ctx)
		}
		if errors.Is(err, errcode.Closed) {
			return
		}
		if err != nil {
			log.Trace().Err(err).Msg("scheduled tick failed")
		}
	}
}
