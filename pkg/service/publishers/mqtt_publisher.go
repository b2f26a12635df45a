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

// Package publishers forwards coordinator notifications to external
// systems.
package publishers

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/minidisplay/minidisplay-core/pkg/api/models"
	"github.com/minidisplay/minidisplay-core/pkg/config"
	"github.com/rs/zerolog/log"
)

const (
	connectWait         = 5 * time.Second
	publishWait         = 5 * time.Second
	disconnectQuiesceMs = 250
)

// MQTTPublisher publishes notification params as JSON to one topic.
type MQTTPublisher struct {
	client    mqtt.Client
	newClient func(*mqtt.ClientOptions) mqtt.Client
	stopCh    chan struct{}
	broker    string
	topic     string
	filter    []string
	wg        sync.WaitGroup
	stopOnce  sync.Once
}

// NewMQTTPublisher creates a publisher for cfg. An empty filter publishes
// every notification.
//
//nolint:gocritic // config values are passed by value on purpose
func NewMQTTPublisher(cfg config.MQTTPublisher) *MQTTPublisher {
	return &MQTTPublisher{
		broker:    cfg.Broker,
		topic:     cfg.Topic,
		filter:    cfg.Filter,
		newClient: mqtt.NewClient,
		stopCh:    make(chan struct{}),
	}
}

// Start connects to the broker and begins forwarding notifications.
func (p *MQTTPublisher) Start(notifications <-chan models.Notification) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker("tcp://" + p.broker)
	opts.SetClientID("minidisplay-" + uuid.New().String()[:8])
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.OnConnect = func(_ mqtt.Client) {
		log.Info().Str("broker", p.broker).Msg("mqtt publisher: connected")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Str("broker", p.broker).Msg("mqtt publisher: connection lost")
	}

	p.client = p.newClient(opts)
	token := p.client.Connect()
	switch {
	case !token.WaitTimeout(connectWait):
		// the client keeps retrying in the background
		log.Warn().Str("broker", p.broker).Msg("mqtt publisher: broker not reachable yet")
	case token.Error() != nil:
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	log.Info().Str("broker", p.broker).Str("topic", p.topic).Msg("mqtt publisher: started")

	p.wg.Add(1)
	go p.publishNotifications(notifications)
	return nil
}

// Stop ends forwarding and disconnects. Safe to call more than once.
func (p *MQTTPublisher) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
		p.wg.Wait()
		if p.client != nil && p.client.IsConnected() {
			log.Debug().Str("broker", p.broker).Msg("mqtt publisher: disconnecting")
			p.client.Disconnect(disconnectQuiesceMs)
		}
	})
}

func (p *MQTTPublisher) publishNotifications(notifications <-chan models.Notification) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		case notif, ok := <-notifications:
			if !ok {
				log.Debug().Msg("mqtt publisher: notification channel closed")
				return
			}
			if !p.matchesFilter(notif.Method) {
				continue
			}

			payload, err := json.Marshal(notif.Params)
			if err != nil {
				log.Error().Err(err).Str("method", notif.Method).Msg("mqtt publisher: failed to marshal notification")
				continue
			}

			token := p.client.Publish(p.topic, 0, false, payload)
			if !token.WaitTimeout(publishWait) {
				log.Warn().Str("method", notif.Method).Msg("mqtt publisher: publish timed out")
				continue
			}
			if token.Error() != nil {
				log.Error().Err(token.Error()).Msg("mqtt publisher: failed to publish message")
				continue
			}
			log.Debug().Str("method", notif.Method).Msg("mqtt publisher: published notification")
		}
	}
}

func (p *MQTTPublisher) matchesFilter(method string) bool {
	return len(p.filter) == 0 || slices.Contains(p.filter, method)
}
