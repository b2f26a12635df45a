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

package publishers

import (
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/minidisplay/minidisplay-core/pkg/api/models"
	"github.com/minidisplay/minidisplay-core/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWithMock(
	t *testing.T,
	cfg config.MQTTPublisher,
	client *mockMQTTClient,
) (*MQTTPublisher, chan models.Notification) {
	t.Helper()
	p := NewMQTTPublisher(cfg)
	p.newClient = func(opts *mqtt.ClientOptions) mqtt.Client {
		assert.Equal(t, "tcp://"+cfg.Broker, opts.Servers[0].String())
		return client
	}
	ns := make(chan models.Notification, 10)
	require.NoError(t, p.Start(ns))
	t.Cleanup(p.Stop)
	return p, ns
}

func TestMatchesFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method string
		filter []string
		want   bool
	}{
		{name: "no filter", method: models.NotificationLEDChanged, want: true},
		{
			name:   "listed",
			filter: []string{models.NotificationLEDChanged},
			method: models.NotificationLEDChanged,
			want:   true,
		},
		{
			name:   "not listed",
			filter: []string{models.NotificationLEDChanged},
			method: models.NotificationDisplayChanged,
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := NewMQTTPublisher(config.MQTTPublisher{Broker: "localhost:1883", Topic: "t", Filter: tt.filter})
			assert.Equal(t, tt.want, p.matchesFilter(tt.method))
		})
	}
}

func TestStart_PublishesParams(t *testing.T) {
	t.Parallel()

	client := newMockMQTTClient()
	_, ns := startWithMock(t, config.MQTTPublisher{Broker: "localhost:1883", Topic: "minidisplay/events"}, client)

	ns <- models.Notification{
		Method: models.NotificationLEDChanged,
		Params: models.LEDResponse{Theme: 2, ThemeName: "breathing", Intensity: 5, Speed: 1, Enabled: true},
	}

	require.Eventually(t, func() bool { return len(client.getPublished()) == 1 }, time.Second, 5*time.Millisecond)
	msg := client.getPublished()[0]
	assert.Equal(t, "minidisplay/events", msg.topic)
	assert.Equal(t, byte(0), msg.qos)
	assert.False(t, msg.retained)
	payload, ok := msg.payload.([]byte)
	require.True(t, ok)
	assert.JSONEq(t,
		`{"themeName":"breathing","theme":2,"intensity":5,"speed":1,"enabled":true,"dirty":false}`,
		string(payload))
}

func TestStart_ConnectError(t *testing.T) {
	t.Parallel()

	client := newMockMQTTClient()
	client.connectError = errors.New("connection refused")

	p := NewMQTTPublisher(config.MQTTPublisher{Broker: "localhost:1883", Topic: "t"})
	p.newClient = func(*mqtt.ClientOptions) mqtt.Client { return client }

	err := p.Start(make(chan models.Notification))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to MQTT broker")
	p.Stop()
}

func TestPublishNotifications_FilteredOut(t *testing.T) {
	t.Parallel()

	client := newMockMQTTClient()
	_, ns := startWithMock(t, config.MQTTPublisher{
		Broker: "localhost:1883",
		Topic:  "t",
		Filter: []string{models.NotificationLEDChanged},
	}, client)

	ns <- models.Notification{Method: models.NotificationDisplayChanged, Params: models.DisplayResponse{}}
	ns <- models.Notification{Method: models.NotificationLEDChanged, Params: models.LEDResponse{Theme: 4}}

	require.Eventually(t, func() bool { return len(client.getPublished()) == 1 }, time.Second, 5*time.Millisecond)
	payload, ok := client.getPublished()[0].payload.([]byte)
	require.True(t, ok)
	assert.Contains(t, string(payload), `"theme":4`)
}

func TestPublishNotifications_PublishErrorKeepsRunning(t *testing.T) {
	t.Parallel()

	client := newMockMQTTClient()
	client.publishError = assert.AnError
	_, ns := startWithMock(t, config.MQTTPublisher{Broker: "localhost:1883", Topic: "t"}, client)

	ns <- models.Notification{Method: models.NotificationLEDChanged, Params: models.LEDResponse{}}

	client.mu.Lock()
	client.publishError = nil
	client.mu.Unlock()
	ns <- models.Notification{Method: models.NotificationLEDChanged, Params: models.LEDResponse{}}

	require.Eventually(t, func() bool { return len(client.getPublished()) >= 1 }, time.Second, 5*time.Millisecond)
}

func TestPublishNotifications_ChannelClosed(t *testing.T) {
	t.Parallel()

	client := newMockMQTTClient()
	p, ns := startWithMock(t, config.MQTTPublisher{Broker: "localhost:1883", Topic: "t"}, client)

	close(ns)
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher goroutine did not exit")
	}
}

func TestStop_Disconnects(t *testing.T) {
	t.Parallel()

	client := newMockMQTTClient()
	p, _ := startWithMock(t, config.MQTTPublisher{Broker: "localhost:1883", Topic: "t"}, client)

	p.Stop()
	p.Stop()

	assert.Equal(t, 1, client.getDisconnectCalls())
	assert.False(t, client.IsConnected())
}

func TestStop_NotStarted(t *testing.T) {
	t.Parallel()

	p := NewMQTTPublisher(config.MQTTPublisher{Broker: "localhost:1883", Topic: "t"})
	p.Stop()

	_, ok := <-p.stopCh
	assert.False(t, ok)
}
