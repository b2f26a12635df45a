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

package discovery

import (
	"net"
	"testing"

	"github.com/grandcat/zeroconf"
	"github.com/minidisplay/minidisplay-core/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterInterfaces(t *testing.T) {
	t.Parallel()

	up := net.FlagUp | net.FlagMulticast
	ifaces := []net.Interface{
		{Name: "lo", Flags: up | net.FlagLoopback},
		{Name: "eth0", Flags: up},
		{Name: "wlan0", Flags: up},
		{Name: "eth1", Flags: net.FlagMulticast},
		{Name: "tun0", Flags: net.FlagUp},
		{Name: "docker0", Flags: up},
		{Name: "veth12ab", Flags: up},
		{Name: "wg0", Flags: up},
	}

	got := filterInterfaces(ifaces)
	names := make([]string, 0, len(got))
	for _, i := range got {
		names = append(names, i.Name)
	}
	assert.Equal(t, []string{"eth0", "wlan0"}, names)
}

func TestIsVirtualInterface(t *testing.T) {
	t.Parallel()

	assert.True(t, isVirtualInterface("Docker0"))
	assert.True(t, isVirtualInterface("br-1234"))
	assert.False(t, isVirtualInterface("enp3s0"))
}

func TestStart_Disabled(t *testing.T) {
	t.Parallel()

	s := New(config.BaseDefaults)
	s.register = func(string, string, string, int, []string, []net.Interface) (*zeroconf.Server, error) {
		t.Error("register must not be called when disabled")
		return nil, nil
	}

	require.NoError(t, s.Start())
	assert.Empty(t, s.InstanceName())
	s.Stop()
}

func TestResolveInstanceName(t *testing.T) {
	t.Parallel()

	cfg := config.BaseDefaults
	cfg.Service.Discovery = config.Discovery{Enabled: true, InstanceName: "desk-panel"}
	assert.Equal(t, "desk-panel", New(cfg).resolveInstanceName())

	assert.NotEmpty(t, New(config.BaseDefaults).resolveInstanceName())
}

func TestTxtRecords(t *testing.T) {
	t.Parallel()

	cfg := config.BaseDefaults
	cfg.LED.Enabled = false
	recs := New(cfg).txtRecords()
	assert.Contains(t, recs, "version="+config.AppVersion)
	assert.Contains(t, recs, "path=/api")
	assert.Contains(t, recs, "led=false")
}

func TestStopIdempotent(t *testing.T) {
	t.Parallel()

	s := New(config.BaseDefaults)
	s.Stop()
	s.Stop()
	assert.Nil(t, s.server)
	assert.True(t, s.stopped)
}

func TestTryRegister_AfterStop(t *testing.T) {
	t.Parallel()

	cfg := config.BaseDefaults
	cfg.Service.Discovery.Enabled = true
	s := New(cfg)
	s.Stop()

	called := false
	s.register = func(string, string, string, int, []string, []net.Interface) (*zeroconf.Server, error) {
		called = true
		return nil, nil
	}

	// a registration racing with Stop is discarded
	assert.False(t, s.tryRegister())
	if called {
		assert.Nil(t, s.server)
	}
}
