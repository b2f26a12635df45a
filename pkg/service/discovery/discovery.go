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

// Package discovery advertises the API over mDNS so other machines on the
// network can find the panel without knowing its address.
package discovery

import (
	"context"
	"fmt"
	"net"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/minidisplay/minidisplay-core/pkg/config"
	"github.com/minidisplay/minidisplay-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

// ServiceType is the DNS-SD service type.
const ServiceType = "_minidisplay._tcp"

const (
	retryInterval    = 30 * time.Second
	maxRetryDuration = 5 * time.Minute
)

// virtualInterfacePrefixes are container and VPN interfaces that should
// never carry the advertisement.
var virtualInterfacePrefixes = []string{
	"docker", "br-", "veth", "virbr", "lxc", "lxd",
	"cni", "flannel", "cali", "tunl", "wg",
}

func getPreferredInterfaces() ([]net.Interface, error) {
	all, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list network interfaces: %w", err)
	}
	return filterInterfaces(all), nil
}

// filterInterfaces keeps interfaces that are up, multicast capable, not
// loopback and not virtual.
func filterInterfaces(ifaces []net.Interface) []net.Interface {
	var preferred []net.Interface
	for _, iface := range ifaces {
		switch {
		case iface.Flags&net.FlagUp == 0,
			iface.Flags&net.FlagLoopback != 0,
			iface.Flags&net.FlagMulticast == 0,
			isVirtualInterface(iface.Name):
			continue
		}
		preferred = append(preferred, iface)
	}
	return preferred
}

func isVirtualInterface(name string) bool {
	lower := strings.ToLower(name)
	for _, prefix := range virtualInterfacePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// Service manages the mDNS registration.
type Service struct {
	server       *zeroconf.Server
	cancelFunc   context.CancelFunc
	register     func(instance, service, domain string, port int, text []string, ifaces []net.Interface) (*zeroconf.Server, error)
	instanceName string
	cfg          config.Values
	mu           syncutil.Mutex
	stopped      bool
}

//nolint:gocritic // config values are passed by value on purpose
func New(cfg config.Values) *Service {
	return &Service{
		cfg:      cfg,
		register: zeroconf.Register,
	}
}

// Start registers the service. If the network is not up yet it keeps
// retrying in the background for a few minutes. Disabled discovery is not
// an error.
func (s *Service) Start() error {
	if !s.cfg.Service.Discovery.Enabled {
		log.Info().Msg("mDNS discovery disabled by configuration")
		return nil
	}

	s.instanceName = s.resolveInstanceName()

	if s.tryRegister() {
		return nil
	}

	log.Info().
		Dur("retryInterval", retryInterval).
		Dur("maxDuration", maxRetryDuration).
		Msg("mDNS registration failed, retrying in background")

	ctx, cancel := context.WithTimeout(context.Background(), maxRetryDuration)
	s.mu.Lock()
	s.cancelFunc = cancel
	s.mu.Unlock()

	go s.retryLoop(ctx)
	return nil
}

func (s *Service) txtRecords() []string {
	return []string{
		"version=" + config.AppVersion,
		"platform=" + runtime.GOOS,
		"path=/api",
		"led=" + strconv.FormatBool(s.cfg.LED.Enabled),
	}
}

func (s *Service) tryRegister() bool {
	ifaces, err := getPreferredInterfaces()
	if err != nil {
		log.Debug().Err(err).Msg("failed to get network interfaces")
		return false
	}
	if len(ifaces) == 0 {
		log.Debug().Msg("no suitable network interfaces found for mDNS")
		return false
	}

	names := make([]string, len(ifaces))
	for i, iface := range ifaces {
		names[i] = iface.Name
	}

	port := s.cfg.Service.APIPort
	server, err := s.register(s.instanceName, ServiceType, "local.", port, s.txtRecords(), ifaces)
	if err != nil {
		log.Debug().Err(err).Msg("mDNS registration attempt failed")
		return false
	}

	s.mu.Lock()
	// Stop may have run while registering
	if s.stopped {
		s.mu.Unlock()
		if server != nil {
			server.Shutdown()
		}
		return false
	}
	s.server = server
	s.mu.Unlock()

	log.Info().
		Str("instance", s.instanceName).
		Int("port", port).
		Str("type", ServiceType).
		Strs("interfaces", names).
		Msg("mDNS service advertising started")
	return true
}

func (s *Service) retryLoop(ctx context.Context) {
	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if s.tryRegister() {
				log.Info().Msg("mDNS registration succeeded after retry")
				return
			}
		case <-ctx.Done():
			log.Warn().Msg("mDNS registration retry ended, discovery will not be available")
			return
		}
	}
}

// Stop withdraws the advertisement. Safe to call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}
	if s.server != nil {
		log.Debug().Msg("stopping mDNS service advertising")
		s.server.Shutdown()
		s.server = nil
	}
}

// InstanceName is empty until Start has run with discovery enabled.
func (s *Service) InstanceName() string {
	return s.instanceName
}

// resolveInstanceName prefers the configured name, then the hostname.
func (s *Service) resolveInstanceName() string {
	if name := s.cfg.Service.Discovery.InstanceName; name != "" {
		return name
	}
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		log.Warn().Err(err).Msg("failed to get hostname, using fallback")
		return config.AppName
	}
	return hostname
}
