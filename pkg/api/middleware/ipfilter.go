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

package middleware

import (
	"net"
	"net/http"

	"github.com/rs/zerolog/log"
)

// ParseRemoteIP extracts and parses the IP address from a RemoteAddr string (IP:port format).
func ParseRemoteIP(remoteAddr string) net.IP {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	return net.ParseIP(host)
}

// IsLoopbackAddr checks if a RemoteAddr string represents a loopback address.
func IsLoopbackAddr(remoteAddr string) bool {
	ip := ParseRemoteIP(remoteAddr)
	if ip == nil {
		return false
	}
	return ip.IsLoopback()
}

// IPFilter admits loopback clients plus an optional allowlist of addresses
// and networks.
type IPFilter struct {
	allowedNets  []*net.IPNet
	allowedAddrs []net.IP
}

// NewIPFilter parses allowed IPs and CIDRs. Invalid entries are logged and
// skipped.
func NewIPFilter(allowedIPs []string) *IPFilter {
	filter := &IPFilter{}

	for _, ipStr := range allowedIPs {
		if host, _, err := net.SplitHostPort(ipStr); err == nil {
			ipStr = host
		}

		if _, network, err := net.ParseCIDR(ipStr); err == nil {
			filter.allowedNets = append(filter.allowedNets, network)
			continue
		}

		if ip := net.ParseIP(ipStr); ip != nil {
			filter.allowedAddrs = append(filter.allowedAddrs, ip)
			continue
		}

		log.Warn().Str("ip", ipStr).Msg("invalid IP or CIDR in allowed_ips, skipping")
	}

	return filter
}

// IsAllowed reports whether the remote address may use the API.
func (f *IPFilter) IsAllowed(remoteAddr string) bool {
	ip := ParseRemoteIP(remoteAddr)
	if ip == nil {
		log.Warn().Str("addr", remoteAddr).Msg("failed to parse IP address")
		return false
	}
	if ip.IsLoopback() {
		return true
	}

	for _, allowedIP := range f.allowedAddrs {
		if ip.Equal(allowedIP) {
			return true
		}
	}

	for _, network := range f.allowedNets {
		if network.Contains(ip) {
			return true
		}
	}

	return false
}

// HTTPIPFilterMiddleware rejects requests from addresses the filter does not
// admit. It also covers websocket upgrades.
func HTTPIPFilterMiddleware(filter *IPFilter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !filter.IsAllowed(r.RemoteAddr) {
				log.Debug().
					Str("addr", r.RemoteAddr).
					Str("path", r.URL.Path).
					Msg("request from blocked IP")

				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
