// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util holds network helpers shared by the HTTP layer and the
// webhook client.
package util

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
)

// MaxWebhookURLLength is the maximum allowed length for a webhook URL.
const MaxWebhookURLLength = 2048

// reservedPrefixes are private, loopback, link-local, documentation, and
// otherwise non-routable ranges.
var reservedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("192.0.2.0/24"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("198.51.100.0/24"),
	netip.MustParsePrefix("203.0.113.0/24"),
	netip.MustParsePrefix("224.0.0.0/4"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fe80::/10"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("::/128"),
}

// blockedHostnames are cloud metadata endpoints.
var blockedHostnames = []string{
	"metadata.google.internal",
	"metadata.goog",
}

// IsPrivateAddr reports whether addr is in a private or reserved range.
// Invalid addresses count as private.
func IsPrivateAddr(addr netip.Addr) bool {
	if !addr.IsValid() {
		return true
	}
	addr = addr.Unmap()
	for _, p := range reservedPrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ErrUnsafeWebhookURL wraps every webhook URL rejection.
var ErrUnsafeWebhookURL = errors.New("unsafe webhook URL")

// ValidateWebhookURL checks scheme and length, and unless allowPrivate is
// set, that the host does not resolve to a private address.
func ValidateWebhookURL(ctx context.Context, rawURL string, allowPrivate bool) error {
	if len(rawURL) > MaxWebhookURLLength {
		return fmt.Errorf("%w: longer than %d characters", ErrUnsafeWebhookURL, MaxWebhookURLLength)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnsafeWebhookURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https", ErrUnsafeWebhookURL)
	}

	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("%w: missing host", ErrUnsafeWebhookURL)
	}
	if allowPrivate {
		return nil
	}

	lower := strings.ToLower(host)
	if lower == "localhost" || strings.HasSuffix(lower, ".localhost") {
		return fmt.Errorf("%w: localhost is not allowed", ErrUnsafeWebhookURL)
	}
	for _, blocked := range blockedHostnames {
		if lower == blocked {
			return fmt.Errorf("%w: cloud metadata endpoints are not allowed", ErrUnsafeWebhookURL)
		}
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if IsPrivateAddr(addr) {
			return fmt.Errorf("%w: private address %s", ErrUnsafeWebhookURL, addr)
		}
		return nil
	}

	addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return fmt.Errorf("%w: resolving %q: %w", ErrUnsafeWebhookURL, host, err)
	}
	if len(addrs) == 0 {
		return fmt.Errorf("%w: %q has no addresses", ErrUnsafeWebhookURL, host)
	}
	for _, addr := range addrs {
		if IsPrivateAddr(addr) {
			return fmt.Errorf("%w: %q resolves to private address %s", ErrUnsafeWebhookURL, host, addr)
		}
	}
	return nil
}

// SSRFSafeDialContext returns a DialContext that resolves the host itself and
// refuses private addresses, so redirects and DNS rebinding cannot reach
// internal services.
func SSRFSafeDialContext(dialer *net.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q: %w", addr, err)
		}

		addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %q: %w", host, err)
		}
		for _, a := range addrs {
			if IsPrivateAddr(a) {
				return nil, fmt.Errorf("connection to private address %s (resolved from %q) is blocked", a, host)
			}
		}

		lastErr := fmt.Errorf("no addresses for %q", host)
		for _, a := range addrs {
			conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(a.Unmap().String(), port))
			if err == nil {
				return conn, nil
			}
			lastErr = err
		}
		return nil, fmt.Errorf("failed to connect to %q: %w", host, lastErr)
	}
}

// ClientIP returns the caller's address, preferring X-Real-IP and the first
// X-Forwarded-For entry over RemoteAddr.
func ClientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
