// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

package config

import (
	"fmt"
	"net/url"
)

// validateOriginURL checks a CORS origin: http or https scheme, a host, and
// nothing after it but an optional trailing slash.
func validateOriginURL(rawURL string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("CORS origin %q failed to parse: %w", rawURL, err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("CORS origin %q must start with http:// or https://", rawURL)
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("CORS origin %q has no host", rawURL)
	}

	if (parsedURL.Path != "" && parsedURL.Path != "/") || parsedURL.RawQuery != "" {
		return fmt.Errorf("CORS origin %q must not contain a path or query", rawURL)
	}

	return nil
}

// validateRedisURL checks the offline queue URL scheme and host.
func validateRedisURL(rawURL string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("REDIS_URL failed to parse: %w", err)
	}
	if parsedURL.Scheme != "redis" && parsedURL.Scheme != "rediss" {
		return fmt.Errorf("REDIS_URL must use the redis:// or rediss:// scheme")
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("REDIS_URL host is required")
	}
	return nil
}

// validateNATSURL validates that the NATS URL is properly formatted
// Supports: nats://, tls://, and ws:// schemes with IP addresses/hostnames and optional ports
func validateNATSURL(rawURL string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("NATS_URL failed to parse: %w", err)
	}

	validSchemes := map[string]bool{"nats": true, "tls": true, "ws": true, "wss": true}
	if !validSchemes[parsedURL.Scheme] {
		return fmt.Errorf("NATS_URL scheme must be nats, tls, ws, or wss, got: %s", parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("NATS_URL host is required (e.g., localhost:4222)")
	}

	return nil
}
