// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/olegiv/avalon/internal/util"
)

// Delivery configuration constants
const (
	RequestTimeout = 10 * time.Second
	MaxResponseLen = 4 * 1024
	UserAgent      = "Avalon-Error-Collector/1.0"
)

// DeliveryResult represents the result of a delivery attempt.
type DeliveryResult struct {
	StatusCode   int
	ResponseBody string
	Error        error
}

// newHTTPClient builds the webhook client. Unless allowPrivate is set,
// connections to private and reserved addresses are refused at dial time.
func newHTTPClient(allowPrivate bool) *http.Client {
	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		DialContext:         dialer.DialContext,
	}
	if !allowPrivate {
		transport.DialContext = util.SSRFSafeDialContext(dialer)
	}
	return &http.Client{Timeout: RequestTimeout, Transport: transport}
}

// post sends msg as JSON to url.
func (d *Dispatcher) post(ctx context.Context, url string, msg Message) DeliveryResult {
	payload, err := json.Marshal(msg)
	if err != nil {
		return DeliveryResult{Error: fmt.Errorf("encoding message: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return DeliveryResult{Error: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return DeliveryResult{Error: fmt.Errorf("request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseLen))
	result := DeliveryResult{StatusCode: resp.StatusCode, ResponseBody: string(body)}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		result.Error = fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return result
}
