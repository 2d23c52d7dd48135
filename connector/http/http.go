// Copyright © 2026 EdgeKit
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"sync/atomic"
	"time"

	"github.com/apex/log"

	"github.com/edgekit/thingsboard-connector/connector"
	"github.com/edgekit/thingsboard-connector/types"
)

// DefaultTimeout bounds a single telemetry POST
var DefaultTimeout = 30 * time.Second

// TelemetryURLFormat is the device telemetry endpoint, filled with host,
// port and access token
var TelemetryURLFormat = "http://%s:%d/api/v1/%s/telemetry"

// Config contains configuration for the HTTP connector
type Config struct {
	Host        string
	Port        int
	AccessToken string
	Debug       bool
	Timeout     time.Duration
}

// Validate checks the connection identity
func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host must be a non-empty string", types.ErrInvalidArgument)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port must be between 1 and 65535, got %d", types.ErrInvalidArgument, c.Port)
	}
	if c.AccessToken == "" {
		return fmt.Errorf("%w: access token must be a non-empty string", types.ErrInvalidArgument)
	}
	return nil
}

// HTTP connector posts buffered telemetry to the per-device endpoint
type HTTP struct {
	*connector.Buffer
	ctx    log.Interface
	client *nethttp.Client
	url    string
	debug  atomic.Bool
}

// New returns a new HTTP connector. No network activity happens until
// SendTelemetry is called.
func New(config Config, ctx log.Interface) (*HTTP, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	h := &HTTP{
		Buffer: connector.NewBuffer(),
		ctx:    ctx.WithField("Connector", "HTTP"),
		client: &nethttp.Client{Timeout: timeout},
		url:    fmt.Sprintf(TelemetryURLFormat, config.Host, config.Port, config.AccessToken),
	}
	h.debug.Store(config.Debug)
	return h, nil
}

// EnableDebug implements the Connector interface
func (h *HTTP) EnableDebug() { h.debug.Store(true) }

// DisableDebug implements the Connector interface
func (h *HTTP) DisableDebug() { h.debug.Store(false) }

// Disconnect implements the Connector interface
func (h *HTTP) Disconnect() error {
	h.client.CloseIdleConnections()
	return nil
}

// SendTelemetry posts a snapshot of the buffer as a JSON object. The call
// never blocks; the outcome of the attempt is reported on the returned
// handle and never raised as an error.
func (h *HTTP) SendTelemetry() *connector.Send {
	snapshot := h.Snapshot()
	return connector.Go(func() connector.Outcome {
		outcome := h.post(snapshot)
		connector.CountSend("http", outcome.Class)
		if !outcome.OK() {
			h.ctx.WithError(outcome.Err).Warnf("Could not send telemetry (%s)", outcome.Class)
		} else if h.debug.Load() {
			h.ctx.WithField("Readings", len(snapshot)).Info("Sent telemetry")
		}
		return outcome
	})
}

func (h *HTTP) post(snapshot map[string]interface{}) connector.Outcome {
	body, err := json.Marshal(snapshot)
	if err != nil {
		return connector.Outcome{Class: connector.Unknown, Err: err}
	}
	if h.debug.Load() {
		h.ctx.WithField("URL", h.url).WithField("Body", string(body)).Debug("Sending telemetry")
	}
	response, err := h.client.Post(h.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return connector.Outcome{Class: connector.NetworkError, Err: err}
	}
	defer response.Body.Close()
	io.Copy(io.Discard, response.Body)
	if response.StatusCode != nethttp.StatusOK {
		return connector.Outcome{Class: connector.BadStatus, Err: fmt.Errorf("unexpected status %d", response.StatusCode)}
	}
	if h.debug.Load() {
		h.ctx.WithField("Status", response.StatusCode).Debug("Telemetry accepted")
	}
	return connector.Outcome{Class: connector.Success}
}
