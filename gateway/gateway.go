// Copyright © 2026 EdgeKit
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

// Package gateway attributes telemetry to multiple sub-devices through one
// physical connection. The platform learns about sub-devices via the
// connect/disconnect topics; buffered readings are fanned out as one JSON
// document mapping each device name to its timestamped values.
package gateway

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/apex/log"
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/edgekit/thingsboard-connector/connector"
	"github.com/edgekit/thingsboard-connector/types"
)

// Topics used in gateway mode
var (
	ConnectTopic    = "v1/gateway/connect"
	DisconnectTopic = "v1/gateway/disconnect"
	TelemetryTopic  = "v1/gateway/telemetry"
)

// Session publishes payloads over an established connection to the platform.
// The MQTT connector and the dummy connector implement it.
type Session interface {
	Publish(topic string, payload []byte) *connector.Send
}

type deviceState interface {
	// Add adds a device to the set. Returns whether it was added.
	Add(device string) bool

	// Contains returns whether the given devices are all in the set.
	Contains(devices ...string) bool

	// Remove removes a single device from the set.
	Remove(device string)

	// ToSlice returns the members of the set as a slice.
	ToSlice() []string
}

// Gateway fans buffered telemetry of several sub-devices out over one session
type Gateway struct {
	ctx     log.Interface
	session Session

	mu      sync.Mutex
	devices deviceState
	data    map[string]*connector.Buffer
}

// New returns a new Gateway publishing through session
func New(session Session, ctx log.Interface) *Gateway {
	return &Gateway{
		ctx:     ctx.WithField("Connector", "Gateway"),
		session: session,
		devices: mapset.NewSet[string](),
		data:    make(map[string]*connector.Buffer),
	}
}

func validateDevice(device string) error {
	if device == "" {
		return fmt.Errorf("%w: device name must be a non-empty string", types.ErrInvalidArgument)
	}
	return nil
}

// ConnectDevice announces a sub-device to the platform so the gateway can
// send telemetry on its behalf
func (g *Gateway) ConnectDevice(device string) (*connector.Send, error) {
	if err := validateDevice(device); err != nil {
		return nil, err
	}
	g.mu.Lock()
	added := g.devices.Add(device)
	if _, ok := g.data[device]; !ok {
		g.data[device] = connector.NewBuffer()
	}
	g.mu.Unlock()
	if added {
		connectedDevices.Inc()
	}
	payload, _ := json.Marshal(map[string]string{"device": device})
	ctx := g.ctx.WithField("Device", device)
	return connector.Go(func() connector.Outcome {
		outcome := g.session.Publish(ConnectTopic, payload).Wait()
		if !outcome.OK() {
			ctx.WithError(outcome.Err).Warnf("Could not connect device (%s)", outcome.Class)
		} else {
			ctx.Debug("Connected device")
		}
		return outcome
	}), nil
}

// DisconnectDevice tells the platform the sub-device is gone and drops its
// buffered readings
func (g *Gateway) DisconnectDevice(device string) (*connector.Send, error) {
	if err := validateDevice(device); err != nil {
		return nil, err
	}
	g.mu.Lock()
	if !g.devices.Contains(device) {
		g.mu.Unlock()
		return nil, fmt.Errorf("%w: device %q not connected", types.ErrKeyNotFound, device)
	}
	g.devices.Remove(device)
	delete(g.data, device)
	g.mu.Unlock()
	connectedDevices.Dec()
	payload, _ := json.Marshal(map[string]string{"device": device})
	ctx := g.ctx.WithField("Device", device)
	return connector.Go(func() connector.Outcome {
		outcome := g.session.Publish(DisconnectTopic, payload).Wait()
		if !outcome.OK() {
			ctx.WithError(outcome.Err).Warnf("Could not disconnect device (%s)", outcome.Class)
		} else {
			ctx.Debug("Disconnected device")
		}
		return outcome
	}), nil
}

// Devices returns the names of the connected sub-devices
func (g *Gateway) Devices() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.devices.ToSlice()
}

// buffer returns the reading buffer of device, creating it when absent
func (g *Gateway) buffer(device string) (*connector.Buffer, error) {
	if err := validateDevice(device); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	buf, ok := g.data[device]
	if !ok {
		buf = connector.NewBuffer()
		g.data[device] = buf
	}
	return buf, nil
}

// lookup returns the reading buffer of device or a not-found error
func (g *Gateway) lookup(device string) (*connector.Buffer, error) {
	if err := validateDevice(device); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	buf, ok := g.data[device]
	if !ok {
		return nil, fmt.Errorf("%w: device %q", types.ErrKeyNotFound, device)
	}
	return buf, nil
}

// SetDeviceValue stores one reading for a sub-device
func (g *Gateway) SetDeviceValue(device, key string, value interface{}) error {
	buf, err := g.buffer(device)
	if err != nil {
		return err
	}
	return buf.Set(key, value)
}

// SetDeviceValues replaces the reading buffer of a sub-device
func (g *Gateway) SetDeviceValues(device string, values map[string]interface{}) error {
	buf, err := g.buffer(device)
	if err != nil {
		return err
	}
	return buf.SetAll(values)
}

// RemoveDeviceValue deletes one reading of a sub-device
func (g *Gateway) RemoveDeviceValue(device, key string) error {
	buf, err := g.lookup(device)
	if err != nil {
		return err
	}
	return buf.Remove(key)
}

// ClearDevice empties the reading buffer of a sub-device
func (g *Gateway) ClearDevice(device string) error {
	buf, err := g.lookup(device)
	if err != nil {
		return err
	}
	buf.Clear()
	return nil
}

// SendTelemetry publishes one timestamped entry per sub-device with buffered
// readings. Devices with an empty buffer are skipped. Timestamps are in
// milliseconds, as the platform expects on the gateway topic.
func (g *Gateway) SendTelemetry() *connector.Send {
	ts := time.Now().UnixMilli()
	g.mu.Lock()
	fanout := make(types.GatewayTelemetry, len(g.data))
	for device, buf := range g.data {
		if buf.Len() == 0 {
			continue
		}
		fanout[device] = []types.Telemetry{{TS: ts, Values: buf.Snapshot()}}
	}
	g.mu.Unlock()
	payload, err := json.Marshal(fanout)
	if err != nil {
		return connector.Go(func() connector.Outcome {
			return connector.Outcome{Class: connector.Unknown, Err: err}
		})
	}
	return connector.Go(func() connector.Outcome {
		outcome := g.session.Publish(TelemetryTopic, payload).Wait()
		connector.CountSend("gateway", outcome.Class)
		if !outcome.OK() {
			g.ctx.WithError(outcome.Err).Warnf("Could not send telemetry (%s)", outcome.Class)
		} else {
			g.ctx.WithField("Devices", len(fanout)).Debug("Sent telemetry")
		}
		return outcome
	})
}
