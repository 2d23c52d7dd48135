// Copyright © 2026 EdgeKit
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package dummy

import (
	"sync"
	"sync/atomic"

	"github.com/apex/log"

	"github.com/edgekit/thingsboard-connector/connector"
)

// BufferSize indicates the maximum number of sends and published messages
// the dummy retains before reporting a full queue
var BufferSize = 10

// Dummy is an in-memory telemetry sink. It implements both the Connector
// contract and the gateway session contract, recording everything it is
// handed so tests can assert on it without a network.
type Dummy struct {
	*connector.Buffer
	ctx   log.Interface
	debug atomic.Bool

	mu       sync.Mutex
	sent     []map[string]interface{}
	messages map[string][][]byte
}

// New returns a new Dummy connector
func New(ctx log.Interface) *Dummy {
	return &Dummy{
		Buffer:   connector.NewBuffer(),
		ctx:      ctx.WithField("Connector", "Dummy"),
		messages: make(map[string][][]byte),
	}
}

// EnableDebug implements the Connector interface
func (d *Dummy) EnableDebug() { d.debug.Store(true) }

// DisableDebug implements the Connector interface
func (d *Dummy) DisableDebug() { d.debug.Store(false) }

// Disconnect implements the Connector interface
func (d *Dummy) Disconnect() error {
	d.ctx.Debug("Disconnected")
	return nil
}

// SendTelemetry records a snapshot of the buffer
func (d *Dummy) SendTelemetry() *connector.Send {
	snapshot := d.Snapshot()
	return connector.Go(func() connector.Outcome {
		d.mu.Lock()
		defer d.mu.Unlock()
		if len(d.sent) >= BufferSize {
			d.ctx.Debug("Did not record telemetry [buffer full]")
			return connector.Outcome{Class: connector.QueueFull}
		}
		d.sent = append(d.sent, snapshot)
		if d.debug.Load() {
			d.ctx.WithField("Readings", len(snapshot)).Debug("Recorded telemetry")
		}
		return connector.Outcome{Class: connector.Success}
	})
}

// Sent returns the telemetry snapshots recorded so far
func (d *Dummy) Sent() []map[string]interface{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	sent := make([]map[string]interface{}, len(d.sent))
	copy(sent, d.sent)
	return sent
}

// Publish implements the gateway session contract
func (d *Dummy) Publish(topic string, payload []byte) *connector.Send {
	return connector.Go(func() connector.Outcome {
		d.mu.Lock()
		defer d.mu.Unlock()
		if len(d.messages[topic]) >= BufferSize {
			d.ctx.WithField("Topic", topic).Debug("Did not record message [buffer full]")
			return connector.Outcome{Class: connector.QueueFull}
		}
		d.messages[topic] = append(d.messages[topic], payload)
		if d.debug.Load() {
			d.ctx.WithField("Topic", topic).Debug("Recorded message")
		}
		return connector.Outcome{Class: connector.Success}
	})
}

// Messages returns the payloads published on topic so far
func (d *Dummy) Messages(topic string) [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	messages := make([][]byte, len(d.messages[topic]))
	copy(messages, d.messages[topic])
	return messages
}
