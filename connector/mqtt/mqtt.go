// Copyright © 2026 EdgeKit
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/apex/log"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/eclipse/paho.mqtt.golang/packets"
	"github.com/google/uuid"

	"github.com/edgekit/thingsboard-connector/connector"
	"github.com/edgekit/thingsboard-connector/types"
)

// TelemetryTopic is the device telemetry topic
var TelemetryTopic = "v1/devices/me/telemetry"

// PublishQoS indicates the MQTT Quality of Service level used for telemetry
var PublishQoS byte = 0x00

// PublishTimeout is how long a send waits for a local queuing result before
// reporting the publish as accepted
var PublishTimeout = 50 * time.Millisecond

// Defaults applied when the config leaves them zero
var (
	DefaultKeepAlive      = 60 * time.Second
	DefaultConnectTimeout = 30 * time.Second
)

// State of the MQTT session
type State int32

// Session states. There is no automatic transition out of Failed: the
// connector never reconnects on its own.
const (
	Disconnected State = iota
	Connecting
	Connected
	Failed
)

// String implements the Stringer interface
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return "failed"
}

// Config contains configuration for the MQTT connector
type Config struct {
	Host        string
	Port        int
	AccessToken string
	Debug       bool

	// ClientID is randomized when empty
	ClientID       string
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
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

// MQTT connector publishes buffered telemetry over a persistent session
type MQTT struct {
	*connector.Buffer
	ctx     log.Interface
	client  paho.Client
	address string
	state   atomic.Int32
	debug   atomic.Bool
}

// New returns a new MQTT connector and synchronously attempts to connect.
// A refused or failed connection is logged but not fatal: the connector is
// returned in the Failed state and sends report a no-connection outcome.
func New(config Config, ctx log.Interface) (*MQTT, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.KeepAlive == 0 {
		config.KeepAlive = DefaultKeepAlive
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}
	if config.ClientID == "" {
		config.ClientID = fmt.Sprintf("connector-%s", uuid.NewString())
	}

	m := &MQTT{
		Buffer:  connector.NewBuffer(),
		ctx:     ctx.WithField("Connector", "MQTT"),
		address: fmt.Sprintf("%s:%d", config.Host, config.Port),
	}
	m.debug.Store(config.Debug)

	mqttOpts := paho.NewClientOptions()
	mqttOpts.AddBroker("tcp://" + m.address)
	mqttOpts.SetClientID(config.ClientID)
	mqttOpts.SetUsername(config.AccessToken)
	mqttOpts.SetKeepAlive(config.KeepAlive)
	mqttOpts.SetConnectTimeout(config.ConnectTimeout)
	mqttOpts.SetCleanSession(true)
	mqttOpts.SetAutoReconnect(false)
	mqttOpts.SetDefaultPublishHandler(func(_ paho.Client, msg paho.Message) {
		m.ctx.WithField("Topic", msg.Topic()).Warnf("Received unhandled message: %s", msg.Payload())
	})
	mqttOpts.SetOnConnectHandler(func(_ paho.Client) {
		m.state.Store(int32(Connected))
		m.ctx.Info("Connected")
	})
	mqttOpts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		m.state.Store(int32(Disconnected))
		m.ctx.WithError(err).Warn("Connection lost")
	})
	m.client = paho.NewClient(mqttOpts)

	m.connect(config.ConnectTimeout)
	return m, nil
}

func (m *MQTT) connect(timeout time.Duration) {
	m.state.Store(int32(Connecting))
	if m.debug.Load() {
		m.ctx.WithField("Address", m.address).Debug("Connecting")
	}
	token := m.client.Connect()
	if finished := token.WaitTimeout(timeout); !finished {
		m.state.Store(int32(Failed))
		m.ctx.Warn("Connect timed out")
		return
	}
	if err := token.Error(); err != nil {
		m.state.Store(int32(Failed))
		m.ctx.WithError(err).Warnf("Could not connect (%s)", classifyConnect(err))
		return
	}
	// Connected is stored by the OnConnect handler
}

// classifyConnect translates a connect error into the CONNACK classification
func classifyConnect(err error) string {
	switch {
	case errors.Is(err, packets.ErrorRefusedBadProtocolVersion):
		return "connection refused: incorrect protocol version"
	case errors.Is(err, packets.ErrorRefusedIDRejected):
		return "connection refused: invalid client identifier"
	case errors.Is(err, packets.ErrorRefusedServerUnavailable):
		return "connection refused: server unavailable"
	case errors.Is(err, packets.ErrorRefusedBadUsernameOrPassword):
		return "connection refused: bad username or password"
	case errors.Is(err, packets.ErrorRefusedNotAuthorised):
		return "connection refused: not authorised"
	case errors.Is(err, packets.ErrorNetworkError):
		return "network error"
	}
	return "unrecognized connect error"
}

// State returns the current session state
func (m *MQTT) State() State {
	return State(m.state.Load())
}

// EnableDebug implements the Connector interface
func (m *MQTT) EnableDebug() { m.debug.Store(true) }

// DisableDebug implements the Connector interface
func (m *MQTT) DisableDebug() { m.debug.Store(false) }

// Disconnect closes the MQTT session
func (m *MQTT) Disconnect() error {
	m.client.Disconnect(100)
	m.state.Store(int32(Disconnected))
	return nil
}

// Publish hands payload to the session and returns a handle carrying the
// local queuing result. Also used by the gateway fan-out.
func (m *MQTT) Publish(topic string, payload []byte) *connector.Send {
	return connector.Go(func() connector.Outcome {
		token := m.client.Publish(topic, PublishQoS, false, payload)
		if finished := token.WaitTimeout(PublishTimeout); !finished {
			// Queued; delivery happens asynchronously
			return connector.Outcome{Class: connector.Success}
		}
		if err := token.Error(); err != nil {
			return connector.Outcome{Class: classifyPublish(err), Err: err}
		}
		return connector.Outcome{Class: connector.Success}
	})
}

func classifyPublish(err error) connector.Class {
	switch {
	case errors.Is(err, paho.ErrNotConnected):
		return connector.NoConnection
	case errors.Is(err, packets.ErrorNetworkError):
		return connector.NetworkError
	}
	return connector.Unknown
}

// SendTelemetry publishes a snapshot of the buffer wrapped in the timestamped
// telemetry envelope. The call never blocks; the queuing result is reported
// on the returned handle and never raised as an error.
func (m *MQTT) SendTelemetry() *connector.Send {
	envelope := types.Telemetry{TS: time.Now().Unix(), Values: m.Snapshot()}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return connector.Go(func() connector.Outcome {
			return connector.Outcome{Class: connector.Unknown, Err: err}
		})
	}
	return connector.Go(func() connector.Outcome {
		if m.debug.Load() {
			m.ctx.WithField("Topic", TelemetryTopic).WithField("Payload", string(payload)).Debug("Sending telemetry")
		}
		outcome := m.Publish(TelemetryTopic, payload).Wait()
		connector.CountSend("mqtt", outcome.Class)
		if !outcome.OK() {
			m.ctx.WithError(outcome.Err).Warnf("Could not send telemetry (%s)", outcome.Class)
		} else if m.debug.Load() {
			m.ctx.WithField("Readings", len(envelope.Values)).Info("Sent telemetry")
		}
		return outcome
	})
}
