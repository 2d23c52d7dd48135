// Copyright © 2026 EdgeKit
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

// Package mqtt connects to a ThingsBoard MQTT broker in order to publish
// device telemetry.
//
// The access token of the device is used as the MQTT username; no password
// is set. The session is established once when the connector is built and
// there is no reconnect policy: a lost or refused connection leaves the
// connector in the Disconnected or Failed state and subsequent sends report
// a no-connection outcome on their handle.
//
// Telemetry is published as a JSON envelope
// (`{"ts":<unix-seconds>,"values":{...}}`) on the "v1/devices/me/telemetry"
// topic. The connector never subscribes to any topic; inbound messages that
// the broker pushes anyway are logged by the default publish handler, which
// is kept as an extension point.
package mqtt
