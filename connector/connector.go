// Copyright © 2026 EdgeKit
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package connector

// Connector is the telemetry sink contract shared by the HTTP and MQTT
// transports. Callers mutate the reading buffer with Set/SetAll/Remove/Clear
// and hand the current snapshot to the platform with SendTelemetry; the
// transport is a configuration detail.
type Connector interface {
	// Set stores one reading, overwriting any prior value for the key
	Set(key string, value interface{}) error
	// SetAll replaces the whole reading buffer
	SetAll(values map[string]interface{}) error
	// Remove deletes one reading
	Remove(key string) error
	// Clear empties the reading buffer
	Clear()

	// SendTelemetry transmits a snapshot of the buffer in the background
	SendTelemetry() *Send

	EnableDebug()
	DisableDebug()

	// Disconnect releases the connection held by the connector
	Disconnect() error
}
