// Copyright © 2026 EdgeKit
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package types

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrInvalidArgument is returned when an input has the wrong type or shape
var ErrInvalidArgument = errors.New("invalid argument")

// ErrKeyNotFound is returned when a telemetry key or device is not present
var ErrKeyNotFound = errors.New("key not found")

// Telemetry is the timestamped payload envelope published to the platform,
// e.g. `{"ts": 1756742602, "values": {"temperature": 22.5, "humidity": 60}}`
type Telemetry struct {
	TS     int64                  `json:"ts"`
	Values map[string]interface{} `json:"values"`
}

// GatewayTelemetry attributes telemetry entries to named sub-devices
type GatewayTelemetry map[string][]Telemetry

// ValidateKey checks that key can identify a telemetry reading
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key must be a non-empty string", ErrInvalidArgument)
	}
	return nil
}

// ValidateValue checks that value is one of the four transmissible scalar
// kinds: boolean, string, integer or float
func ValidateValue(key string, value interface{}) error {
	switch value.(type) {
	case bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return nil
	}
	return fmt.Errorf("%w: value for %q must be a boolean, string, integer or float", ErrInvalidArgument, key)
}

// ValidateValues checks every entry of a telemetry mapping
func ValidateValues(values map[string]interface{}) error {
	if values == nil {
		return fmt.Errorf("%w: values must be a mapping", ErrInvalidArgument)
	}
	for key, value := range values {
		if err := ValidateKey(key); err != nil {
			return err
		}
		if err := ValidateValue(key, value); err != nil {
			return err
		}
	}
	return nil
}

// ParseScalar reads s as the scalar kind it spells: integer, float, boolean
// or, failing all of those, the string itself
func ParseScalar(s string) interface{} {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}
