// Copyright © 2026 EdgeKit
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package connector

import (
	"fmt"
	"sync"

	"github.com/edgekit/thingsboard-connector/types"
)

// Buffer holds the telemetry readings of a connector between sends. All
// operations validate their input before touching the buffer, so a failed
// call leaves it unchanged.
type Buffer struct {
	mu     sync.RWMutex
	values map[string]interface{}
}

// NewBuffer returns an empty Buffer
func NewBuffer() *Buffer {
	return &Buffer{values: make(map[string]interface{})}
}

// Set stores value under key, overwriting any prior reading
func (b *Buffer) Set(key string, value interface{}) error {
	if err := types.ValidateKey(key); err != nil {
		return err
	}
	if err := types.ValidateValue(key, value); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[key] = value
	return nil
}

// SetAll replaces the whole buffer with values
func (b *Buffer) SetAll(values map[string]interface{}) error {
	if err := types.ValidateValues(values); err != nil {
		return err
	}
	replacement := make(map[string]interface{}, len(values))
	for key, value := range values {
		replacement[key] = value
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values = replacement
	return nil
}

// Remove deletes the reading stored under key
func (b *Buffer) Remove(key string) error {
	if err := types.ValidateKey(key); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.values[key]; !ok {
		return fmt.Errorf("%w: %q", types.ErrKeyNotFound, key)
	}
	delete(b.values, key)
	return nil
}

// Clear empties the buffer
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values = make(map[string]interface{})
}

// Get returns the reading stored under key
func (b *Buffer) Get(key string) (interface{}, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	value, ok := b.values[key]
	return value, ok
}

// Len returns the number of buffered readings
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.values)
}

// Snapshot returns a copy of the buffer. Sends serialize a snapshot taken at
// call time, so the buffer can be mutated while a send is in flight.
func (b *Buffer) Snapshot() map[string]interface{} {
	b.mu.RLock()
	defer b.mu.RUnlock()
	snapshot := make(map[string]interface{}, len(b.values))
	for key, value := range b.values {
		snapshot[key] = value
	}
	return snapshot
}
