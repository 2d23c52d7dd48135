// Copyright © 2026 EdgeKit
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package gateway

import redis "gopkg.in/redis.v5"

// defaultRedisStateKey is used as key when no key is given
var defaultRedisStateKey = "devicestate"

// InitRedisState persists the connected-device set in Redis so a restarted
// gateway can re-announce its sub-devices. It returns the device names
// stored in the database by a previous run.
func (g *Gateway) InitRedisState(client *redis.Client, key string) (devices []string) {
	if key == "" {
		key = defaultRedisStateKey
	}
	g.mu.Lock()
	g.devices = &deviceStateWithRedisPersistence{
		deviceState: g.devices,
		client:      client,
		key:         key,
	}
	g.mu.Unlock()
	devices, _ = client.SMembers(key).Result()
	return
}

type deviceStateWithRedisPersistence struct {
	key    string
	client *redis.Client
	deviceState
}

func (s *deviceStateWithRedisPersistence) Add(device string) bool {
	added := s.deviceState.Add(device)
	if added {
		go s.client.SAdd(s.key, device).Result()
	}
	return added
}

func (s *deviceStateWithRedisPersistence) Remove(device string) {
	s.deviceState.Remove(device)
	go s.client.SRem(s.key, device).Result()
}
