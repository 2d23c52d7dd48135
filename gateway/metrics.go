// Copyright © 2026 EdgeKit
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package gateway

import "github.com/prometheus/client_golang/prometheus"

var connectedDevices = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "thingsboard",
		Subsystem: "gateway",
		Name:      "connected_devices",
		Help:      "Number of sub-devices connected through the gateway.",
	},
)

func init() {
	prometheus.MustRegister(connectedDevices)
}
