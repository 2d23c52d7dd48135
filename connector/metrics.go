// Copyright © 2026 EdgeKit
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package connector

import "github.com/prometheus/client_golang/prometheus"

var sendsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "thingsboard",
		Subsystem: "connector",
		Name:      "sends_total",
		Help:      "Total number of telemetry sends by connector and result.",
	}, []string{"connector", "result"},
)

// CountSend registers the outcome of one telemetry send
func CountSend(connector string, class Class) {
	sendsTotal.WithLabelValues(connector, class.String()).Inc()
}

func init() {
	prometheus.MustRegister(sendsTotal)
}
