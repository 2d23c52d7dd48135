// Copyright © 2026 EdgeKit
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package connector

import "fmt"

// Class classifies the outcome of one telemetry send
type Class int

// Outcome classes. Success means the transport accepted the payload locally
// (for MQTT this is a queuing result, not a delivery acknowledgment).
const (
	Success Class = iota
	NoConnection
	QueueFull
	BadStatus
	NetworkError
	Unknown
)

// String implements the Stringer interface
func (c Class) String() string {
	switch c {
	case Success:
		return "success"
	case NoConnection:
		return "no connection"
	case QueueFull:
		return "queue full"
	case BadStatus:
		return "bad status"
	case NetworkError:
		return "network error"
	}
	return "unknown"
}

// Outcome is the result of one background send. Transport failures end up
// here instead of propagating to the caller as hard errors.
type Outcome struct {
	Class Class
	Err   error
}

// OK reports whether the send was accepted
func (o Outcome) OK() bool {
	return o.Class == Success
}

// String implements the Stringer interface
func (o Outcome) String() string {
	if o.Err != nil {
		return fmt.Sprintf("%s: %s", o.Class, o.Err)
	}
	return o.Class.String()
}

// Send is the handle of one in-flight telemetry transmission
type Send struct {
	done    chan struct{}
	outcome Outcome
}

// Go runs fn in the background and returns its handle
func Go(fn func() Outcome) *Send {
	s := &Send{done: make(chan struct{})}
	go func() {
		s.outcome = fn()
		close(s.done)
	}()
	return s
}

// Wait blocks until the send has finished and returns its outcome
func (s *Send) Wait() Outcome {
	<-s.done
	return s.outcome
}

// Done returns a channel that is closed when the send has finished
func (s *Send) Done() <-chan struct{} {
	return s.done
}
