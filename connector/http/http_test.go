// Copyright © 2026 EdgeKit
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net"
	nethttp "net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/apex/log"
	"github.com/apex/log/handlers/text"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/edgekit/thingsboard-connector/connector"
	"github.com/edgekit/thingsboard-connector/types"
)

type recordedRequest struct {
	method      string
	path        string
	contentType string
	body        []byte
}

type recordingHandler struct {
	mu       sync.Mutex
	status   int
	requests []recordedRequest
}

func (h *recordingHandler) ServeHTTP(w nethttp.ResponseWriter, r *nethttp.Request) {
	body, _ := io.ReadAll(r.Body)
	h.mu.Lock()
	h.requests = append(h.requests, recordedRequest{
		method:      r.Method,
		path:        r.URL.Path,
		contentType: r.Header.Get("Content-Type"),
		body:        body,
	})
	status := h.status
	h.mu.Unlock()
	if status == 0 {
		status = nethttp.StatusOK
	}
	w.WriteHeader(status)
}

func (h *recordingHandler) last() recordedRequest {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.requests[len(h.requests)-1]
}

func hostPort(c C, addr string) (string, int) {
	host, portString, err := net.SplitHostPort(addr)
	c.So(err, ShouldBeNil)
	port, err := strconv.Atoi(portString)
	c.So(err, ShouldBeNil)
	return host, port
}

func TestHTTP(t *testing.T) {
	Convey("Given a new Context", t, func(c C) {

		var logs bytes.Buffer
		ctx := &log.Logger{
			Handler: text.New(&logs),
			Level:   log.DebugLevel,
		}
		defer func() {
			if logs.Len() > 0 {
				c.Printf("\n%s", logs.String())
			}
		}()

		Convey("New should validate the connection identity", func() {
			for _, config := range []Config{
				{Host: "", Port: 80, AccessToken: "test_c2t3"},
				{Host: "thingsboard.cloud", Port: 0, AccessToken: "test_c2t3"},
				{Host: "thingsboard.cloud", Port: 70000, AccessToken: "test_c2t3"},
				{Host: "thingsboard.cloud", Port: 80, AccessToken: ""},
			} {
				_, err := New(config, ctx)
				So(errors.Is(err, types.ErrInvalidArgument), ShouldBeTrue)
			}
		})

		Convey("Given a telemetry endpoint", func() {
			handler := new(recordingHandler)
			server := httptest.NewServer(handler)
			defer server.Close()
			host, port := hostPort(c, server.Listener.Addr().String())

			conn, err := New(Config{Host: host, Port: port, AccessToken: "test_c2t3"}, ctx)
			Convey("There should be no error", func() {
				So(err, ShouldBeNil)
				So(conn, ShouldNotBeNil)
			})

			Convey("When sending buffered readings", func() {
				So(conn.SetAll(map[string]interface{}{"powerFactor": 0.75, "voltage": 220}), ShouldBeNil)
				outcome := conn.SendTelemetry().Wait()

				Convey("The outcome should be success", func() {
					So(outcome.OK(), ShouldBeTrue)
				})

				Convey("The endpoint should have received the snapshot", func() {
					request := handler.last()
					So(request.method, ShouldEqual, "POST")
					So(request.path, ShouldEqual, "/api/v1/test_c2t3/telemetry")
					So(request.contentType, ShouldEqual, "application/json")
					var values map[string]interface{}
					So(json.Unmarshal(request.body, &values), ShouldBeNil)
					So(values, ShouldResemble, map[string]interface{}{"powerFactor": 0.75, "voltage": float64(220)})
				})
			})

			Convey("When sending twice in rapid succession with different buffers", func() {
				So(conn.Set("powerFactor", 0.75), ShouldBeNil)
				first := conn.SendTelemetry()
				So(conn.Set("voltage", 220), ShouldBeNil)
				second := conn.SendTelemetry()

				Convey("Both handles should complete successfully", func() {
					So(first.Wait().OK(), ShouldBeTrue)
					So(second.Wait().OK(), ShouldBeTrue)
				})

				Convey("One snapshot should not contain the later reading", func() {
					first.Wait()
					second.Wait()
					// Delivery order of concurrent sends is not guaranteed
					var isolated bool
					handler.mu.Lock()
					for _, request := range handler.requests {
						var values map[string]interface{}
						So(json.Unmarshal(request.body, &values), ShouldBeNil)
						if len(values) == 1 {
							So(values, ShouldResemble, map[string]interface{}{"powerFactor": 0.75})
							isolated = true
						}
					}
					handler.mu.Unlock()
					So(isolated, ShouldBeTrue)
				})
			})

			Convey("When the endpoint rejects the telemetry", func() {
				handler.status = nethttp.StatusUnauthorized
				conn.EnableDebug()
				outcome := conn.SendTelemetry().Wait()

				Convey("The outcome should classify the status without raising", func() {
					So(outcome.Class, ShouldEqual, connector.BadStatus)
					So(outcome.Err, ShouldNotBeNil)
				})
			})
		})

		Convey("Given an unreachable endpoint", func() {
			listener, err := net.Listen("tcp", "127.0.0.1:0")
			So(err, ShouldBeNil)
			host, port := hostPort(c, listener.Addr().String())
			listener.Close()

			conn, err := New(Config{Host: host, Port: port, AccessToken: "test_c2t3"}, ctx)
			So(err, ShouldBeNil)
			So(conn.Set("powerFactor", 0.75), ShouldBeNil)

			Convey("The send should complete with a network error outcome", func() {
				outcome := conn.SendTelemetry().Wait()
				So(outcome.Class, ShouldEqual, connector.NetworkError)
				So(outcome.Err, ShouldNotBeNil)
			})
		})
	})
}
