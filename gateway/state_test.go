// Copyright © 2026 EdgeKit
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package gateway

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/text"
	. "github.com/smartystreets/goconvey/convey"
	redis "gopkg.in/redis.v5"

	"github.com/edgekit/thingsboard-connector/connector/dummy"
)

func TestRedisState(t *testing.T) {
	address := os.Getenv("REDIS_ADDRESS")
	if address == "" {
		t.Skip("REDIS_ADDRESS not set, skipping Redis state test")
	}

	Convey("Given a Gateway with Redis-backed device state", t, func(c C) {

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

		client := redis.NewClient(&redis.Options{Addr: address})
		key := "devicestate-test"
		client.Del(key)
		defer client.Del(key)

		session := dummy.New(ctx)
		bridge := New(session, ctx)
		devices := bridge.InitRedisState(client, key)
		So(devices, ShouldBeEmpty)

		Convey("Connected devices should survive a restart", func() {
			send, err := bridge.ConnectDevice("cellar")
			So(err, ShouldBeNil)
			send.Wait()
			// Persistence happens in the background
			time.Sleep(100 * time.Millisecond)

			restarted := New(dummy.New(ctx), ctx)
			devices := restarted.InitRedisState(client, key)
			So(devices, ShouldResemble, []string{"cellar"})

			Convey("And disconnected devices should be forgotten", func() {
				send, err := bridge.DisconnectDevice("cellar")
				So(err, ShouldBeNil)
				send.Wait()
				time.Sleep(100 * time.Millisecond)

				devices, err := client.SMembers(key).Result()
				So(err, ShouldBeNil)
				So(devices, ShouldBeEmpty)
			})
		})
	})
}
