// Copyright © 2026 EdgeKit
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package connector

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/edgekit/thingsboard-connector/types"
)

func TestBuffer(t *testing.T) {
	Convey("Given an empty Buffer", t, func() {
		buffer := NewBuffer()

		Convey("Set should store every scalar kind", func() {
			for key, value := range map[string]interface{}{
				"on":          true,
				"mode":        "eco",
				"voltage":     220,
				"powerFactor": 0.75,
			} {
				So(buffer.Set(key, value), ShouldBeNil)
				stored, ok := buffer.Get(key)
				So(ok, ShouldBeTrue)
				So(stored, ShouldEqual, value)
			}
			So(buffer.Len(), ShouldEqual, 4)
		})

		Convey("Set should overwrite a prior reading", func() {
			So(buffer.Set("voltage", 220), ShouldBeNil)
			So(buffer.Set("voltage", 231), ShouldBeNil)
			stored, _ := buffer.Get("voltage")
			So(stored, ShouldEqual, 231)
			So(buffer.Len(), ShouldEqual, 1)
		})

		Convey("Set should reject non-scalar values and leave the buffer unchanged", func() {
			err := buffer.Set("bad", []int{1, 2})
			So(errors.Is(err, types.ErrInvalidArgument), ShouldBeTrue)
			So(errors.Is(buffer.Set("", 1), types.ErrInvalidArgument), ShouldBeTrue)
			So(buffer.Len(), ShouldEqual, 0)
		})

		Convey("SetAll should replace the buffer entirely", func() {
			So(buffer.Set("stale", 1), ShouldBeNil)
			So(buffer.SetAll(map[string]interface{}{"powerFactor": 0.75, "voltage": 220}), ShouldBeNil)
			So(buffer.Snapshot(), ShouldResemble, map[string]interface{}{"powerFactor": 0.75, "voltage": 220})
		})

		Convey("SetAll should leave the buffer unchanged when any entry is invalid", func() {
			So(buffer.Set("voltage", 220), ShouldBeNil)
			err := buffer.SetAll(map[string]interface{}{"powerFactor": 0.75, "bad": map[string]int{}})
			So(errors.Is(err, types.ErrInvalidArgument), ShouldBeTrue)
			So(errors.Is(buffer.SetAll(nil), types.ErrInvalidArgument), ShouldBeTrue)
			So(buffer.Snapshot(), ShouldResemble, map[string]interface{}{"voltage": 220})
		})

		Convey("Remove should delete exactly the given key", func() {
			So(buffer.SetAll(map[string]interface{}{"powerFactor": 0.75, "voltage": 220}), ShouldBeNil)
			So(buffer.Remove("voltage"), ShouldBeNil)
			So(buffer.Snapshot(), ShouldResemble, map[string]interface{}{"powerFactor": 0.75})

			Convey("And fail with a not-found error for an absent key", func() {
				So(errors.Is(buffer.Remove("voltage"), types.ErrKeyNotFound), ShouldBeTrue)
			})
		})

		Convey("Clear should empty the buffer", func() {
			So(buffer.SetAll(map[string]interface{}{"powerFactor": 0.75, "voltage": 220}), ShouldBeNil)
			buffer.Clear()
			So(buffer.Len(), ShouldEqual, 0)
		})

		Convey("Snapshot should be isolated from later mutation", func() {
			So(buffer.Set("voltage", 220), ShouldBeNil)
			snapshot := buffer.Snapshot()
			So(buffer.Set("voltage", 231), ShouldBeNil)
			So(snapshot["voltage"], ShouldEqual, 220)
		})
	})
}
