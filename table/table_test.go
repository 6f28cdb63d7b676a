// Copyright 2022 Stock Parfait

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package table

import (
	"bytes"
	"fmt"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

type testEntry struct {
	Value string
	Code  int64
}

func (e testEntry) CSV() []string { return []string{e.Value, fmt.Sprintf("%d", e.Code)} }

type badRow struct{}

func (badRow) CSV() []string { return nil }

func TestTable(t *testing.T) {
	t.Parallel()

	Convey("Table methods work", t, func() {
		t := NewTable("Value", "Code")
		headless := NewTable()

		So(t.Header, ShouldResemble, []string{"Value", "Code"})
		t.AddRow(testEntry{"Minimal", 1}, testEntry{"Fatal, pedestrian", 14})
		headless.AddRow(testEntry{"Minimal", 1}, testEntry{"Fatal, pedestrian", 14})

		Convey("AddRow worked", func() {
			So(len(t.Rows), ShouldEqual, 2)
			So(len(headless.Rows), ShouldEqual, 2)
		})

		Convey("WriteCSV", func() {
			Convey("Default Params", func() {
				var buf bytes.Buffer
				So(t.WriteCSV(&buf, Params{}), ShouldBeNil)
				So("\n"+buf.String(), ShouldEqual, `
Value,Code
Minimal,1
"Fatal, pedestrian",14
`)
			})

			Convey("Default Params, headless", func() {
				var buf bytes.Buffer
				So(headless.Write(&buf, FormatCSV, Params{}), ShouldBeNil)
				So("\n"+buf.String(), ShouldEqual, `
Minimal,1
"Fatal, pedestrian",14
`)
			})

			Convey("Limited rows, no header", func() {
				var buf bytes.Buffer
				So(t.WriteCSV(&buf, Params{Rows: 1, NoHeader: true}), ShouldBeNil)
				So("\n"+buf.String(), ShouldEqual, `
Minimal,1
`)
			})
		})

		Convey("WriteText", func() {
			Convey("Default Params", func() {
				var buf bytes.Buffer
				So(t.Write(&buf, FormatText, Params{}), ShouldBeNil)
				So("\n"+buf.String(), ShouldEqual, `
            Value | Code
----------------- | ----
          Minimal |    1
Fatal, pedestrian |   14
`)
			})

			Convey("Default Params, headless", func() {
				var buf bytes.Buffer
				So(headless.WriteText(&buf, Params{}), ShouldBeNil)
				So("\n"+buf.String(), ShouldEqual, `
          Minimal |  1
Fatal, pedestrian | 14
`)
			})

			Convey("Limited rows and width, custom separator", func() {
				var buf bytes.Buffer
				So(t.WriteText(&buf, Params{Rows: 1, MaxColWidth: 5, Separator: " "}), ShouldBeNil)
				So("\n"+buf.String(), ShouldEqual, `
Value Code
----- ----
Min..    1
`)
			})

			Convey("Bad width", func() {
				var buf bytes.Buffer
				So(t.WriteText(&buf, Params{MaxColWidth: 3}), ShouldNotBeNil)
			})

			Convey("Empty row", func() {
				var buf bytes.Buffer
				headless.AddRow(badRow{})
				So(headless.WriteText(&buf, Params{}), ShouldNotBeNil)
			})
		})

		Convey("Unsupported format", func() {
			var buf bytes.Buffer
			So(t.Write(&buf, Format(7), Params{}), ShouldNotBeNil)
		})
	})
}
